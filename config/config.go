package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"meal-order-api/models"

	"github.com/glebarez/sqlite"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// JWTSecret used to sign tokens. Read from env or fallback
var JWTSecret = []byte(getEnv("JWT_SECRET", "meal_order_super_secret_2024"))

// Settings is everything the service reads from the environment
type Settings struct {
	Port     string
	GinMode  string
	LogLevel string

	DBDriver string // sqlite or postgres
	DBDSN    string

	PaystackSecretKey string
	PaystackBaseURL   string
	PaystackTimeout   time.Duration
	PublicBaseURL     string
	PaymentSuccessURL string

	MailTransport   string // log, zeptomail, smtp or ses
	ZeptoMailAPIKey string
	ZeptoMailAPIURL string
	MailFromAddress string
	MailFromName    string
	SMTPHost        string
	SMTPPort        string
	SMTPUsername    string
	SMTPPassword    string
	AWSRegion       string
	KafkaBrokers    []string
	KafkaTimeout    time.Duration
	OrderPaidTopic  string
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Load reads an optional .env file and then the process environment
func Load() Settings {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Println("Could not read .env file:", err)
	}
	JWTSecret = []byte(getEnv("JWT_SECRET", "meal_order_super_secret_2024"))

	return Settings{
		Port:     getEnv("PORT", "8080"),
		GinMode:  os.Getenv("GIN_MODE"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DBDriver: getEnv("DB_DRIVER", "sqlite"),
		DBDSN:    getEnv("DB_DSN", "meal_orders.db"),

		PaystackSecretKey: os.Getenv("PAYSTACK_SECRET_KEY"),
		PaystackBaseURL:   getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
		PaystackTimeout:   getDuration("PAYSTACK_TIMEOUT", 15*time.Second),
		PublicBaseURL:     strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		PaymentSuccessURL: os.Getenv("FRONTEND_PAYMENT_SUCCESS_URL"),

		MailTransport:   getEnv("MAIL_TRANSPORT", "log"),
		ZeptoMailAPIKey: os.Getenv("ZEPTOMAIL_API_KEY"),
		ZeptoMailAPIURL: getEnv("ZEPTOMAIL_API_URL", "https://api.zeptomail.com/v1.1/email"),
		MailFromAddress: getEnv("MAIL_FROM_ADDRESS", "noreply@example.com"),
		MailFromName:    getEnv("MAIL_FROM_NAME", "Meal Orders"),
		SMTPHost:        os.Getenv("SMTP_HOST"),
		SMTPPort:        getEnv("SMTP_PORT", "587"),
		SMTPUsername:    os.Getenv("SMTP_USERNAME"),
		SMTPPassword:    os.Getenv("SMTP_PASSWORD"),
		AWSRegion:       os.Getenv("AWS_REGION"),
		KafkaBrokers:    splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTimeout:    getDuration("KAFKA_TIMEOUT", 10*time.Second),
		OrderPaidTopic:  getEnv("KAFKA_ORDER_PAID_TOPIC", "orders.paid"),
	}
}

// CallbackURL is where the gateway redirects the customer after payment
func (s Settings) CallbackURL() string {
	return s.PublicBaseURL + "/api/payments/verify"
}

// OpenDB opens the configured database without migrating it
func OpenDB(s Settings) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch s.DBDriver {
	case "sqlite":
		dialector = sqlite.Open(s.DBDSN)
	case "postgres":
		dialector = postgres.Open(s.DBDSN)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", s.DBDriver)
	}
	return gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
}

// Migrate creates or updates every table
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.PasswordResetOTP{},
		&models.FoodItem{},
		&models.MealPlan{},
		&models.Cart{},
		&models.CartPlan{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.PaymentTransaction{},
		&models.OrderStatusHistory{},
	)
}

func InitDB(s Settings) {
	var err error
	DB, err = OpenDB(s)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	if err = Migrate(DB); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	log.Println("✅ Database connected and migrated successfully")
}

// NewLogger builds the process-wide structured logger
func NewLogger(level string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return l
}
