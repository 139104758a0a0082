package main

import (
	"context"
	"fmt"
	"log"

	"meal-order-api/config"
	"meal-order-api/events"
	"meal-order-api/handlers"
	"meal-order-api/notify"
	"meal-order-api/payments"
	"meal-order-api/routes"
	"meal-order-api/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func buildMailer(ctx context.Context, s config.Settings, logger *logrus.Logger) (notify.Mailer, error) {
	from := notify.Sender{Address: s.MailFromAddress, Name: s.MailFromName}
	switch s.MailTransport {
	case "log", "":
		return notify.LogMailer{Log: logger}, nil
	case "zeptomail":
		if s.ZeptoMailAPIKey == "" {
			return nil, fmt.Errorf("ZEPTOMAIL_API_KEY is required for the zeptomail transport")
		}
		return notify.NewZeptoMail(s.ZeptoMailAPIKey, s.ZeptoMailAPIURL, from), nil
	case "smtp":
		if s.SMTPHost == "" {
			return nil, fmt.Errorf("SMTP_HOST is required for the smtp transport")
		}
		return notify.NewSMTP(s.SMTPHost, s.SMTPPort, s.SMTPUsername, s.SMTPPassword, from), nil
	case "ses":
		return notify.NewSES(ctx, s.AWSRegion, from)
	}
	return nil, fmt.Errorf("unsupported MAIL_TRANSPORT %q", s.MailTransport)
}

func buildPublisher(s config.Settings) (events.Publisher, error) {
	if len(s.KafkaBrokers) == 0 {
		return events.Noop{}, nil
	}
	return events.NewKafka(s.KafkaBrokers, s.KafkaTimeout)
}

func main() {
	settings := config.Load()
	logger := config.NewLogger(settings.LogLevel)

	// Set Gin mode
	if settings.GinMode != "" {
		gin.SetMode(settings.GinMode)
	}

	// Initialize database
	config.InitDB(settings)

	ctx := context.Background()
	mailer, err := buildMailer(ctx, settings, logger)
	if err != nil {
		log.Fatal("Failed to configure mail transport: ", err)
	}
	publisher, err := buildPublisher(settings)
	if err != nil {
		log.Fatal("Failed to configure event publisher: ", err)
	}
	defer publisher.Close()

	if settings.PaystackSecretKey == "" {
		logger.Warn("PAYSTACK_SECRET_KEY is not set, payment calls will be rejected by the gateway")
	}
	gateway := payments.NewPaystack(settings.PaystackSecretKey, settings.PaystackBaseURL, settings.PaystackTimeout)
	notifier := notify.NewNotifier(mailer, settings.MailFromName, logger)

	carts := services.NewCartService(config.DB, logger)
	h := &handlers.Handler{
		Catalog: services.NewCatalogService(config.DB),
		Carts:   carts,
		Orders: services.NewOrderService(config.DB, gateway, notifier, publisher, carts, logger, services.OrderConfig{
			CallbackURL:    settings.CallbackURL(),
			OrderPaidTopic: settings.OrderPaidTopic,
		}),
		Accounts:          services.NewAccountService(config.DB, notifier, logger),
		PaymentSuccessURL: settings.PaymentSuccessURL,
	}

	r := routes.NewRouter(h, logger)

	// Start server
	logger.WithFields(logrus.Fields{
		"port":           settings.Port,
		"db_driver":      settings.DBDriver,
		"mail_transport": settings.MailTransport,
		"kafka":          len(settings.KafkaBrokers) > 0,
	}).Info("🚀 Server starting")
	if err := r.Run(":" + settings.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
