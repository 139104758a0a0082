package services

import (
	"context"
	"io"
	"sync"
	"testing"

	"meal-order-api/config"
	"meal-order-api/events"
	"meal-order-api/models"
	"meal-order-api/notify"
	"meal-order-api/payments"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func getTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection keeps a single in-memory database for the whole test
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, config.Migrate(db))
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

func (m *recordingMailer) subjects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sent))
	for i, s := range m.sent {
		out[i] = s.Subject
	}
	return out
}

type fakeGateway struct {
	mu          sync.Mutex
	initErr     error
	verifyErr   error
	status      string
	paidKobo    int64 // -1 means "echo whatever the latest initialize asked for"
	initCalls   []payments.InitializeRequest
	verifyCalls int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{status: "success", paidKobo: -1}
}

func (g *fakeGateway) Name() string { return "paystack" }

func (g *fakeGateway) Initialize(_ context.Context, req payments.InitializeRequest) (*payments.InitializeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.initCalls = append(g.initCalls, req)
	if g.initErr != nil {
		return nil, g.initErr
	}
	return &payments.InitializeResult{
		AuthorizationURL: "https://checkout.test/" + req.Reference,
		Reference:        req.Reference,
		Raw:              []byte(`{"status":true}`),
	}, nil
}

func (g *fakeGateway) Verify(_ context.Context, reference string) (*payments.VerifyResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifyCalls++
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	amount := g.paidKobo
	if amount < 0 {
		for _, c := range g.initCalls {
			if c.Reference == reference {
				amount = c.AmountKobo
			}
		}
	}
	return &payments.VerifyResult{
		Status:     g.status,
		AmountKobo: amount,
		Reference:  reference,
		GatewayID:  "txn-" + reference,
		Raw:        []byte(`{"status":true}`),
	}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	keys   []string
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, key, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.keys = append(p.keys, string(key))
	return nil
}

func (p *recordingPublisher) Close() {}

type testEnv struct {
	db        *gorm.DB
	mailer    *recordingMailer
	gateway   *fakeGateway
	publisher *recordingPublisher
	catalog   *CatalogService
	carts     *CartService
	orders    *OrderService
	accounts  *AccountService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := getTestDB(t)
	log := quietLogger()
	env := &testEnv{
		db:        db,
		mailer:    &recordingMailer{},
		gateway:   newFakeGateway(),
		publisher: &recordingPublisher{},
	}
	n := notify.NewNotifier(env.mailer, "Meals", log)
	env.catalog = NewCatalogService(db)
	env.carts = NewCartService(db, log)
	env.orders = NewOrderService(db, env.gateway, n, env.publisher, env.carts, log, OrderConfig{
		CallbackURL:    "http://localhost:8080/api/payments/verify",
		OrderPaidTopic: "orders.paid",
	})
	env.accounts = NewAccountService(db, n, log)
	return env
}

var _ events.Publisher = (*recordingPublisher)(nil)

func seedFood(t *testing.T, db *gorm.DB, name string, price int64, calories int, protein string) models.FoodItem {
	t.Helper()
	f := models.FoodItem{
		Name:          name,
		Price:         decimal.NewFromInt(price),
		Calories:      calories,
		Protein:       decimal.RequireFromString(protein),
		Carbohydrates: decimal.NewFromInt(10),
		Fat:           decimal.NewFromInt(5),
		FoodType:      models.DensityLean,
		Category:      models.CategoryLunch,
	}
	require.NoError(t, db.Create(&f).Error)
	return f
}

// seedPlan stores a plan directly; price < 0 leaves the price unset
func seedPlan(t *testing.T, db *gorm.DB, title string, mealCount, days int, density models.Density, price int64, meals ...models.FoodItem) models.MealPlan {
	t.Helper()
	p := models.MealPlan{
		Title:     title,
		Slug:      Slugify(title),
		MealCount: mealCount,
		Days:      days,
		Density:   density,
		Meals:     meals,
	}
	if price >= 0 {
		p.Price = decimal.NewNullDecimal(decimal.NewFromInt(price))
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func guest(key string) CartOwner {
	return CartOwner{SessionKey: key}
}

func userOwner(id uint) CartOwner {
	return CartOwner{UserID: &id}
}

func seedUser(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()
	u := models.User{FullName: "Ada Obi", Email: email, PhoneNumber: email + "-phone", PasswordHash: "x", Role: models.RoleCustomer}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func checkoutInput() CheckoutInput {
	return CheckoutInput{
		FullName:    "Ada Obi",
		Email:       "ada@example.com",
		PhoneNumber: "08030000000",
		Address:     "12 Marina, Lagos",
	}
}
