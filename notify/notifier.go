package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"meal-order-api/models"

	"github.com/sirupsen/logrus"
)

var statusMessages = map[models.OrderStatus]string{
	models.StatusPending:   "Your order is being processed.",
	models.StatusPaid:      "Payment confirmed! Your order is being prepared.",
	models.StatusDelivered: "Your order has been delivered! Enjoy your meals!",
	models.StatusCancelled: "Your order has been cancelled.",
	models.StatusFailed:    "There was an issue with your order payment.",
	models.StatusRefunded:  "Your order has been refunded.",
}

// StatusMessage is the customer-facing sentence for an order status
func StatusMessage(s models.OrderStatus) string {
	if m, ok := statusMessages[s]; ok {
		return m
	}
	return "Your order status has been updated."
}

// Notifier builds the transactional emails and hands them to a Mailer.
// Only the OTP email reports delivery failures; the rest log and move on.
type Notifier struct {
	mailer Mailer
	brand  string
	log    *logrus.Logger
}

func NewNotifier(m Mailer, brand string, log *logrus.Logger) *Notifier {
	return &Notifier{mailer: m, brand: brand, log: log}
}

func (n *Notifier) Welcome(ctx context.Context, u *models.User) {
	text := fmt.Sprintf("Hi %s,\n\nWelcome to %s! Your account is ready. Browse our lean and dense meal plans or build your own selection.\n",
		u.FullName, n.brand)
	n.deliver(ctx, Message{
		To:      u.Email,
		ToName:  u.FullName,
		Subject: fmt.Sprintf("Welcome to %s!", n.brand),
		Text:    text,
		HTML:    toHTML(text),
	}, "welcome")
}

// PasswordResetOTP is the one notification whose failure the caller must see
func (n *Notifier) PasswordResetOTP(ctx context.Context, u *models.User, code string, ttl time.Duration) error {
	text := fmt.Sprintf("Hi %s,\n\nYour password reset code is: %s\n\nIt expires in %d minutes. If you did not request this, ignore this email.\n",
		u.FullName, code, int(ttl.Minutes()))
	err := n.mailer.Send(ctx, Message{
		To:      u.Email,
		ToName:  u.FullName,
		Subject: fmt.Sprintf("%s - Password Reset Code", n.brand),
		Text:    text,
		HTML:    toHTML(text),
	})
	if err != nil {
		return fmt.Errorf("failed to send reset code: %w", err)
	}
	return nil
}

func (n *Notifier) OrderReceipt(ctx context.Context, o *models.Order) {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\nThank you for your order.\n\nOrder Number: %s\n\n", o.FullName, o.Reference)
	for _, it := range o.Items {
		fmt.Fprintf(&b, "- %s x%d: %s\n", it.Name, it.Quantity, models.FormatNaira(it.TotalPrice))
	}
	fmt.Fprintf(&b, "\nSubtotal: %s\nDelivery: %s\nTotal: %s\n\nDelivery address: %s\n",
		models.FormatNaira(o.Subtotal), models.FormatNaira(o.Shipping), models.FormatNaira(o.Total), o.Address)
	n.deliver(ctx, Message{
		To:      o.Email,
		ToName:  o.FullName,
		Subject: "Order Confirmation - " + o.Reference,
		Text:    b.String(),
		HTML:    toHTML(b.String()),
	}, "order_receipt")
}

func (n *Notifier) OrderStatusUpdate(ctx context.Context, o *models.Order) {
	text := fmt.Sprintf("Dear %s,\n\n%s\n\nOrder Details:\n- Order Number: %s\n- Status: %s\n- Total: %s\n",
		o.FullName, StatusMessage(o.Status), o.Reference, o.Status.Display(), models.FormatNaira(o.Total))
	n.deliver(ctx, Message{
		To:      o.Email,
		ToName:  o.FullName,
		Subject: "Order Update - " + o.Reference,
		Text:    text,
		HTML:    toHTML(text),
	}, "order_status")
}

func (n *Notifier) deliver(ctx context.Context, msg Message, kind string) {
	if err := n.mailer.Send(ctx, msg); err != nil {
		n.log.WithFields(logrus.Fields{
			"kind":  kind,
			"to":    msg.To,
			"error": err.Error(),
		}).Warn("email delivery failed")
	}
}

func toHTML(text string) string {
	paras := strings.Split(strings.TrimSpace(text), "\n\n")
	var b strings.Builder
	for _, p := range paras {
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(html.EscapeString(p), "\n", "<br>"))
		b.WriteString("</p>")
	}
	return b.String()
}
