package notify

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Message is one transactional email
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers a message through some transport
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Sender identifies the From address used by every transport
type Sender struct {
	Address string
	Name    string
}

func (s Sender) header() string {
	if s.Name == "" {
		return s.Address
	}
	return fmt.Sprintf("%s <%s>", s.Name, s.Address)
}

// LogMailer writes messages to the log instead of sending them
type LogMailer struct {
	Log *logrus.Logger
}

func (m LogMailer) Send(_ context.Context, msg Message) error {
	m.Log.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("email (log transport)")
	m.Log.Debug(msg.Text)
	return nil
}
