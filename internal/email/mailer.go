// Package email renders account mails and hands them to a transport.
package email

import (
	"context"
	"errors"
)

var ErrNotConfigured = errors.New("email transport not configured")

// Recipient is who a mail is addressed to.
type Recipient struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Message is a rendered mail ready for delivery.
type Message struct {
	To       Recipient `json:"to"`
	Subject  string    `json:"subject"`
	HTML     string    `json:"html"`
	Template string    `json:"template"`
}

// Mailer delivers a rendered message. Implementations: SMTPMailer, KafkaMailer.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
