// Package notifier delivers session reports to the operator.
package notifier

import (
	"fmt"

	"matchbot/internal/config"
	"matchbot/internal/notifier/providers"
	"matchbot/internal/report"
	"matchbot/internal/store"
)

// Sender defines the interface for email sending
type Sender interface {
	Send(to, subject, htmlBody, plainBody string) error
}

// Notifier sends session reports through a Sender
type Notifier struct {
	sender  Sender
	builder *report.Builder
	to      string
}

// maxReportDecisions caps the decision rows in a report email.
const maxReportDecisions = 50

// New creates a notifier with the given sender
func New(sender Sender, to string) (*Notifier, error) {
	builder, err := report.New(maxReportDecisions)
	if err != nil {
		return nil, err
	}
	return &Notifier{sender: sender, builder: builder, to: to}, nil
}

// NewFromConfig creates a notifier based on configuration
func NewFromConfig(cfg config.EmailConfig) (*Notifier, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("email notifications are disabled")
	}
	sender := providers.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.Username, cfg.Password, cfg.From)
	return New(sender, cfg.To)
}

// SendSessionReport builds and sends the report for a closed session
func (n *Notifier) SendSessionReport(sess *store.Session, decisions []store.DecisionRecord) error {
	rep, err := n.builder.Build(sess, decisions)
	if err != nil {
		return fmt.Errorf("failed to build session report: %w", err)
	}

	if err := n.sender.Send(n.to, rep.Subject, rep.HTMLBody, rep.PlainBody); err != nil {
		return fmt.Errorf("failed to send session report: %w", err)
	}
	return nil
}
