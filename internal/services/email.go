package services

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"portfolio/internal/config"
	"portfolio/internal/metrics"
	apperrors "portfolio/pkg/errors"
)

// ContactNotice carries what both notification messages need to know about a
// stored submission.
type ContactNotice struct {
	Name        string
	Email       string
	Subject     string
	Message     string
	ReferenceID string
	SubmittedAt time.Time
}

// smtpDialer opens one authenticated SMTP session. *gomail.Dialer satisfies it.
type smtpDialer interface {
	Dial() (gomail.SendCloser, error)
}

// EmailService delivers the owner alert and the sender acknowledgment
type EmailService struct {
	cfg  config.EmailConfig
	dial smtpDialer
	log  *slog.Logger
}

// NewEmailService creates a new email service
func NewEmailService(cfg config.EmailConfig, log *slog.Logger) *EmailService {
	return newEmailService(cfg, gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SenderAddress, cfg.SenderPassword), log)
}

func newEmailService(cfg config.EmailConfig, dial smtpDialer, log *slog.Logger) *EmailService {
	return &EmailService{
		cfg:  cfg,
		dial: dial,
		log:  log.With("component", "email"),
	}
}

// Available reports whether the transport settings are complete
func (s *EmailService) Available() bool {
	return s.cfg.TransportConfigured()
}

// SendPair sends the owner alert and then the acknowledgment over a single
// SMTP session. Any failure, including incomplete configuration, is returned
// as one TRANSPORT_ERROR. Nothing is retried.
func (s *EmailService) SendPair(ctx context.Context, n ContactNotice) error {
	if !s.Available() {
		s.log.Warn("email configuration incomplete; set SMTP_SERVER, SMTP_PORT, SENDER_EMAIL, SENDER_PASSWORD and optionally RECIPIENT_EMAIL")
		metrics.RecordNotification("unavailable", 0)
		return apperrors.Transport("notification unavailable", apperrors.ErrTransportUnavailable)
	}

	owner := s.buildOwnerAlert(n)
	ack := s.buildAcknowledgment(n)

	start := time.Now()
	err := s.withTimeout(ctx, func() error {
		sc, err := s.dial.Dial()
		if err != nil {
			return fmt.Errorf("open smtp session: %w", err)
		}
		if err := gomail.Send(sc, owner, ack); err != nil {
			_ = sc.Close()
			return err
		}
		return sc.Close()
	})
	if err != nil {
		metrics.RecordNotification("failed", time.Since(start))
		return apperrors.Transport("failed to send notification pair", err)
	}

	metrics.RecordNotification("sent", time.Since(start))
	s.log.Info("notification pair sent", "reference_id", n.ReferenceID, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// withTimeout runs send in the background and gives up once the configured
// timeout or the context deadline passes, whichever comes first.
func (s *EmailService) withTimeout(ctx context.Context, send func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- send()
	}()

	timer := time.NewTimer(s.cfg.Timeout())
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return context.DeadlineExceeded
	}
}

func (s *EmailService) buildOwnerAlert(n ContactNotice) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.cfg.SenderAddress, n.Name+" (Portfolio Contact)")
	m.SetHeader("To", s.cfg.OwnerAddress)
	m.SetHeader("Reply-To", n.Email)
	m.SetHeader("Subject", "Portfolio Contact: "+n.Subject)

	submitted := n.SubmittedAt.Format("January 2, 2006 at 3:04 PM MST")
	text := fmt.Sprintf(`New contact form submission:

Name: %s
Email: %s
Subject: %s
Submitted: %s
Reference: %s

Message:
%s
`, n.Name, n.Email, n.Subject, submitted, n.ReferenceID, n.Message)

	m.SetBody("text/plain", text)
	m.AddAlternative("text/html", ownerAlertHTML(n, submitted))
	return m
}

func ownerAlertHTML(n ContactNotice, submitted string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #334155;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #1C5D99;">New Contact Form Submission</h2>
        <div style="background: #F8FAFC; padding: 20px; border-radius: 8px; margin: 20px 0;">
            <p><strong>Name:</strong> %s</p>
            <p><strong>Email:</strong> <a href="mailto:%s">%s</a></p>
            <p><strong>Subject:</strong> %s</p>
            <p><strong>Submitted:</strong> %s</p>
        </div>
        <div style="background: #FFFFFF; padding: 20px; border-left: 4px solid #1C5D99; margin: 20px 0;">
            <p style="white-space: pre-wrap;">%s</p>
        </div>
        <p style="color: #64748B; font-size: 14px;">Reference: %s</p>
    </div>
</body>
</html>`,
		html.EscapeString(n.Name),
		html.EscapeString(n.Email), html.EscapeString(n.Email),
		html.EscapeString(n.Subject),
		submitted,
		html.EscapeString(n.Message),
		html.EscapeString(n.ReferenceID))
}

func (s *EmailService) buildAcknowledgment(n ContactNotice) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.cfg.SenderAddress, s.cfg.OwnerName)
	m.SetHeader("To", n.Email)
	m.SetHeader("Subject", fmt.Sprintf("Re: %s - Thank you for reaching out!", n.Subject))

	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", n.Name)
	fmt.Fprintf(&b, "Thank you for contacting me! I have received your message regarding %q and will get back to you as soon as possible.\n\n", n.Subject)
	fmt.Fprintf(&b, "Best regards,\n%s\n", s.cfg.OwnerName)
	if s.cfg.SiteURL != "" {
		fmt.Fprintf(&b, "Portfolio: %s\n", s.cfg.SiteURL)
	}

	m.SetBody("text/plain", b.String())
	return m
}
