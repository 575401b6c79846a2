package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"time"

	"github.com/redmonkez12/viziopath-api/internal/logging"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	TemplateVerification  = "verification"
	TemplatePasswordReset = "password_reset"
	TemplateWelcome       = "welcome"
)

type templateSpec struct {
	subject string
	heading string
	accent  string
}

var templateSpecs = map[string]templateSpec{
	TemplateVerification:  {subject: "Verify your Viziopath account", heading: "Welcome to Viziopath!", accent: "#4f46e5"},
	TemplatePasswordReset: {subject: "Reset your Viziopath password", heading: "Password Reset Request", accent: "#dc2626"},
	TemplateWelcome:       {subject: "Welcome to Viziopath!", heading: "Welcome to Viziopath!", accent: "#059669"},
}

// Service renders the account lifecycle mails and sends them through a Mailer.
type Service struct {
	mailer          Mailer
	frontendURL     string
	timeout         time.Duration
	verificationTTL time.Duration
	resetTTL        time.Duration
	templates       map[string]*template.Template
}

// Options configures link targets and how long a send may take.
type Options struct {
	FrontendURL     string
	SendTimeout     time.Duration
	VerificationTTL time.Duration
	ResetTTL        time.Duration
}

func NewService(mailer Mailer, opts Options) (*Service, error) {
	templates := make(map[string]*template.Template, len(templateSpecs))
	for name := range templateSpecs {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		templates[name] = t
	}

	return &Service{
		mailer:          mailer,
		frontendURL:     opts.FrontendURL,
		timeout:         opts.SendTimeout,
		verificationTTL: opts.VerificationTTL,
		resetTTL:        opts.ResetTTL,
		templates:       templates,
	}, nil
}

// SendVerificationEmail sends an email verification link to the user
func (s *Service) SendVerificationEmail(ctx context.Context, to Recipient, token string) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", s.frontendURL, url.QueryEscape(token))
	return s.send(ctx, TemplateVerification, to, link, s.verificationTTL)
}

// SendPasswordResetEmail sends a password reset link to the user
func (s *Service) SendPasswordResetEmail(ctx context.Context, to Recipient, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, url.QueryEscape(token))
	return s.send(ctx, TemplatePasswordReset, to, link, s.resetTTL)
}

// SendWelcomeEmail greets a freshly verified user
func (s *Service) SendWelcomeEmail(ctx context.Context, to Recipient) error {
	return s.send(ctx, TemplateWelcome, to, s.frontendURL, 0)
}

func (s *Service) send(ctx context.Context, name string, to Recipient, link string, ttl time.Duration) error {
	logger := logging.GetLoggerFromContext(ctx)

	msg, err := s.Render(name, to, link, ttl)
	if err != nil {
		logger.Error("failed to render email template", "template", name, "error", err)
		return err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s email: %w", name, err)
	}

	logger.Info("email sent", "template", name, "email", to.Email)
	return nil
}

// Render builds the message for a template without sending it.
func (s *Service) Render(name string, to Recipient, link string, ttl time.Duration) (Message, error) {
	spec, ok := templateSpecs[name]
	t, found := s.templates[name]
	if !ok || !found {
		return Message{}, fmt.Errorf("unknown email template %q", name)
	}

	data := struct {
		Subject   string
		Heading   string
		Accent    template.CSS
		Name      string
		Link      string
		ExpiresIn string
		Year      int
	}{
		Subject:   spec.subject,
		Heading:   spec.heading,
		Accent:    template.CSS(spec.accent),
		Name:      to.Name,
		Link:      link,
		ExpiresIn: humanizeTTL(ttl),
		Year:      time.Now().Year(),
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return Message{}, fmt.Errorf("execute template %s: %w", name, err)
	}

	return Message{To: to, Subject: spec.subject, HTML: buf.String(), Template: name}, nil
}

func humanizeTTL(d time.Duration) string {
	switch {
	case d <= 0:
		return ""
	case d%time.Hour == 0 && d/time.Hour == 1:
		return "1 hour"
	case d%time.Hour == 0:
		return fmt.Sprintf("%d hours", d/time.Hour)
	default:
		return fmt.Sprintf("%d minutes", d/time.Minute)
	}
}
