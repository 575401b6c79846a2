package email

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	sent []Message
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, msg Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func newTestService(t *testing.T, mailer Mailer) *Service {
	t.Helper()

	svc, err := NewService(mailer, Options{
		FrontendURL:     "https://app.example.com",
		SendTimeout:     time.Second,
		VerificationTTL: 24 * time.Hour,
		ResetTTL:        time.Hour,
	})
	require.NoError(t, err)
	return svc
}

func TestSendVerificationEmail(t *testing.T) {
	mailer := &recordingMailer{}
	svc := newTestService(t, mailer)

	err := svc.SendVerificationEmail(context.Background(), Recipient{Name: "Alice", Email: "alice@example.com"}, "abc123")
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)

	msg := mailer.sent[0]
	assert.Equal(t, "alice@example.com", msg.To.Email)
	assert.Equal(t, "Verify your Viziopath account", msg.Subject)
	assert.Equal(t, TemplateVerification, msg.Template)
	assert.Contains(t, msg.HTML, "https://app.example.com/verify-email?token=abc123")
	assert.Contains(t, msg.HTML, "Hello Alice,")
	assert.Contains(t, msg.HTML, "24 hours")
}

func TestSendPasswordResetEmail(t *testing.T) {
	mailer := &recordingMailer{}
	svc := newTestService(t, mailer)

	err := svc.SendPasswordResetEmail(context.Background(), Recipient{Name: "Bob", Email: "bob@example.com"}, "tok")
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)
	assert.Contains(t, mailer.sent[0].HTML, "https://app.example.com/reset-password?token=tok")
	assert.Contains(t, mailer.sent[0].HTML, "1 hour")
}

func TestRenderEscapesName(t *testing.T) {
	svc := newTestService(t, &recordingMailer{})

	msg, err := svc.Render(TemplateWelcome, Recipient{Name: "<script>x</script>", Email: "x@example.com"}, "https://app.example.com", 0)
	require.NoError(t, err)
	assert.NotContains(t, msg.HTML, "<script>x</script>")
	assert.Contains(t, msg.HTML, "&lt;script&gt;")
}

func TestRenderUnknownTemplate(t *testing.T) {
	svc := newTestService(t, &recordingMailer{})

	_, err := svc.Render("nope", Recipient{}, "", 0)
	assert.Error(t, err)
}

func TestSendWrapsMailerError(t *testing.T) {
	svc := newTestService(t, &recordingMailer{err: ErrNotConfigured})

	err := svc.SendWelcomeEmail(context.Background(), Recipient{Name: "A", Email: "a@example.com"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSMTPMailerRequiresConfiguration(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: "587"})

	err := m.Send(context.Background(), Message{To: Recipient{Email: "a@example.com"}})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSMTPMailerBuildHeaders(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: "587", User: "noreply@example.com", Password: "x", FromName: "Viziopath"})

	raw := string(m.build(Message{To: Recipient{Email: "a@example.com"}, Subject: "Hi", HTML: "<p>hi</p>"}))
	assert.Contains(t, raw, "From: Viziopath <noreply@example.com>\r\n")
	assert.Contains(t, raw, "To: a@example.com\r\n")
	assert.Contains(t, raw, "Subject: Hi\r\n")
	assert.Contains(t, raw, "\r\n\r\n<p>hi</p>")
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaMailerPublishesEvent(t *testing.T) {
	w := &fakeWriter{}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := &KafkaMailer{writer: w, now: func() time.Time { return now }}

	err := m.Send(context.Background(), Message{
		To:       Recipient{Name: "Alice", Email: "alice@example.com"},
		Subject:  "Verify",
		HTML:     "<p>x</p>",
		Template: TemplateVerification,
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "alice@example.com", string(w.msgs[0].Key))

	var event map[string]any
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &event))
	assert.Equal(t, "Verify", event["subject"])
	assert.Equal(t, TemplateVerification, event["template"])
	assert.Equal(t, "2026-01-02T03:04:05Z", event["queuedAt"])
}

func TestKafkaMailerWrapsWriteError(t *testing.T) {
	boom := errors.New("broker down")
	m := &KafkaMailer{writer: &fakeWriter{err: boom}, now: time.Now}

	err := m.Send(context.Background(), Message{To: Recipient{Email: "a@example.com"}})
	assert.ErrorIs(t, err, boom)
}
