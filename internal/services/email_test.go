package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"portfolio/internal/config"
	"portfolio/internal/logging"
	apperrors "portfolio/pkg/errors"
)

type sentMessage struct {
	from string
	to   []string
	raw  string
}

type fakeSession struct {
	mu       sync.Mutex
	sent     []sentMessage
	failOn   int // 1-based index of the Send call that fails; 0 never fails
	closed   int
	sendErr  error
	closeErr error
}

func (f *fakeSession) Send(from string, to []string, msg io.WriterTo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn == len(f.sent)+1 {
		return f.sendErr
	}
	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		return err
	}
	f.sent = append(f.sent, sentMessage{from: from, to: to, raw: buf.String()})
	return nil
}

func (f *fakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return f.closeErr
}

type fakeDialer struct {
	mu      sync.Mutex
	session *fakeSession
	err     error
	block   chan struct{}
	dials   int
}

func (d *fakeDialer) Dial() (gomail.SendCloser, error) {
	d.mu.Lock()
	d.dials++
	d.mu.Unlock()
	if d.block != nil {
		<-d.block
	}
	if d.err != nil {
		return nil, d.err
	}
	return d.session, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func completeEmailConfig() config.EmailConfig {
	return config.EmailConfig{
		SMTPHost:       "smtp.example.com",
		SMTPPort:       587,
		SenderAddress:  "owner@example.com",
		SenderPassword: "app-password",
		OwnerAddress:   "inbox@example.com",
		OwnerName:      "Jane Doe",
		SiteURL:        "https://jane.example.com",
		TimeoutSeconds: 5,
	}
}

func sampleNotice() ContactNotice {
	return ContactNotice{
		Name:        "Ann",
		Email:       "a@x.com",
		Subject:     "Hi",
		Message:     "Hello",
		ReferenceID: "3f1c2c8e-0000-4000-8000-000000000001",
		SubmittedAt: time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC),
	}
}

func TestEmailService_SendPair_OneSessionTwoMessages(t *testing.T) {
	session := &fakeSession{}
	dialer := &fakeDialer{session: session}
	svc := newEmailService(completeEmailConfig(), dialer, logging.Discard())

	require.NoError(t, svc.SendPair(context.Background(), sampleNotice()))

	assert.Equal(t, 1, dialer.dialCount())
	assert.Equal(t, 1, session.closed)
	require.Len(t, session.sent, 2)

	owner := session.sent[0]
	assert.Equal(t, "owner@example.com", owner.from)
	assert.Equal(t, []string{"inbox@example.com"}, owner.to)
	assert.Contains(t, owner.raw, "Reply-To: a@x.com")
	assert.Contains(t, owner.raw, "Subject: Portfolio Contact: Hi")
	assert.Contains(t, owner.raw, "Portfolio Contact")
	assert.Contains(t, owner.raw, "text/html")

	ack := session.sent[1]
	assert.Equal(t, "owner@example.com", ack.from)
	assert.Equal(t, []string{"a@x.com"}, ack.to)
	assert.Contains(t, ack.raw, "Subject: Re: Hi - Thank you for reaching out!")
	assert.Contains(t, ack.raw, "Hello Ann,")
}

func TestEmailService_SendPair_UnavailableNeverDials(t *testing.T) {
	cfg := completeEmailConfig()
	cfg.SenderPassword = ""
	dialer := &fakeDialer{session: &fakeSession{}}
	svc := newEmailService(cfg, dialer, logging.Discard())

	err := svc.SendPair(context.Background(), sampleNotice())

	require.Error(t, err)
	assert.True(t, apperrors.IsTransport(err))
	assert.ErrorIs(t, err, apperrors.ErrTransportUnavailable)
	assert.False(t, svc.Available())
	assert.Zero(t, dialer.dialCount())
}

func TestEmailService_SendPair_DialFailure(t *testing.T) {
	dialer := &fakeDialer{err: errors.New("535 authentication failed")}
	svc := newEmailService(completeEmailConfig(), dialer, logging.Discard())

	err := svc.SendPair(context.Background(), sampleNotice())

	require.Error(t, err)
	assert.True(t, apperrors.IsTransport(err))
	assert.Contains(t, err.Error(), "authentication failed")
}

func TestEmailService_SendPair_SecondSendFailureFailsPair(t *testing.T) {
	session := &fakeSession{failOn: 2, sendErr: errors.New("550 mailbox unavailable")}
	svc := newEmailService(completeEmailConfig(), &fakeDialer{session: session}, logging.Discard())

	err := svc.SendPair(context.Background(), sampleNotice())

	require.Error(t, err)
	assert.True(t, apperrors.IsTransport(err))
	assert.Len(t, session.sent, 1, "no retry after the failing send")
	assert.Equal(t, 1, session.closed)
}

func TestEmailService_SendPair_ContextDeadline(t *testing.T) {
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	dialer := &fakeDialer{session: &fakeSession{}, block: block}
	svc := newEmailService(completeEmailConfig(), dialer, logging.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := svc.SendPair(ctx, sampleNotice())

	require.Error(t, err)
	assert.True(t, apperrors.IsTransport(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestEmailService_OwnerAlertEscapesHTML(t *testing.T) {
	n := sampleNotice()
	n.Name = `Ann "<b>"`
	n.Message = "<script>alert(1)</script>"

	body := ownerAlertHTML(n, "today")

	assert.NotContains(t, body, "<script>")
	assert.NotContains(t, body, "<b>")
	assert.Contains(t, body, "&lt;script&gt;alert(1)&lt;/script&gt;")
}
