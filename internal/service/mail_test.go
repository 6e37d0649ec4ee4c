package service

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingMailer keeps every sent message
type recordingMailer struct {
	sent []MailMessage
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, msg MailMessage) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) last() MailMessage {
	if len(m.sent) == 0 {
		return MailMessage{}
	}
	return m.sent[len(m.sent)-1]
}

func TestVerificationMail(t *testing.T) {
	t.Parallel()

	msg, err := VerificationMail("a@b.id", "Budi", "AB12CD34", "https://renunganku.id/verify?token=x", 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "a@b.id", msg.To)
	assert.Contains(t, msg.Body, "Halo Budi")
	assert.Contains(t, msg.Body, "AB12CD34")
	assert.Contains(t, msg.Body, "verify?token=x")
	assert.Contains(t, msg.Body, "15 menit")
}

func TestSuspiciousActivityMail_WithoutSession(t *testing.T) {
	t.Parallel()

	msg, err := SuspiciousActivityMail("a@b.id", "Budi", nil, "bukan saya")
	require.NoError(t, err)
	assert.NotContains(t, msg.Body, "Perangkat:")
	assert.Contains(t, msg.Body, "Catatan: bukan saya")
}

func TestSMTPMailer_WrapsDeliveryErrors(t *testing.T) {
	t.Parallel()

	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", From: "noreply@renunganku.id"})
	var gotAddr string
	var gotMsg []byte
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotMsg = addr, msg
		return errors.New("connection refused")
	}

	err := m.Send(context.Background(), MailMessage{To: "a@b.id", Subject: "Tes", Body: "satu\ndua"})
	assert.ErrorIs(t, err, ErrMailDelivery)
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.True(t, strings.Contains(string(gotMsg), "satu\r\ndua"))
	assert.Contains(t, string(gotMsg), "Subject: Tes\r\n")
}
