package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"text/template"
	"time"
)

// MailMessage is a plain-text email
type MailMessage struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers transactional email
type Mailer interface {
	Send(ctx context.Context, msg MailMessage) error
}

// SMTPConfig holds SMTP connection settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends mail through an SMTP relay
type SMTPMailer struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer creates an SMTP mailer
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

// Send delivers msg, returning ErrMailDelivery on failure
func (m *SMTPMailer) Send(ctx context.Context, msg MailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))

	if err := m.send(addr, auth, m.cfg.From, []string{msg.To}, buildMIME(m.cfg.From, msg)); err != nil {
		slog.Error("smtp send failed",
			slog.String("to", msg.To),
			slog.String("subject", msg.Subject),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}
	return nil
}

func buildMIME(from string, msg MailMessage) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return b.Bytes()
}

// LogMailer writes mail to the log instead of sending it (development)
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a mailer that logs every message
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

// Send logs msg
func (m *LogMailer) Send(ctx context.Context, msg MailMessage) error {
	m.logger.Info("mail",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Body),
	)
	return nil
}

var mailTemplates = template.Must(template.New("mail").Parse(`
{{define "verification"}}Halo {{.Name}},

Terima kasih telah mendaftar di Renunganku.

Kode verifikasi kamu: {{.OTP}}

Atau buka tautan berikut untuk memverifikasi email:
{{.Link}}

Kode dan tautan berlaku selama {{.Minutes}} menit.
{{end}}
{{define "reset"}}Halo {{.Name}},

Kami menerima permintaan untuk mengatur ulang password akun Renunganku kamu.

Kode OTP: {{.OTP}}

Kode berlaku selama {{.Minutes}} menit. Abaikan email ini jika kamu tidak memintanya.
{{end}}
{{define "suspicious"}}Halo {{.Name}},

Kamu melaporkan aktivitas mencurigakan pada akun Renunganku.
{{if .Device}}
Perangkat: {{.Device}}
Alamat IP: {{.IP}}
Terakhir aktif: {{.LastSeen}}
{{end}}{{if .Note}}
Catatan: {{.Note}}
{{end}}
Segera ganti password dan keluarkan sesi yang tidak kamu kenali di halaman pengaturan.
{{end}}
`))

type mailData struct {
	Name     string
	OTP      string
	Link     string
	Minutes  int
	Device   string
	IP       string
	LastSeen string
	Note     string
}

func renderMail(name string, data mailData) (string, error) {
	var b bytes.Buffer
	if err := mailTemplates.ExecuteTemplate(&b, name, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(b.String()) + "\n", nil
}

// VerificationMail builds the sign-up verification email
func VerificationMail(to, name, otp, link string, ttl time.Duration) (MailMessage, error) {
	body, err := renderMail("verification", mailData{Name: name, OTP: otp, Link: link, Minutes: int(ttl.Minutes())})
	if err != nil {
		return MailMessage{}, err
	}
	return MailMessage{To: to, Subject: "Verifikasi Email Renunganku", Body: body}, nil
}

// ResetPasswordMail builds the password reset OTP email
func ResetPasswordMail(to, name, otp string, ttl time.Duration) (MailMessage, error) {
	body, err := renderMail("reset", mailData{Name: name, OTP: otp, Minutes: int(ttl.Minutes())})
	if err != nil {
		return MailMessage{}, err
	}
	return MailMessage{To: to, Subject: "Kode Reset Password Renunganku", Body: body}, nil
}

// SuspiciousActivityMail builds the notice sent after a user reports a session
func SuspiciousActivityMail(to, name string, session *SessionNotice, note string) (MailMessage, error) {
	data := mailData{Name: name, Note: note}
	if session != nil {
		data.Device = session.DeviceName
		data.IP = session.IPAddress
		data.LastSeen = session.LastSeen.Format("02 Jan 2006 15:04 MST")
	}
	body, err := renderMail("suspicious", data)
	if err != nil {
		return MailMessage{}, err
	}
	return MailMessage{To: to, Subject: "Laporan Aktivitas Mencurigakan", Body: body}, nil
}

// SessionNotice is the session detail quoted in a suspicious-activity email
type SessionNotice struct {
	DeviceName string
	IPAddress  string
	LastSeen   time.Time
}
