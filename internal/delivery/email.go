package delivery

import (
	"fmt"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"go.uber.org/zap"

	"TrendWatch/internal/digest"
	"TrendWatch/internal/store"
	"TrendWatch/pkg/logger"
)

// EmailSender delivers the digest over SMTP as a multipart/alternative
// message with text and HTML bodies.
type EmailSender struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	Recipients []string
	DryRun     bool

	// send is swappable in tests; defaults to smtp.SendMail.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailSender builds a sender from SMTP settings.
func NewEmailSender(host string, port int, username, password, from string, recipients []string, dryRun bool) *EmailSender {
	return &EmailSender{
		Host:       host,
		Port:       port,
		Username:   username,
		Password:   password,
		From:       from,
		Recipients: recipients,
		DryRun:     dryRun,
		send:       smtp.SendMail,
	}
}

// Send delivers the digest email and records the attempt in email_logs.
func (e *EmailSender) Send(d *digest.Digest, st *store.Store, reportID int64) error {
	subject := fmt.Sprintf("TrendWatch Digest — %s", d.RunDate.Format("2006-01-02"))
	entry := &store.EmailLog{ReportID: reportID, Recipients: e.Recipients, Subject: subject}

	if e.DryRun {
		entry.Status = "dry_run"
		logger.L().Info("email dry run", zap.String("subject", subject), zap.Strings("recipients", e.Recipients))
		return st.InsertEmailLog(entry)
	}

	msg, messageID, err := e.buildMessage(d, subject)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if e.Username != "" {
		auth = smtp.PlainAuth("", e.Username, e.Password, e.Host)
	}
	addr := fmt.Sprintf("%s:%d", e.Host, e.Port)
	if err := e.send(addr, auth, e.From, e.Recipients, msg); err != nil {
		entry.Status = "failed"
		entry.ErrMessage = err.Error()
		if logErr := st.InsertEmailLog(entry); logErr != nil {
			logger.L().Warn("record email failure", zap.Error(logErr))
		}
		return fmt.Errorf("send email: %w", err)
	}

	entry.Status = "sent"
	entry.MessageID = messageID
	logger.L().Info("email sent", zap.String("subject", subject), zap.Int("recipients", len(e.Recipients)))
	return st.InsertEmailLog(entry)
}

func (e *EmailSender) buildMessage(d *digest.Digest, subject string) ([]byte, string, error) {
	text, err := d.EmailText()
	if err != nil {
		return nil, "", err
	}
	html, err := d.EmailHTML()
	if err != nil {
		return nil, "", err
	}

	var body strings.Builder
	w := multipart.NewWriter(&body)

	messageID := fmt.Sprintf("<trendwatch-%s-%d@%s>", d.RunDate.Format("20060102"), time.Now().UnixNano(), e.Host)
	headers := []string{
		"From: " + e.From,
		"To: " + strings.Join(e.Recipients, ", "),
		"Subject: " + subject,
		"Message-ID: " + messageID,
		"MIME-Version: 1.0",
		`Content-Type: multipart/alternative; boundary="` + w.Boundary() + `"`,
		"",
		"",
	}

	textPart, err := w.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/plain; charset=utf-8"}})
	if err != nil {
		return nil, "", fmt.Errorf("create text part: %w", err)
	}
	if _, err := textPart.Write([]byte(text)); err != nil {
		return nil, "", fmt.Errorf("write text part: %w", err)
	}

	htmlPart, err := w.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/html; charset=utf-8"}})
	if err != nil {
		return nil, "", fmt.Errorf("create html part: %w", err)
	}
	if _, err := htmlPart.Write([]byte(html)); err != nil {
		return nil, "", fmt.Errorf("write html part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}

	return []byte(strings.Join(headers, "\r\n") + body.String()), messageID, nil
}
