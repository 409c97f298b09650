package report

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"os"
	"time"

	"github.com/aluiziolira/go-scrape-adidas/config"
	"github.com/aluiziolira/go-scrape-adidas/models"
)

const senderName = "Adidas Scraper"

const emailTemplate = `<html>
<body>
<p>Hi {{.RecipientName}},</p>
<p>The catalog crawl finished at {{.FinishTime}}.</p>
<table>
  <tr><td>Items scraped</td><td>{{.Stats.ItemScrapedCount}}</td></tr>
  <tr><td>Elapsed</td><td>{{printf "%.1f" .Stats.ElapsedTimeSeconds}}s</td></tr>
  <tr><td>Requests</td><td>{{.Stats.RequestCount}}</td></tr>
  <tr><td>Successful responses</td><td>{{.Stats.SuccessCount}}</td></tr>
  <tr><td>Errors</td><td>{{.Stats.ErrorCount}}</td></tr>
  <tr><td>Bytes out</td><td>{{.Stats.RequestBytes}}</td></tr>
  <tr><td>Bytes in</td><td>{{.Stats.ResponseBytes}}</td></tr>
</table>
<p>The consolidated spreadsheet is attached.</p>
<p>{{.SenderName}}</p>
</body>
</html>`

var bodyTemplate = template.Must(template.New("email").Parse(emailTemplate))

// Mailer sends the run completion report over SMTP.
type Mailer struct {
	cfg *config.Config
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{cfg: cfg}
}

// SendCompletionReport emails the run summary with the spreadsheet attached.
// attachmentPath may be empty when no spreadsheet was generated.
func (m *Mailer) SendCompletionReport(subject string, stats *models.RunStats, attachmentPath string) error {
	if !m.cfg.MailConfigured() {
		return fmt.Errorf("mail settings are incomplete")
	}

	var attachment []byte
	if attachmentPath != "" {
		data, err := os.ReadFile(attachmentPath)
		if err != nil {
			return fmt.Errorf("read attachment: %w", err)
		}
		attachment = data
	}

	msg, err := m.buildMessage(subject, stats, attachment)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)
	auth := smtp.PlainAuth("", m.cfg.AdminEmail, m.cfg.AdminPassword, m.cfg.SMTPHost)
	if err := smtp.SendMail(addr, auth, m.cfg.AdminEmail, []string{m.cfg.RecipientEmail}, msg); err != nil {
		return fmt.Errorf("send report email: %w", err)
	}
	return nil
}

// buildMessage assembles the multipart MIME message: an HTML body part and,
// when present, the xlsx attachment encoded base64.
func (m *Mailer) buildMessage(subject string, stats *models.RunStats, attachment []byte) ([]byte, error) {
	var body bytes.Buffer
	err := bodyTemplate.Execute(&body, struct {
		RecipientName string
		SenderName    string
		FinishTime    string
		Stats         *models.RunStats
	}{
		RecipientName: m.cfg.RecipientName,
		SenderName:    senderName,
		FinishTime:    stats.FinishTime.Format(time.RFC1123),
		Stats:         stats,
	})
	if err != nil {
		return nil, fmt.Errorf("render email body: %w", err)
	}

	var msg bytes.Buffer
	writer := multipart.NewWriter(&msg)

	fmt.Fprintf(&msg, "From: %s\r\n", m.cfg.AdminEmail)
	fmt.Fprintf(&msg, "To: %s\r\n", m.cfg.RecipientEmail)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", writer.Boundary())

	htmlPart, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/html; charset=utf-8"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := htmlPart.Write(body.Bytes()); err != nil {
		return nil, err
	}

	if len(attachment) > 0 {
		filePart, err := writer.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {`attachment; filename="report.xlsx"`},
		})
		if err != nil {
			return nil, err
		}
		encoder := base64.NewEncoder(base64.StdEncoding, filePart)
		if _, err := encoder.Write(attachment); err != nil {
			return nil, err
		}
		if err := encoder.Close(); err != nil {
			return nil, err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}
	return msg.Bytes(), nil
}
