// Package mail sends notification e-mails over SMTP.
package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"mime"
	"net/smtp"
	"strings"
	"sync"

	"hasker/backend/internal/metrics"
	"hasker/backend/internal/models"

	"github.com/sirupsen/logrus"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Config holds the SMTP settings.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	SiteURL  string
}

// SendFunc delivers one message; it matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends mail off the request goroutine.
type Mailer struct {
	cfg  Config
	send SendFunc
	log  *logrus.Logger
	wg   sync.WaitGroup
}

// New returns a Mailer delivering through smtp.SendMail.
func New(cfg Config, log *logrus.Logger) *Mailer {
	return NewWithSender(cfg, smtp.SendMail, log)
}

func NewWithSender(cfg Config, send SendFunc, log *logrus.Logger) *Mailer {
	cfg.SiteURL = strings.TrimRight(cfg.SiteURL, "/")
	return &Mailer{cfg: cfg, send: send, log: log}
}

// NewAnswer tells the question author that someone answered. question must
// have its Author loaded and answer its Author.
func (m *Mailer) NewAnswer(question *models.Question, answer *models.Answer) {
	if question.Author.Email == "" {
		return
	}
	var body bytes.Buffer
	err := templates.ExecuteTemplate(&body, "new_answer.html", map[string]string{
		"Recipient":   question.Author.Username,
		"Answerer":    answer.Author.Username,
		"Title":       question.Title,
		"QuestionURL": fmt.Sprintf("%s/questions/%d", m.cfg.SiteURL, question.ID),
	})
	if err != nil {
		m.log.WithError(err).Error("Failed to render new answer email")
		return
	}
	m.sendAsync([]string{question.Author.Email}, "New answer", body.String())
}

func (m *Mailer) sendAsync(to []string, subject, body string) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		msg := buildMessage(m.cfg.From, to, subject, body)
		var auth smtp.Auth
		if m.cfg.Username != "" {
			auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		}
		addr := fmt.Sprintf("%s:%s", m.cfg.Host, m.cfg.Port)

		entry := m.log.WithFields(logrus.Fields{"to": to, "subject": subject})
		if err := m.send(addr, auth, m.cfg.From, to, msg); err != nil {
			metrics.RecordMail(false)
			entry.WithError(err).Error("Failed to send email")
			return
		}
		metrics.RecordMail(true)
		entry.Info("Email sent")
	}()
}

// Wait blocks until queued messages are handed to the server.
func (m *Mailer) Wait() {
	m.wg.Wait()
}

func buildMessage(from string, to []string, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: Hasker <%s>\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
