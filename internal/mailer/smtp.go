package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nimasrn/crowdfund/internal/model"
	"github.com/nimasrn/crowdfund/pkg/logger"
	"gopkg.in/mail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	Timeout  time.Duration
}

// SMTPSender delivers email jobs through an SMTP relay.
type SMTPSender struct {
	dialer *mail.Dialer
	from   string
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, errors.New("smtp host and from address are required")
	}
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	if cfg.Timeout > 0 {
		d.Timeout = cfg.Timeout
	}
	if cfg.User == "" {
		// local relays such as mailhog do not speak TLS
		d.StartTLSPolicy = mail.NoStartTLS
	}
	return &SMTPSender{dialer: d, from: cfg.From}, nil
}

func (s *SMTPSender) Send(ctx context.Context, job *model.EmailJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.dialer.DialAndSend(s.message(job)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", job.To, err)
	}
	logger.Info("email delivered", "job_id", job.ID, "template", job.TemplateKey)
	return nil
}

func (s *SMTPSender) message(job *model.EmailJob) *mail.Message {
	m := mail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", job.To)
	m.SetHeader("Subject", job.Subject)
	m.SetHeader("X-Job-ID", job.ID)
	m.SetBody("text/html", job.HTML)
	return m
}
