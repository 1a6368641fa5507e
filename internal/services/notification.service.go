package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/crowdfund/internal/mailer"
	"github.com/nimasrn/crowdfund/internal/model"
	"github.com/nimasrn/crowdfund/internal/repository"
	"github.com/nimasrn/crowdfund/pkg/logger"
)

type TemplateLookup interface {
	GetActiveByKey(ctx context.Context, key string) (*model.EmailTemplate, error)
}

// Publisher puts a job on the email stream.
type Publisher interface {
	PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error)
}

type NotificationService struct {
	templates TemplateLookup
	publisher Publisher
	baseURL   string
	now       func() time.Time
}

func NewNotificationService(templates TemplateLookup, publisher Publisher, baseURL string) *NotificationService {
	return &NotificationService{
		templates: templates,
		publisher: publisher,
		baseURL:   strings.TrimRight(baseURL, "/"),
		now:       time.Now,
	}
}

// Notify renders the template saved under key, or the built-in default, and
// queues the result for to.
func (s *NotificationService) Notify(ctx context.Context, key string, to model.Recipient, data map[string]interface{}) error {
	if to.Email == "" {
		return nil
	}

	subject, body, err := s.source(ctx, key)
	if err != nil {
		return err
	}
	return s.send(ctx, key, subject, body, to, data)
}

func (s *NotificationService) source(ctx context.Context, key string) (string, string, error) {
	tpl, err := s.templates.GetActiveByKey(ctx, key)
	if err == nil {
		return tpl.Subject, tpl.Body, nil
	}
	if !errors.Is(err, repository.ErrTemplateNotFound) {
		return "", "", fmt.Errorf("load template %s: %w", key, err)
	}
	d, ok := mailer.DefaultFor(key)
	if !ok {
		return "", "", fmt.Errorf("%w: no template for %s", ErrTemplateNotFound, key)
	}
	return d.Subject, d.Body, nil
}

// SendTemplate queues t for to regardless of its active flag. Used by broadcasts.
func (s *NotificationService) SendTemplate(ctx context.Context, t *model.EmailTemplate, to model.Recipient, data map[string]interface{}) error {
	if to.Email == "" {
		return nil
	}
	return s.send(ctx, t.Key, t.Subject, t.Body, to, data)
}

// send renders one email and publishes it.
func (s *NotificationService) send(ctx context.Context, key, subject, body string, to model.Recipient, data map[string]interface{}) error {
	merged := map[string]interface{}{
		"BaseURL":   s.baseURL,
		"Recipient": to,
	}
	for k, v := range data {
		merged[k] = v
	}
	if c, ok := merged["Campaign"].(*model.Campaign); ok && c != nil {
		if _, set := merged["CampaignURL"]; !set {
			merged["CampaignURL"] = s.baseURL + "/c/" + c.Slug
		}
	}

	renderedSubject, html, err := mailer.Render(subject, body, merged)
	if err != nil {
		return fmt.Errorf("render %s: %w", key, err)
	}

	job := model.EmailJob{
		ID:          uuid.NewString(),
		To:          to.Email,
		Subject:     renderedSubject,
		HTML:        html,
		TemplateKey: key,
		CreatedAt:   s.now().UTC(),
	}
	if _, err := s.publisher.PublishJSON(ctx, job, map[string]string{"template": key}); err != nil {
		return fmt.Errorf("queue email: %w", err)
	}
	logger.Debug("email queued", "job_id", job.ID, "template", key)
	return nil
}

// notify is the fire-and-forget form used by the other services.
func notify(ctx context.Context, n Notifier, key string, to model.Recipient, data map[string]interface{}) {
	if n == nil || to.Email == "" {
		return
	}
	if err := n.Notify(ctx, key, to, data); err != nil {
		logger.Error("failed to queue notification", "template", key, "error", err)
	}
}

func recipientOf(u *model.User) model.Recipient {
	if u == nil {
		return model.Recipient{}
	}
	return model.Recipient{Email: u.Email, Name: u.Name}
}
