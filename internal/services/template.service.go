package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nimasrn/crowdfund/internal/mailer"
	"github.com/nimasrn/crowdfund/internal/model"
	"github.com/nimasrn/crowdfund/internal/repository"
	"github.com/nimasrn/crowdfund/pkg/logger"
)

type TemplateRepository interface {
	Create(ctx context.Context, t *model.EmailTemplate) (*model.EmailTemplate, error)
	GetByID(ctx context.Context, id int64) (*model.EmailTemplate, error)
	List(ctx context.Context) ([]*model.EmailTemplate, error)
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) (*model.EmailTemplate, error)
	SoftDelete(ctx context.Context, id int64) error
}

type RecipientSource interface {
	ListRecipients(ctx context.Context, creatorsOnly bool) ([]model.Recipient, error)
}

type DonorSource interface {
	ListDonorRecipients(ctx context.Context) ([]model.Recipient, error)
}

type TemplateSender interface {
	SendTemplate(ctx context.Context, t *model.EmailTemplate, to model.Recipient, data map[string]interface{}) error
}

type TemplateService struct {
	templates TemplateRepository
	users     RecipientSource
	donors    DonorSource
	sender    TemplateSender
}

func NewTemplateService(templates TemplateRepository, users RecipientSource, donors DonorSource, sender TemplateSender) *TemplateService {
	return &TemplateService{
		templates: templates,
		users:     users,
		donors:    donors,
		sender:    sender,
	}
}

func (s *TemplateService) List(ctx context.Context) ([]*model.EmailTemplate, error) {
	return s.templates.List(ctx)
}

func (s *TemplateService) Get(ctx context.Context, id int64) (*model.EmailTemplate, error) {
	t, err := s.templates.GetByID(ctx, id)
	if err != nil {
		return nil, mapTemplateErr(err)
	}
	return t, nil
}

func (s *TemplateService) Create(ctx context.Context, req *model.EmailTemplateRequest) (*model.EmailTemplate, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	t, err := s.templates.Create(ctx, &model.EmailTemplate{
		Key:      req.Key,
		Name:     req.Name,
		Subject:  req.Subject,
		Body:     req.Body,
		IsActive: active,
	})
	if err != nil {
		return nil, mapTemplateErr(err)
	}
	logger.Info("email template created", "template_id", t.ID, "key", t.Key)
	return t, nil
}

func (s *TemplateService) Update(ctx context.Context, id int64, req *model.EmailTemplateRequest) (*model.EmailTemplate, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	fields := map[string]interface{}{
		"key":     req.Key,
		"name":    req.Name,
		"subject": req.Subject,
		"body":    req.Body,
	}
	if req.IsActive != nil {
		fields["is_active"] = *req.IsActive
	}
	t, err := s.templates.UpdateFields(ctx, id, fields)
	if err != nil {
		return nil, mapTemplateErr(err)
	}
	return t, nil
}

func (s *TemplateService) Delete(ctx context.Context, id int64) error {
	return mapTemplateErr(s.templates.SoftDelete(ctx, id))
}

func (s *TemplateService) check(req *model.EmailTemplateRequest) error {
	req.Key = strings.TrimSpace(req.Key)
	req.Name = strings.TrimSpace(req.Name)
	req.Subject = strings.TrimSpace(req.Subject)
	if err := validateStruct(req); err != nil {
		return err
	}
	if err := mailer.Validate(req.Body); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	return nil
}

// Broadcast queues one email per recipient of the audience. Donors and users
// overlapping in the "all" audience receive a single copy.
func (s *TemplateService) Broadcast(ctx context.Context, id int64, audience model.Audience) (*model.BroadcastResult, error) {
	if err := validateStruct(&model.BroadcastRequest{Audience: audience}); err != nil {
		return nil, err
	}
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	recipients, err := s.recipients(ctx, audience)
	if err != nil {
		return nil, err
	}

	result := &model.BroadcastResult{}
	for _, r := range recipients {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := s.sender.SendTemplate(ctx, t, r, nil); err != nil {
			logger.Error("broadcast email failed", "template_id", id, "error", err)
			continue
		}
		result.Queued++
	}
	logger.Info("broadcast queued", "template_id", id, "audience", string(audience), "queued", result.Queued, "recipients", len(recipients))
	return result, nil
}

func (s *TemplateService) recipients(ctx context.Context, audience model.Audience) ([]model.Recipient, error) {
	var lists [][]model.Recipient
	switch audience {
	case model.AudienceCreators:
		r, err := s.users.ListRecipients(ctx, true)
		if err != nil {
			return nil, err
		}
		lists = append(lists, r)
	case model.AudienceDonors:
		r, err := s.donors.ListDonorRecipients(ctx)
		if err != nil {
			return nil, err
		}
		lists = append(lists, r)
	default:
		users, err := s.users.ListRecipients(ctx, false)
		if err != nil {
			return nil, err
		}
		donors, err := s.donors.ListDonorRecipients(ctx)
		if err != nil {
			return nil, err
		}
		lists = append(lists, users, donors)
	}

	seen := make(map[string]struct{})
	var out []model.Recipient
	for _, list := range lists {
		for _, r := range list {
			email := strings.ToLower(strings.TrimSpace(r.Email))
			if email == "" {
				continue
			}
			if _, dup := seen[email]; dup {
				continue
			}
			seen[email] = struct{}{}
			out = append(out, r)
		}
	}
	return out, nil
}

func mapTemplateErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrTemplateNotFound):
		return ErrTemplateNotFound
	case errors.Is(err, repository.ErrDuplicateTemplateKey):
		return ErrDuplicateTemplateKey
	}
	return err
}
