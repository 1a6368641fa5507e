package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	gateway "github.com/nimasrn/crowdfund/internal/gateways"
	"github.com/nimasrn/crowdfund/internal/idempotency"
	"github.com/nimasrn/crowdfund/internal/model"
	"github.com/nimasrn/crowdfund/internal/repository"
	"github.com/nimasrn/crowdfund/pkg/logger"
	"github.com/nimasrn/crowdfund/pkg/prom"
)

type PaymentRepository interface {
	Create(ctx context.Context, p *model.Payment) (*model.Payment, error)
	GetByID(ctx context.Context, id int64) (*model.Payment, error)
	GetByReference(ctx context.Context, reference string) (*model.Payment, error)
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) (*model.Payment, error)
	Transition(ctx context.Context, id int64, from, to model.PaymentStatus, extra map[string]interface{}) (*model.Payment, error)
	List(ctx context.Context, f model.PaymentFilter) ([]*model.Payment, int64, error)
	ListPublic(ctx context.Context, campaignID int64, page model.Page) ([]*model.Payment, int64, error)
	PendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*model.Payment, error)
}

type PaymentCampaignRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Campaign, error)
	AddRaised(ctx context.Context, id int64, amount int64) (*model.Campaign, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

type ChargeGateway interface {
	Charge(ctx context.Context, req *gateway.ChargeRequest) (*gateway.ChargeResponse, error)
	Verify(ctx context.Context, reference string) (*gateway.ChargeResponse, error)
}

// WebhookGuard makes webhook handling idempotent per key.
type WebhookGuard interface {
	Acquire(ctx context.Context, key string) (*idempotency.Lock, error)
	MarkSuccess(ctx context.Context, l *idempotency.Lock) error
	MarkFailure(ctx context.Context, l *idempotency.Lock, reason error)
	Release(ctx context.Context, l *idempotency.Lock) error
}

type PaymentService struct {
	payments      PaymentRepository
	campaigns     PaymentCampaignRepository
	users         UserLookup
	tx            TxRunner
	settings      SettingsProvider
	gateway       ChargeGateway
	guard         WebhookGuard
	notifier      Notifier
	webhookSecret string
	now           func() time.Time
}

func NewPaymentService(payments PaymentRepository, campaigns PaymentCampaignRepository, users UserLookup, tx TxRunner, settings SettingsProvider, gw ChargeGateway, guard WebhookGuard, notifier Notifier, webhookSecret string) *PaymentService {
	return &PaymentService{
		payments:      payments,
		campaigns:     campaigns,
		users:         users,
		tx:            tx,
		settings:      settings,
		gateway:       gw,
		guard:         guard,
		notifier:      notifier,
		webhookSecret: webhookSecret,
		now:           time.Now,
	}
}

// Donate records a pending donation and asks the gateway to debit the donor's
// wallet. donor is nil for anonymous visitors.
func (s *PaymentService) Donate(ctx context.Context, donor *model.User, campaignID int64, req *model.DonationRequest) (*model.Payment, error) {
	req.Phone = strings.TrimSpace(req.Phone)
	req.DonorName = strings.TrimSpace(req.DonorName)
	req.DonorEmail = strings.ToLower(strings.TrimSpace(req.DonorEmail))
	req.Network = model.Network(strings.ToLower(string(req.Network)))

	if err := validateStruct(req); err != nil {
		return nil, err
	}

	campaign, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, mapCampaignErr(err)
	}
	if campaign.IsDeleted {
		return nil, ErrCampaignNotFound
	}
	if !campaign.AcceptsDonations(s.now()) {
		return nil, ErrNotAcceptingDonation
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if req.Amount < settings.MinDonation {
		return nil, fmt.Errorf("%w: minimum is %s", ErrBelowMinimum, model.FormatMoney(settings.MinDonation, campaign.Currency))
	}

	p := &model.Payment{
		CampaignID:  campaign.ID,
		Reference:   uuid.NewString(),
		DonorName:   req.DonorName,
		DonorEmail:  req.DonorEmail,
		Phone:       req.Phone,
		Network:     req.Network,
		Amount:      req.Amount,
		Currency:    campaign.Currency,
		Status:      model.PaymentStatusPending,
		IsAnonymous: req.IsAnonymous,
		Message:     strings.TrimSpace(req.Message),
	}
	if donor != nil {
		p.UserID = &donor.ID
		if p.DonorName == "" {
			p.DonorName = donor.Name
		}
		if p.DonorEmail == "" {
			p.DonorEmail = donor.Email
		}
	}

	p, err = s.payments.Create(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	resp, err := s.gateway.Charge(ctx, &gateway.ChargeRequest{
		Reference:  p.Reference,
		Amount:     p.Amount,
		Currency:   p.Currency,
		Phone:      p.Phone,
		Network:    string(p.Network),
		Email:      p.DonorEmail,
		Subaccount: campaign.PaymentAccountCode,
	})
	if err != nil {
		if _, ferr := s.payments.Transition(ctx, p.ID, model.PaymentStatusPending, model.PaymentStatusFailed, nil); ferr != nil {
			logger.Error("failed to mark payment failed", "reference", p.Reference, "error", ferr)
		}
		return nil, fmt.Errorf("charge %s: %w", p.Reference, err)
	}

	logger.Info("donation started", "reference", p.Reference, "campaign_id", campaign.ID, "amount", p.Amount)
	return s.apply(ctx, p, resp)
}

// apply folds a gateway answer into the payment.
func (s *PaymentService) apply(ctx context.Context, p *model.Payment, resp *gateway.ChargeResponse) (*model.Payment, error) {
	switch resp.Status {
	case gateway.ChargeSuccess:
		return s.complete(ctx, p, resp.GatewayRef, false)
	case gateway.ChargeFailed:
		return s.fail(ctx, p, false)
	}
	if resp.GatewayRef != "" && resp.GatewayRef != p.GatewayRef {
		updated, err := s.payments.UpdateFields(ctx, p.ID, map[string]interface{}{"gateway_ref": resp.GatewayRef})
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return p, nil
}

func (s *PaymentService) ListPublic(ctx context.Context, campaignID int64, page model.Page) (model.ListResult[model.PublicDonation], error) {
	items, total, err := s.payments.ListPublic(ctx, campaignID, page)
	if err != nil {
		return model.ListResult[model.PublicDonation]{}, err
	}
	out := make([]model.PublicDonation, 0, len(items))
	for _, p := range items {
		out = append(out, p.Public())
	}
	return model.NewListResult(out, total), nil
}

// Status returns the payment, re-verifying a pending one with the gateway.
func (s *PaymentService) Status(ctx context.Context, reference string) (*model.Payment, error) {
	p, err := s.payments.GetByReference(ctx, reference)
	if err != nil {
		return nil, mapPaymentErr(err)
	}
	if p.Status != model.PaymentStatusPending {
		return p, nil
	}
	return s.refresh(ctx, p)
}

func (s *PaymentService) refresh(ctx context.Context, p *model.Payment) (*model.Payment, error) {
	resp, err := s.gateway.Verify(ctx, p.Reference)
	if err != nil {
		logger.Warn("payment verification failed", "reference", p.Reference, "error", err)
		return p, nil
	}
	return s.apply(ctx, p, resp)
}

// VerifyPending re-checks pending payments older than age and returns how
// many changed status.
func (s *PaymentService) VerifyPending(ctx context.Context, age time.Duration, limit int) (int, error) {
	pending, err := s.payments.PendingOlderThan(ctx, s.now().Add(-age), limit)
	if err != nil {
		return 0, err
	}
	changed := 0
	for _, p := range pending {
		updated, err := s.refresh(ctx, p)
		if err != nil {
			logger.Error("failed to settle payment", "reference", p.Reference, "error", err)
			continue
		}
		if updated.Status != model.PaymentStatusPending {
			changed++
		}
	}
	return changed, nil
}

// HandleWebhook verifies and applies a gateway event. Redeliveries of an
// event that was already applied are accepted without effect.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !gateway.VerifySignature(s.webhookSecret, body, signature) {
		return ErrInvalidSignature
	}

	var event model.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return ErrInvalidWebhook
	}
	if event.Data.Reference == "" || event.Event == "" {
		return ErrInvalidWebhook
	}
	if event.Event != model.WebhookChargeSuccess && event.Event != model.WebhookChargeFailed {
		logger.Info("ignoring webhook event", "event", event.Event, "reference", event.Data.Reference)
		return nil
	}

	key := event.Data.Reference + ":" + event.Event
	lock, err := s.guard.Acquire(ctx, key)
	if err != nil {
		switch {
		case errors.Is(err, idempotency.ErrAlreadyProcessed):
			logger.Info("duplicate webhook ignored", "key", key)
			return nil
		case errors.Is(err, idempotency.ErrLockAcquireFailed):
			return ErrWebhookInProgress
		case errors.Is(err, idempotency.ErrMaxRetriesExceeded):
			logger.Error("webhook abandoned after max retries", "key", key)
			return nil
		}
		return err
	}

	if err := s.applyEvent(ctx, &event); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidInput) {
			_ = s.guard.Release(ctx, lock)
		} else {
			s.guard.MarkFailure(ctx, lock, err)
		}
		return err
	}
	if err := s.guard.MarkSuccess(ctx, lock); err != nil {
		logger.Error("failed to mark webhook processed", "key", key, "error", err)
	}
	return nil
}

func (s *PaymentService) applyEvent(ctx context.Context, event *model.WebhookEvent) error {
	p, err := s.payments.GetByReference(ctx, event.Data.Reference)
	if err != nil {
		return mapPaymentErr(err)
	}
	if event.Data.Amount != 0 && event.Data.Amount != p.Amount {
		logger.Warn("webhook amount mismatch", "reference", p.Reference, "expected", p.Amount, "got", event.Data.Amount)
		return fmt.Errorf("%w: amount mismatch", ErrInvalidWebhook)
	}

	if event.Event == model.WebhookChargeSuccess {
		_, err = s.complete(ctx, p, event.Data.GatewayRef, false)
	} else {
		_, err = s.fail(ctx, p, false)
	}
	if errors.Is(err, ErrInvalidTransition) {
		// a late failure for a completed payment or the reverse
		logger.Warn("webhook does not match payment status", "reference", p.Reference, "status", string(p.Status), "event", event.Event)
		return nil
	}
	return err
}

// complete marks the payment completed and credits the campaign in one
// transaction. Unless strict, completing an already completed payment is a
// no-op.
func (s *PaymentService) complete(ctx context.Context, p *model.Payment, gatewayRef string, strict bool) (*model.Payment, error) {
	var result *model.Payment
	var campaign *model.Campaign

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		extra := map[string]interface{}{"paid_at": s.now().UTC()}
		if gatewayRef != "" {
			extra["gateway_ref"] = gatewayRef
		}

		updated, err := s.payments.Transition(ctx, p.ID, model.PaymentStatusPending, model.PaymentStatusCompleted, extra)
		if errors.Is(err, repository.ErrStatusConflict) {
			current, gerr := s.payments.GetByID(ctx, p.ID)
			if gerr != nil {
				return gerr
			}
			if current.Status == model.PaymentStatusCompleted && !strict {
				result = current
				return nil
			}
			return ErrInvalidTransition
		}
		if err != nil {
			return err
		}

		campaign, err = s.campaigns.AddRaised(ctx, updated.CampaignID, updated.Amount)
		if err != nil {
			return fmt.Errorf("credit campaign: %w", mapCampaignErr(err))
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	if campaign != nil {
		s.afterCompletion(ctx, result, campaign)
	}
	return result, nil
}

func (s *PaymentService) afterCompletion(ctx context.Context, p *model.Payment, c *model.Campaign) {
	prom.DonationCompleted(p.Currency, p.Amount)
	logger.Info("donation completed", "reference", p.Reference, "campaign_id", c.ID, "raised", c.RaisedAmount, "goal_reached", c.IsCompleted)

	public := p.Public()
	data := map[string]interface{}{
		"Payment":   p,
		"Campaign":  c,
		"Amount":    model.FormatMoney(p.Amount, p.Currency),
		"Raised":    model.FormatMoney(c.RaisedAmount, c.Currency),
		"DonorName": public.DonorName,
	}

	if p.DonorEmail != "" {
		notify(ctx, s.notifier, model.TemplateDonationReceipt, model.Recipient{Email: p.DonorEmail, Name: p.DonorName}, data)
	}

	creator, err := s.users.GetByID(ctx, c.CreatorID)
	if err != nil {
		logger.Warn("campaign creator not found for donation notice", "campaign_id", c.ID, "error", err)
		return
	}
	data["User"] = creator
	notify(ctx, s.notifier, model.TemplateDonationReceived, recipientOf(creator), data)
}

func (s *PaymentService) fail(ctx context.Context, p *model.Payment, strict bool) (*model.Payment, error) {
	updated, err := s.payments.Transition(ctx, p.ID, model.PaymentStatusPending, model.PaymentStatusFailed, nil)
	if errors.Is(err, repository.ErrStatusConflict) {
		current, gerr := s.payments.GetByID(ctx, p.ID)
		if gerr != nil {
			return nil, mapPaymentErr(gerr)
		}
		if current.Status == model.PaymentStatusFailed && !strict {
			return current, nil
		}
		return nil, ErrInvalidTransition
	}
	if err != nil {
		return nil, mapPaymentErr(err)
	}
	logger.Info("donation failed", "reference", updated.Reference)
	return updated, nil
}

func (s *PaymentService) AdminList(ctx context.Context, f model.PaymentFilter) (model.ListResult[*model.Payment], error) {
	items, total, err := s.payments.List(ctx, f)
	if err != nil {
		return model.ListResult[*model.Payment]{}, err
	}
	return model.NewListResult(items, total), nil
}

func (s *PaymentService) ApplyAction(ctx context.Context, id int64, action model.PaymentAction) (*model.Payment, error) {
	p, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, mapPaymentErr(err)
	}

	switch action {
	case model.PaymentActionBlock, model.PaymentActionUnblock:
		updated, err := s.payments.UpdateFields(ctx, id, map[string]interface{}{"is_blocked": action == model.PaymentActionBlock})
		if err != nil {
			return nil, mapPaymentErr(err)
		}
		return updated, nil
	case model.PaymentActionComplete:
		return s.complete(ctx, p, "", true)
	case model.PaymentActionFail:
		return s.fail(ctx, p, true)
	default:
		return nil, ErrInvalidAction
	}
}

func mapPaymentErr(err error) error {
	if errors.Is(err, repository.ErrPaymentNotFound) {
		return ErrPaymentNotFound
	}
	return err
}
