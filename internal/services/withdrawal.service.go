package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nimasrn/crowdfund/internal/model"
	"github.com/nimasrn/crowdfund/internal/repository"
	"github.com/nimasrn/crowdfund/pkg/logger"
	"github.com/nimasrn/crowdfund/pkg/prom"
)

type WithdrawalRepository interface {
	Create(ctx context.Context, w *model.Withdrawal) (*model.Withdrawal, error)
	GetByID(ctx context.Context, id int64) (*model.Withdrawal, error)
	List(ctx context.Context, f model.WithdrawalFilter) ([]*model.Withdrawal, int64, error)
	CommittedAmount(ctx context.Context, campaignID int64) (int64, error)
	Resolve(ctx context.Context, id int64, to model.WithdrawalStatus, reason string, processedBy int64) (*model.Withdrawal, error)
}

type CampaignLookup interface {
	GetByID(ctx context.Context, id int64) (*model.Campaign, error)
}

// LockingCampaignLookup also reads a campaign under a row lock held for the
// rest of the transaction.
type LockingCampaignLookup interface {
	CampaignLookup
	GetForUpdate(ctx context.Context, id int64) (*model.Campaign, error)
}

type WithdrawalService struct {
	withdrawals WithdrawalRepository
	campaigns   LockingCampaignLookup
	users       UserLookup
	tx          TxRunner
	notifier    Notifier
}

func NewWithdrawalService(withdrawals WithdrawalRepository, campaigns LockingCampaignLookup, users UserLookup, tx TxRunner, notifier Notifier) *WithdrawalService {
	return &WithdrawalService{
		withdrawals: withdrawals,
		campaigns:   campaigns,
		users:       users,
		tx:          tx,
		notifier:    notifier,
	}
}

// Request asks for a cashout of raised funds. Only the KYC-verified owner may
// withdraw, and never more than what is not already committed.
func (s *WithdrawalService) Request(ctx context.Context, user *model.User, campaignID int64, req *model.WithdrawalRequest) (*model.Withdrawal, error) {
	req.Phone = strings.TrimSpace(req.Phone)
	req.Network = model.Network(strings.ToLower(string(req.Network)))
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	var created *model.Withdrawal
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		// concurrent requests for the same campaign queue on this lock, so
		// each one sums the withdrawals committed before it
		campaign, err := s.campaigns.GetForUpdate(ctx, campaignID)
		if err != nil {
			return mapCampaignErr(err)
		}
		if campaign.IsDeleted {
			return ErrCampaignNotFound
		}
		if campaign.CreatorID != user.ID {
			return ErrNotOwner
		}
		if !user.IsKYC {
			return ErrKYCRequired
		}

		committed, err := s.withdrawals.CommittedAmount(ctx, campaign.ID)
		if err != nil {
			return fmt.Errorf("committed amount: %w", err)
		}
		available := campaign.RaisedAmount - committed
		if req.Amount > available {
			return fmt.Errorf("%w: available %s", ErrInsufficientFunds, model.FormatMoney(available, campaign.Currency))
		}

		created, err = s.withdrawals.Create(ctx, &model.Withdrawal{
			CampaignID: campaign.ID,
			UserID:     user.ID,
			Amount:     req.Amount,
			Phone:      req.Phone,
			Network:    req.Network,
			Status:     model.WithdrawalStatusPending,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	prom.WithdrawalRequested()
	logger.Info("withdrawal requested", "withdrawal_id", created.ID, "campaign_id", campaignID, "amount", created.Amount)
	return created, nil
}

func (s *WithdrawalService) ListMine(ctx context.Context, userID int64, page model.Page) (model.ListResult[*model.Withdrawal], error) {
	return s.list(ctx, model.WithdrawalFilter{UserID: &userID, Page: page})
}

func (s *WithdrawalService) AdminList(ctx context.Context, f model.WithdrawalFilter) (model.ListResult[*model.Withdrawal], error) {
	return s.list(ctx, f)
}

func (s *WithdrawalService) list(ctx context.Context, f model.WithdrawalFilter) (model.ListResult[*model.Withdrawal], error) {
	items, total, err := s.withdrawals.List(ctx, f)
	if err != nil {
		return model.ListResult[*model.Withdrawal]{}, err
	}
	return model.NewListResult(items, total), nil
}

// Resolve approves or rejects a pending withdrawal and emails the owner.
func (s *WithdrawalService) Resolve(ctx context.Context, admin *model.User, id int64, action model.WithdrawalAction, reason string) (*model.Withdrawal, error) {
	reason = strings.TrimSpace(reason)

	var to model.WithdrawalStatus
	var template string
	switch action {
	case model.WithdrawalActionApprove:
		to, template = model.WithdrawalStatusCompleted, model.TemplateWithdrawalApproved
	case model.WithdrawalActionReject:
		if reason == "" {
			return nil, ErrReasonRequired
		}
		to, template = model.WithdrawalStatusFailed, model.TemplateWithdrawalRejected
	default:
		return nil, ErrInvalidAction
	}

	w, err := s.withdrawals.Resolve(ctx, id, to, reason, admin.ID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrWithdrawalNotFound):
			return nil, ErrWithdrawalNotFound
		case errors.Is(err, repository.ErrStatusConflict):
			return nil, ErrInvalidTransition
		}
		return nil, err
	}
	logger.Info("withdrawal resolved", "withdrawal_id", id, "status", string(to), "admin_id", admin.ID)

	owner, err := s.users.GetByID(ctx, w.UserID)
	if err != nil {
		logger.Warn("withdrawal owner not found", "withdrawal_id", id, "error", err)
		return w, nil
	}
	data := map[string]interface{}{"User": owner, "Withdrawal": w}
	if c, err := s.campaigns.GetByID(ctx, w.CampaignID); err == nil {
		data["Campaign"] = c
		data["Amount"] = model.FormatMoney(w.Amount, c.Currency)
	}
	notify(ctx, s.notifier, template, recipientOf(owner), data)
	return w, nil
}
