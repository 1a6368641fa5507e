package services

import (
	"context"

	"github.com/nimasrn/crowdfund/internal/model"
)

const latestPaymentsOnDashboard = 5

type DashboardUsers interface {
	Count(ctx context.Context) (int64, error)
	CountByKYCStatus(ctx context.Context, status model.KYCStatus) (int64, error)
}

type DashboardCampaigns interface {
	CountByStatus(ctx context.Context) (map[model.CampaignStatus]int64, error)
}

type DashboardPayments interface {
	CompletedTotals(ctx context.Context) (count int64, volume int64, err error)
	Latest(ctx context.Context, n int) ([]*model.Payment, error)
}

type DashboardWithdrawals interface {
	PendingTotals(ctx context.Context) (count int64, amount int64, err error)
}

type DashboardService struct {
	users       DashboardUsers
	campaigns   DashboardCampaigns
	payments    DashboardPayments
	withdrawals DashboardWithdrawals
}

func NewDashboardService(users DashboardUsers, campaigns DashboardCampaigns, payments DashboardPayments, withdrawals DashboardWithdrawals) *DashboardService {
	return &DashboardService{
		users:       users,
		campaigns:   campaigns,
		payments:    payments,
		withdrawals: withdrawals,
	}
}

func (s *DashboardService) Stats(ctx context.Context) (*model.DashboardStats, error) {
	var (
		stats = &model.DashboardStats{}
		err   error
	)

	if stats.TotalUsers, err = s.users.Count(ctx); err != nil {
		return nil, err
	}
	if stats.KYCPending, err = s.users.CountByKYCStatus(ctx, model.KYCStatusSubmitted); err != nil {
		return nil, err
	}
	if stats.CampaignsByStatus, err = s.campaigns.CountByStatus(ctx); err != nil {
		return nil, err
	}
	if stats.DonationCount, stats.DonationVolume, err = s.payments.CompletedTotals(ctx); err != nil {
		return nil, err
	}
	if stats.PendingWithdrawals, stats.PendingWithdrawalAmount, err = s.withdrawals.PendingTotals(ctx); err != nil {
		return nil, err
	}
	if stats.LatestPayments, err = s.payments.Latest(ctx, latestPaymentsOnDashboard); err != nil {
		return nil, err
	}
	return stats, nil
}
