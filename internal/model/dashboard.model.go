package model

type DashboardStats struct {
	TotalUsers              int64                    `json:"total_users"`
	KYCPending              int64                    `json:"kyc_pending"`
	CampaignsByStatus       map[CampaignStatus]int64 `json:"campaigns_by_status"`
	DonationVolume          int64                    `json:"donation_volume"`
	DonationCount           int64                    `json:"donation_count"`
	PendingWithdrawals      int64                    `json:"pending_withdrawals"`
	PendingWithdrawalAmount int64                    `json:"pending_withdrawal_amount"`
	LatestPayments          []*Payment               `json:"latest_payments"`
}
