package mailer

import "github.com/nimasrn/crowdfund/internal/model"

// Default is a built-in subject/body pair used when no active template with
// the key has been saved.
type Default struct {
	Subject string
	Body    string
}

var defaults = map[string]Default{
	model.TemplateCampaignCreated: {
		Subject: "Your campaign \"{{.Campaign.Title}}\" was created",
		Body: `<p>Hi {{.User.Name}},</p>
<p>Your campaign <strong>{{.Campaign.Title}}</strong> has been created.
{{if eq .Campaign.Status "pending"}}It will go live once an administrator approves it.{{else}}It is live now.{{end}}</p>
<p><a href="{{.CampaignURL}}">{{.CampaignURL}}</a></p>`,
	},
	model.TemplateDonationReceipt: {
		Subject: "Thank you for supporting {{.Campaign.Title}}",
		Body: `<p>Hi {{.Payment.DonorName}},</p>
<p>We received your donation of {{.Amount}} to <strong>{{.Campaign.Title}}</strong>.</p>
<p>Reference: {{.Payment.Reference}}</p>`,
	},
	model.TemplateDonationReceived: {
		Subject: "New donation to {{.Campaign.Title}}",
		Body: `<p>Hi {{.User.Name}},</p>
<p>{{.DonorName}} donated {{.Amount}} to <strong>{{.Campaign.Title}}</strong>.</p>
<p>Total raised so far: {{.Raised}}.</p>`,
	},
	model.TemplateKYCApproved: {
		Subject: "Your identity verification was approved",
		Body:    `<p>Hi {{.User.Name}},</p><p>Your KYC documents were approved. You can now request withdrawals.</p>`,
	},
	model.TemplateKYCRevoked: {
		Subject: "Your identity verification was revoked",
		Body:    `<p>Hi {{.User.Name}},</p><p>Your KYC approval was revoked. Please contact support for details.</p>`,
	},
	model.TemplateWithdrawalApproved: {
		Subject: "Withdrawal approved",
		Body:    `<p>Hi {{.User.Name}},</p><p>Your withdrawal of {{.Amount}} from <strong>{{.Campaign.Title}}</strong> was approved.</p>`,
	},
	model.TemplateWithdrawalRejected: {
		Subject: "Withdrawal rejected",
		Body: `<p>Hi {{.User.Name}},</p><p>Your withdrawal of {{.Amount}} from <strong>{{.Campaign.Title}}</strong> was rejected.</p>
<p>Reason: {{.Withdrawal.Reason}}</p>`,
	},
}

func DefaultFor(key string) (Default, bool) {
	d, ok := defaults[key]
	return d, ok
}
