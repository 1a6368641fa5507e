package model

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Page is the limit/offset pair every list endpoint accepts.
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

type ListResult[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
}

func NewListResult[T any](items []T, total int64) ListResult[T] {
	if items == nil {
		items = []T{}
	}
	return ListResult[T]{Items: items, Total: total}
}

// Upload is a file received from a multipart form.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (u *Upload) Size() int64 {
	if u == nil {
		return 0
	}
	return int64(len(u.Data))
}

// Network is a mobile-money operator.
type Network string

const (
	NetworkMTN        Network = "mtn"
	NetworkVodafone   Network = "vodafone"
	NetworkAirtelTigo Network = "airteltigo"
)

var moneyPrinter = message.NewPrinter(language.English)

// FormatMoney renders an amount in minor units, e.g. 150000 GHS -> "GHS 1,500.00".
func FormatMoney(amount int64, currency string) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	major := moneyPrinter.Sprintf("%d", amount/100)
	return fmt.Sprintf("%s %s%s.%02d", currency, sign, major, amount%100)
}
