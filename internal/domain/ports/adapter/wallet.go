package adapter

import (
	"context"

	"telegram-one-bot/internal/domain/model"
)

// ChainClient reads on-chain state for the balance oracle.
type ChainClient interface {
	// GetBalance returns the on-chain balance of an address in atto units.
	GetBalance(ctx context.Context, address string) (model.Balance, error)

	// DeriveAddress maps a billing account id to its deposit address.
	DeriveAddress(accountID string) string
}

// PriceFeed converts between the display currency and cents.
type PriceFeed interface {
	// ONEUSD returns the current USD price of one ONE token.
	ONEUSD(ctx context.Context) (float64, error)
}
