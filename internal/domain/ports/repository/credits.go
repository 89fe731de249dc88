package repository

import (
	"context"
	"math/big"

	"telegram-one-bot/internal/domain/model"
)

// CreditsRepository is the off-chain credits ledger, keyed by billing account.
// Amounts are atto-ONE to match the on-chain denomination.
type CreditsRepository interface {
	// GetCredits returns the current credit balance; zero for unknown accounts.
	GetCredits(ctx context.Context, accountID string) (model.Balance, error)

	// Debit atomically subtracts amount. Returns domain.ErrInsufficientCredits
	// when the balance would go negative; the ledger never does.
	Debit(ctx context.Context, accountID string, amount *big.Int) error

	// Grant adds credits (top-up, admin grant).
	Grant(ctx context.Context, accountID string, amount *big.Int) error

	// TotalCredits sums all outstanding credits, for the admin stats surface.
	TotalCredits(ctx context.Context) (model.Balance, error)
}
