package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-one-bot/internal/domain"
	"telegram-one-bot/internal/domain/model"
	"telegram-one-bot/internal/domain/ports/repository"
)

var _ repository.CreditsRepository = (*CreditsRepo)(nil)

// CreditsRepo is the persistent credits ledger. Balances are stored as
// numeric(78,0) atto-ONE; a CHECK constraint keeps them non-negative so a
// racing debit can never overdraw.
type CreditsRepo struct {
	pool *pgxpool.Pool
}

func NewCreditsRepo(pool *pgxpool.Pool) *CreditsRepo {
	return &CreditsRepo{pool: pool}
}

func (r *CreditsRepo) GetCredits(ctx context.Context, accountID string) (model.Balance, error) {
	const q = `SELECT balance_atto::text FROM credits WHERE account_id=$1;`
	var raw string
	if err := r.pool.QueryRow(ctx, q, accountID).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ZeroBalance(), domain.ErrNotFound
		}
		return model.Balance{}, fmt.Errorf("get credits: %w", err)
	}
	atto, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return model.Balance{}, fmt.Errorf("get credits: malformed balance %q", raw)
	}
	return model.Balance{Atto: atto}, nil
}

func (r *CreditsRepo) Debit(ctx context.Context, accountID string, amount *big.Int) error {
	const q = `UPDATE credits SET balance_atto = balance_atto - $2::numeric, updated_at = now()
 WHERE account_id=$1;`
	tag, err := r.pool.Exec(ctx, q, accountID, amount.String())
	if err != nil {
		var pgErr *pgconn.PgError
		// 23514 = check_violation: the balance would have gone negative.
		if errors.As(err, &pgErr) && pgErr.Code == "23514" {
			return domain.ErrInsufficientCredits
		}
		return fmt.Errorf("debit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientCredits
	}
	return nil
}

func (r *CreditsRepo) Grant(ctx context.Context, accountID string, amount *big.Int) error {
	const q = `
INSERT INTO credits (account_id, balance_atto, updated_at)
VALUES ($1, $2::numeric, now())
ON CONFLICT (account_id) DO UPDATE SET
  balance_atto = credits.balance_atto + $2::numeric, updated_at = now();`
	if _, err := r.pool.Exec(ctx, q, accountID, amount.String()); err != nil {
		return fmt.Errorf("grant: %w", err)
	}
	return nil
}

func (r *CreditsRepo) TotalCredits(ctx context.Context) (model.Balance, error) {
	const q = `SELECT COALESCE(SUM(balance_atto), 0)::text FROM credits;`
	var raw string
	if err := r.pool.QueryRow(ctx, q).Scan(&raw); err != nil {
		return model.Balance{}, fmt.Errorf("total credits: %w", err)
	}
	atto, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return model.Balance{}, fmt.Errorf("total credits: malformed sum %q", raw)
	}
	return model.Balance{Atto: atto}, nil
}
