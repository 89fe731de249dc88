// File: internal/usecase/payments_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"telegram-one-bot/internal/domain"
	"telegram-one-bot/internal/domain/model"
	"telegram-one-bot/internal/domain/ports/adapter"
	"telegram-one-bot/internal/domain/ports/repository"
	"telegram-one-bot/internal/infra/metrics"
)

// Caller identifies who is asking and who gets billed. Group chats bill the
// group account; private chats bill the user.
type Caller struct {
	AccountID string
	ChatID    int64
	UserID    int64
	Username  string
	IsGroup   bool
	MessageID int
	ThreadID  int
}

// PaymentsUseCase is the balance oracle and settlement service: it answers
// "can this account afford the request" before a paid call and debits the
// spent amount afterwards.
type PaymentsUseCase struct {
	chain   adapter.ChainClient
	credits repository.CreditsRepository
	feed    adapter.PriceFeed

	userWhitelist  map[int64]struct{}
	nameWhitelist  map[string]struct{}
	groupWhitelist map[int64]struct{}

	priceAdjustment float64
	minBalanceCents float64
	log             *zerolog.Logger
}

func NewPaymentsUseCase(
	chain adapter.ChainClient,
	credits repository.CreditsRepository,
	feed adapter.PriceFeed,
	userWhitelist []int64,
	nameWhitelist []string,
	groupWhitelist []int64,
	priceAdjustment float64,
	minBalanceCents float64,
	logger *zerolog.Logger,
) *PaymentsUseCase {
	uw := make(map[int64]struct{}, len(userWhitelist))
	for _, id := range userWhitelist {
		uw[id] = struct{}{}
	}
	nw := make(map[string]struct{}, len(nameWhitelist))
	for _, n := range nameWhitelist {
		nw[strings.ToLower(n)] = struct{}{}
	}
	gw := make(map[int64]struct{}, len(groupWhitelist))
	for _, id := range groupWhitelist {
		gw[id] = struct{}{}
	}
	if priceAdjustment <= 0 {
		priceAdjustment = 1
	}
	if minBalanceCents < 0 {
		minBalanceCents = 0
	}
	return &PaymentsUseCase{
		chain:           chain,
		credits:         credits,
		feed:            feed,
		userWhitelist:   uw,
		nameWhitelist:   nw,
		groupWhitelist:  gw,
		priceAdjustment: priceAdjustment,
		minBalanceCents: minBalanceCents,
		log:             logger,
	}
}

// EffectiveBalance is on-chain balance plus off-chain credits, in atto.
func (p *PaymentsUseCase) EffectiveBalance(ctx context.Context, accountID string) (model.Balance, error) {
	addr := p.chain.DeriveAddress(accountID)
	onChain, err := p.chain.GetBalance(ctx, addr)
	if err != nil {
		return model.Balance{}, fmt.Errorf("chain balance: %w", err)
	}
	creds, err := p.credits.GetCredits(ctx, accountID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return model.Balance{}, fmt.Errorf("credits balance: %w", err)
	}
	return onChain.Add(creds), nil
}

// BalanceCents converts an effective balance to cents at the current rate.
func (p *PaymentsUseCase) BalanceCents(ctx context.Context, bal model.Balance) (float64, error) {
	usd, err := p.feed.ONEUSD(ctx)
	if err != nil {
		return 0, fmt.Errorf("price feed: %w", err)
	}
	return bal.ONE(false) * usd * 100, nil
}

// ToONE converts a cent amount to ONE at the current rate.
func (p *PaymentsUseCase) ToONE(ctx context.Context, cents float64) (float64, error) {
	usd, err := p.feed.ONEUSD(ctx)
	if err != nil {
		return 0, fmt.Errorf("price feed: %w", err)
	}
	if usd <= 0 {
		return 0, fmt.Errorf("price feed: non-positive rate %f", usd)
	}
	return cents / 100 / usd, nil
}

// IsUserInWhitelist checks the user id and, as a fallback, the username.
func (p *PaymentsUseCase) IsUserInWhitelist(userID int64, username string) bool {
	if _, ok := p.userWhitelist[userID]; ok {
		return true
	}
	if username == "" {
		return false
	}
	_, ok := p.nameWhitelist[strings.ToLower(username)]
	return ok
}

// IsGroupInWhitelist applies only to group chats.
func (p *PaymentsUseCase) IsGroupInWhitelist(caller Caller) bool {
	if !caller.IsGroup {
		return false
	}
	_, ok := p.groupWhitelist[caller.ChatID]
	return ok
}

// HasBalance is the balance gate. No side effects; re-evaluated on every
// drain iteration because balance can change between queued items. The
// configured minimum acts as a floor under the per-request threshold.
func (p *PaymentsUseCase) HasBalance(ctx context.Context, caller Caller, minCents float64) (bool, error) {
	if p.IsUserInWhitelist(caller.UserID, caller.Username) || p.IsGroupInWhitelist(caller) {
		return true, nil
	}
	if minCents < p.minBalanceCents {
		minCents = p.minBalanceCents
	}
	bal, err := p.EffectiveBalance(ctx, caller.AccountID)
	if err != nil {
		return false, err
	}
	cents, err := p.BalanceCents(ctx, bal)
	if err != nil {
		return false, err
	}
	return cents > minCents, nil
}

// Pay settles a completed request: converts the cent price to atto-ONE and
// debits the credits ledger. Returns false when the account cannot cover the
// amount at settlement time; the already-delivered completion is never rolled
// back. Whitelisted callers ride free.
func (p *PaymentsUseCase) Pay(ctx context.Context, caller Caller, priceCents float64) (bool, error) {
	if priceCents <= 0 {
		return true, nil
	}
	if p.IsUserInWhitelist(caller.UserID, caller.Username) || p.IsGroupInWhitelist(caller) {
		metrics.IncPayment("whitelisted")
		return true, nil
	}
	adjusted := priceCents * p.priceAdjustment
	one, err := p.ToONE(ctx, adjusted)
	if err != nil {
		return false, err
	}
	amount := model.AttoFromONE(one)
	if err := p.credits.Debit(ctx, caller.AccountID, amount); err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) {
			p.log.Warn().Str("account_id", caller.AccountID).Float64("price_cents", adjusted).
				Msg("settlement failed: insufficient credits")
			metrics.IncPayment("insufficient")
			return false, nil
		}
		return false, fmt.Errorf("debit: %w", err)
	}
	p.log.Info().Str("account_id", caller.AccountID).Float64("price_cents", adjusted).Msg("paid")
	metrics.IncPayment("paid")
	metrics.AddDebitedCents(adjusted)
	return true, nil
}

// PriceAdjustment exposes the configured multiplier for estimate surfaces.
func (p *PaymentsUseCase) PriceAdjustment() float64 { return p.priceAdjustment }

// DepositAddress returns the account's top-up address.
func (p *PaymentsUseCase) DepositAddress(accountID string) string {
	return p.chain.DeriveAddress(accountID)
}
