package telegram

import (
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-one-bot/internal/domain/ports/adapter"
)

// classify maps a tgbotapi failure onto the transport error envelope. Non-API
// failures (network, context cancellation) pass through unchanged.
func classify(err error, method string) error {
	if err == nil {
		return nil
	}
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	terr := &adapter.TransportError{
		Code:        apiErr.Code,
		Description: apiErr.Message,
		Method:      method,
	}
	if apiErr.ResponseParameters.RetryAfter > 0 {
		terr.RetryAfter = apiErr.ResponseParameters.RetryAfter
	}
	return terr
}
