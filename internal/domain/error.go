package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrAlreadyExists       = errors.New("entity already exists")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrBotSuspended        = errors.New("bot is suspended")
	ErrNoCompletion        = errors.New("provider returned no completion")
	ErrMissingChatID       = errors.New("missing chat id")
	ErrUnknownModel        = errors.New("unknown model")
)
