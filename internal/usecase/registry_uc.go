// File: internal/usecase/registry_uc.go
package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"telegram-one-bot/internal/domain/ports/adapter"
)

var domainNameRe = regexp.MustCompile(`[^a-z0-9-]`)

// RegistryUseCase handles the domain-name commands. It is a thin wrapper over
// the relay API; none of its operations are metered.
type RegistryUseCase struct {
	registry  adapter.RegistryClient
	messenger adapter.Messenger
	tld       string
	log       *zerolog.Logger
}

func NewRegistryUseCase(registry adapter.RegistryClient, messenger adapter.Messenger, tld string, logger *zerolog.Logger) *RegistryUseCase {
	if tld == "" {
		tld = "country"
	}
	return &RegistryUseCase{registry: registry, messenger: messenger, tld: tld, log: logger}
}

// CleanName lowercases the input and strips everything outside [a-z0-9-].
func (u *RegistryUseCase) CleanName(input string) string {
	return domainNameRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(input)), "")
}

// URL renders the full hostname for a registered name.
func (u *RegistryUseCase) URL(name string) string {
	return u.CleanName(name) + "." + u.tld
}

// OnCheck reports availability and rental price of a name.
func (u *RegistryUseCase) OnCheck(ctx context.Context, caller Caller, input string) error {
	name := u.CleanName(input)
	if name == "" {
		return u.missingDomain(ctx, caller)
	}
	status, err := u.registry.CheckDomain(ctx, name)
	if err != nil {
		u.log.Error().Err(err).Str("domain", name).Msg("domain check failed")
		_, rerr := u.messenger.Reply(ctx, caller.ChatID, "There was an error processing your request", u.opts(caller))
		if rerr != nil {
			return rerr
		}
		return err
	}
	msg := fmt.Sprintf("The name *%s* ", name)
	if status.Available {
		msg += fmt.Sprintf("is available.\n%s ONE for 30 days\nWrite */rent %s* to purchase it", status.PriceONE, name)
	} else if status.RenewalOK {
		msg += fmt.Sprintf("is unavailable.\nWrite */visit %s* to check it out!", name)
	} else {
		msg += "is in grace period. Only the owner is able to renew the domain"
	}
	_, err = u.messenger.Reply(ctx, caller.ChatID, msg, &adapter.SendOptions{ParseMode: "Markdown", ThreadID: caller.ThreadID})
	return err
}

// OnVisit replies with the public URL of a name.
func (u *RegistryUseCase) OnVisit(ctx context.Context, caller Caller, input string) error {
	if u.CleanName(input) == "" {
		return u.missingDomain(ctx, caller)
	}
	url := u.URL(input)
	_, err := u.messenger.Reply(ctx, caller.ChatID, fmt.Sprintf("Visit https://%s/", url), u.opts(caller))
	return err
}

// OnRenew replies with the renewal link for a name.
func (u *RegistryUseCase) OnRenew(ctx context.Context, caller Caller, input string) error {
	if u.CleanName(input) == "" {
		return u.missingDomain(ctx, caller)
	}
	url := u.URL(input)
	_, err := u.messenger.Reply(ctx, caller.ChatID, fmt.Sprintf("Renew %s at https://%s/?renew", url, url), u.opts(caller))
	return err
}

// OnCert reports TLS certificate status of a registered name.
func (u *RegistryUseCase) OnCert(ctx context.Context, caller Caller, input string) error {
	name := u.CleanName(input)
	if name == "" {
		return u.missingDomain(ctx, caller)
	}
	cert, err := u.registry.CertInfo(ctx, u.URL(name))
	if err != nil {
		u.log.Error().Err(err).Str("domain", name).Msg("cert lookup failed")
		_, rerr := u.messenger.Reply(ctx, caller.ChatID, "There was an error processing your request", u.opts(caller))
		if rerr != nil {
			return rerr
		}
		return err
	}
	text := fmt.Sprintf("No certificate found for %s", cert.Name)
	if cert.Exists {
		text = fmt.Sprintf("Certificate for %s: %s", cert.Name, cert.Status)
	}
	_, err = u.messenger.Reply(ctx, caller.ChatID, text, u.opts(caller))
	return err
}

// OnNFT reports the token metadata backing a registered name.
func (u *RegistryUseCase) OnNFT(ctx context.Context, caller Caller, input string) error {
	name := u.CleanName(input)
	if name == "" {
		return u.missingDomain(ctx, caller)
	}
	meta, err := u.registry.NFTInfo(ctx, u.URL(name))
	if err != nil {
		u.log.Error().Err(err).Str("domain", name).Msg("nft lookup failed")
		_, rerr := u.messenger.Reply(ctx, caller.ChatID, "There was an error processing your request", u.opts(caller))
		if rerr != nil {
			return rerr
		}
		return err
	}
	_, err = u.messenger.Reply(ctx, caller.ChatID,
		fmt.Sprintf("NFT for %s\nOwner: %s\nMetadata: %s", meta.Name, meta.Owner, meta.TokenURI), u.opts(caller))
	return err
}

func (u *RegistryUseCase) missingDomain(ctx context.Context, caller Caller) error {
	_, err := u.messenger.Reply(ctx, caller.ChatID, "Error: Missing domain name", u.opts(caller))
	return err
}

func (u *RegistryUseCase) opts(caller Caller) *adapter.SendOptions {
	return &adapter.SendOptions{ThreadID: caller.ThreadID}
}
