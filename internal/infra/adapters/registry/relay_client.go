package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"telegram-one-bot/internal/domain/ports/adapter"
)

var _ adapter.RegistryClient = (*RelayClient)(nil)

// RelayClient talks to the domain-registry relay REST API.
type RelayClient struct {
	client *resty.Client
}

func NewRelayClient(baseURL string) *RelayClient {
	return &RelayClient{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(15 * time.Second),
	}
}

type checkResponse struct {
	IsAvailable     bool   `json:"isAvailable"`
	IsInGracePeriod bool   `json:"isInGracePeriod"`
	PriceONE        string `json:"priceOne"`
	Error           string `json:"error"`
}

func (r *RelayClient) CheckDomain(ctx context.Context, name string) (adapter.DomainStatus, error) {
	var out checkResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParam("domain", name).
		SetResult(&out).
		Get("/check-domain")
	if err != nil {
		return adapter.DomainStatus{}, fmt.Errorf("relay check: %w", err)
	}
	if resp.IsError() {
		return adapter.DomainStatus{}, fmt.Errorf("relay check: http %d", resp.StatusCode())
	}
	if out.Error != "" {
		return adapter.DomainStatus{}, fmt.Errorf("relay check: %s", out.Error)
	}
	return adapter.DomainStatus{
		Name:      name,
		Available: out.IsAvailable,
		PriceONE:  out.PriceONE,
		RenewalOK: !out.IsInGracePeriod,
	}, nil
}

type certResponse struct {
	Exists bool   `json:"exists"`
	Status string `json:"status"`
	Error  string `json:"error"`
}

func (r *RelayClient) CertInfo(ctx context.Context, name string) (adapter.CertStatus, error) {
	var out certResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"domain": name}).
		SetResult(&out).
		Post("/cert")
	if err != nil {
		return adapter.CertStatus{}, fmt.Errorf("relay cert: %w", err)
	}
	if resp.IsError() {
		return adapter.CertStatus{}, fmt.Errorf("relay cert: http %d", resp.StatusCode())
	}
	if out.Error != "" {
		return adapter.CertStatus{}, fmt.Errorf("relay cert: %s", out.Error)
	}
	return adapter.CertStatus{Name: name, Exists: out.Exists, Status: out.Status}, nil
}

type nftResponse struct {
	TokenURI string `json:"tokenUri"`
	Owner    string `json:"owner"`
	Error    string `json:"error"`
}

func (r *RelayClient) NFTInfo(ctx context.Context, name string) (adapter.NFTMeta, error) {
	var out nftResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"domain": name}).
		SetResult(&out).
		Post("/nft")
	if err != nil {
		return adapter.NFTMeta{}, fmt.Errorf("relay nft: %w", err)
	}
	if resp.IsError() {
		return adapter.NFTMeta{}, fmt.Errorf("relay nft: http %d", resp.StatusCode())
	}
	if out.Error != "" {
		return adapter.NFTMeta{}, fmt.Errorf("relay nft: %s", out.Error)
	}
	return adapter.NFTMeta{Name: name, TokenURI: out.TokenURI, Owner: out.Owner}, nil
}
