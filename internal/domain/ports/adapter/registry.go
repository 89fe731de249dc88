package adapter

import "context"

// DomainStatus is what the registry relay reports for one name.
type DomainStatus struct {
	Name      string
	Available bool
	PriceONE  string // rental price as reported, decimal string
	RenewalOK bool
}

// CertStatus describes the TLS certificate state of a registered name.
type CertStatus struct {
	Name   string
	Exists bool
	Status string
}

// NFTMeta is the token metadata backing a registered name.
type NFTMeta struct {
	Name     string
	TokenURI string
	Owner    string
}

// RegistryClient is the domain-name registry relay.
type RegistryClient interface {
	CheckDomain(ctx context.Context, name string) (DomainStatus, error)
	CertInfo(ctx context.Context, name string) (CertStatus, error)
	NFTInfo(ctx context.Context, name string) (NFTMeta, error)
}
