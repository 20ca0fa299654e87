package credentials

import (
	"context"
	"fmt"
	"strings"
)

// Provider returns the raw "id:secret" credential string for an account.
type Provider interface {
	Credentials(ctx context.Context, account string) (string, error)
}

// Credential is a parsed id/secret pair.
type Credential struct {
	ID     string
	Secret string
}

// String hides the secret so a Credential can be logged safely by accident.
func (c Credential) String() string {
	return c.ID + ":***"
}

// Parse splits raw on its first colon. Everything after the first colon is
// the secret, colons included. Both parts must be non-empty.
func Parse(raw string) (Credential, error) {
	id, secret, ok := strings.Cut(raw, ":")
	if !ok {
		return Credential{}, fmt.Errorf("%w: no delimiter", ErrMalformed)
	}
	if id == "" {
		return Credential{}, fmt.Errorf("%w: empty id", ErrMalformed)
	}
	if secret == "" {
		return Credential{}, fmt.Errorf("%w: empty secret", ErrMalformed)
	}
	return Credential{ID: id, Secret: secret}, nil
}

// Fetch asks p for account's credentials and parses the result.
func Fetch(ctx context.Context, p Provider, account string) (Credential, error) {
	raw, err := p.Credentials(ctx, account)
	if err != nil {
		return Credential{}, err
	}
	return Parse(raw)
}

// StaticProvider returns the same credential string for every account.
// Intended for development hosts without the credential service.
type StaticProvider struct {
	Value string
}

// Credentials implements Provider.
func (p StaticProvider) Credentials(_ context.Context, account string) (string, error) {
	if p.Value == "" {
		return "", fmt.Errorf("%w: no static credentials for %q", ErrUnavailable, account)
	}
	return p.Value, nil
}
