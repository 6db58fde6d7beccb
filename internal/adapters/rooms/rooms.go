// Package rooms provisions meeting rooms for matched pairs.
package rooms

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/pairup/internal/domain/model"
)

// ErrInvalidBaseURL is returned when the configured room URL cannot be used.
var ErrInvalidBaseURL = errors.New("invalid room base url")

// StaticProvisioner derives a room URL from a base URL and a fresh room id.
// It stands in for an external video provider.
type StaticProvisioner struct {
	base *url.URL
}

// NewStaticProvisioner validates baseURL and returns a provisioner.
func NewStaticProvisioner(baseURL string) (*StaticProvisioner, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q needs a scheme and host", ErrInvalidBaseURL, baseURL)
	}
	return &StaticProvisioner{base: u}, nil
}

// Provision returns a unique room reference for the claim.
func (p *StaticProvisioner) Provision(ctx context.Context, claim model.Claim) (string, error) { //nolint:gocritic // interface signature
	if err := ctx.Err(); err != nil {
		return "", err
	}
	room := p.base.JoinPath("room", uuid.NewString())
	q := room.Query()
	q.Set("claim", claim.ID)
	room.RawQuery = q.Encode()
	return room.String(), nil
}
