// Package identity is the boundary to the external identity provider.
// The provider owns the opaque identity strings; this package only
// verifies tokens it issued and resolves display metadata.
package identity

import "context"

// Profile is the display metadata the provider holds for one identity.
type Profile struct {
	Identity string `json:"identity"`
	Name     string `json:"name,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// Source resolves a profile for an identity. Implementations return an
// error for unknown identities; callers render such contacts with the
// bare identity string.
type Source interface {
	Profile(ctx context.Context, identity string) (Profile, error)
}
