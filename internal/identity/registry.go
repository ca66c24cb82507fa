package identity

import "slices"

// Registry is the closed roster of participants. It is fixed at startup;
// identities are never created at runtime.
type Registry struct {
	ids []string
}

func NewRegistry(ids []string) *Registry {
	return &Registry{ids: slices.Clone(ids)}
}

func (r *Registry) IsKnown(id string) bool {
	return slices.Contains(r.ids, id)
}

// List returns the roster in registration order.
func (r *Registry) List() []string {
	return slices.Clone(r.ids)
}

// Other returns the one identity that is not id. The roster for a game
// session is always a pair, so "the other player" is well defined; for any
// other roster shape (or an unknown id) it returns "".
func (r *Registry) Other(id string) string {
	other := ""
	for _, known := range r.ids {
		if known == id {
			continue
		}
		if other != "" {
			return ""
		}
		other = known
	}
	if !r.IsKnown(id) {
		return ""
	}
	return other
}
