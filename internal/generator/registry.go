package generator

import (
	"fmt"
	"log/slog"
)

// Entry pairs a descriptor with the adapter that serves it.
type Entry struct {
	Descriptor Descriptor
	Adapter    Adapter
}

// CredentialLookup returns the configured secret for a credential key.
type CredentialLookup func(key string) string

// Registry is the immutable set of usable providers, built once at startup.
// Providers whose credential requirement is unmet are never registered.
type Registry struct {
	order   []string
	entries map[string]Entry
}

// NewRegistry builds a registry from entries, keeping their order.
// Entries with a nil adapter or duplicate ID are rejected.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		id := e.Descriptor.ID
		if id == "" {
			return nil, fmt.Errorf("generator: registry entry without id")
		}
		if e.Adapter == nil {
			return nil, fmt.Errorf("generator: provider %q has no adapter", id)
		}
		if _, dup := r.entries[id]; dup {
			return nil, fmt.Errorf("generator: duplicate provider %q", id)
		}
		r.entries[id] = e
		r.order = append(r.order, id)
	}
	return r, nil
}

// Build constructs a registry from a catalog, skipping every descriptor
// whose credential is not configured. newAdapter is called only for
// descriptors that survive the credential check.
func Build(catalog []Descriptor, creds CredentialLookup, newAdapter func(d Descriptor, credential string) (Adapter, error), logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	entries := make([]Entry, 0, len(catalog))
	for _, d := range catalog {
		secret := creds(d.CredentialKey)
		if secret == "" {
			logger.Debug("provider excluded: credential not configured",
				slog.String("provider", d.ID),
				slog.String("credential", d.CredentialKey),
			)
			continue
		}
		adapter, err := newAdapter(d, secret)
		if err != nil {
			return nil, fmt.Errorf("generator: build adapter %q: %w", d.ID, err)
		}
		entries = append(entries, Entry{Descriptor: d, Adapter: adapter})
	}
	return NewRegistry(entries...)
}

// Get returns the adapter and descriptor for a provider ID.
func (r *Registry) Get(id string) (Adapter, Descriptor, error) {
	e, ok := r.entries[id]
	if !ok {
		return nil, Descriptor{}, fmt.Errorf("%w: %s", ErrUnknownProvider, id)
	}
	return e.Adapter, e.Descriptor, nil
}

// List returns the descriptors of all usable providers in catalog order.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id].Descriptor)
	}
	return out
}

// Len returns the number of usable providers.
func (r *Registry) Len() int {
	return len(r.order)
}
