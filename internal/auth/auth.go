package auth

import (
	"context"
	"fmt"
	"strings"
)

// Identity names the caller behind a valid API key. The name feeds logs
// and per-client rate limiting; it carries no permissions.
type Identity struct {
	Name string
}

type APIKeyValidator interface {
	Validate(ctx context.Context, apiKey string) (Identity, bool)
}

// StaticAPIKeyValidator checks keys against a fixed set parsed from
// configuration.
type StaticAPIKeyValidator struct {
	keys map[string]Identity
}

// NewStaticAPIKeyValidator parses a comma-separated key list. Each entry
// is either "name:key" or a bare "key"; a bare key is its own name.
func NewStaticAPIKeyValidator(spec string) (*StaticAPIKeyValidator, error) {
	validator := &StaticAPIKeyValidator{keys: map[string]Identity{}}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return validator, nil
	}

	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			return nil, fmt.Errorf("invalid static key entry: empty")
		}
		name, key, found := strings.Cut(entry, ":")
		if !found {
			name, key = entry, entry
		}
		name = strings.TrimSpace(name)
		key = strings.TrimSpace(key)
		if name == "" || key == "" {
			return nil, fmt.Errorf("invalid static key entry %q: expected name:key", entry)
		}
		if _, exists := validator.keys[key]; exists {
			return nil, fmt.Errorf("duplicate static key %q", key)
		}
		validator.keys[key] = Identity{Name: name}
	}
	return validator, nil
}

func (v *StaticAPIKeyValidator) Validate(_ context.Context, apiKey string) (Identity, bool) {
	identity, ok := v.keys[apiKey]
	return identity, ok
}
