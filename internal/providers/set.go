package providers

import (
	"errors"
	"fmt"
	"strings"
)

// Set routes calls by provider name.
type Set struct {
	byName      map[string]Provider
	order       []string
	defaultName string
}

// NewSet builds a set. defaultName must name one of ps.
func NewSet(defaultName string, ps ...Provider) (*Set, error) {
	s := &Set{byName: make(map[string]Provider, len(ps))}
	for _, p := range ps {
		name := normalizeName(p.Name())
		if name == "" {
			return nil, fmt.Errorf("provider with empty name")
		}
		if _, dup := s.byName[name]; dup {
			return nil, fmt.Errorf("duplicate provider %q", name)
		}
		s.byName[name] = p
		s.order = append(s.order, name)
	}
	if len(s.order) == 0 {
		return nil, fmt.Errorf("no providers configured")
	}
	s.defaultName = normalizeName(defaultName)
	if s.defaultName == "" {
		s.defaultName = s.order[0]
	}
	if _, ok := s.byName[s.defaultName]; !ok {
		return nil, fmt.Errorf("default provider %q: %w", defaultName, ErrUnknownProvider)
	}
	return s, nil
}

// Get returns the named provider, or the default for an empty name.
func (s *Set) Get(name string) (Provider, error) {
	key := normalizeName(name)
	if key == "" {
		key = s.defaultName
	}
	p, ok := s.byName[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}

// Default returns the default provider name.
func (s *Set) Default() string { return s.defaultName }

// Names returns provider names in configuration order.
func (s *Set) Names() []string {
	return append([]string(nil), s.order...)
}

// Close cleans up any resources used by the providers.
func (s *Set) Close() error {
	var errs []error
	for _, name := range s.order {
		if err := s.byName[name].Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
