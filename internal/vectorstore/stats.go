package vectorstore

import (
	"context"
	"sort"
)

// ProviderStats summarizes the documents of one embedding space.
type ProviderStats struct {
	Provider  string `json:"provider"`
	Documents int    `json:"documents"`
	Sources   int    `json:"sources"`
	Dimension int    `json:"dimension"`
}

// Stats summarizes the whole store.
type Stats struct {
	Documents int             `json:"documents"`
	Sources   int             `json:"sources"`
	Providers []ProviderStats `json:"providers"`
}

// Stats counts documents and distinct source ids, overall and per provider.
// Providers are sorted by name.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return Stats{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sources := make(map[string]struct{})
	perProvider := make(map[string]*ProviderStats)
	perSources := make(map[string]map[string]struct{})
	for _, doc := range s.docs {
		sources[doc.ID] = struct{}{}
		ps, ok := perProvider[doc.Provider]
		if !ok {
			ps = &ProviderStats{Provider: doc.Provider, Dimension: s.dimensionLocked(doc.Provider)}
			perProvider[doc.Provider] = ps
			perSources[doc.Provider] = make(map[string]struct{})
		}
		ps.Documents++
		perSources[doc.Provider][doc.ID] = struct{}{}
	}

	out := Stats{Documents: len(s.docs), Sources: len(sources), Providers: make([]ProviderStats, 0, len(perProvider))}
	for name, ps := range perProvider {
		ps.Sources = len(perSources[name])
		out.Providers = append(out.Providers, *ps)
	}
	sort.Slice(out.Providers, func(i, j int) bool {
		return out.Providers[i].Provider < out.Providers[j].Provider
	})
	return out, nil
}
