// Package providerfactory builds the configured provider set.
package providerfactory

import (
	"fmt"
	"strings"

	"github.com/mwiater/toolflow/internal/appconfig"
	"github.com/mwiater/toolflow/internal/logging"
	"github.com/mwiater/toolflow/internal/metrics"
	"github.com/mwiater/toolflow/internal/providers"
	"github.com/mwiater/toolflow/internal/providers/llamacpp"
	"github.com/mwiater/toolflow/internal/providers/ollama"
	"github.com/mwiater/toolflow/internal/providers/openai"
	"github.com/mwiater/toolflow/internal/providers/stub"
)

// NewProviderSet constructs one provider per configured entry and wraps each
// with metrics collection when m is non-nil.
func NewProviderSet(cfg *appconfig.Config, m *metrics.Metrics) (*providers.Set, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config provided to provider factory")
	}

	built := make([]providers.Provider, 0, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		p, err := newProvider(cfg, pc)
		if err != nil {
			return nil, err
		}
		if m != nil {
			p = metrics.NewProvider(p, m)
		}
		logging.LogEvent("Provider ready: %s (%s)", pc.Name, providerType(pc))
		built = append(built, p)
	}
	return providers.NewSet(cfg.DefaultProviderName(), built...)
}

func newProvider(cfg *appconfig.Config, pc appconfig.Provider) (providers.Provider, error) {
	switch providerType(pc) {
	case appconfig.ProviderTypeOllama:
		return ollama.New(pc, cfg.RequestTimeout(), cfg.Debug), nil
	case appconfig.ProviderTypeOpenAI:
		return openai.New(pc, cfg.RequestTimeout(), cfg.Debug), nil
	case appconfig.ProviderTypeLlamaCpp:
		return llamacpp.New(pc, cfg.RequestTimeout(), cfg.Debug), nil
	case appconfig.ProviderTypeStub:
		return stub.New(pc.Name, pc.Dimension), nil
	default:
		return nil, fmt.Errorf("provider %q: unsupported type %q", pc.Name, pc.Type)
	}
}

func providerType(pc appconfig.Provider) string {
	return strings.ToLower(strings.TrimSpace(pc.Type))
}
