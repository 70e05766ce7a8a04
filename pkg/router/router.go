package router

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pario-ai/fxanalyst/pkg/config"
)

// ErrNoProviders is returned when no provider is configured.
var ErrNoProviders = errors.New("no providers configured")

// Route is one provider endpoint and model to try, with its resolved API key.
type Route struct {
	Provider string
	URL      string
	APIKey   string
	Model    string
}

// Router resolves model names to ordered provider+model chains.
type Router struct {
	providers map[string]config.ProviderConfig
	first     config.ProviderConfig
	routes    []config.RouteConfig
	apiKey    string
}

// New creates a Router. Providers without their own key use settings.APIKey.
func New(cfg *config.Config) *Router {
	r := &Router{
		providers: make(map[string]config.ProviderConfig, len(cfg.Providers)),
		routes:    cfg.Router.Routes,
		apiKey:    cfg.Settings.APIKey,
	}
	for i, p := range cfg.Providers {
		if i == 0 {
			r.first = p
		}
		r.providers[p.Name] = p
	}
	return r
}

// Resolve returns an ordered list of routes for the requested model.
// A configured route yields its targets; otherwise the first provider is
// used with the requested model name.
func (r *Router) Resolve(model string) ([]Route, error) {
	if len(r.providers) == 0 {
		return nil, ErrNoProviders
	}

	for _, rc := range r.routes {
		if rc.Model != model {
			continue
		}
		var routes []Route
		for _, target := range rc.Targets {
			p, ok := r.providers[target.Provider]
			if !ok {
				continue // unknown provider
			}
			m := target.Model
			if m == "" {
				m = model
			}
			routes = append(routes, r.route(p, m))
		}
		if len(routes) == 0 {
			return nil, fmt.Errorf("route %q: all providers unknown", model)
		}
		return routes, nil
	}

	return []Route{r.route(r.first, model)}, nil
}

func (r *Router) route(p config.ProviderConfig, model string) Route {
	key := p.APIKey
	if key == "" {
		key = r.apiKey
	}
	return Route{
		Provider: p.Name,
		URL:      strings.TrimRight(p.URL, "/"),
		APIKey:   key,
		Model:    model,
	}
}
