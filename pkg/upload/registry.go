package upload

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/dmitrymomot/reupload/pkg/config"
	"github.com/dmitrymomot/reupload/pkg/logger"
)

// Registry holds the configured upload sets of an application.
type Registry struct {
	sets  []*Set
	byKey map[string]*Set

	mu          sync.RWMutex
	servePrefix string
}

// Configure resolves the configuration of every set from settings and
// attaches it. It fails without attaching anything if any set cannot be
// configured; all failures are reported together.
func Configure(settings config.Settings, sets ...*Set) (*Registry, error) {
	r := &Registry{byKey: make(map[string]*Set, len(sets))}
	for _, s := range sets {
		if s == nil {
			return nil, fmt.Errorf("%w: nil upload set", ErrConfiguration)
		}
		if _, dup := r.byKey[s.name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSet, s.name)
		}
		r.byKey[s.name] = s
		r.sets = append(r.sets, s)
	}

	if err := r.Reconfigure(settings); err != nil {
		return nil, err
	}
	return r, nil
}

// Reconfigure resolves every set again and swaps the new configurations in
// only if all of them resolve. Saves in flight finish with the configuration
// they started with.
func (r *Registry) Reconfigure(settings config.Settings) error {
	g, err := parseGlobals(settings)
	if err != nil {
		return err
	}

	states := make([]*state, len(r.sets))
	var errs []error
	for i, s := range r.sets {
		cfg, err := resolve(s, settings, g)
		if err == nil {
			states[i], err = s.newState(cfg, g.ServePrefix)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.sets {
		s.attach(states[i])
		s.logger.Info("upload set configured",
			logger.Path(states[i].cfg.Destination),
			slog.Bool("autoserve", states[i].cfg.AutoServe),
		)
	}
	r.servePrefix = g.ServePrefix
	return nil
}

// Lookup returns the set with the given name.
func (r *Registry) Lookup(name string) (*Set, bool) {
	s, ok := r.byKey[name]
	return s, ok
}

// Get is like Lookup but returns ErrUnknownSet for unknown names.
func (r *Registry) Get(name string) (*Set, error) {
	s, ok := r.byKey[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSet, name)
	}
	return s, nil
}

// Sets returns the sets in registration order.
func (r *Registry) Sets() []*Set {
	return slices.Clone(r.sets)
}

// AutoServe reports whether any set is self-served.
func (r *Registry) AutoServe() bool {
	for _, s := range r.sets {
		if st := s.state.Load(); st != nil && st.cfg.AutoServe {
			return true
		}
	}
	return false
}

// ServePrefix returns the URL prefix of the self-serve route, such as "/_uploads".
func (r *Registry) ServePrefix() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.servePrefix
}
