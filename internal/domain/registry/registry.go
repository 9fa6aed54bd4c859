// Package registry holds the current competitor roster.
package registry

import (
	"context"
	"crypto/md5" //nolint:gosec // content address, not a security boundary
	"encoding/hex"
	"sort"
	"sync"

	"github.com/MiradoConsulting/RobocodeEngine/internal/domain/model"
	"github.com/MiradoConsulting/RobocodeEngine/pkg/metrics"
)

// Hook observes a committed Put. It runs on the caller's goroutine after
// the registry lock is released.
type Hook func(ctx context.Context, spec model.CompetitorSpec)

// Registry maps repository keys to competitor specs.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]model.CompetitorSpec
	onPut Hook
}

// New creates an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{specs: make(map[string]model.CompetitorSpec)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Put replaces the spec stored under key and then runs the OnPut hook for
// exactly that spec. spec.RepositoryKey is overwritten with key.
func (r *Registry) Put(ctx context.Context, key string, spec model.CompetitorSpec) {
	spec.RepositoryKey = key

	r.mu.Lock()
	r.specs[key] = spec
	n := len(r.specs)
	r.mu.Unlock()

	metrics.UpdateRegistrySize(n)

	if r.onPut != nil {
		r.onPut(ctx, spec)
	}
}

// Get returns the spec stored under key.
func (r *Registry) Get(key string) (model.CompetitorSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[key]
	return spec, ok
}

// Len returns the number of registered competitors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.specs)
}

// Snapshot returns a copy of every spec ordered by repository key.
func (r *Registry) Snapshot() []model.CompetitorSpec {
	r.mu.RLock()
	out := make([]model.CompetitorSpec, 0, len(r.specs))
	for _, spec := range r.specs {
		out = append(out, spec)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].RepositoryKey < out[j].RepositoryKey })
	return out
}

// Fingerprint identifies the current roster. See Fingerprint.
func (r *Registry) Fingerprint() string {
	return Fingerprint(r.Snapshot())
}

// Fingerprint hashes the sorted set of ClassName+Source over specs as
// lowercase hex MD5. Order and duplicates do not matter; repository keys,
// owners and timestamps are ignored.
func Fingerprint(specs []model.CompetitorSpec) string {
	set := make(map[string]struct{}, len(specs))
	for _, s := range specs {
		set[s.ClassName+s.Source] = struct{}{}
	}
	members := make([]string, 0, len(set))
	for m := range set {
		members = append(members, m)
	}
	sort.Strings(members)

	h := md5.New() //nolint:gosec // see import
	for _, m := range members {
		_, _ = h.Write([]byte(m))
	}
	return hex.EncodeToString(h.Sum(nil))
}
