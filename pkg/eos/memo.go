package eos

import (
	"fmt"
	"sync"

	"github.com/soletide/hydrostat/pkg/body"
)

// memoQuantum is the (P,T) grid spacing memoized lookups are snapped to.
// Coarser than any integration step tolerance would alias neighboring
// states; 1 kPa / 1 mK is far below both.
const (
	memoQuantumP = 1.0e-3 // MPa
	memoQuantumT = 1.0e-3 // K
)

type memoKey struct {
	p, t  int64
	phase body.Phase
}

// Memoized wraps a Provider with a concurrency-safe lookup cache.
//
// EOS lookups dominate per-step integration cost when the backing provider
// interpolates large tables or shells out to an external process; solver
// trials revisit nearly identical states, so memoization at this boundary
// is the designated optimization point. Out-of-range results are memoized
// too, so repeated probing of an infeasible region stays cheap.
type Memoized struct {
	inner Provider

	mu   sync.RWMutex
	hits map[memoKey]memoEntry
}

type memoEntry struct {
	props Properties
	err   error
}

// NewMemoized wraps inner with a lookup cache.
func NewMemoized(inner Provider) *Memoized {
	return &Memoized{inner: inner, hits: make(map[memoKey]memoEntry)}
}

// Lookup implements Provider.
func (m *Memoized) Lookup(p, t float64, phase body.Phase) (Properties, error) {
	key := memoKey{
		p:     int64(p / memoQuantumP),
		t:     int64(t / memoQuantumT),
		phase: phase,
	}
	m.mu.RLock()
	e, ok := m.hits[key]
	m.mu.RUnlock()
	if ok {
		return e.props, e.err
	}
	props, err := m.inner.Lookup(p, t, phase)
	m.mu.Lock()
	m.hits[key] = memoEntry{props: props, err: err}
	m.mu.Unlock()
	return props, err
}

// Version implements Provider. Memoization does not change answers, so the
// inner version passes through unchanged.
func (m *Memoized) Version() string { return m.inner.Version() }

// Size returns the number of memoized states.
func (m *Memoized) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.hits)
}

var _ Provider = (*Memoized)(nil)

// MemoizedSource wraps every provider a Source hands out with a Memoized
// cache, reusing wrappers across layers that share a provider.
type MemoizedSource struct {
	inner Source

	mu      sync.Mutex
	wrapped map[Provider]*Memoized
}

// NewMemoizedSource wraps inner.
func NewMemoizedSource(inner Source) *MemoizedSource {
	return &MemoizedSource{inner: inner, wrapped: make(map[Provider]*Memoized)}
}

// Provider implements Source.
func (s *MemoizedSource) Provider(spec body.LayerSpec) (Provider, error) {
	p, err := s.inner.Provider(spec)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.wrapped[p]; ok {
		return w, nil
	}
	w := NewMemoized(p)
	s.wrapped[p] = w
	return w, nil
}

// Version implements Source.
func (s *MemoizedSource) Version() string {
	return fmt.Sprintf("memo(%s)", s.inner.Version())
}

var _ Source = (*MemoizedSource)(nil)
