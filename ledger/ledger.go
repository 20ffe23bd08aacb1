// Package ledger collects per-file batch outcomes. Entries keep their
// insertion order and are write-once: a key can never be overwritten,
// which is what makes the batch log append-only.
package ledger

import (
	"sync"

	"github.com/umpc/go-sortedmap"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/exp/constraints"
)

type Ledger[V any] struct {
	mu sync.Mutex
	m  *orderedmap.OrderedMap[string, V]
}

func New[V any](capacity int) *Ledger[V] {
	return &Ledger[V]{m: orderedmap.New[string, V](max(capacity, 1))}
}

// Append records v under key. The first write wins; later writes for the
// same key are dropped and reported with a false return.
func (l *Ledger[V]) Append(key string, v V) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.m.Get(key); exists {
		return false
	}
	l.m.Set(key, v)
	return true
}

func (l *Ledger[V]) Get(key string) (V, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.m.Get(key)
}

func (l *Ledger[V]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.m.Len()
}

// Keys returns the keys in insertion order.
func (l *Ledger[V]) Keys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	keys := make([]string, l.m.Len())
	i := 0
	for p := l.m.Oldest(); p != nil; p = p.Next() {
		keys[i] = p.Key
		i++
	}
	return keys
}

// Each visits the entries in insertion order.
func (l *Ledger[V]) Each(f func(key string, v V)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for p := l.m.Oldest(); p != nil; p = p.Next() {
		f(p.Key, p.Value)
	}
}

// MaxValueKey returns the earliest-appended key carrying the maximum
// value, the value itself, and how many entries share it.
func MaxValueKey[V constraints.Ordered](l *Ledger[V]) (maxK string, maxV V, numWinners uint) {
	first := true
	l.Each(func(k string, v V) {
		if first || v > maxV {
			maxK = k
			maxV = v
			numWinners = 1
			first = false
			return
		}
		if v == maxV {
			numWinners++
		}
	})
	return
}

// RankByValue returns the keys ordered by ascending value.
func RankByValue[V constraints.Ordered](l *Ledger[V]) []string {
	sm := sortedmap.New(max(l.Len(), 1), func(x, y interface{}) bool {
		return x.(V) < y.(V)
	})
	l.Each(func(k string, v V) {
		sm.Insert(k, v)
	})
	ranked := make([]string, 0, l.Len())
	for _, k := range sm.Keys() {
		ranked = append(ranked, k.(string))
	}
	return ranked
}
