package importer

import (
	"sort"
	"sync"

	"github.com/kalebecaldas/SISTEMADEFATURAMENTOIAAM-sub001/internal/store"
)

// scopeLocks serializes commits and deletions per (period, kind) scope.
// Duplicate-tuple detection and backup-then-overwrite both assume a single
// writer per scope.
type scopeLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

// lock acquires the mutex for each given kind of the period, in sorted
// order so overlapping multi-kind operations cannot deadlock. The returned
// function releases them.
func (l *scopeLocks) lock(p store.Period, kinds ...store.CollaboratorKind) func() {
	keys := make([]string, 0, len(kinds))
	for _, k := range kinds {
		keys = append(keys, p.String()+"/"+string(k))
	}
	sort.Strings(keys)

	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[string]*sync.Mutex)
	}
	locks := make([]*sync.Mutex, 0, len(keys))
	for _, key := range keys {
		mu, ok := l.m[key]
		if !ok {
			mu = &sync.Mutex{}
			l.m[key] = mu
		}
		locks = append(locks, mu)
	}
	l.mu.Unlock()

	for _, mu := range locks {
		mu.Lock()
	}
	return func() {
		for i := len(locks) - 1; i >= 0; i-- {
			locks[i].Unlock()
		}
	}
}
