package mbti

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// Memo memoizes loaded tables for the life of a session. Entries are keyed
// by content digest; a per-path stat signature lets repeated loads of an
// unchanged file skip reading it.
type Memo struct {
	loader *Loader
	tables *cache.Cache

	mu         sync.Mutex
	signatures map[string]signature
	stats      MemoStats
}

type signature struct {
	size    int64
	modTime time.Time
	digest  string
}

// MemoStats counts memo activity.
type MemoStats struct {
	Hits          int
	Misses        int
	Invalidations int
}

// NewMemo wraps loader with a session cache.
func NewMemo(loader *Loader) *Memo {
	return &Memo{
		loader:     loader,
		tables:     cache.New(cache.NoExpiration, 0),
		signatures: make(map[string]signature),
	}
}

// Load returns the table for path, parsing it only when neither its stat
// signature nor its content digest has been seen before.
func (m *Memo) Load(path string) (*Table, error) {
	id, err := m.loader.Stat(path)
	if err != nil {
		m.Invalidate(path)
		return nil, err
	}
	m.mu.Lock()
	sig, ok := m.signatures[path]
	m.mu.Unlock()
	if ok && sig.size == id.Size && sig.modTime.Equal(id.ModTime) {
		if table, found := m.lookup(sig.digest); found {
			m.record(path, sig, true)
			return table, nil
		}
	}

	data, id, err := m.loader.ReadSource(path)
	if err != nil {
		m.Invalidate(path)
		return nil, err
	}
	sig = signature{size: id.Size, modTime: id.ModTime, digest: id.Digest}
	if table, found := m.lookup(id.Digest); found {
		m.record(path, sig, true)
		return table, nil
	}
	table, err := m.loader.ParseSource(data, id)
	if err != nil {
		return nil, err
	}
	m.tables.Set(id.Digest, table, cache.DefaultExpiration)
	m.record(path, sig, false)
	return table, nil
}

// Invalidate forgets everything cached for path.
func (m *Memo) Invalidate(path string) {
	m.mu.Lock()
	sig, ok := m.signatures[path]
	delete(m.signatures, path)
	if ok {
		m.stats.Invalidations++
	}
	m.mu.Unlock()
	if ok {
		m.tables.Delete(sig.digest)
	}
}

// Flush drops every cached table.
func (m *Memo) Flush() {
	m.mu.Lock()
	m.signatures = make(map[string]signature)
	m.mu.Unlock()
	m.tables.Flush()
}

// Len returns how many distinct tables are cached.
func (m *Memo) Len() int {
	return m.tables.ItemCount()
}

// Stats returns a snapshot of the memo counters.
func (m *Memo) Stats() MemoStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

func (m *Memo) lookup(digest string) (*Table, bool) {
	v, ok := m.tables.Get(digest)
	if !ok {
		return nil, false
	}
	table, ok := v.(*Table)
	return table, ok
}

func (m *Memo) record(path string, sig signature, hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signatures[path] = sig
	if hit {
		m.stats.Hits++
	} else {
		m.stats.Misses++
	}
}
