package index

import (
	"cmp"
	"context"
	"math"
	"slices"
	"sync"
)

const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

type entry struct {
	passage Passage
	terms   map[string]int
	length  int
}

// Memory is an in-process BM25 index. Reads share a read lock;
// writes take the exclusive lock.
type Memory struct {
	mu       sync.RWMutex
	entries  []entry
	df       map[string]int
	totalLen int
	closed   bool
}

// NewMemory creates an empty in-memory index.
func NewMemory() *Memory {
	return &Memory{df: make(map[string]int)}
}

func (m *Memory) Index(ctx context.Context, passages []Passage) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	passages = clean(passages)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}
	for _, p := range passages {
		m.add(p)
	}
	return len(passages), nil
}

func (m *Memory) Retrieve(ctx context.Context, query string, k int) ([]Passage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []Passage{}, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	if len(m.entries) == 0 {
		return []Passage{}, nil
	}

	type scored struct {
		idx   int
		score float64
	}

	terms := Tokenize(query)
	results := make([]scored, len(m.entries))
	for i := range m.entries {
		results[i] = scored{idx: i, score: m.score(i, terms)}
	}

	slices.SortStableFunc(results, func(a, b scored) int {
		return cmp.Compare(b.score, a.score)
	})

	n := min(k, len(results))
	out := make([]Passage, n)
	for i := range n {
		out[i] = m.entries[results[i].idx].passage
	}
	return out, nil
}

func (m *Memory) RemoveSource(ctx context.Context, source string) (int, error) {
	return m.remove(ctx, func(p Passage) bool { return p.Source == source })
}

func (m *Memory) RemoveDocument(ctx context.Context, id string) (int, error) {
	if id == "" {
		return 0, nil
	}
	return m.remove(ctx, func(p Passage) bool { return p.DocumentID == id })
}

func (m *Memory) remove(ctx context.Context, match func(Passage) bool) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.entries[:0]
	removed := 0
	for _, e := range m.entries {
		if match(e.passage) {
			removed++
			continue
		}
		kept = append(kept, e)
	}

	if removed > 0 {
		m.rebuild(kept)
	}
	return removed, nil
}

func (m *Memory) Stats(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	sources := make(map[string]struct{})
	for _, e := range m.entries {
		sources[e.passage.Source] = struct{}{}
	}

	return Stats{
		Backend:  BackendMemory,
		Passages: len(m.entries),
		Sources:  len(sources),
	}, nil
}

func (m *Memory) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.rebuild(nil)
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.rebuild(nil)
	return nil
}

func (m *Memory) add(p Passage) {
	terms := Tokenize(p.Content)
	freq := make(map[string]int, len(terms))
	for _, t := range terms {
		freq[t]++
	}
	for t := range freq {
		m.df[t]++
	}

	m.entries = append(m.entries, entry{passage: p, terms: freq, length: len(terms)})
	m.totalLen += len(terms)
}

func (m *Memory) rebuild(entries []entry) {
	kept := slices.Clone(entries)
	m.entries = nil
	m.df = make(map[string]int)
	m.totalLen = 0
	for _, e := range kept {
		m.add(e.passage)
	}
}

func (m *Memory) score(i int, terms []string) float64 {
	e := m.entries[i]
	n := float64(len(m.entries))
	avgLen := float64(m.totalLen) / n
	if avgLen == 0 {
		avgLen = 1
	}

	var score float64
	for _, t := range terms {
		tf := float64(e.terms[t])
		if tf == 0 {
			continue
		}
		df := float64(m.df[t])
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		norm := tf + bm25K1*(1-bm25B+bm25B*float64(e.length)/avgLen)
		score += idf * tf * (bm25K1 + 1) / norm
	}
	return score
}
