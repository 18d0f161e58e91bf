package markov

import (
	"cmp"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
)

var (
	// ErrInvalidParameter is returned when generation is requested with an
	// unusable combination of word counts.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrEmptyModel is returned when generation is requested from a model
	// that has never been fed or restored.
	ErrEmptyModel = errors.New("model is empty")
	// ErrDeserialization is returned when a serialized model is corrupt or
	// not a valid model encoding.
	ErrDeserialization = errors.New("invalid model encoding")
)

// successors is the weighted multiset of tokens observed after a key.
// Tokens keep their first-seen order so a seeded source replays the same walk.
type successors struct {
	tokens []Token
	counts []int
	index  map[Token]int
	total  int
}

func newSuccessors() *successors {
	return &successors{index: make(map[Token]int)}
}

func (s *successors) add(token Token, n int) {
	if i, ok := s.index[token]; ok {
		s.counts[i] += n
	} else {
		s.index[token] = len(s.tokens)
		s.tokens = append(s.tokens, token)
		s.counts = append(s.counts, n)
	}
	s.total += n
}

// choose draws a token with probability proportional to its count.
func (s *successors) choose(r *rand.Rand) Token {
	randChoice := r.IntN(s.total)
	for i, count := range s.counts {
		randChoice -= count
		if randChoice < 0 {
			return s.tokens[i]
		}
	}
	return s.tokens[len(s.tokens)-1]
}

// Model maps every observed Key to the weighted set of tokens that followed
// it. The zero value is not usable; create models with NewModel.
//
// Feed, Restore and Import are exclusive writers. Generation and the read
// accessors may run concurrently with each other but wait for writers.
type Model struct {
	mu      sync.RWMutex
	chains  map[Key]*successors
	keys    []Key // sorted; rebuilt after every mutation
	openers int   // keys whose first token is a Word
	scanner *Scanner
	logger  *slog.Logger
}

// NewModel creates an empty model that tokenizes fed text with scanner. A nil
// scanner means NewScanner().
func NewModel(scanner *Scanner) *Model {
	if scanner == nil {
		scanner = NewScanner()
	}
	return &Model{
		chains:  make(map[Key]*successors),
		scanner: scanner,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger sets the logger for the Model. By default, all logs are discarded.
func (m *Model) SetLogger(logger *slog.Logger) {
	if logger != nil {
		m.mu.Lock()
		m.logger = logger
		m.mu.Unlock()
	}
}

// Len returns the number of keys in the model.
func (m *Model) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.keys)
}

// Keys returns a sorted copy of every key in the model.
func (m *Model) Keys() []Key {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.keys)
}

// Successors returns a copy of the weighted successors recorded for key, or
// nil if the key has never been seen.
func (m *Model) Successors(key Key) map[Token]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.chains[key]
	if !ok {
		return nil
	}
	out := make(map[Token]int, len(s.tokens))
	for i, token := range s.tokens {
		out[token] = s.counts[i]
	}
	return out
}

// ModelStats holds aggregated statistics for a model.
type ModelStats struct {
	Keys           int // The number of distinct keys.
	Links          int // The number of distinct key->successor links.
	TotalFrequency int // The sum of all link weights; the number of trained transitions.
	Vocabulary     int // The number of distinct tokens appearing anywhere in the model.
}

// Stats returns a snapshot of the model's size.
func (m *Model) Stats() ModelStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	vocab := make(map[Token]struct{})
	stats := ModelStats{Keys: len(m.chains)}
	for key, s := range m.chains {
		for _, token := range key {
			vocab[token] = struct{}{}
		}
		for _, token := range s.tokens {
			vocab[token] = struct{}{}
		}
		stats.Links += len(s.tokens)
		stats.TotalFrequency += s.total
	}
	stats.Vocabulary = len(vocab)
	return stats
}

// record adds n observations of next after key. Callers hold the write lock.
func (m *Model) record(key Key, next Token, n int) {
	s, ok := m.chains[key]
	if !ok {
		s = newSuccessors()
		m.chains[key] = s
	}
	s.add(next, n)
}

// refreshKeys rebuilds the key cache. Callers hold the write lock.
func (m *Model) refreshKeys() {
	keys := make([]Key, 0, len(m.chains))
	for key := range m.chains {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, compareKeys)
	m.keys = keys

	m.openers = 0
	for _, key := range keys {
		if key[0].Category == Word {
			m.openers++
		}
	}
}

func compareTokens(a, b Token) int {
	if c := cmp.Compare(a.Category, b.Category); c != 0 {
		return c
	}
	return strings.Compare(a.Value, b.Value)
}

func compareKeys(a, b Key) int {
	for i := range a {
		if c := compareTokens(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}
