package markov

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
)

// Sampler performs a weighted random walk over a Model. Each call to Next
// returns the front token of the current key and then advances the key by
// one sampled successor, so the first two tokens returned are those of the
// randomly chosen starting key. The walk never ends on its own.
//
// A Sampler is not safe for concurrent use.
type Sampler struct {
	model *Model
	rng   *rand.Rand
	key   Key
}

// NewSampler starts a walk at a key chosen uniformly at random. A nil rng
// means a freshly seeded source. It fails with ErrEmptyModel if the model has
// no keys.
func (m *Model) NewSampler(rng *rand.Rand) (*Sampler, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.newSampler(rng)
}

// newSampler is NewSampler for callers already holding the read lock.
func (m *Model) newSampler(rng *rand.Rand) (*Sampler, error) {
	if len(m.keys) == 0 {
		return nil, ErrEmptyModel
	}
	if rng == nil {
		rng = newRand()
	}
	s := &Sampler{model: m, rng: rng}
	s.restart()
	return s, nil
}

// restart moves the walk to a key chosen uniformly at random. Callers hold the
// read lock and ensure the model has keys.
func (s *Sampler) restart() {
	keys := s.model.keys
	s.key = keys[s.rng.IntN(len(keys))]
}

// Next returns the next token of the walk.
func (s *Sampler) Next() (Token, error) {
	s.model.mu.RLock()
	defer s.model.mu.RUnlock()
	return s.next()
}

// next advances the walk. When the current key has no recorded successors
// the walk restarts from a fresh random key. Callers hold the read lock.
func (s *Sampler) next() (Token, error) {
	m := s.model
	for restarts := 0; ; restarts++ {
		if succ, ok := m.chains[s.key]; ok && succ.total > 0 {
			front := s.key[0]
			copy(s.key[:], s.key[1:])
			s.key[KeySize-1] = succ.choose(s.rng)
			return front, nil
		}

		if len(m.keys) == 0 {
			return Token{}, ErrEmptyModel
		}
		if restarts > len(m.keys) {
			return Token{}, fmt.Errorf("%w: no key has successors", ErrEmptyModel)
		}
		m.logger.Debug("Key exhausted, restarting walk",
			slog.String("first", s.key[0].Value),
			slog.String("second", s.key[1].Value),
		)
		s.restart()
	}
}

func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}
