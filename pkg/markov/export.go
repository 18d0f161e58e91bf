package markov

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
)

// ExportedModel is the serializable representation of a model, used for JSON
// save and restore and as the exchange format with a Store.
type ExportedModel struct {
	KeySize    int             `json:"key_size"`
	Vocabulary []ExportedToken `json:"vocabulary"` // token_id is the index
	Chains     []ExportedChain `json:"chains"`
}

// ExportedToken is a vocabulary entry of an ExportedModel.
type ExportedToken struct {
	Category Category `json:"category"`
	Value    string   `json:"value"`
}

// ExportedChain is a single weighted link of an ExportedModel. Key and Next
// are indexes into the vocabulary.
type ExportedChain struct {
	Key       []int `json:"key"`
	Next      int   `json:"next"`
	Frequency int   `json:"frequency"`
}

// Export returns a snapshot of the model. Vocabulary and chains are sorted,
// so two equal models always export identically.
func (m *Model) Export() *ExportedModel {
	m.mu.RLock()
	defer m.mu.RUnlock()

	vocabSet := make(map[Token]struct{})
	for _, key := range m.keys {
		for _, token := range key {
			vocabSet[token] = struct{}{}
		}
		for _, token := range m.chains[key].tokens {
			vocabSet[token] = struct{}{}
		}
	}
	vocab := make([]Token, 0, len(vocabSet))
	for token := range vocabSet {
		vocab = append(vocab, token)
	}
	slices.SortFunc(vocab, compareTokens)

	ids := make(map[Token]int, len(vocab))
	exported := &ExportedModel{
		KeySize:    KeySize,
		Vocabulary: make([]ExportedToken, len(vocab)),
		Chains:     []ExportedChain{},
	}
	for i, token := range vocab {
		ids[token] = i
		exported.Vocabulary[i] = ExportedToken{Category: token.Category, Value: token.Value}
	}

	for _, key := range m.keys {
		keyIDs := make([]int, KeySize)
		for i, token := range key {
			keyIDs[i] = ids[token]
		}
		s := m.chains[key]
		start := len(exported.Chains)
		for i, token := range s.tokens {
			exported.Chains = append(exported.Chains, ExportedChain{
				Key:       keyIDs,
				Next:      ids[token],
				Frequency: s.counts[i],
			})
		}
		slices.SortFunc(exported.Chains[start:], func(a, b ExportedChain) int {
			return a.Next - b.Next
		})
	}
	return exported
}

// Import loads an exported model. If replace is true, or the model is empty,
// the imported data becomes the model outright. Otherwise it is merged: the
// weights of shared links are added together and new keys are inserted as
// they are. The exported data is validated in full before the model is
// touched; invalid data fails with ErrDeserialization.
func (m *Model) Import(ctx context.Context, exported *ExportedModel, replace bool) error {
	chains, err := decodeChains(exported)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	merged := !replace && len(m.chains) > 0
	if merged {
		for key, s := range chains {
			for i, token := range s.tokens {
				m.record(key, token, s.counts[i])
			}
		}
	} else {
		m.chains = chains
	}
	m.refreshKeys()

	m.logger.InfoContext(ctx, "Model imported",
		slog.Bool("merged", merged),
		slog.Int("vocab_items", len(exported.Vocabulary)),
		slog.Int("chains_imported", len(exported.Chains)),
		slog.Int("keys", len(m.chains)),
	)
	return nil
}

// decodeChains validates an exported model and rebuilds its chains.
func decodeChains(exported *ExportedModel) (map[Key]*successors, error) {
	if exported == nil {
		return nil, fmt.Errorf("%w: no model data", ErrDeserialization)
	}
	if exported.KeySize != KeySize {
		return nil, fmt.Errorf("%w: key size %d, want %d", ErrDeserialization, exported.KeySize, KeySize)
	}

	vocab := make([]Token, len(exported.Vocabulary))
	for i, et := range exported.Vocabulary {
		if et.Category > SentenceEnd {
			return nil, fmt.Errorf("%w: token %d has unknown category %d", ErrDeserialization, i, et.Category)
		}
		if et.Value == "" {
			return nil, fmt.Errorf("%w: token %d is empty", ErrDeserialization, i)
		}
		vocab[i] = intern(Token{Category: et.Category, Value: et.Value})
	}
	lookup := func(id int) (Token, error) {
		if id < 0 || id >= len(vocab) {
			return Token{}, fmt.Errorf("%w: token id %d not in vocabulary", ErrDeserialization, id)
		}
		return vocab[id], nil
	}

	chains := make(map[Key]*successors)
	for n, chain := range exported.Chains {
		if len(chain.Key) != KeySize {
			return nil, fmt.Errorf("%w: chain %d has key of length %d", ErrDeserialization, n, len(chain.Key))
		}
		if chain.Frequency < 1 {
			return nil, fmt.Errorf("%w: chain %d has frequency %d", ErrDeserialization, n, chain.Frequency)
		}
		var key Key
		for i, id := range chain.Key {
			token, err := lookup(id)
			if err != nil {
				return nil, err
			}
			key[i] = token
		}
		next, err := lookup(chain.Next)
		if err != nil {
			return nil, err
		}
		s, ok := chains[key]
		if !ok {
			s = newSuccessors()
			chains[key] = s
		}
		s.add(next, chain.Frequency)
	}
	return chains, nil
}

// Save serializes the full model as indented JSON to w. The output can be
// read back losslessly with Restore.
func (m *Model) Save(ctx context.Context, w io.Writer) error {
	exported := m.Export()

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(exported); err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}

	m.mu.RLock()
	logger := m.logger
	m.mu.RUnlock()
	logger.InfoContext(ctx, "Model saved",
		slog.Int("vocab_items_exported", len(exported.Vocabulary)),
		slog.Int("chains_exported", len(exported.Chains)),
	)
	return nil
}

// Restore reads a model written by Save from r and imports it with the same
// replace semantics as Import. Corrupt or foreign data fails with
// ErrDeserialization and leaves the model unchanged.
func (m *Model) Restore(ctx context.Context, r io.Reader, replace bool) error {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()

	var exported ExportedModel
	if err := decoder.Decode(&exported); err != nil {
		return fmt.Errorf("%w: %w", ErrDeserialization, err)
	}
	// Anything but whitespace after the model means the file is corrupt.
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after model", ErrDeserialization)
	}
	return m.Import(ctx, &exported, replace)
}
