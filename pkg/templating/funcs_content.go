package templating

import (
	"context"
	"fmt"
	"strings"

	"github.com/CTAG07/rsg/pkg/markov"
)

// text generates between minWords and maxWords of prose. Callers hold r.mu.
func (r *Renderer) text(minWords, maxWords int) (string, error) {
	if maxWords > r.config.MaxWords {
		maxWords = r.config.MaxWords
		minWords = min(minWords, maxWords)
	}
	out, err := r.model.Generate(context.Background(),
		markov.WithMinWords(minWords),
		markov.WithMaxWords(maxWords),
		markov.WithRand(r.rng),
	)
	if err != nil {
		return "", fmt.Errorf("text: %w", err)
	}
	return out, nil
}

// paragraphs generates count blocks of prose separated by blank lines.
func (r *Renderer) paragraphs(count, minWords, maxWords int) (string, error) {
	if count > r.config.MaxParagraphs {
		count = r.config.MaxParagraphs
	}
	parts := make([]string, 0, max(count, 0))
	for i := 0; i < count; i++ {
		p, err := r.text(minWords, maxWords)
		if err != nil {
			return "", err
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, "\n\n"), nil
}

// randomInt returns a random integer within the range [lo, hi).
func (r *Renderer) randomInt(lo, hi int) int {
	if lo >= hi {
		return lo
	}
	return r.rng.IntN(hi-lo) + lo
}
