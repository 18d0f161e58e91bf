package markov

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"unicode"
	"unicode/utf8"
)

// DefaultMinWords is the minimum word count used when none is given.
const DefaultMinWords = 50

// maxDiscards bounds how many punctuation tokens in a row may be skipped while
// waiting for a word to open a sentence. Past it the walk restarts from a
// random key, which escapes cycles made only of punctuation.
const maxDiscards = 16

// generateOptions is used by Generate to resolve word-count bounds.
type generateOptions struct {
	minWords int
	maxWords int
	minSet   bool
	maxSet   bool
	rng      *rand.Rand
}

// GenerateOption is a function that configures generation parameters.
type GenerateOption func(*generateOptions)

// WithMinWords sets the minimum number of words to generate. Generation stops
// at the first sentence end reached after this many words.
// Default: 50
func WithMinWords(n int) GenerateOption {
	return func(o *generateOptions) {
		o.minWords = n
		o.minSet = true
	}
}

// WithMaxWords sets the hard maximum number of words to generate.
// Default: the minimum times 1.2, rounded. If only the maximum is given and it
// is below the default minimum, the minimum is lowered to match it.
func WithMaxWords(n int) GenerateOption {
	return func(o *generateOptions) {
		o.maxWords = n
		o.maxSet = true
	}
}

// WithRand sets the random source used for the walk. Without it, a freshly
// seeded source is used for every call.
func WithRand(r *rand.Rand) GenerateOption {
	return func(o *generateOptions) { o.rng = r }
}

// resolve applies defaults and validates the bounds.
func (o *generateOptions) resolve() error {
	if !o.minSet {
		o.minWords = DefaultMinWords
	}
	if o.minWords <= 0 {
		return fmt.Errorf("%w: minimum word count must be positive, got %d", ErrInvalidParameter, o.minWords)
	}
	if !o.maxSet {
		o.maxWords = int(math.Round(float64(o.minWords) * 1.2))
	}
	if o.maxWords <= 0 {
		return fmt.Errorf("%w: maximum word count must be positive, got %d", ErrInvalidParameter, o.maxWords)
	}
	if o.maxWords < o.minWords {
		if o.minSet {
			return fmt.Errorf("%w: maximum word count %d is below minimum %d", ErrInvalidParameter, o.maxWords, o.minWords)
		}
		o.minWords = o.maxWords
	}
	return nil
}

// Generate walks the model and renders the walk as text. Sentences never
// open on punctuation, and the first word of each sentence is capitalized.
// Generation stops at the first sentence end once the minimum word count is
// reached, or as soon as the maximum is reached.
//
// The model is read-locked for the whole call, so the text is drawn from a
// single consistent snapshot.
func (m *Model) Generate(ctx context.Context, opts ...GenerateOption) (string, error) {
	options := &generateOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if err := options.resolve(); err != nil {
		return "", err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	sampler, err := m.newSampler(options.rng)
	if err != nil {
		return "", err
	}
	if m.openers == 0 {
		return "", fmt.Errorf("%w: no word found to open a sentence", ErrEmptyModel)
	}

	a := newAssembler()
	discarded := 0
	for {
		if err = ctx.Err(); err != nil {
			return "", fmt.Errorf("generation interrupted: %w", err)
		}
		token, err := sampler.next()
		if err != nil {
			return "", fmt.Errorf("failed to sample token: %w", err)
		}
		if !a.push(token) {
			if discarded++; discarded > maxDiscards {
				m.logger.DebugContext(ctx, "Walk stuck on punctuation, restarting")
				sampler.restart()
				discarded = 0
			}
			continue
		}
		discarded = 0
		if (a.capitalizeNext && a.words >= options.minWords) || a.words >= options.maxWords {
			break
		}
	}

	m.logger.DebugContext(ctx, "Generation finished",
		slog.Int("min_words", options.minWords),
		slog.Int("max_words", options.maxWords),
		slog.Int("words", a.words),
		slog.Bool("sentence_complete", a.capitalizeNext),
	)
	return a.String(), nil
}

// assembler renders tokens into text with sentence-aware spacing and
// capitalization.
type assembler struct {
	buf            []byte
	words          int
	capitalizeNext bool
}

func newAssembler() *assembler {
	return &assembler{capitalizeNext: true}
}

// push renders token onto the buffer. It reports false if the token was
// discarded because a sentence cannot open on punctuation.
func (a *assembler) push(token Token) bool {
	if a.capitalizeNext && token.IsPunctuation() {
		return false
	}

	text := token.Value
	if a.capitalizeNext {
		text = upperFirst(text)
		a.capitalizeNext = false
	} else {
		a.capitalizeNext = token.Category == SentenceEnd
	}

	// Punctuation hugs the preceding word.
	if token.IsPunctuation() && token.Category != SpacelessPunctuation {
		if n := len(a.buf); n > 0 && a.buf[n-1] == ' ' {
			a.buf = a.buf[:n-1]
		}
	}
	if n := len(a.buf); n == 0 || a.buf[n-1] == ' ' {
		a.words++
	}
	a.buf = append(a.buf, text...)
	if token.Category != SpacelessPunctuation {
		a.buf = append(a.buf, ' ')
	}
	return true
}

// String returns the rendered text without the trailing space.
func (a *assembler) String() string {
	n := len(a.buf)
	if n > 0 && a.buf[n-1] == ' ' {
		n--
	}
	return string(a.buf[:n])
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
