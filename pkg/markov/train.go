package markov

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Feed tokenizes text from data and records every transition in the model.
// A sliding window of the last KeySize tokens is kept for the whole call, so
// transitions span line boundaries; no transition is recorded until the
// window is full. Unrecognized characters are dropped, never rejected.
//
// If reading fails part way, the transitions read so far are kept and the
// error is returned.
func (m *Model) Feed(ctx context.Context, data io.Reader) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Runs before the unlock, so no reader ever sees a stale key cache.
	defer m.refreshKeys()

	stream := m.scanner.NewStream(data)

	var window Key
	var filled int
	var tokensRead, linksAdded int64

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("feed interrupted: %w", err)
		}

		token, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("tokenizer error: %w", err)
		}
		token = intern(token)
		tokensRead++

		if filled < KeySize {
			window[filled] = token
			filled++
			continue
		}

		m.record(window, token, 1)
		linksAdded++
		copy(window[:], window[1:])
		window[KeySize-1] = token
	}

	m.logger.InfoContext(ctx, "Feed completed",
		slog.Int("lines_read", stream.Lines()),
		slog.Int64("tokens_read", tokensRead),
		slog.Int64("transitions_recorded", linksAdded),
		slog.Int("keys", len(m.chains)),
	)
	return nil
}

// FeedLines is a convenience wrapper around Feed for text already split into
// lines.
func (m *Model) FeedLines(ctx context.Context, lines []string) error {
	return m.Feed(ctx, strings.NewReader(strings.Join(lines, "\n")))
}
