package markov

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

// tokenPattern is tried as an ordered alternation over each lowercased line.
// The group order matters: a run of word characters wins over everything
// else, and whitespace is matched only so that it can be discarded.
const tokenPattern = `(?P<word>[\p{L}\p{M}\p{N}_]+)` +
	`|(?P<end>[!?.]+)` +
	`|(?P<punct>[,:;]+)` +
	`|(?P<spaceless>[-'])` +
	`|(?P<space>\s+)`

// groupCategories maps the index of each capture group in tokenPattern to the
// category of the token it produces. The whitespace group has no entry.
var groupCategories = map[int]Category{
	1: Word,
	2: SentenceEnd,
	3: Punctuation,
	4: SpacelessPunctuation,
}

// Scanner splits lines of text into Tokens. Characters that match none of its
// patterns are silently dropped. A Scanner is safe for concurrent use.
type Scanner struct {
	pattern *regexp.Regexp
	maxLine int
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithMaxLineLength sets the longest input line, in bytes, a TokenStream will
// accept before failing with bufio.ErrTooLong.
// Default: 1 MiB
func WithMaxLineLength(n int) ScannerOption {
	return func(s *Scanner) {
		if n > 0 {
			s.maxLine = n
		}
	}
}

// NewScanner creates a Scanner with default settings, which can be overridden
// by providing one or more ScannerOption functions.
func NewScanner(opts ...ScannerOption) *Scanner {
	s := &Scanner{
		pattern: regexp.MustCompile(tokenPattern),
		maxLine: 1 << 20,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScanLine returns every token found in a single line of text, in order.
func (s *Scanner) ScanLine(line string) []Token {
	return s.appendLine(nil, line)
}

func (s *Scanner) appendLine(dst []Token, line string) []Token {
	line = strings.ToLower(line)
	for _, loc := range s.pattern.FindAllStringSubmatchIndex(line, -1) {
		for group, category := range groupCategories {
			if start := loc[2*group]; start >= 0 {
				dst = append(dst, Token{Category: category, Value: line[start:loc[2*group+1]]})
				break
			}
		}
	}
	return dst
}

// NewStream returns a TokenStream reading lines from r.
func (s *Scanner) NewStream(r io.Reader) *TokenStream {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), s.maxLine)
	return &TokenStream{
		scanner: scanner,
		parent:  s,
	}
}

// TokenStream is a stateful, single-pass tokenizer over an io.Reader. Matches
// never span a line boundary.
type TokenStream struct {
	scanner *bufio.Scanner
	parent  *Scanner
	buffer  []Token
	lines   int
}

// Next returns the next token from the stream. When the stream is exhausted,
// it returns io.EOF. Any other error indicates a problem reading from the
// underlying stream.
func (ts *TokenStream) Next() (Token, error) {
	for len(ts.buffer) == 0 {
		if !ts.scanner.Scan() {
			if err := ts.scanner.Err(); err != nil {
				return Token{}, err
			}
			return Token{}, io.EOF
		}
		ts.lines++
		ts.buffer = ts.parent.appendLine(ts.buffer[:0], ts.scanner.Text())
	}

	token := ts.buffer[0]
	ts.buffer = ts.buffer[1:]
	return token, nil
}

// Lines returns the number of lines read so far.
func (ts *TokenStream) Lines() int {
	return ts.lines
}
