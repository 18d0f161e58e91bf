package markov

import (
	"fmt"
	"unique"
)

// KeySize is the number of preceding tokens used to predict the next one.
const KeySize = 2

// Category classifies a Token. Every category except Word is a kind of
// punctuation.
type Category uint8

const (
	// Word is a run of letters, digits or underscores.
	Word Category = iota
	// Punctuation is a run of separators such as commas and semicolons.
	// It hugs the preceding word when rendered.
	Punctuation
	// SpacelessPunctuation is a hyphen or apostrophe. No space is rendered
	// after it.
	SpacelessPunctuation
	// SentenceEnd is a run of '.', '!' or '?'. The word that follows it is
	// capitalized.
	SentenceEnd
)

var categoryNames = [...]string{
	Word:                 "word",
	Punctuation:          "punctuation",
	SpacelessPunctuation: "spaceless",
	SentenceEnd:          "sentence_end",
}

// String returns the lowercase name of the category.
func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("category(%d)", uint8(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	if int(c) >= len(categoryNames) {
		return nil, fmt.Errorf("unknown token category %d", uint8(c))
	}
	return []byte(categoryNames[c]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	for i, name := range categoryNames {
		if name == string(text) {
			*c = Category(i)
			return nil
		}
	}
	return fmt.Errorf("unknown token category %q", text)
}

// Token is a single classified unit of scanned text. Its Value is already
// lowercased. Tokens are comparable, so two tokens are equal exactly when
// both their category and their value are equal.
type Token struct {
	Category Category
	Value    string
}

// IsPunctuation reports whether the token is any kind of punctuation.
func (t Token) IsPunctuation() bool {
	return t.Category != Word
}

// String returns the token's text.
func (t Token) String() string {
	return t.Value
}

// GoString renders the token as Category("value"), which reads better in
// test failures than the default struct layout.
func (t Token) GoString() string {
	return fmt.Sprintf("%s(%q)", t.Category, t.Value)
}

// Key is the ordered window of preceding tokens used as a lookup key.
type Key [KeySize]Token

// intern returns the canonical instance of t. Equal tokens interned through
// this function share the same backing string for the lifetime of the process.
func intern(t Token) Token {
	return unique.Make(t).Value()
}
