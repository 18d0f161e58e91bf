package markov

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestTokenEquality(t *testing.T) {
	t1 := Token{Category: Word, Value: "bacon"}
	t2 := Token{Category: Word, Value: "bacon"}
	t3 := Token{Category: Word, Value: "eggs"}
	t4 := Token{Category: Punctuation, Value: "bacon"}

	if t1 != t2 {
		t.Errorf("expected %#v == %#v", t1, t2)
	}
	if t2 == t3 {
		t.Errorf("expected %#v != %#v", t2, t3)
	}
	if t1 == t4 {
		t.Errorf("tokens of different categories must differ: %#v, %#v", t1, t4)
	}

	set := map[Token]int{t1: 1}
	set[t2]++
	if len(set) != 1 || set[t1] != 2 {
		t.Errorf("equal tokens must hash identically, got %v", set)
	}
}

func TestTokenFormatting(t *testing.T) {
	word := Token{Category: Word, Value: "mustélidé"}
	period := Token{Category: SentenceEnd, Value: "."}

	if got := fmt.Sprintf("%#v", word); got != `word("mustélidé")` {
		t.Errorf("GoString() = %s", got)
	}
	if got := fmt.Sprintf("%#v", period); got != `sentence_end(".")` {
		t.Errorf("GoString() = %s", got)
	}
	if got := (Token{Category: Word, Value: "félidé"}).String(); got != "félidé" {
		t.Errorf("String() = %s", got)
	}
}

func TestCategoryText(t *testing.T) {
	for _, c := range []Category{Word, Punctuation, SpacelessPunctuation, SentenceEnd} {
		text, err := c.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%d) failed: %v", c, err)
		}
		var back Category
		if err := back.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%s) failed: %v", text, err)
		}
		if back != c {
			t.Errorf("category %s came back as %s", c, back)
		}
	}

	var c Category
	if err := json.Unmarshal([]byte(`"emoji"`), &c); err == nil {
		t.Error("expected an error for an unknown category name")
	}
	if _, err := Category(42).MarshalText(); err == nil {
		t.Error("expected an error when marshalling an unknown category")
	}
}

func TestIsPunctuation(t *testing.T) {
	if (Token{Category: Word, Value: "a"}).IsPunctuation() {
		t.Error("a word is not punctuation")
	}
	for _, c := range []Category{Punctuation, SpacelessPunctuation, SentenceEnd} {
		if !(Token{Category: c, Value: "."}).IsPunctuation() {
			t.Errorf("%s must be punctuation", c)
		}
	}
}

func TestScanLine(t *testing.T) {
	s := NewScanner()

	testCases := []struct {
		name     string
		line     string
		expected []Token
	}{
		{
			name: "Contraction and punctuation",
			line: "Bonjour's ,  !",
			expected: []Token{
				{Word, "bonjour"},
				{SpacelessPunctuation, "'"},
				{Word, "s"},
				{Punctuation, ","},
				{SentenceEnd, "!"},
			},
		},
		{
			name:     "Sentence end runs collapse",
			line:     "ça va ???",
			expected: []Token{{Word, "ça"}, {Word, "va"}, {SentenceEnd, "???"}},
		},
		{
			name:     "Separator runs collapse",
			line:     "wait,; what:",
			expected: []Token{{Word, "wait"}, {Punctuation, ",;"}, {Word, "what"}, {Punctuation, ":"}},
		},
		{
			name:     "Hyphens are single tokens",
			line:     "well--known",
			expected: []Token{{Word, "well"}, {SpacelessPunctuation, "-"}, {SpacelessPunctuation, "-"}, {Word, "known"}},
		},
		{
			name:     "Case is folded",
			line:     "HELLO World",
			expected: []Token{{Word, "hello"}, {Word, "world"}},
		},
		{
			name:     "Digits and underscores are word characters",
			line:     "route_66 is 2400km",
			expected: []Token{{Word, "route_66"}, {Word, "is"}, {Word, "2400km"}},
		},
		{
			name:     "Unrecognized characters are dropped",
			line:     "a (b) & c/d #",
			expected: []Token{{Word, "a"}, {Word, "b"}, {Word, "c"}, {Word, "d"}},
		},
		{
			name:     "Blank line",
			line:     "   \t ",
			expected: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := s.ScanLine(tc.line)
			if !reflect.DeepEqual(got, tc.expected) {
				t.Errorf("ScanLine(%q) = %#v, want %#v", tc.line, got, tc.expected)
			}
		})
	}
}

func TestTokenStream(t *testing.T) {
	stream := NewScanner().NewStream(strings.NewReader("Bonjour's ,  !\nça va ???"))

	var got []Token
	for {
		token, err := stream.Next()
		if err != nil {
			break
		}
		got = append(got, token)
	}

	expected := []Token{
		{Word, "bonjour"},
		{SpacelessPunctuation, "'"},
		{Word, "s"},
		{Punctuation, ","},
		{SentenceEnd, "!"},
		{Word, "ça"},
		{Word, "va"},
		{SentenceEnd, "???"},
	}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("stream tokens = %#v, want %#v", got, expected)
	}
	if stream.Lines() != 2 {
		t.Errorf("expected 2 lines read, got %d", stream.Lines())
	}
}

func TestTokenStreamLineTooLong(t *testing.T) {
	stream := NewScanner(WithMaxLineLength(16)).NewStream(strings.NewReader(strings.Repeat("a", 64)))
	if _, err := stream.Next(); err == nil {
		t.Error("expected an error for a line longer than the limit")
	}
}

func TestIntern(t *testing.T) {
	a := intern(Token{Category: Word, Value: strings.Repeat("x", 8)})
	b := intern(Token{Category: Word, Value: strings.Repeat("x", 8)})
	if a != b {
		t.Fatalf("interned tokens differ: %#v, %#v", a, b)
	}
	if a.Value != "xxxxxxxx" || a.Category != Word {
		t.Errorf("interning changed the token: %#v", a)
	}
}
