package markov

import (
	"context"
	"database/sql"
	"go/build"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// lyrics is a small corpus with plenty of repeated pairs.
const lyrics = `
	De do do do, de da da da
	Is all I want to say to you
	De do do do, de da da da
	Their innocence will pull me through
	De do do do, de da da da
	Is all I want to say to you
	De do do do, de da da da
	They're meaningless and all that's true
`

// prose is a corpus with sentence ends, separators and contractions.
const prose = `The cat sat on the mat. The dog, however, sat on the cat!
Was the cat happy? The cat was not happy; the dog was.
It's a well-known fact that the dog sat on the mat, and the cat sat on the dog.
Why? Nobody knows... The mat, the cat and the dog sat together at last.`

// newTestRand returns a deterministic random source.
func newTestRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// setupTestModel returns a model fed with the lyrics corpus.
func setupTestModel(t *testing.T) (context.Context, *Model) {
	t.Helper()
	ctx := context.Background()
	m := NewModel(nil)
	if err := m.Feed(ctx, strings.NewReader(lyrics)); err != nil {
		t.Fatalf("setup: Feed() failed: %v", err)
	}
	return ctx, m
}

// setupTestDB creates a new SQLite database file and a Store for testing.
// It uses t.Cleanup to ensure resources are released.
func setupTestDB(t *testing.T) (*sql.DB, *Store) {
	t.Helper()
	dbFile := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", dbFile+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := SetupSchema(db); err != nil {
		t.Fatalf("failed to set up schema: %v", err)
	}

	s, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(s.Close)

	return db, s
}

var (
	benchmarkCorpus string
	corpusOnce      sync.Once
)

// createBenchmarkCorpus reads Go source files to create a corpus for benchmarking.
func createBenchmarkCorpus() string {
	corpusOnce.Do(func() {
		var sb strings.Builder
		goRoot := build.Default.GOROOT
		filesToRead := []string{
			filepath.Join(goRoot, "src/net/http/server.go"),
			filepath.Join(goRoot, "src/go/parser/parser.go"),
			filepath.Join(goRoot, "src/encoding/json/encode.go"),
		}

		for _, file := range filesToRead {
			content, err := os.ReadFile(file)
			if err != nil {
				benchmarkCorpus = strings.Repeat(lyrics, 50)
				return
			}
			sb.Write(content)
			sb.WriteString("\n")
		}
		benchmarkCorpus = sb.String()
	})
	return benchmarkCorpus
}
