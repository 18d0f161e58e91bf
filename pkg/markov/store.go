package markov

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
)

// SetupSchema initializes the tables used by Store in the provided database.
// It is idempotent and safe to call on an already-initialized database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaModels = `
CREATE TABLE IF NOT EXISTS rsg_models (
    model_id INTEGER PRIMARY KEY,
    model_name TEXT NOT NULL UNIQUE,
    key_size INTEGER NOT NULL
);
`
		schemaVocab = `
CREATE TABLE IF NOT EXISTS rsg_vocabulary (
    token_id INTEGER PRIMARY KEY,
    category INTEGER NOT NULL,
    token_text TEXT NOT NULL,
    UNIQUE (category, token_text)
);
`
		schemaChains = `
CREATE TABLE IF NOT EXISTS rsg_chains (
    model_id INTEGER NOT NULL,
    first_id INTEGER NOT NULL,
    second_id INTEGER NOT NULL,
    next_id INTEGER NOT NULL,
    frequency INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (model_id, first_id, second_id, next_id)
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	for _, schema := range []string{schemaModels, schemaVocab, schemaChains} {
		if _, err = tx.Exec(schema); err != nil {
			return fmt.Errorf("could not create schema: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

// Store persists named models in a SQLite database. The vocabulary table is
// shared by every model in the database.
type Store struct {
	db              *sql.DB
	stmtGetModelID  *sql.Stmt
	stmtListModels  *sql.Stmt
	stmtGetChains   *sql.Stmt
	stmtUpsertModel *sql.Stmt
	stmtInsertVocab *sql.Stmt
	logger          *slog.Logger
}

// NewStore creates a Store over a database prepared with SetupSchema. It
// pre-compiles all necessary SQL statements, returning an error if any
// preparation fails.
func NewStore(db *sql.DB) (*Store, error) {
	stmtGetModelID, err := db.Prepare(`SELECT model_id FROM rsg_models WHERE model_name = ?;`)
	if err != nil {
		return nil, err
	}

	stmtListModels, err := db.Prepare(`SELECT model_name FROM rsg_models ORDER BY model_name;`)
	if err != nil {
		return nil, err
	}

	stmtGetChains, err := db.Prepare(`
SELECT f.category, f.token_text, s.category, s.token_text, n.category, n.token_text, c.frequency
FROM rsg_chains c
JOIN rsg_vocabulary f ON f.token_id = c.first_id
JOIN rsg_vocabulary s ON s.token_id = c.second_id
JOIN rsg_vocabulary n ON n.token_id = c.next_id
WHERE c.model_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtUpsertModel, err := db.Prepare(`INSERT INTO rsg_models (model_name, key_size) VALUES (?, ?) ON CONFLICT(model_name) DO UPDATE SET key_size=excluded.key_size RETURNING model_id;`)
	if err != nil {
		return nil, err
	}

	stmtInsertVocab, err := db.Prepare(`INSERT INTO rsg_vocabulary (category, token_text) VALUES (?, ?) ON CONFLICT(category, token_text) DO UPDATE SET token_text=excluded.token_text RETURNING token_id;`)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:              db,
		stmtGetModelID:  stmtGetModelID,
		stmtListModels:  stmtListModels,
		stmtGetChains:   stmtGetChains,
		stmtUpsertModel: stmtUpsertModel,
		stmtInsertVocab: stmtInsertVocab,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Close releases all prepared SQL statements held by the Store.
func (s *Store) Close() {
	_ = s.stmtGetModelID.Close()
	_ = s.stmtListModels.Close()
	_ = s.stmtGetChains.Close()
	_ = s.stmtUpsertModel.Close()
	_ = s.stmtInsertVocab.Close()
}

// SetLogger sets the logger for the Store. By default, all logs are discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Save writes model under name, replacing any chains previously stored under
// that name. The operation is performed within a single transaction.
func (s *Store) Save(ctx context.Context, name string, model *Model) error {
	exported := model.Export()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction for save: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	var modelID int64
	if err = tx.StmtContext(ctx, s.stmtUpsertModel).QueryRowContext(ctx, name, exported.KeySize).Scan(&modelID); err != nil {
		return fmt.Errorf("failed to insert model '%s': %w", name, err)
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM rsg_chains WHERE model_id = ?", modelID); err != nil {
		return fmt.Errorf("failed to clear chains for model '%s': %w", name, err)
	}

	stmtInsertVocab := tx.StmtContext(ctx, s.stmtInsertVocab)
	vocabIDs := make([]int64, len(exported.Vocabulary)) // export index -> token_id
	for i, token := range exported.Vocabulary {
		if err = stmtInsertVocab.QueryRowContext(ctx, int(token.Category), token.Value).Scan(&vocabIDs[i]); err != nil {
			return fmt.Errorf("failed to get/insert vocab '%s': %w", token.Value, err)
		}
	}

	stmtInsertChain, err := tx.PrepareContext(ctx, `INSERT INTO rsg_chains (model_id, first_id, second_id, next_id, frequency) VALUES (?, ?, ?, ?, ?);`)
	if err != nil {
		return fmt.Errorf("failed to prepare chain insert statement: %w", err)
	}
	defer func(stmt *sql.Stmt) {
		_ = stmt.Close()
	}(stmtInsertChain)

	for _, chain := range exported.Chains {
		first, second, next := vocabIDs[chain.Key[0]], vocabIDs[chain.Key[1]], vocabIDs[chain.Next]
		if _, err = stmtInsertChain.ExecContext(ctx, modelID, first, second, next, chain.Frequency); err != nil {
			return fmt.Errorf("failed to insert chain link (%d %d -> %d): %w", first, second, next, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit model '%s': %w", name, err)
	}

	s.logger.InfoContext(ctx, "Model stored",
		slog.String("model_name", name),
		slog.Int64("model_id", modelID),
		slog.Int("vocab_items", len(exported.Vocabulary)),
		slog.Int("chains", len(exported.Chains)),
	)
	return nil
}

// Load reads the model stored under name as an ExportedModel, ready for
// Model.Import. If no such model exists, the returned error wraps
// sql.ErrNoRows.
func (s *Store) Load(ctx context.Context, name string) (*ExportedModel, error) {
	var modelID int64
	if err := s.stmtGetModelID.QueryRowContext(ctx, name).Scan(&modelID); err != nil {
		return nil, fmt.Errorf("could not find model '%s': %w", name, err)
	}

	rows, err := s.stmtGetChains.QueryContext(ctx, modelID)
	if err != nil {
		return nil, fmt.Errorf("could not query chains for model '%s': %w", name, err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	exported := &ExportedModel{KeySize: KeySize}
	vocabIDs := make(map[Token]int)
	idOf := func(category int, text string) int {
		token := Token{Category: Category(category), Value: text}
		id, ok := vocabIDs[token]
		if !ok {
			id = len(exported.Vocabulary)
			vocabIDs[token] = id
			exported.Vocabulary = append(exported.Vocabulary, ExportedToken{Category: token.Category, Value: text})
		}
		return id
	}

	for rows.Next() {
		var fc, sc, nc, freq int
		var ft, st, nt string
		if err = rows.Scan(&fc, &ft, &sc, &st, &nc, &nt, &freq); err != nil {
			return nil, err
		}
		exported.Chains = append(exported.Chains, ExportedChain{
			Key:       []int{idOf(fc, ft), idOf(sc, st)},
			Next:      idOf(nc, nt),
			Frequency: freq,
		})
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Model loaded from store",
		slog.String("model_name", name),
		slog.Int64("model_id", modelID),
		slog.Int("chains", len(exported.Chains)),
	)
	return exported, nil
}

// ModelNames returns the names of every stored model, sorted.
func (s *Store) ModelNames(ctx context.Context) ([]string, error) {
	rows, err := s.stmtListModels.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var names []string
	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Remove deletes a stored model and all of its chains. Removing a model that
// does not exist is not an error.
func (s *Store) Remove(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.ExecContext(ctx, "DELETE FROM rsg_chains WHERE model_id IN (SELECT model_id FROM rsg_models WHERE model_name = ?)", name); err != nil {
		return fmt.Errorf("failed to remove chains for model '%s': %w", name, err)
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM rsg_models WHERE model_name = ?", name); err != nil {
		return fmt.Errorf("failed to remove model '%s': %w", name, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit removal of model '%s': %w", name, err)
	}
	s.logger.InfoContext(ctx, "Model removed", slog.String("model_name", name))
	return nil
}
