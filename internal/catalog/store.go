// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog indexes a merged aggregate into SQLite so conversations
// can be listed by group, facilitator or speaker, and exported.
package catalog

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Maggatronn/unfolded/internal/aggregate"
	"github.com/Maggatronn/unfolded/pkg/types"
)

const (
	dbFile            = "catalog.db"
	defaultMaxResults = 50

	// speakerField is the turn field naming who spoke.
	speakerField = "speaker_name"
)

// Store manages the catalog SQLite database.
type Store struct {
	db         *sql.DB
	dir        string
	maxResults int
}

// NewStore opens or creates the catalog database at cfg.Dir/catalog.db and
// creates the schema if it does not exist.
func NewStore(cfg types.CatalogConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating catalog directory: %w", err)
	}

	dbPath := filepath.Join(cfg.Dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	s := &Store{
		db:         db,
		dir:        cfg.Dir,
		maxResults: maxResults,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			group_name TEXT NOT NULL,
			facilitator TEXT NOT NULL,
			title TEXT NOT NULL,
			turn_count INTEGER NOT NULL,
			speakers TEXT,
			digest TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS turns (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			turn_key TEXT NOT NULL,
			speaker_name TEXT,
			data TEXT NOT NULL,
			UNIQUE(conversation_id, turn_key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_group ON conversations(group_name)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_facilitator ON conversations(facilitator)`,
		`CREATE INDEX IF NOT EXISTS idx_turns_speaker ON turns(speaker_name)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// IngestSummary holds counts from a catalog indexing run.
type IngestSummary struct {
	Indexed int
	Updated int
	Skipped int
	Removed int
	Failed  int
}

// Total returns the number of conversations processed.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// IngestFile loads the aggregate at path and ingests it. Unlike a merge
// run, a missing aggregate file is an error here.
func (s *Store) IngestFile(ctx context.Context, path string, w io.Writer) (IngestSummary, error) {
	agg, existed, err := aggregate.Load(path)
	if err != nil {
		return IngestSummary{}, err
	}
	if !existed {
		return IngestSummary{}, fmt.Errorf("aggregate %s not found", path)
	}
	return s.Ingest(ctx, agg, w)
}

// Ingest indexes every conversation of agg. A conversation whose content
// digest matches the stored one is skipped; a changed one has its turns
// replaced. Conversations in the catalog that are no longer in agg are
// removed.
func (s *Store) Ingest(ctx context.Context, agg types.Aggregate, w io.Writer) (IngestSummary, error) {
	var summary IngestSummary

	for _, id := range agg.IDs() {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		conv := agg[id]
		digest, err := conversationDigest(conv)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", id, err)
			summary.Failed++
			continue
		}

		var stored string
		err = s.db.QueryRowContext(ctx,
			`SELECT digest FROM conversations WHERE id = ?`, id,
		).Scan(&stored)

		if err == nil && stored == digest {
			fmt.Fprintf(w, "skipped %s\n", id)
			summary.Skipped++
			continue
		}
		if err != nil && err != sql.ErrNoRows {
			fmt.Fprintf(w, "failed  %s: %v\n", id, err)
			summary.Failed++
			continue
		}
		isUpdate := err == nil

		if err := s.ingestConversation(ctx, id, conv, digest); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", id, err)
			summary.Failed++
			continue
		}

		if isUpdate {
			fmt.Fprintf(w, "updated %s (%d turns)\n", id, len(conv))
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexed %s (%d turns)\n", id, len(conv))
			summary.Indexed++
		}
	}

	removed, err := s.removeMissing(ctx, agg)
	if err != nil {
		return summary, err
	}
	summary.Removed = removed

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, removed: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Removed, summary.Failed)

	return summary, nil
}

func (s *Store) ingestConversation(ctx context.Context, id string, conv types.Conversation, digest string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	rec := conversationRecord(id, conv)
	speakersJSON, _ := json.Marshal(speakers(conv))

	_, err = tx.ExecContext(ctx,
		`INSERT INTO conversations (id, group_name, facilitator, title, turn_count, speakers, digest)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			group_name=excluded.group_name, facilitator=excluded.facilitator,
			title=excluded.title, turn_count=excluded.turn_count,
			speakers=excluded.speakers, digest=excluded.digest`,
		id, rec.Group, rec.Facilitator, rec.Title, len(conv), string(speakersJSON), digest,
	)
	if err != nil {
		return fmt.Errorf("upserting conversation: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM turns WHERE conversation_id = ?`, id); err != nil {
		return fmt.Errorf("deleting old turns: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO turns (conversation_id, turn_key, speaker_name, data) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, key := range conv.Keys() {
		turn := conv[key]
		data, err := json.Marshal(turn)
		if err != nil {
			return fmt.Errorf("marshaling turn %s: %w", key, err)
		}
		var speaker sql.NullString
		if name := turn.String(speakerField); name != "" {
			speaker = sql.NullString{String: name, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, id, key, speaker, string(data)); err != nil {
			return fmt.Errorf("inserting turn %s: %w", key, err)
		}
	}

	return tx.Commit()
}

func (s *Store) removeMissing(ctx context.Context, agg types.Aggregate) (int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM conversations`)
	if err != nil {
		return 0, fmt.Errorf("listing catalog: %w", err)
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning row: %w", err)
		}
		if !agg.Has(id) {
			stale = append(stale, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("listing catalog: %w", err)
	}

	for _, id := range stale {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id); err != nil {
			return 0, fmt.Errorf("removing %s: %w", id, err)
		}
	}
	return len(stale), nil
}

// conversationDigest hashes the canonical JSON encoding of conv.
func conversationDigest(conv types.Conversation) (string, error) {
	data, err := json.Marshal(conv)
	if err != nil {
		return "", fmt.Errorf("marshaling conversation: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// conversationRecord derives conversation-level metadata from the turns:
// each field comes from the lowest turn key carrying it as a string, with
// the usual defaults otherwise.
func conversationRecord(id string, conv types.Conversation) types.MetadataRecord {
	var rec types.MetadataRecord
	for _, key := range conv.Keys() {
		turn := conv[key]
		if rec.Group == "" {
			rec.Group = turn.String(types.FieldGroup)
		}
		if rec.Facilitator == "" {
			rec.Facilitator = turn.String(types.FieldFacilitator)
		}
		if rec.Title == "" {
			rec.Title = turn.String(types.FieldTitle)
		}
	}
	return rec.WithDefaults(id)
}

func speakers(conv types.Conversation) []string {
	seen := make(map[string]bool)
	for _, turn := range conv {
		if name := turn.String(speakerField); name != "" {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
