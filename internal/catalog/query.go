// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Maggatronn/unfolded/pkg/types"
)

// QueryOptions holds filters for catalog queries. Empty fields match all.
type QueryOptions struct {
	Group       string
	Facilitator string

	// Speaker matches conversations with at least one turn by this speaker.
	Speaker string

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether no filter is set.
func (q QueryOptions) IsEmpty() bool {
	return q.Group == "" && q.Facilitator == "" && q.Speaker == ""
}

// ConversationSummary is one catalog row.
type ConversationSummary struct {
	ID          string   `json:"id" yaml:"id"`
	Group       string   `json:"group" yaml:"group"`
	Facilitator string   `json:"facilitator" yaml:"facilitator"`
	Title       string   `json:"title" yaml:"title"`
	TurnCount   int      `json:"turn_count" yaml:"turn_count"`
	Speakers    []string `json:"speakers" yaml:"speakers"`
}

// GroupCount is the number of catalogued conversations in one group.
type GroupCount struct {
	Group         string `json:"group" yaml:"group"`
	Conversations int    `json:"conversations" yaml:"conversations"`
	Turns         int    `json:"turns" yaml:"turns"`
}

// Query lists conversations matching opts, ordered by id.
func (s *Store) Query(ctx context.Context, opts QueryOptions) ([]ConversationSummary, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(
		`SELECT c.id, c.group_name, c.facilitator, c.title, c.turn_count, c.speakers
		FROM conversations c
		WHERE 1=1`)

	if opts.Group != "" {
		qb.WriteString(` AND c.group_name = ?`)
		args = append(args, opts.Group)
	}
	if opts.Facilitator != "" {
		qb.WriteString(` AND c.facilitator = ?`)
		args = append(args, opts.Facilitator)
	}
	if opts.Speaker != "" {
		qb.WriteString(` AND EXISTS (SELECT 1 FROM turns t WHERE t.conversation_id = c.id AND t.speaker_name = ?)`)
		args = append(args, opts.Speaker)
	}

	qb.WriteString(` ORDER BY c.id LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying catalog: %w", err)
	}
	defer rows.Close()

	var results []ConversationSummary
	for rows.Next() {
		var (
			cs           ConversationSummary
			speakersJSON sql.NullString
		)
		if err := rows.Scan(&cs.ID, &cs.Group, &cs.Facilitator, &cs.Title, &cs.TurnCount, &speakersJSON); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if speakersJSON.Valid {
			json.Unmarshal([]byte(speakersJSON.String), &cs.Speakers)
		}
		results = append(results, cs)
	}

	return results, rows.Err()
}

// Groups returns per-group counts, ordered by group name.
func (s *Store) Groups(ctx context.Context) ([]GroupCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT group_name, COUNT(*), COALESCE(SUM(turn_count), 0)
		FROM conversations
		GROUP BY group_name
		ORDER BY group_name`)
	if err != nil {
		return nil, fmt.Errorf("querying groups: %w", err)
	}
	defer rows.Close()

	var groups []GroupCount
	for rows.Next() {
		var g GroupCount
		if err := rows.Scan(&g.Group, &g.Conversations, &g.Turns); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// Conversation returns the stored turns of one conversation.
func (s *Store) Conversation(ctx context.Context, id string) (types.Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT turn_key, data FROM turns WHERE conversation_id = ? ORDER BY turn_key`, id)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	conv := types.Conversation{}
	for rows.Next() {
		var key, data string
		if err := rows.Scan(&key, &data); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		dec := json.NewDecoder(strings.NewReader(data))
		dec.UseNumber()
		var turn types.Turn
		if err := dec.Decode(&turn); err != nil {
			return nil, fmt.Errorf("decoding turn %s: %w", key, err)
		}
		conv[key] = turn
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(conv) == 0 {
		var exists int
		if err := s.db.QueryRowContext(ctx,
			`SELECT count(*) FROM conversations WHERE id = ?`, id,
		).Scan(&exists); err != nil {
			return nil, fmt.Errorf("looking up conversation: %w", err)
		}
		if exists == 0 {
			return nil, fmt.Errorf("conversation %s not found", id)
		}
	}
	return conv, nil
}
