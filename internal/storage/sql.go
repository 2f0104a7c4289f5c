// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/DimitriGilbert/LiteChat-sub000/internal/interaction"
)

func init() {
	// sqlx does not know the modernc driver name; it uses ? placeholders.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

var schema = []string{`
CREATE TABLE IF NOT EXISTS interactions (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	idx             INTEGER NOT NULL,
	parent_id       TEXT,
	type            TEXT NOT NULL,
	status          TEXT NOT NULL,
	prompt          TEXT,
	response        TEXT,
	metadata        TEXT NOT NULL,
	rating          INTEGER,
	started_at      BIGINT NOT NULL,
	ended_at        BIGINT
)`,
	`CREATE INDEX IF NOT EXISTS idx_interactions_conversation ON interactions (conversation_id, idx)`,
}

const upsertInteraction = `
INSERT INTO interactions (
	id, conversation_id, idx, parent_id, type, status,
	prompt, response, metadata, rating, started_at, ended_at
) VALUES (
	:id, :conversation_id, :idx, :parent_id, :type, :status,
	:prompt, :response, :metadata, :rating, :started_at, :ended_at
)
ON CONFLICT (id) DO UPDATE SET
	parent_id = excluded.parent_id,
	status    = excluded.status,
	prompt    = excluded.prompt,
	response  = excluded.response,
	metadata  = excluded.metadata,
	rating    = excluded.rating,
	ended_at  = excluded.ended_at`

// =============================================================================
// SQL GATEWAY
// =============================================================================

// SQLGateway persists interactions in SQLite or PostgreSQL.
type SQLGateway struct {
	db *sqlx.DB
}

// OpenSQLite opens (or creates) a SQLite database at path. ":memory:" gives
// a private in-memory database.
func OpenSQLite(path string) (*SQLGateway, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, wrap("create data dir", err)
		}
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, wrap("open sqlite", err)
	}

	// SQLite allows one writer; a single connection also keeps :memory: intact.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, wrap("pragma", err)
		}
	}

	return newSQLGateway(db)
}

// OpenPostgres connects to PostgreSQL through the pgx stdlib driver.
func OpenPostgres(dsn string) (*SQLGateway, error) {
	db, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, wrap("open postgres", err)
	}
	return newSQLGateway(db)
}

func newSQLGateway(db *sqlx.DB) (*SQLGateway, error) {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, wrap("init schema", err)
		}
	}
	return &SQLGateway{db: db}, nil
}

// DB returns the underlying handle.
func (g *SQLGateway) DB() *sqlx.DB { return g.db }

// LoadInteractionsForConversation implements Gateway.
func (g *SQLGateway) LoadInteractionsForConversation(ctx context.Context, conversationID string) ([]*interaction.Interaction, error) {
	var rows []interactionRow
	query := g.db.Rebind(`SELECT * FROM interactions WHERE conversation_id = ? ORDER BY idx ASC`)
	if err := g.db.SelectContext(ctx, &rows, query, conversationID); err != nil {
		return nil, wrap("load "+conversationID, err)
	}

	items := make([]*interaction.Interaction, 0, len(rows))
	for _, row := range rows {
		it, err := row.toInteraction()
		if err != nil {
			return nil, wrap("decode "+row.ID, err)
		}
		items = append(items, it)
	}
	return items, nil
}

// SaveInteraction implements Gateway.
func (g *SQLGateway) SaveInteraction(ctx context.Context, it *interaction.Interaction) error {
	row, err := rowFromInteraction(it)
	if err != nil {
		return wrap("encode "+it.ID, err)
	}
	if _, err := g.db.NamedExecContext(ctx, upsertInteraction, row); err != nil {
		return wrap("save "+it.ID, err)
	}
	return nil
}

// DeleteConversationInteractions implements Gateway.
func (g *SQLGateway) DeleteConversationInteractions(ctx context.Context, conversationID string) error {
	query := g.db.Rebind(`DELETE FROM interactions WHERE conversation_id = ?`)
	if _, err := g.db.ExecContext(ctx, query, conversationID); err != nil {
		return wrap("delete "+conversationID, err)
	}
	return nil
}

// ListConversations implements Gateway.
func (g *SQLGateway) ListConversations(ctx context.Context) ([]ConversationMeta, error) {
	var rows []struct {
		ConversationID string         `db:"conversation_id"`
		Count          int            `db:"interaction_count"`
		UpdatedAt      int64          `db:"updated_at"`
		FirstPrompt    sql.NullString `db:"first_prompt"`
	}
	query := `
SELECT
	i.conversation_id,
	COUNT(*) AS interaction_count,
	MAX(i.started_at) AS updated_at,
	(SELECT p.prompt FROM interactions p
	  WHERE p.conversation_id = i.conversation_id
	  ORDER BY p.idx ASC LIMIT 1) AS first_prompt
FROM interactions i
GROUP BY i.conversation_id`
	if err := g.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, wrap("list", err)
	}

	metas := make([]ConversationMeta, 0, len(rows))
	for _, r := range rows {
		meta := ConversationMeta{
			ID:               r.ConversationID,
			InteractionCount: r.Count,
			UpdatedAt:        time.Unix(0, r.UpdatedAt),
		}
		if r.FirstPrompt.Valid {
			var p interaction.Prompt
			if json.Unmarshal([]byte(r.FirstPrompt.String), &p) == nil {
				meta.Preview = p.Content
			}
		}
		metas = append(metas, meta)
	}
	sortMetas(metas)
	return metas, nil
}

// Close implements Gateway.
func (g *SQLGateway) Close() error {
	return g.db.Close()
}

// =============================================================================
// ROW MAPPING
// =============================================================================

type interactionRow struct {
	ID             string         `db:"id"`
	ConversationID string         `db:"conversation_id"`
	Index          int            `db:"idx"`
	ParentID       sql.NullString `db:"parent_id"`
	Type           string         `db:"type"`
	Status         string         `db:"status"`
	Prompt         sql.NullString `db:"prompt"`
	Response       sql.NullString `db:"response"`
	Metadata       string         `db:"metadata"`
	Rating         sql.NullInt64  `db:"rating"`
	StartedAt      int64          `db:"started_at"`
	EndedAt        sql.NullInt64  `db:"ended_at"`
}

func rowFromInteraction(it *interaction.Interaction) (interactionRow, error) {
	row := interactionRow{
		ID:             it.ID,
		ConversationID: it.ConversationID,
		Index:          it.Index,
		ParentID:       sql.NullString{String: it.ParentID, Valid: it.ParentID != ""},
		Type:           string(it.Type),
		Status:         string(it.Status),
		StartedAt:      it.StartedAt.UnixNano(),
	}

	md, err := json.Marshal(it.Metadata)
	if err != nil {
		return row, fmt.Errorf("metadata: %w", err)
	}
	row.Metadata = string(md)

	if it.Prompt != nil {
		p, err := json.Marshal(it.Prompt)
		if err != nil {
			return row, fmt.Errorf("prompt: %w", err)
		}
		row.Prompt = sql.NullString{String: string(p), Valid: true}
	}
	if it.Response != nil {
		row.Response = sql.NullString{String: *it.Response, Valid: true}
	}
	if it.Rating != nil {
		row.Rating = sql.NullInt64{Int64: int64(*it.Rating), Valid: true}
	}
	if it.EndedAt != nil {
		row.EndedAt = sql.NullInt64{Int64: it.EndedAt.UnixNano(), Valid: true}
	}
	return row, nil
}

func (r interactionRow) toInteraction() (*interaction.Interaction, error) {
	it := &interaction.Interaction{
		ID:             r.ID,
		ConversationID: r.ConversationID,
		Index:          r.Index,
		ParentID:       r.ParentID.String,
		Type:           interaction.Type(r.Type),
		Status:         interaction.Status(r.Status),
		StartedAt:      time.Unix(0, r.StartedAt),
	}

	if err := json.Unmarshal([]byte(r.Metadata), &it.Metadata); err != nil {
		return nil, fmt.Errorf("metadata: %w", err)
	}
	if r.Prompt.Valid {
		it.Prompt = &interaction.Prompt{}
		if err := json.Unmarshal([]byte(r.Prompt.String), it.Prompt); err != nil {
			return nil, fmt.Errorf("prompt: %w", err)
		}
	}
	if r.Response.Valid {
		it.Response = interaction.Ptr(r.Response.String)
	}
	if r.Rating.Valid {
		it.Rating = interaction.Ptr(int(r.Rating.Int64))
	}
	if r.EndedAt.Valid {
		it.EndedAt = interaction.Ptr(time.Unix(0, r.EndedAt.Int64))
	}
	return it, nil
}
