package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Iron-Ham/crescendo/internal/errors"
	"github.com/Iron-Ham/crescendo/internal/graph"
	"github.com/Iron-Ham/crescendo/internal/workitem"
)

// SQLiteStore persists graph state in an SQLite database. WAL mode is
// enabled for concurrent reads.
type SQLiteStore struct {
	conn *sql.DB
	path string
}

// OpenSQLite opens (creating if necessary) the database at path and
// applies pending migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &SQLiteStore{conn: conn, path: path}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

// migrate applies all pending schema migrations.
func (s *SQLiteStore) migrate() error {
	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := s.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Items},
		{2, migrationV2Edges},
		{3, migrationV3ItemStart},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := s.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}
	return nil
}

const migrationV1Items = `
CREATE TABLE IF NOT EXISTS items (
	id TEXT PRIMARY KEY,
	description TEXT NOT NULL,
	embedding TEXT,
	status TEXT NOT NULL,
	priority_weight REAL NOT NULL DEFAULT 0.5,
	horizon TEXT NOT NULL,
	deadline DATETIME,
	specialties TEXT,
	estimated_cost REAL NOT NULL DEFAULT 0,
	allocated_cost REAL NOT NULL DEFAULT 0,
	merged_into TEXT,
	merged_from TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	claimed_at DATETIME,
	result TEXT
);

CREATE INDEX IF NOT EXISTS idx_items_status ON items(status);
`

const migrationV2Edges = `
CREATE TABLE IF NOT EXISTS edges (
	from_id TEXT NOT NULL,
	to_id TEXT NOT NULL,
	type TEXT NOT NULL,
	weight REAL NOT NULL DEFAULT 1.0,
	source TEXT NOT NULL DEFAULT 'explicit',
	created_at DATETIME NOT NULL,
	PRIMARY KEY (from_id, to_id, type)
);

CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_id);
`

const migrationV3ItemStart = `
ALTER TABLE items ADD COLUMN started_at DATETIME;
`

// SaveItem upserts the item record.
func (s *SQLiteStore) SaveItem(ctx context.Context, item *workitem.WorkItem) error {
	if item == nil || item.ID == "" {
		return errors.NewValidationError("item", "must have an ID")
	}

	embedding, err := marshalJSON(item.Embedding)
	if err != nil {
		return fmt.Errorf("encode embedding: %w", err)
	}
	specialties, err := marshalJSON(item.RequiredSpecialties)
	if err != nil {
		return fmt.Errorf("encode specialties: %w", err)
	}
	mergedFrom, err := marshalJSON(item.MergedFrom)
	if err != nil {
		return fmt.Errorf("encode merged_from: %w", err)
	}
	result, err := marshalJSON(item.Result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO items (
			id, description, embedding, status, priority_weight, horizon,
			deadline, specialties, estimated_cost, allocated_cost,
			merged_into, merged_from, created_at, updated_at, claimed_at,
			started_at, result
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			description = excluded.description,
			embedding = excluded.embedding,
			status = excluded.status,
			priority_weight = excluded.priority_weight,
			horizon = excluded.horizon,
			deadline = excluded.deadline,
			specialties = excluded.specialties,
			estimated_cost = excluded.estimated_cost,
			allocated_cost = excluded.allocated_cost,
			merged_into = excluded.merged_into,
			merged_from = excluded.merged_from,
			updated_at = excluded.updated_at,
			claimed_at = excluded.claimed_at,
			started_at = excluded.started_at,
			result = excluded.result
	`,
		item.ID, item.Description, embedding, item.Status.String(),
		item.PriorityWeight, item.Horizon.String(),
		formatNullableTime(item.Deadline), specialties,
		item.EstimatedCost, item.AllocatedCost,
		nullableString(item.MergedInto), mergedFrom,
		formatTime(item.CreatedAt), formatTime(item.UpdatedAt),
		formatNullableTime(item.ClaimedAt),
		formatNullableTime(item.StartedAt), result,
	)
	if err != nil {
		return fmt.Errorf("save item %s: %w", item.ID, err)
	}
	return nil
}

// LoadItem returns the item with the given ID.
func (s *SQLiteStore) LoadItem(ctx context.Context, id string) (*workitem.WorkItem, error) {
	row := s.conn.QueryRowContext(ctx, itemSelect+" WHERE id = ?", id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewGraphError(
			fmt.Sprintf("item %s not found", id), errors.ErrItemNotFound,
		).WithItemID(id)
	}
	if err != nil {
		return nil, fmt.Errorf("load item %s: %w", id, err)
	}
	return item, nil
}

// LoadItems returns all items matching the filter. Status filtering
// happens in SQL; the remaining predicates apply in memory.
func (s *SQLiteStore) LoadItems(ctx context.Context, filter Filter) ([]*workitem.WorkItem, error) {
	query := itemSelect
	var args []any
	if len(filter.Statuses) > 0 {
		query += " WHERE status IN ("
		for i, status := range filter.Statuses {
			if i > 0 {
				query += ", "
			}
			query += "?"
			args = append(args, status.String())
		}
		query += ")"
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	defer rows.Close()

	var out []*workitem.WorkItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		if filter.Match(item) {
			out = append(out, item)
		}
	}
	return out, rows.Err()
}

// SaveEdge records the edge; duplicates are ignored via the composite
// primary key.
func (s *SQLiteStore) SaveEdge(ctx context.Context, edge graph.Edge) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT OR IGNORE INTO edges (from_id, to_id, type, weight, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, edge.From, edge.To, edge.Type.String(), edge.Weight, edge.Source, formatTime(edge.CreatedAt))
	if err != nil {
		return fmt.Errorf("save edge %s->%s: %w", edge.From, edge.To, err)
	}
	return nil
}

// LoadEdges returns all edge records.
func (s *SQLiteStore) LoadEdges(ctx context.Context) ([]graph.Edge, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT from_id, to_id, type, weight, source, created_at
		FROM edges ORDER BY from_id, to_id, type
	`)
	if err != nil {
		return nil, fmt.Errorf("load edges: %w", err)
	}
	defer rows.Close()

	var out []graph.Edge
	for rows.Next() {
		var e graph.Edge
		var edgeType, createdAt string
		if err := rows.Scan(&e.From, &e.To, &edgeType, &e.Weight, &e.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		e.Type = graph.EdgeType(edgeType)
		if t, err := parseTime(createdAt); err == nil {
			e.CreatedAt = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Similar loads all embedded items and ranks them in memory. SQLite
// has no native vector index; graphs stay small enough that a full
// scan is fine.
func (s *SQLiteStore) Similar(ctx context.Context, vec []float64, k int) ([]Scored, error) {
	items, err := s.LoadItems(ctx, Filter{})
	if err != nil {
		return nil, err
	}
	return rankBySimilarity(items, vec, k), nil
}

const itemSelect = `
	SELECT id, description, embedding, status, priority_weight, horizon,
		deadline, specialties, estimated_cost, allocated_cost,
		merged_into, merged_from, created_at, updated_at, claimed_at,
		started_at, result
	FROM items
`

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*workitem.WorkItem, error) {
	var item workitem.WorkItem
	var embedding, specialties, mergedFrom, result sql.NullString
	var status, horizon, createdAt, updatedAt string
	var deadline, claimedAt, startedAt, mergedInto sql.NullString

	err := row.Scan(
		&item.ID, &item.Description, &embedding, &status,
		&item.PriorityWeight, &horizon, &deadline, &specialties,
		&item.EstimatedCost, &item.AllocatedCost,
		&mergedInto, &mergedFrom, &createdAt, &updatedAt, &claimedAt,
		&startedAt, &result,
	)
	if err != nil {
		return nil, err
	}

	item.Status = workitem.Status(status)
	item.Horizon = workitem.Horizon(horizon)
	item.MergedInto = mergedInto.String

	if err := unmarshalJSON(embedding, &item.Embedding); err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}
	if err := unmarshalJSON(specialties, &item.RequiredSpecialties); err != nil {
		return nil, fmt.Errorf("decode specialties: %w", err)
	}
	if err := unmarshalJSON(mergedFrom, &item.MergedFrom); err != nil {
		return nil, fmt.Errorf("decode merged_from: %w", err)
	}
	if err := unmarshalJSON(result, &item.Result); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}

	if t, err := parseTime(createdAt); err == nil {
		item.CreatedAt = t
	}
	if t, err := parseTime(updatedAt); err == nil {
		item.UpdatedAt = t
	}
	item.Deadline = parseNullableTime(deadline)
	item.ClaimedAt = parseNullableTime(claimedAt)
	item.StartedAt = parseNullableTime(startedAt)

	return &item, nil
}

func marshalJSON(v any) (sql.NullString, error) {
	switch val := v.(type) {
	case []float64:
		if val == nil {
			return sql.NullString{}, nil
		}
	case []string:
		if val == nil {
			return sql.NullString{}, nil
		}
	case *workitem.Result:
		if val == nil {
			return sql.NullString{}, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalJSON(s sql.NullString, dest any) error {
	if !s.Valid || s.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(s.String), dest)
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatNullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func parseNullableTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil
	}
	return &t
}
