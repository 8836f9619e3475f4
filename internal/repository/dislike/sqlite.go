package dislike

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/kailas-cloud/citymatch/internal/domain/ranking"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS user_category_dislikes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	category_name TEXT NOT NULL,
	points INTEGER DEFAULT 1 CHECK(points >= 1 AND points <= 5),
	created_at TEXT DEFAULT CURRENT_TIMESTAMP,
	updated_at TEXT DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(user_id, category_name)
);
`

// SQLiteRepo stores weights in the user_category_dislikes table.
type SQLiteRepo struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the database at path and ensures the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open dislike database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between pooled connections.
	conn.SetMaxOpenConns(1)

	if _, err := conn.ExecContext(ctx, sqliteSchema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("init dislike schema: %w", err)
	}
	return &SQLiteRepo{conn: conn}, nil
}

// Ping checks the database is reachable.
func (r *SQLiteRepo) Ping(ctx context.Context) error {
	if err := r.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("ping dislike database: %w", err)
	}
	return nil
}

// Close releases the database.
func (r *SQLiteRepo) Close() error {
	return r.conn.Close()
}

// Get returns the user's weights, empty when none are stored.
func (r *SQLiteRepo) Get(ctx context.Context, userID string) (ranking.DislikeWeights, error) {
	rows, err := r.conn.QueryContext(ctx,
		`SELECT category_name, points FROM user_category_dislikes WHERE user_id = ? ORDER BY points DESC`,
		userID)
	if err != nil {
		return nil, unavailable("get dislikes", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(ranking.DislikeWeights)
	for rows.Next() {
		var (
			cat    string
			points int
		)
		if err := rows.Scan(&cat, &points); err != nil {
			return nil, fmt.Errorf("scan dislike: %w", err)
		}
		out[cat] = points
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("get dislikes", err)
	}
	return out, nil
}

// Set stores an exact weight.
func (r *SQLiteRepo) Set(ctx context.Context, userID, category string, weight int) error {
	if err := validateKey(userID, category); err != nil {
		return err
	}
	if err := ranking.ValidateDislikeWeight(weight); err != nil {
		return err //nolint:wrapcheck // sentinel carries the value
	}
	_, err := r.conn.ExecContext(ctx, `
		INSERT INTO user_category_dislikes (user_id, category_name, points) VALUES (?, ?, ?)
		ON CONFLICT(user_id, category_name) DO UPDATE SET
			points = excluded.points,
			updated_at = CURRENT_TIMESTAMP`,
		userID, category, weight)
	if err != nil {
		return unavailable("set dislike", err)
	}
	return nil
}

// Add increments a weight by points, capped at the maximum, and returns the new weight.
func (r *SQLiteRepo) Add(ctx context.Context, userID, category string, points int) (int, error) {
	if err := validateAdd(userID, category, points); err != nil {
		return 0, err
	}
	var weight int
	err := r.conn.QueryRowContext(ctx, `
		INSERT INTO user_category_dislikes (user_id, category_name, points) VALUES (?, ?, MIN(?, ?))
		ON CONFLICT(user_id, category_name) DO UPDATE SET
			points = MIN(points + ?, ?),
			updated_at = CURRENT_TIMESTAMP
		RETURNING points`,
		userID, category, points, ranking.MaxDislikeWeight, points, ranking.MaxDislikeWeight,
	).Scan(&weight)
	if err != nil {
		return 0, unavailable("add dislike", err)
	}
	return weight, nil
}

// Remove deletes one category. Removing an absent category is not an error.
func (r *SQLiteRepo) Remove(ctx context.Context, userID, category string) error {
	if err := validateKey(userID, category); err != nil {
		return err
	}
	if _, err := r.conn.ExecContext(ctx,
		`DELETE FROM user_category_dislikes WHERE user_id = ? AND category_name = ?`,
		userID, category); err != nil {
		return unavailable("remove dislike", err)
	}
	return nil
}

// Clear deletes every weight of the user.
func (r *SQLiteRepo) Clear(ctx context.Context, userID string) error {
	if _, err := r.conn.ExecContext(ctx,
		`DELETE FROM user_category_dislikes WHERE user_id = ?`, userID); err != nil {
		return unavailable("clear dislikes", err)
	}
	return nil
}
