package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"positionguard/internal/models"
)

// SQLiteStore implements SignalStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based signal store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS signals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_key TEXT NOT NULL,
		symbol TEXT NOT NULL,
		position_type TEXT NOT NULL,
		tp1_price REAL DEFAULT 0,
		tp1_order_placed INTEGER DEFAULT 0,
		tp1_reached INTEGER DEFAULT 0,
		tp2_price REAL DEFAULT 0,
		tp2_order_placed INTEGER DEFAULT 0,
		tp2_reached INTEGER DEFAULT 0,
		tp3_price REAL DEFAULT 0,
		tp3_order_placed INTEGER DEFAULT 0,
		tp3_reached INTEGER DEFAULT 0,
		is_active INTEGER DEFAULT 1,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(user_key, symbol, position_type)
	);

	CREATE INDEX IF NOT EXISTS idx_signals_active ON signals(user_key, is_active);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveSignal inserts or replaces a signal row.
func (s *SQLiteStore) SaveSignal(ctx context.Context, sig *models.Signal) error {
	query := `
	INSERT INTO signals (
		user_key, symbol, position_type,
		tp1_price, tp1_order_placed, tp1_reached,
		tp2_price, tp2_order_placed, tp2_reached,
		tp3_price, tp3_order_placed, tp3_reached,
		is_active, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(user_key, symbol, position_type) DO UPDATE SET
		tp1_price = excluded.tp1_price,
		tp1_order_placed = excluded.tp1_order_placed,
		tp1_reached = excluded.tp1_reached,
		tp2_price = excluded.tp2_price,
		tp2_order_placed = excluded.tp2_order_placed,
		tp2_reached = excluded.tp2_reached,
		tp3_price = excluded.tp3_price,
		tp3_order_placed = excluded.tp3_order_placed,
		tp3_reached = excluded.tp3_reached,
		is_active = excluded.is_active,
		updated_at = CURRENT_TIMESTAMP
	`

	_, err := s.db.ExecContext(ctx, query,
		sig.UserKey, sig.Symbol, string(sig.PositionType),
		sig.Levels[0].Price, sig.Levels[0].OrderPlaced, sig.Levels[0].Reached,
		sig.Levels[1].Price, sig.Levels[1].OrderPlaced, sig.Levels[1].Reached,
		sig.Levels[2].Price, sig.Levels[2].OrderPlaced, sig.Levels[2].Reached,
		sig.IsActive,
	)
	if err != nil {
		return fmt.Errorf("saving signal %s/%s: %w", sig.Symbol, sig.PositionType, err)
	}
	return nil
}

// GetActiveSignals returns all active signals for a user.
func (s *SQLiteStore) GetActiveSignals(ctx context.Context, userKey string) ([]models.Signal, error) {
	return s.GetSignals(ctx, userKey, false)
}

// GetSignals returns signals for a user, optionally including inactive rows.
func (s *SQLiteStore) GetSignals(ctx context.Context, userKey string, includeInactive bool) ([]models.Signal, error) {
	query := `
	SELECT user_key, symbol, position_type,
		tp1_price, tp1_order_placed, tp1_reached,
		tp2_price, tp2_order_placed, tp2_reached,
		tp3_price, tp3_order_placed, tp3_reached,
		is_active, created_at, updated_at
	FROM signals
	WHERE user_key = ?
	`
	if !includeInactive {
		query += " AND is_active = 1"
	}
	query += " ORDER BY symbol, position_type"

	rows, err := s.db.QueryContext(ctx, query, userKey)
	if err != nil {
		return nil, fmt.Errorf("querying signals: %w", err)
	}
	defer rows.Close()

	var signals []models.Signal
	for rows.Next() {
		var sig models.Signal
		var positionType string
		err := rows.Scan(
			&sig.UserKey, &sig.Symbol, &positionType,
			&sig.Levels[0].Price, &sig.Levels[0].OrderPlaced, &sig.Levels[0].Reached,
			&sig.Levels[1].Price, &sig.Levels[1].OrderPlaced, &sig.Levels[1].Reached,
			&sig.Levels[2].Price, &sig.Levels[2].OrderPlaced, &sig.Levels[2].Reached,
			&sig.IsActive, &sig.CreatedAt, &sig.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning signal row: %w", err)
		}
		sig.PositionType = models.PositionSide(positionType)
		signals = append(signals, sig)
	}

	return signals, rows.Err()
}

// UpdateActive flips the is_active flag for one row.
func (s *SQLiteStore) UpdateActive(ctx context.Context, userKey, symbol string, positionType models.PositionSide, active bool) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE signals SET is_active = ?, updated_at = CURRENT_TIMESTAMP
		WHERE user_key = ? AND symbol = ? AND position_type = ?
	`, active, userKey, symbol, string(positionType))
	if err != nil {
		return fmt.Errorf("updating signal status %s/%s: %w", symbol, positionType, err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("signal %s/%s for %s not found", symbol, positionType, userKey)
	}
	return nil
}

// UpdateLevels persists the take-profit flags of one signal. The MAX guard on
// reached columns keeps them monotonic even against a stale in-memory copy.
func (s *SQLiteStore) UpdateLevels(ctx context.Context, sig *models.Signal) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE signals SET
			tp1_order_placed = ?, tp1_reached = MAX(tp1_reached, ?),
			tp2_order_placed = ?, tp2_reached = MAX(tp2_reached, ?),
			tp3_order_placed = ?, tp3_reached = MAX(tp3_reached, ?),
			updated_at = CURRENT_TIMESTAMP
		WHERE user_key = ? AND symbol = ? AND position_type = ?
	`,
		sig.Levels[0].OrderPlaced, sig.Levels[0].Reached,
		sig.Levels[1].OrderPlaced, sig.Levels[1].Reached,
		sig.Levels[2].OrderPlaced, sig.Levels[2].Reached,
		sig.UserKey, sig.Symbol, string(sig.PositionType),
	)
	if err != nil {
		return fmt.Errorf("updating signal levels %s/%s: %w", sig.Symbol, sig.PositionType, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
