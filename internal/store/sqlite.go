// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"signal-engine/internal/analysis/patterns"
	apperrors "signal-engine/internal/errors"
	"signal-engine/internal/models"
)

const dateLayout = "2006-01-02"

var _ DataStore = (*SQLiteStore)(nil)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db        *sql.DB
	mu        sync.RWMutex
	syncTimes map[string]time.Time
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		db:        db,
		syncTimes: make(map[string]time.Time),
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Daily OHLCV bars
	CREATE TABLE IF NOT EXISTS bars (
		symbol TEXT NOT NULL,
		date TEXT NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (symbol, date)
	);

	-- Latest fundamental ratios per symbol
	CREATE TABLE IF NOT EXISTS fundamentals (
		symbol TEXT PRIMARY KEY,
		as_of TEXT,
		pe REAL,
		pb REAL,
		roe REAL,
		debt_to_equity REAL,
		earnings_growth REAL,
		revenue_growth REAL,
		profit_margin REAL,
		current_ratio REAL,
		dividend_yield REAL,
		payout_ratio REAL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Snapshot plus composite signal, one row per symbol and day
	CREATE TABLE IF NOT EXISTS technical_records (
		symbol TEXT NOT NULL,
		date TEXT NOT NULL,
		close REAL NOT NULL,
		score INTEGER NOT NULL,
		label TEXT NOT NULL,
		record TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(symbol, date)
	);

	CREATE TABLE IF NOT EXISTS cross_events (
		symbol TEXT NOT NULL,
		date TEXT NOT NULL,
		kind TEXT NOT NULL,
		direction TEXT NOT NULL,
		reference_level REAL NOT NULL,
		magnitude_percent REAL NOT NULL,
		UNIQUE(symbol, date, kind)
	);

	CREATE TABLE IF NOT EXISTS volume_spikes (
		symbol TEXT NOT NULL,
		date TEXT NOT NULL,
		today_volume INTEGER NOT NULL,
		baseline_volume REAL NOT NULL,
		spike_percent REAL NOT NULL,
		price_change_percent REAL,
		UNIQUE(symbol, date)
	);

	-- Consolidation boxes keyed by symbol and formation date
	CREATE TABLE IF NOT EXISTS boxes (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		formation_date TEXT NOT NULL,
		box_high REAL NOT NULL,
		box_low REAL NOT NULL,
		consolidation_days INTEGER NOT NULL,
		status TEXT NOT NULL,
		breakout_level REAL,
		breakout_date TEXT,
		resolved_date TEXT,
		volume_confirmed INTEGER DEFAULT 0,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS box_events (
		box_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		date TEXT NOT NULL,
		kind TEXT NOT NULL,
		UNIQUE(box_id, date, kind)
	);

	-- Fold state carried between daily runs
	CREATE TABLE IF NOT EXISTS box_state (
		symbol TEXT PRIMARY KEY,
		last_date TEXT,
		state TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS positions (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		entry_price REAL NOT NULL,
		quantity INTEGER NOT NULL,
		stop_loss REAL,
		target REAL,
		exit_criteria TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'open',
		opened_at TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Sync status table
	CREATE TABLE IF NOT EXISTS sync_status (
		data_type TEXT PRIMARY KEY,
		last_sync DATETIME NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_technical_records_symbol ON technical_records(symbol, date);
	CREATE INDEX IF NOT EXISTS idx_cross_events_symbol ON cross_events(symbol, date);
	CREATE INDEX IF NOT EXISTS idx_volume_spikes_symbol ON volume_spikes(symbol, date);
	CREATE INDEX IF NOT EXISTS idx_boxes_symbol ON boxes(symbol);
	CREATE INDEX IF NOT EXISTS idx_positions_status ON positions(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func dateKey(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func parseDate(v string) (time.Time, error) {
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad stored date %q: %w", v, err)
	}
	return t, nil
}

func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: dateKey(*t), Valid: true}
}

func datePtr(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := parseDate(v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func notFound(dataType, key string) error {
	return apperrors.NewDataError(dataType, key, "not found", apperrors.ErrDataNotFound)
}

// ============================================================================
// Bars Methods
// ============================================================================

// SaveBars upserts bars for a symbol.
func (s *SQLiteStore) SaveBars(ctx context.Context, symbol string, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO bars (symbol, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, symbol, dateKey(b.Date), b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("failed to insert bar: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetBars returns bars in ascending date order. A zero from or to leaves that side open.
func (s *SQLiteStore) GetBars(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error) {
	query := "SELECT date, open, high, low, close, volume FROM bars WHERE symbol = ?"
	args := []interface{}{symbol}
	if !from.IsZero() {
		query += " AND date >= ?"
		args = append(args, dateKey(from))
	}
	if !to.IsZero() {
		query += " AND date <= ?"
		args = append(args, dateKey(to))
	}
	query += " ORDER BY date ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bars: %w", err)
	}
	defer rows.Close()

	var bars []models.Bar
	for rows.Next() {
		var b models.Bar
		var date string
		if err := rows.Scan(&date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan bar: %w", err)
		}
		if b.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bars: %w", err)
	}
	return bars, nil
}

// GetBarsFreshness returns the date of the most recent bar, or the zero time.
func (s *SQLiteStore) GetBarsFreshness(ctx context.Context, symbol string) (time.Time, error) {
	var date sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT MAX(date) FROM bars WHERE symbol = ?`, symbol).Scan(&date)
	if err != nil && err != sql.ErrNoRows {
		return time.Time{}, fmt.Errorf("failed to get bars freshness: %w", err)
	}
	if !date.Valid {
		return time.Time{}, nil
	}
	return parseDate(date.String)
}

// Symbols lists every symbol with stored bars.
func (s *SQLiteStore) Symbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM bars ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}
	return symbols, rows.Err()
}

// ============================================================================
// Fundamentals Methods
// ============================================================================

// SaveFundamentals replaces the stored ratios for a symbol.
func (s *SQLiteStore) SaveFundamentals(ctx context.Context, f models.Fundamentals) error {
	var asOf sql.NullString
	if !f.AsOf.IsZero() {
		asOf = sql.NullString{String: dateKey(f.AsOf), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO fundamentals (symbol, as_of, pe, pb, roe, debt_to_equity, earnings_growth,
			revenue_growth, profit_margin, current_ratio, dividend_yield, payout_ratio, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, f.Symbol, asOf, f.PE, f.PB, f.ROE, f.DebtToEquity, f.EarningsGrowth,
		f.RevenueGrowth, f.ProfitMargin, f.CurrentRatio, f.DividendYield, f.PayoutRatio, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save fundamentals: %w", err)
	}
	return nil
}

// GetFundamentals returns the stored ratios. Missing rows yield ErrDataNotFound.
func (s *SQLiteStore) GetFundamentals(ctx context.Context, symbol string) (*models.Fundamentals, error) {
	f := models.Fundamentals{Symbol: symbol}
	var asOf sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT as_of, pe, pb, roe, debt_to_equity, earnings_growth, revenue_growth,
			profit_margin, current_ratio, dividend_yield, payout_ratio
		FROM fundamentals WHERE symbol = ?
	`, symbol).Scan(&asOf, &f.PE, &f.PB, &f.ROE, &f.DebtToEquity, &f.EarningsGrowth, &f.RevenueGrowth,
		&f.ProfitMargin, &f.CurrentRatio, &f.DividendYield, &f.PayoutRatio)
	if err == sql.ErrNoRows {
		return nil, notFound("fundamentals", symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fundamentals: %w", err)
	}
	if asOf.Valid {
		if f.AsOf, err = parseDate(asOf.String); err != nil {
			return nil, err
		}
	}
	return &f, nil
}

// ============================================================================
// Technical Records Methods
// ============================================================================

// SaveTechnicalRecord upserts the record for its symbol and day, so reruns
// of the same day replace rather than duplicate.
func (s *SQLiteStore) SaveTechnicalRecord(ctx context.Context, rec models.TechnicalRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode technical record: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO technical_records (symbol, date, close, score, label, record, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, date) DO UPDATE SET
			close = excluded.close,
			score = excluded.score,
			label = excluded.label,
			record = excluded.record,
			updated_at = excluded.updated_at
	`, rec.Snapshot.Symbol, dateKey(rec.Snapshot.AsOf), rec.Snapshot.Close,
		rec.Composite.Score, string(rec.Composite.Label), string(data), time.Now())
	if err != nil {
		return fmt.Errorf("failed to save technical record: %w", err)
	}
	return nil
}

// LatestTechnicalRecord returns the most recent record of a symbol.
func (s *SQLiteStore) LatestTechnicalRecord(ctx context.Context, symbol string) (*models.TechnicalRecord, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `
		SELECT record FROM technical_records WHERE symbol = ? ORDER BY date DESC LIMIT 1
	`, symbol).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, notFound("technical_record", symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get technical record: %w", err)
	}

	var rec models.TechnicalRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to decode technical record: %w", err)
	}
	return &rec, nil
}

// LatestTechnicalRecords returns the most recent record of every symbol.
func (s *SQLiteStore) LatestTechnicalRecords(ctx context.Context) ([]models.TechnicalRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.record FROM technical_records t
		WHERE t.date = (SELECT MAX(date) FROM technical_records WHERE symbol = t.symbol)
		ORDER BY t.symbol
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query technical records: %w", err)
	}
	defer rows.Close()

	var records []models.TechnicalRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan technical record: %w", err)
		}
		var rec models.TechnicalRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode technical record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ============================================================================
// Event Methods
// ============================================================================

func eventQuery(base string, filter EventFilter, dateColumn string) (string, []interface{}) {
	var where []string
	var args []interface{}
	if filter.Symbol != "" {
		where = append(where, "symbol = ?")
		args = append(args, filter.Symbol)
	}
	if !filter.Since.IsZero() {
		where = append(where, dateColumn+" >= ?")
		args = append(args, dateKey(filter.Since))
	}
	query := base
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY " + dateColumn + " DESC, symbol"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	return query, args
}

// SaveCrossEvents stores crossover events, replacing same-day duplicates.
func (s *SQLiteStore) SaveCrossEvents(ctx context.Context, events []models.CrossEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO cross_events (symbol, date, kind, direction, reference_level, magnitude_percent)
			VALUES (?, ?, ?, ?, ?, ?)
		`, e.Symbol, dateKey(e.Date), string(e.Kind), string(e.Direction), e.ReferenceLevel, e.MagnitudePercent)
		if err != nil {
			return fmt.Errorf("failed to insert cross event: %w", err)
		}
	}
	return tx.Commit()
}

// GetCrossEvents returns crossover events, newest first.
func (s *SQLiteStore) GetCrossEvents(ctx context.Context, filter EventFilter) ([]models.CrossEvent, error) {
	query, args := eventQuery(`SELECT symbol, date, kind, direction, reference_level, magnitude_percent FROM cross_events`, filter, "date")
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cross events: %w", err)
	}
	defer rows.Close()

	var events []models.CrossEvent
	for rows.Next() {
		var e models.CrossEvent
		var date, kind, direction string
		if err := rows.Scan(&e.Symbol, &date, &kind, &direction, &e.ReferenceLevel, &e.MagnitudePercent); err != nil {
			return nil, fmt.Errorf("failed to scan cross event: %w", err)
		}
		if e.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		e.Kind = models.CrossKind(kind)
		e.Direction = models.Direction(direction)
		events = append(events, e)
	}
	return events, rows.Err()
}

// SaveVolumeSpike stores a spike, replacing a same-day duplicate.
func (s *SQLiteStore) SaveVolumeSpike(ctx context.Context, spike models.VolumeSpike) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO volume_spikes (symbol, date, today_volume, baseline_volume, spike_percent, price_change_percent)
		VALUES (?, ?, ?, ?, ?, ?)
	`, spike.Symbol, dateKey(spike.Date), spike.TodayVolume, spike.BaselineVolume, spike.SpikePercent, spike.PriceChangePercent)
	if err != nil {
		return fmt.Errorf("failed to save volume spike: %w", err)
	}
	return nil
}

// GetVolumeSpikes returns volume spikes, newest first.
func (s *SQLiteStore) GetVolumeSpikes(ctx context.Context, filter EventFilter) ([]models.VolumeSpike, error) {
	query, args := eventQuery(`SELECT symbol, date, today_volume, baseline_volume, spike_percent, price_change_percent FROM volume_spikes`, filter, "date")
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query volume spikes: %w", err)
	}
	defer rows.Close()

	var spikes []models.VolumeSpike
	for rows.Next() {
		var v models.VolumeSpike
		var date string
		if err := rows.Scan(&v.Symbol, &date, &v.TodayVolume, &v.BaselineVolume, &v.SpikePercent, &v.PriceChangePercent); err != nil {
			return nil, fmt.Errorf("failed to scan volume spike: %w", err)
		}
		if v.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		spikes = append(spikes, v)
	}
	return spikes, rows.Err()
}

// SaveBoxEvents records box lifecycle events and upserts each box's latest state.
func (s *SQLiteStore) SaveBoxEvents(ctx context.Context, events []models.BoxEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, e := range events {
		b := e.Box
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO boxes (id, symbol, formation_date, box_high, box_low, consolidation_days,
				status, breakout_level, breakout_date, resolved_date, volume_confirmed, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, b.ID(), b.Symbol, dateKey(b.FormationDate), b.BoxHigh, b.BoxLow, b.ConsolidationDays,
			string(b.Status), b.BreakoutLevel, nullDate(b.BreakoutDate), nullDate(b.ResolvedDate), b.VolumeConfirmed, time.Now())
		if err != nil {
			return fmt.Errorf("failed to save box: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO box_events (box_id, symbol, date, kind) VALUES (?, ?, ?, ?)
		`, b.ID(), b.Symbol, dateKey(e.Date), string(e.Kind))
		if err != nil {
			return fmt.Errorf("failed to save box event: %w", err)
		}
	}
	return tx.Commit()
}

// GetBoxes returns stored boxes, most recently formed first.
func (s *SQLiteStore) GetBoxes(ctx context.Context, filter EventFilter) ([]models.ConsolidationBox, error) {
	query, args := eventQuery(`SELECT symbol, formation_date, box_high, box_low, consolidation_days, status,
		breakout_level, breakout_date, resolved_date, volume_confirmed FROM boxes`, filter, "formation_date")
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query boxes: %w", err)
	}
	defer rows.Close()

	var boxes []models.ConsolidationBox
	for rows.Next() {
		var b models.ConsolidationBox
		var formed, status string
		var breakout, resolved sql.NullString
		if err := rows.Scan(&b.Symbol, &formed, &b.BoxHigh, &b.BoxLow, &b.ConsolidationDays, &status,
			&b.BreakoutLevel, &breakout, &resolved, &b.VolumeConfirmed); err != nil {
			return nil, fmt.Errorf("failed to scan box: %w", err)
		}
		if b.FormationDate, err = parseDate(formed); err != nil {
			return nil, err
		}
		if b.BreakoutDate, err = datePtr(breakout); err != nil {
			return nil, err
		}
		if b.ResolvedDate, err = datePtr(resolved); err != nil {
			return nil, err
		}
		b.Status = models.BoxStatus(status)
		boxes = append(boxes, b)
	}
	return boxes, rows.Err()
}

// ============================================================================
// Box State Methods
// ============================================================================

// LoadBoxState returns the stored fold state, or a fresh state for a new symbol.
func (s *SQLiteStore) LoadBoxState(ctx context.Context, symbol string) (patterns.BoxState, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT state FROM box_state WHERE symbol = ?`, symbol).Scan(&data)
	if err == sql.ErrNoRows {
		return patterns.NewBoxState(symbol), nil
	}
	if err != nil {
		return patterns.BoxState{}, fmt.Errorf("failed to load box state: %w", err)
	}

	var state patterns.BoxState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return patterns.BoxState{}, fmt.Errorf("failed to decode box state: %w", err)
	}
	return state, nil
}

// SaveBoxState replaces the stored fold state of a symbol.
func (s *SQLiteStore) SaveBoxState(ctx context.Context, state patterns.BoxState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode box state: %w", err)
	}
	var last sql.NullString
	if !state.LastDate.IsZero() {
		last = sql.NullString{String: dateKey(state.LastDate), Valid: true}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO box_state (symbol, last_date, state, updated_at) VALUES (?, ?, ?, ?)
	`, state.Symbol, last, string(data), time.Now())
	if err != nil {
		return fmt.Errorf("failed to save box state: %w", err)
	}
	return nil
}

// ============================================================================
// Position Methods
// ============================================================================

// SavePosition inserts or replaces a position.
func (s *SQLiteStore) SavePosition(ctx context.Context, pos models.Position) error {
	criteria, err := json.Marshal(pos.ExitCriteria)
	if err != nil {
		return fmt.Errorf("failed to encode exit criteria: %w", err)
	}
	status := pos.Status
	if status == "" {
		status = models.PositionOpen
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO positions (id, symbol, entry_price, quantity, stop_loss, target, exit_criteria, status, opened_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, pos.ID, pos.Symbol, pos.EntryPrice, pos.Quantity, pos.StopLoss, pos.Target, string(criteria), string(status), nullDate(timeOrNil(pos.OpenedAt)))
	if err != nil {
		return fmt.Errorf("failed to save position: %w", err)
	}
	return nil
}

func timeOrNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

const positionColumns = `id, symbol, entry_price, quantity, stop_loss, target, exit_criteria, status, opened_at`

func scanPosition(scan func(dest ...interface{}) error) (models.Position, error) {
	var p models.Position
	var criteria, status string
	var opened sql.NullString
	if err := scan(&p.ID, &p.Symbol, &p.EntryPrice, &p.Quantity, &p.StopLoss, &p.Target, &criteria, &status, &opened); err != nil {
		return p, err
	}
	if err := json.Unmarshal([]byte(criteria), &p.ExitCriteria); err != nil {
		return p, fmt.Errorf("failed to decode exit criteria: %w", err)
	}
	p.Status = models.PositionStatus(status)
	openedAt, err := datePtr(opened)
	if err != nil {
		return p, err
	}
	if openedAt != nil {
		p.OpenedAt = *openedAt
	}
	return p, nil
}

// GetPosition returns a position by id.
func (s *SQLiteStore) GetPosition(ctx context.Context, id string) (*models.Position, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+positionColumns+` FROM positions WHERE id = ?`, id)
	p, err := scanPosition(row.Scan)
	if err == sql.ErrNoRows {
		return nil, notFound("position", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	return &p, nil
}

// ListPositions returns positions with the given status, or all when status is empty.
func (s *SQLiteStore) ListPositions(ctx context.Context, status models.PositionStatus) ([]models.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions`
	var args []interface{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY symbol, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []models.Position
	for rows.Next() {
		p, err := scanPosition(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// ============================================================================
// Sync Methods
// ============================================================================

// GetLastSync returns the last sync time for a data type.
func (s *SQLiteStore) GetLastSync(dataType string) time.Time {
	s.mu.RLock()
	if t, ok := s.syncTimes[dataType]; ok {
		s.mu.RUnlock()
		return t
	}
	s.mu.RUnlock()

	var lastSync time.Time
	err := s.db.QueryRow(`SELECT last_sync FROM sync_status WHERE data_type = ?`, dataType).Scan(&lastSync)
	if err != nil {
		return time.Time{}
	}

	s.mu.Lock()
	s.syncTimes[dataType] = lastSync
	s.mu.Unlock()

	return lastSync
}

// SetLastSync sets the last sync time for a data type.
func (s *SQLiteStore) SetLastSync(dataType string, t time.Time) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO sync_status (data_type, last_sync, updated_at)
		VALUES (?, ?, ?)
	`, dataType, t, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set last sync: %w", err)
	}

	s.mu.Lock()
	s.syncTimes[dataType] = t
	s.mu.Unlock()

	return nil
}
