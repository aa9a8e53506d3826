package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// Executor Interface - Shared by DB and Transaction
// =============================================================================

// executor abstracts database operations that can be performed on both
// a database connection and a transaction.
type executor interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore creates a new SQLite store and runs migrations.
// The pool is limited to one connection: SQLite serializes writers anyway and
// ":memory:" databases are private to their connection.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	db, err := sqlx.Open("sqlite3", dsn+sep+"_foreign_keys=on")
	if err != nil {
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to open database: "+err.Error(), ErrConnectionFailed)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to ping database: "+err.Error(), ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreatePlan(ctx context.Context, plan *Plan) error {
	return createPlan(ctx, s.db, plan)
}

func (s *SQLiteStore) GetPlan(ctx context.Context, id string) (*Plan, error) {
	return getPlan(ctx, s.db, id)
}

func (s *SQLiteStore) DeletePlan(ctx context.Context, id string) error {
	return deletePlan(ctx, s.db, id)
}

func (s *SQLiteStore) ListPlans(ctx context.Context, opts ListOptions) ([]Plan, error) {
	return listPlans(ctx, s.db, opts)
}

func (s *SQLiteStore) AppendMove(ctx context.Context, move *Move) error {
	return appendMove(ctx, s.db, move)
}

func (s *SQLiteStore) ListMoves(ctx context.Context, planID string, opts ListOptions) ([]Move, error) {
	return listMoves(ctx, s.db, planID, opts)
}

func (s *SQLiteStore) ListAcceptedMoves(ctx context.Context, planID string) ([]Move, error) {
	return listAcceptedMoves(ctx, s.db, planID)
}

func (s *SQLiteStore) CountMoves(ctx context.Context, planID string) (int, error) {
	return countMoves(ctx, s.db, planID)
}

func (s *SQLiteStore) DeleteMove(ctx context.Context, planID string, seq int) error {
	return deleteMove(ctx, s.db, planID, seq)
}

// =============================================================================
// Transaction Support
// =============================================================================

func (s *SQLiteStore) WithTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return NewStoreError("WithTx", "", "", "failed to begin transaction", ErrTxFailed)
	}

	txS := &txSQLiteStore{tx: tx}

	if err := fn(txS); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return NewStoreError("WithTx", "", "", fmt.Sprintf("rollback failed after error: %v", err), ErrTxFailed)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return NewStoreError("WithTx", "", "", "failed to commit transaction", ErrTxFailed)
	}

	return nil
}

// =============================================================================
// Transaction Store
// =============================================================================

// txSQLiteStore implements Store within a transaction.
type txSQLiteStore struct {
	tx *sqlx.Tx
}

func (s *txSQLiteStore) CreatePlan(ctx context.Context, plan *Plan) error {
	return createPlan(ctx, s.tx, plan)
}

func (s *txSQLiteStore) GetPlan(ctx context.Context, id string) (*Plan, error) {
	return getPlan(ctx, s.tx, id)
}

func (s *txSQLiteStore) DeletePlan(ctx context.Context, id string) error {
	return deletePlan(ctx, s.tx, id)
}

func (s *txSQLiteStore) ListPlans(ctx context.Context, opts ListOptions) ([]Plan, error) {
	return listPlans(ctx, s.tx, opts)
}

func (s *txSQLiteStore) AppendMove(ctx context.Context, move *Move) error {
	return appendMove(ctx, s.tx, move)
}

func (s *txSQLiteStore) ListMoves(ctx context.Context, planID string, opts ListOptions) ([]Move, error) {
	return listMoves(ctx, s.tx, planID, opts)
}

func (s *txSQLiteStore) ListAcceptedMoves(ctx context.Context, planID string) ([]Move, error) {
	return listAcceptedMoves(ctx, s.tx, planID)
}

func (s *txSQLiteStore) CountMoves(ctx context.Context, planID string) (int, error) {
	return countMoves(ctx, s.tx, planID)
}

func (s *txSQLiteStore) DeleteMove(ctx context.Context, planID string, seq int) error {
	return deleteMove(ctx, s.tx, planID, seq)
}

func (s *txSQLiteStore) WithTx(ctx context.Context, fn func(Store) error) error {
	// Already in a transaction
	return fn(s)
}

func (s *txSQLiteStore) Close() error {
	// No-op for transaction store
	return nil
}

// =============================================================================
// Plan Operations
// =============================================================================

// planRow represents a plan row in the database.
type planRow struct {
	ID        string `db:"id"`
	VesselID  string `db:"vessel_id"`
	Format    string `db:"format"`
	Document  []byte `db:"document"`
	CreatedAt string `db:"created_at"`
}

func createPlan(ctx context.Context, exec executor, plan *Plan) error {
	if plan.ID == "" {
		plan.ID = uuid.New().String()
	}
	if plan.VesselID == "" || len(plan.Document) == 0 {
		return NewStoreError("CreatePlan", "plan", plan.ID, "vessel id and document are required", ErrInvalidData)
	}
	if plan.Format == "" {
		plan.Format = "json"
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO plans (id, vessel_id, format, document, created_at)
		VALUES (:id, :vessel_id, :format, :document, :created_at)`

	row := map[string]any{
		"id":         plan.ID,
		"vessel_id":  plan.VesselID,
		"format":     plan.Format,
		"document":   plan.Document,
		"created_at": plan.CreatedAt.Format(time.RFC3339Nano),
	}

	_, err := exec.NamedExecContext(ctx, query, row)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: plans.id") {
			return NewStoreError("CreatePlan", "plan", plan.ID, "plan with this ID already exists", ErrDuplicateID)
		}
		if strings.Contains(err.Error(), "CHECK constraint failed") {
			return NewStoreError("CreatePlan", "plan", plan.ID, "unsupported document format "+plan.Format, ErrInvalidData)
		}
		return NewStoreError("CreatePlan", "plan", plan.ID, err.Error(), err)
	}

	return nil
}

func getPlan(ctx context.Context, exec executor, id string) (*Plan, error) {
	query := `SELECT * FROM plans WHERE id = ?`

	var row planRow
	err := exec.GetContext(ctx, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetPlan", "plan", id, "plan not found", ErrNotFound)
		}
		return nil, NewStoreError("GetPlan", "plan", id, err.Error(), err)
	}

	return rowToPlan(&row), nil
}

func deletePlan(ctx context.Context, exec executor, id string) error {
	result, err := exec.ExecContext(ctx, `DELETE FROM plans WHERE id = ?`, id)
	if err != nil {
		return NewStoreError("DeletePlan", "plan", id, err.Error(), err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return NewStoreError("DeletePlan", "plan", id, err.Error(), err)
	}
	if rows == 0 {
		return NewStoreError("DeletePlan", "plan", id, "plan not found", ErrNotFound)
	}

	return nil
}

func listPlans(ctx context.Context, exec executor, opts ListOptions) ([]Plan, error) {
	opts = opts.Normalize()
	query := `SELECT * FROM plans ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?`

	var rows []planRow
	err := exec.SelectContext(ctx, &rows, query, opts.Limit, opts.Offset)
	if err != nil {
		return nil, NewStoreError("ListPlans", "plan", "", err.Error(), err)
	}

	plans := make([]Plan, 0, len(rows))
	for i := range rows {
		plans = append(plans, *rowToPlan(&rows[i]))
	}

	return plans, nil
}

// rowToPlan converts a database row to a Plan.
func rowToPlan(row *planRow) *Plan {
	createdAt, _ := time.Parse(time.RFC3339Nano, row.CreatedAt)
	return &Plan{
		ID:        row.ID,
		VesselID:  row.VesselID,
		Format:    row.Format,
		Document:  row.Document,
		CreatedAt: createdAt,
	}
}

// =============================================================================
// Move Journal Operations
// =============================================================================

// moveRow represents a journaled move in the database.
type moveRow struct {
	ID          string `db:"id"`
	PlanID      string `db:"plan_id"`
	Seq         int    `db:"seq"`
	ContainerID string `db:"container_id"`
	FromCode    string `db:"from_code"`
	ToBay       string `db:"to_bay"`
	ToRow       string `db:"to_row"`
	ToTier      int    `db:"to_tier"`
	ToCode      string `db:"to_code"`
	Accepted    bool   `db:"accepted"`
	Reason      string `db:"reason"`
	Message     string `db:"message"`
	ReStows     int    `db:"restows"`
	CreatedAt   string `db:"created_at"`
}

func appendMove(ctx context.Context, exec executor, move *Move) error {
	if move.ID == "" {
		move.ID = uuid.New().String()
	}
	if move.PlanID == "" || move.Seq < 1 {
		return NewStoreError("AppendMove", "move", move.ID, "plan id and a positive sequence are required", ErrInvalidData)
	}
	if move.CreatedAt.IsZero() {
		move.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO moves (
			id, plan_id, seq, container_id, from_code,
			to_bay, to_row, to_tier, to_code,
			accepted, reason, message, restows, created_at
		) VALUES (
			:id, :plan_id, :seq, :container_id, :from_code,
			:to_bay, :to_row, :to_tier, :to_code,
			:accepted, :reason, :message, :restows, :created_at
		)`

	row := map[string]any{
		"id":           move.ID,
		"plan_id":      move.PlanID,
		"seq":          move.Seq,
		"container_id": move.ContainerID,
		"from_code":    move.FromCode,
		"to_bay":       move.ToBay,
		"to_row":       move.ToRow,
		"to_tier":      move.ToTier,
		"to_code":      move.ToCode,
		"accepted":     move.Accepted,
		"reason":       move.Reason,
		"message":      move.Message,
		"restows":      move.ReStows,
		"created_at":   move.CreatedAt.Format(time.RFC3339Nano),
	}

	_, err := exec.NamedExecContext(ctx, query, row)
	if err != nil {
		msg := err.Error()
		switch {
		case strings.Contains(msg, "UNIQUE constraint failed: moves.id"):
			return NewStoreError("AppendMove", "move", move.ID, "move with this ID already exists", ErrDuplicateID)
		case strings.Contains(msg, "UNIQUE constraint failed: moves.plan_id, moves.seq"):
			return NewStoreError("AppendMove", "move", move.ID, fmt.Sprintf("sequence %d already recorded", move.Seq), ErrDuplicateSeq)
		case strings.Contains(msg, "FOREIGN KEY constraint failed"):
			return NewStoreError("AppendMove", "move", move.ID, "plan "+move.PlanID+" does not exist", ErrForeignKey)
		}
		return NewStoreError("AppendMove", "move", move.ID, msg, err)
	}

	return nil
}

func listMoves(ctx context.Context, exec executor, planID string, opts ListOptions) ([]Move, error) {
	opts = opts.Normalize()
	query := `SELECT * FROM moves WHERE plan_id = ? ORDER BY seq ASC LIMIT ? OFFSET ?`

	var rows []moveRow
	if err := exec.SelectContext(ctx, &rows, query, planID, opts.Limit, opts.Offset); err != nil {
		return nil, NewStoreError("ListMoves", "move", "", err.Error(), err)
	}
	return rowsToMoves(rows), nil
}

func listAcceptedMoves(ctx context.Context, exec executor, planID string) ([]Move, error) {
	query := `SELECT * FROM moves WHERE plan_id = ? AND accepted = 1 ORDER BY seq ASC`

	var rows []moveRow
	if err := exec.SelectContext(ctx, &rows, query, planID); err != nil {
		return nil, NewStoreError("ListAcceptedMoves", "move", "", err.Error(), err)
	}
	return rowsToMoves(rows), nil
}

func countMoves(ctx context.Context, exec executor, planID string) (int, error) {
	var n int
	if err := exec.GetContext(ctx, &n, `SELECT COUNT(*) FROM moves WHERE plan_id = ?`, planID); err != nil {
		return 0, NewStoreError("CountMoves", "move", "", err.Error(), err)
	}
	return n, nil
}

func deleteMove(ctx context.Context, exec executor, planID string, seq int) error {
	id := fmt.Sprintf("%s#%d", planID, seq)
	result, err := exec.ExecContext(ctx, `DELETE FROM moves WHERE plan_id = ? AND seq = ?`, planID, seq)
	if err != nil {
		return NewStoreError("DeleteMove", "move", id, err.Error(), err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return NewStoreError("DeleteMove", "move", id, err.Error(), err)
	}
	if rows == 0 {
		return NewStoreError("DeleteMove", "move", id, "move not found", ErrNotFound)
	}

	return nil
}

func rowsToMoves(rows []moveRow) []Move {
	moves := make([]Move, 0, len(rows))
	for _, row := range rows {
		createdAt, _ := time.Parse(time.RFC3339Nano, row.CreatedAt)
		moves = append(moves, Move{
			ID:          row.ID,
			PlanID:      row.PlanID,
			Seq:         row.Seq,
			ContainerID: row.ContainerID,
			FromCode:    row.FromCode,
			ToBay:       row.ToBay,
			ToRow:       row.ToRow,
			ToTier:      row.ToTier,
			ToCode:      row.ToCode,
			Accepted:    row.Accepted,
			Reason:      row.Reason,
			Message:     row.Message,
			ReStows:     row.ReStows,
			CreatedAt:   createdAt,
		})
	}
	return moves
}
