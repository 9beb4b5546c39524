package bids

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/paintbid/paintbid/internal/estimate"
)

// Store manages bid persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the bid database and applies migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path reports the database file location for diagnostics.
func (s *Store) Path() string {
	return s.path
}

// Save writes the bid header and one row per item as a single transaction.
// The persisted estimated cost is recomputed from the items at this moment;
// on any failure nothing is committed and a PersistenceError is returned.
func (s *Store) Save(ctx context.Context, draft Draft) (*Bid, error) {
	if err := validateDraft(&draft); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	bid := Bid{
		ID:          uuid.NewString(),
		UserID:      draft.UserID,
		ClientID:    draft.ClientID,
		ProjectName: strings.TrimSpace(draft.ProjectName),
		Address:     strings.TrimSpace(draft.Address),
		Dimensions:  draft.Dimensions,
		Status:      draft.Status,
		CreatedAt:   now,
	}
	for _, item := range draft.Items {
		normalized := item.Normalize()
		bid.Items = append(bid.Items, normalized)
		bid.EstimatedCost += normalized.Total
	}
	if bid.Dimensions != nil {
		bid.TotalSqFt = bid.Dimensions.WallArea()
	}

	var dimensionsJSON sql.NullString
	if bid.Dimensions != nil {
		encoded, err := json.Marshal(bid.Dimensions)
		if err != nil {
			return nil, &PersistenceError{Op: "encode dimensions", Err: err}
		}
		dimensionsJSON = sql.NullString{String: string(encoded), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &PersistenceError{Op: "begin", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO bids (
            id, user_id, client_id, project_name, address,
            dimensions_json, total_sq_ft, estimated_cost, status, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bid.ID,
		bid.UserID,
		nullableString(bid.ClientID),
		bid.ProjectName,
		bid.Address,
		dimensionsJSON,
		bid.TotalSqFt,
		bid.EstimatedCost,
		string(bid.Status),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, &PersistenceError{Op: "insert bid", Err: err}
	}

	for position, item := range bid.Items {
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO bid_items (id, bid_id, position, description, quantity, unit_price)
             VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.NewString(),
			bid.ID,
			position,
			item.Description,
			item.Quantity,
			item.UnitPrice,
		)
		if err != nil {
			return nil, &PersistenceError{Op: fmt.Sprintf("insert item %d", position), Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, &PersistenceError{Op: "commit", Err: err}
	}

	return &bid, nil
}

// Get loads one bid header with its ordered items.
func (s *Store) Get(ctx context.Context, id string) (*Bid, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, user_id, client_id, project_name, address,
                dimensions_json, total_sq_ft, estimated_cost, status, created_at
         FROM bids WHERE id = ?`,
		id,
	)
	bid, err := scanBid(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load bid %s: %w", id, err)
	}

	items, err := s.loadItems(ctx, bid.ID)
	if err != nil {
		return nil, err
	}
	bid.Items = items
	return bid, nil
}

// ListByUser returns a user's bids, newest first, with items attached.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]*Bid, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, user_id, client_id, project_name, address,
                dimensions_json, total_sq_ft, estimated_cost, status, created_at
         FROM bids WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list bids for %s: %w", userID, err)
	}
	defer rows.Close()

	var result []*Bid
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bid: %w", err)
		}
		result = append(result, bid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bids: %w", err)
	}

	for _, bid := range result {
		items, err := s.loadItems(ctx, bid.ID)
		if err != nil {
			return nil, err
		}
		bid.Items = items
	}
	return result, nil
}

func (s *Store) loadItems(ctx context.Context, bidID string) ([]estimate.LineItem, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT description, quantity, unit_price, total
         FROM bid_items WHERE bid_id = ? ORDER BY position`,
		bidID,
	)
	if err != nil {
		return nil, fmt.Errorf("load items for %s: %w", bidID, err)
	}
	defer rows.Close()

	var items []estimate.LineItem
	for rows.Next() {
		var item estimate.LineItem
		if err := rows.Scan(&item.Description, &item.Quantity, &item.UnitPrice, &item.Total); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBid(row rowScanner) (*Bid, error) {
	var (
		bid            Bid
		clientID       sql.NullString
		dimensionsJSON sql.NullString
		status         string
		createdAt      string
	)
	err := row.Scan(
		&bid.ID,
		&bid.UserID,
		&clientID,
		&bid.ProjectName,
		&bid.Address,
		&dimensionsJSON,
		&bid.TotalSqFt,
		&bid.EstimatedCost,
		&status,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	bid.ClientID = clientID.String
	bid.Status = Status(status)
	if parsed, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
		bid.CreatedAt = parsed
	}
	if dimensionsJSON.Valid {
		var dims estimate.Dimensions
		if unmarshalErr := json.Unmarshal([]byte(dimensionsJSON.String), &dims); unmarshalErr == nil {
			bid.Dimensions = &dims
		}
	}
	return &bid, nil
}

// validateDraft enforces header and item requirements and defaults the
// status. The schema repeats the item constraints so a bad row can never
// leave a partial bid behind even if a caller bypasses Save.
func validateDraft(draft *Draft) error {
	if strings.TrimSpace(draft.UserID) == "" {
		return &estimate.ValidationError{Field: "user_id", Reason: "must not be empty"}
	}
	if strings.TrimSpace(draft.ProjectName) == "" {
		return &estimate.ValidationError{Field: "project_name", Reason: "must not be empty"}
	}
	if draft.Status == "" {
		draft.Status = StatusGenerated
	}
	if !draft.Status.Valid() {
		return &estimate.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", draft.Status)}
	}
	if draft.Dimensions != nil {
		if err := draft.Dimensions.Validate(); err != nil {
			return err
		}
	}
	for i, item := range draft.Items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}
