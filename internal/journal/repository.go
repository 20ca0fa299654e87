package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/track-alarm-bridge/internal/pipeline"
)

// Page size bounds for List.
const (
	defaultLimit = 50
	maxLimit     = 200
)

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Outcome is the recorded result of a delivery attempt.
type Outcome string

const (
	OutcomeDelivered      Outcome = Outcome(pipeline.StageDelivered)
	OutcomeDeliveryFailed Outcome = Outcome(pipeline.StageDeliveryFailed)
)

// Entry is one row of the delivery journal.
type Entry struct {
	ID           string    `json:"id"`
	EventID      string    `json:"event_id"`
	CameraID     string    `json:"camera_id"`
	Type         string    `json:"type"`
	Score        float64   `json:"score"`
	ImagePresent bool      `json:"image_present"`
	Outcome      Outcome   `json:"outcome"`
	StatusCode   int       `json:"status_code,omitempty"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Filter controls which entries List returns.
type Filter struct {
	Outcome Outcome // optional: delivered or delivery_failed
	Limit   int     // default 50, max 200
	Offset  int
}

// ListResult is one page of journal entries.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository defines the journal operations.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores journal entries in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a journal repository on an open, migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts an entry. ID and CreatedAt are generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, entry *Entry) error {
	if !entry.Outcome.valid() {
		return fmt.Errorf("%w: %q", ErrInvalidOutcome, entry.Outcome)
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO delivery_journal
		 (id, event_id, camera_id, type, score, image_present, outcome, status_code, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.EventID, entry.CameraID, entry.Type, entry.Score,
		boolToInt(entry.ImagePresent), string(entry.Outcome),
		nullableInt(entry.StatusCode), nullableString(entry.Error),
		entry.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting journal entry: %w", err)
	}
	return nil
}

// Observe records a pipeline result. Results that never reached delivery
// are ignored, so the journal can be registered as a pipeline observer.
func (r *SQLiteRepository) Observe(ctx context.Context, res pipeline.Result) error {
	if !res.Attempted() {
		return nil
	}
	entry := entryFromResult(res)
	return r.Create(ctx, &entry)
}

// List returns entries matching the filter, newest first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.Outcome != "" && !filter.Outcome.valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOutcome, filter.Outcome)
	}

	where := ""
	var args []any
	if filter.Outcome != "" {
		where = "WHERE outcome = ?"
		args = append(args, string(filter.Outcome))
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM delivery_journal " + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting journal entries: %w", err)
	}

	query := "SELECT id, event_id, camera_id, type, score, image_present, outcome, status_code, error, created_at " +
		"FROM delivery_journal " + where + " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying journal entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var imagePresent int
		var outcome, createdAt string
		var statusCode sql.NullInt64
		var errText sql.NullString

		if err := rows.Scan(&e.ID, &e.EventID, &e.CameraID, &e.Type, &e.Score,
			&imagePresent, &outcome, &statusCode, &errText, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning journal entry: %w", err)
		}

		e.ImagePresent = imagePresent != 0
		e.Outcome = Outcome(outcome)
		e.StatusCode = int(statusCode.Int64)
		e.Error = errText.String

		t, err := time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing journal timestamp %q: %w", createdAt, err)
		}
		e.CreatedAt = t

		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal entries: %w", err)
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}

// entryFromResult maps a delivery attempt to a journal entry.
func entryFromResult(res pipeline.Result) Entry {
	e := Entry{
		EventID:      res.EventID,
		CameraID:     res.CameraID,
		Type:         res.Record.Type,
		Score:        res.Record.Score,
		ImagePresent: res.Record.HasImage(),
		Outcome:      Outcome(res.Stage),
		StatusCode:   res.StatusCode,
		CreatedAt:    res.ReceivedAt.UTC(),
	}
	if res.Err != nil {
		e.Error = res.Err.Error()
	}
	return e
}

func (o Outcome) valid() bool {
	return o == OutcomeDelivered || o == OutcomeDeliveryFailed
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// nullableString returns nil for empty strings so the column stores NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}
