package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/domain"
)

var _ domain.HabitEntryRepository = (*PostgresEntryRepository)(nil)

var ErrEntryReference = errors.New("referenced habit or user does not exist")

const entryColumns = `
	id, habit_id, user_id,
	completion_date, local_date, value, notes,
	version, created_at, updated_at, deleted_at`

type PostgresEntryRepository struct {
	db *sqlx.DB
}

func NewPostgresEntryRepository(db *sqlx.DB) *PostgresEntryRepository {
	return &PostgresEntryRepository{db: db}
}

func (r *PostgresEntryRepository) Create(ctx context.Context, entry *domain.HabitEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	query := `
		INSERT INTO habit_entries (` + entryColumns + `
		) VALUES (
			:id, :habit_id, :user_id,
			:completion_date, :local_date, :value, :notes,
			:version, :created_at, :updated_at, :deleted_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, entry)
	if err != nil {
		switch pgCode(err) {
		case pgForeignKeyViolation:
			return ErrEntryReference
		case pgUniqueViolation:
			return domain.ErrEntryConflict
		}
		return err
	}
	return nil
}

func (r *PostgresEntryRepository) GetByID(ctx context.Context, id string) (*domain.HabitEntry, error) {
	var entry domain.HabitEntry
	query := `SELECT ` + entryColumns + ` FROM habit_entries WHERE id = $1 AND deleted_at IS NULL`

	err := r.db.GetContext(ctx, &entry, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (r *PostgresEntryRepository) selectEntries(ctx context.Context, query string, args ...interface{}) ([]*domain.HabitEntry, error) {
	entries := []*domain.HabitEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, err
	}
	return entries, nil
}

// ListByHabitID returns the full live history of a habit, oldest first.
func (r *PostgresEntryRepository) ListByHabitID(ctx context.Context, habitID string) ([]*domain.HabitEntry, error) {
	return r.selectEntries(ctx, `
		SELECT `+entryColumns+` FROM habit_entries
		WHERE habit_id = $1 AND deleted_at IS NULL
		ORDER BY completion_date ASC`, habitID)
}

func (r *PostgresEntryRepository) ListByHabitIDWithRange(ctx context.Context, habitID string, from, to time.Time) ([]*domain.HabitEntry, error) {
	return r.selectEntries(ctx, `
		SELECT `+entryColumns+` FROM habit_entries
		WHERE habit_id = $1
		  AND completion_date >= $2
		  AND completion_date <= $3
		  AND deleted_at IS NULL
		ORDER BY completion_date DESC`, habitID, from, to)
}

func (r *PostgresEntryRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.HabitEntry, error) {
	return r.selectEntries(ctx, `
		SELECT `+entryColumns+` FROM habit_entries
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY completion_date ASC`, userID)
}

func (r *PostgresEntryRepository) ListByUserIDAndDateRange(ctx context.Context, userID string, from, to time.Time) ([]*domain.HabitEntry, error) {
	return r.selectEntries(ctx, `
		SELECT `+entryColumns+` FROM habit_entries
		WHERE user_id = $1
		  AND completion_date >= $2
		  AND completion_date <= $3
		  AND deleted_at IS NULL
		ORDER BY completion_date ASC`, userID, from, to)
}

func (r *PostgresEntryRepository) ListByUserIDAndLocalDateRange(ctx context.Context, userID string, first, last string) ([]*domain.HabitEntry, error) {
	return r.selectEntries(ctx, `
		SELECT `+entryColumns+` FROM habit_entries
		WHERE user_id = $1
		  AND local_date <> ''
		  AND local_date >= $2
		  AND local_date <= $3
		  AND deleted_at IS NULL
		ORDER BY local_date ASC, completion_date ASC`, userID, first, last)
}

// Update writes entry as the next version of the stored row. The caller has
// already advanced entry.Version past the version it read.
func (r *PostgresEntryRepository) Update(ctx context.Context, entry *domain.HabitEntry) error {
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now().UTC()
	}

	query := `
		UPDATE habit_entries
		SET value = :value,
		    notes = :notes,
		    completion_date = :completion_date,
		    local_date = :local_date,
		    version = :version,
		    updated_at = :updated_at
		WHERE id = :id
		  AND version = :version - 1
		  AND deleted_at IS NULL`

	result, err := r.db.NamedExecContext(ctx, query, entry)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		exists, err := r.exists(ctx, entry.ID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrEntryNotFound
		}
		return domain.ErrEntryConflict
	}

	return nil
}

func (r *PostgresEntryRepository) Delete(ctx context.Context, id string, userID string) error {
	now := time.Now().UTC()

	query := `
		UPDATE habit_entries
		SET deleted_at = $1,
		    updated_at = $1,
		    version = version + 1
		WHERE id = $2
		  AND user_id = $3
		  AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, now, id, userID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrEntryNotFound
	}

	return nil
}

func (r *PostgresEntryRepository) GetChanges(ctx context.Context, userID string, since time.Time) ([]*domain.HabitEntry, error) {
	return r.selectEntries(ctx, `
		SELECT `+entryColumns+` FROM habit_entries
		WHERE user_id = $1
		  AND updated_at > $2
		ORDER BY updated_at ASC`, userID, since)
}

func (r *PostgresEntryRepository) exists(ctx context.Context, id string) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, "SELECT count(*) FROM habit_entries WHERE id = $1 AND deleted_at IS NULL", id)
	return count > 0, err
}
