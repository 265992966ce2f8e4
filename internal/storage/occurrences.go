package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"recurring/internal/core"
	"recurring/internal/log"
)

const occurrenceColumns = `id, template_id, user_id, name, amount, direction, category_id, account_id, note,
	occurrence_date, modified, deleted_at, created_at, updated_at`

// LatestOccurrenceDate returns the most recent live occurrence date of a template.
func (r *SQLiteRepository) LatestOccurrenceDate(ctx context.Context, templateID string) (core.Date, bool, error) {
	var latest sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT MAX(occurrence_date) FROM occurrences
		WHERE template_id = ? AND deleted_at IS NULL`, templateID).Scan(&latest)
	if err != nil {
		return core.Date{}, false, fmt.Errorf("latest occurrence date: %w", err)
	}
	if !latest.Valid {
		return core.Date{}, false, nil
	}
	d, err := parseDate(latest.String)
	if err != nil {
		return core.Date{}, false, err
	}
	return d, true, nil
}

// OccurrenceExists counts tombstones too.
func (r *SQLiteRepository) OccurrenceExists(ctx context.Context, templateID string, date core.Date) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM occurrences
		WHERE template_id = ? AND occurrence_date = ?`, templateID, date.String()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("occurrence exists: %w", err)
	}
	return n > 0, nil
}

// InsertOccurrences writes the batch in one transaction. Rows whose
// (template_id, occurrence_date) slot is taken are skipped; the returned
// slice holds only the rows that were written.
func (r *SQLiteRepository) InsertOccurrences(ctx context.Context, batch []core.Occurrence) ([]core.Occurrence, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO occurrences (`+occurrenceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (template_id, occurrence_date) DO NOTHING`)
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := make([]core.Occurrence, 0, len(batch))
	for _, o := range batch {
		created := o.CreatedAt
		if created.IsZero() {
			created = r.now()
		}
		updated := o.UpdatedAt
		if updated.IsZero() {
			updated = created
		}

		res, err := stmt.ExecContext(ctx,
			o.ID, nullString(o.TemplateID), o.UserID, o.Name, o.Amount.String(), string(o.Direction),
			o.CategoryID, o.AccountID, o.Note, o.Date.String(), boolToInt(o.Modified), nil,
			created.UTC().Format(timestampLayout), updated.UTC().Format(timestampLayout))
		if err != nil {
			return nil, fmt.Errorf("insert occurrence %s: %w", o.Date, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("rows affected: %w", err)
		}
		if n > 0 {
			inserted = append(inserted, o)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	r.logger.InfoContext(ctx, "Occurrences saved to SQLite",
		log.FieldInserted, len(inserted),
		log.FieldSkipped, len(batch)-len(inserted))
	return inserted, nil
}

// UpdateFutureUnmodified rewrites live, unmodified rows dated on or after from.
// An empty AccountID keeps each row's account.
func (r *SQLiteRepository) UpdateFutureUnmodified(ctx context.Context, templateID string, from core.Date, f core.FieldValues) (int, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE occurrences
		SET name = ?, amount = ?, direction = ?, category_id = ?,
			account_id = CASE WHEN ? = '' THEN account_id ELSE ? END,
			note = ?, updated_at = ?
		WHERE template_id = ? AND occurrence_date >= ? AND modified = 0 AND deleted_at IS NULL`,
		f.Name, f.Amount.String(), string(f.Direction), f.CategoryID,
		f.AccountID, f.AccountID,
		f.Note, r.timestamp(),
		templateID, from.String())
	if err != nil {
		return 0, fmt.Errorf("update future occurrences: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

func (r *SQLiteRepository) SoftDeleteFrom(ctx context.Context, templateID string, from core.Date) (int, error) {
	ts := r.timestamp()
	res, err := r.db.ExecContext(ctx, `UPDATE occurrences SET deleted_at = ?, updated_at = ?
		WHERE template_id = ? AND occurrence_date >= ? AND deleted_at IS NULL`,
		ts, ts, templateID, from.String())
	if err != nil {
		return 0, fmt.Errorf("soft delete occurrences: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	r.logger.InfoContext(ctx, "Occurrences soft-deleted",
		log.FieldTemplateID, templateID,
		log.FieldFromDate, from.String(),
		log.FieldDeleted, n)
	return int(n), nil
}

// GetOccurrence returns the row even when it is soft-deleted.
func (r *SQLiteRepository) GetOccurrence(ctx context.Context, id string) (core.Occurrence, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+occurrenceColumns+` FROM occurrences WHERE id = ?`, id)
	o, err := scanOccurrence(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Occurrence{}, fmt.Errorf("%w: %s", core.ErrOccurrenceNotFound, id)
	}
	if err != nil {
		return core.Occurrence{}, fmt.Errorf("get occurrence: %w", err)
	}
	return o, nil
}

// UpdateOccurrence rewrites a live row and marks it modified.
func (r *SQLiteRepository) UpdateOccurrence(ctx context.Context, id string, f core.FieldValues) error {
	res, err := r.db.ExecContext(ctx, `UPDATE occurrences
		SET name = ?, amount = ?, direction = ?, category_id = ?, account_id = ?, note = ?,
			modified = 1, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		f.Name, f.Amount.String(), string(f.Direction), f.CategoryID, f.AccountID, f.Note, r.timestamp(), id)
	if err != nil {
		return fmt.Errorf("update occurrence: %w", err)
	}
	return occurrenceAffected(res, id)
}

func (r *SQLiteRepository) SoftDeleteOccurrence(ctx context.Context, id string) error {
	ts := r.timestamp()
	res, err := r.db.ExecContext(ctx, `UPDATE occurrences SET deleted_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`, ts, ts, id)
	if err != nil {
		return fmt.Errorf("soft delete occurrence: %w", err)
	}
	return occurrenceAffected(res, id)
}

// ListOccurrences returns the user's live occurrences between from and to,
// inclusive, ordered by date. A zero bound is open.
func (r *SQLiteRepository) ListOccurrences(ctx context.Context, userID string, from, to core.Date) ([]core.Occurrence, error) {
	upper := to.String()
	if to.IsEmpty() {
		upper = "9999-12-31"
	}

	rows, err := r.db.QueryContext(ctx, `SELECT `+occurrenceColumns+` FROM occurrences
		WHERE user_id = ? AND occurrence_date >= ? AND occurrence_date <= ? AND deleted_at IS NULL
		ORDER BY occurrence_date, name, id`, userID, from.String(), upper)
	if err != nil {
		return nil, fmt.Errorf("list occurrences: %w", err)
	}
	defer rows.Close()

	var out []core.Occurrence
	for rows.Next() {
		o, err := scanOccurrence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan occurrence: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate occurrences: %w", err)
	}
	return out, nil
}

func occurrenceAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", core.ErrOccurrenceNotFound, id)
	}
	return nil
}

func scanOccurrence(s rowScanner) (core.Occurrence, error) {
	var (
		o                       core.Occurrence
		templateID, deletedAt   sql.NullString
		amount, direction, date string
		created, updated        string
		modified                int
	)
	err := s.Scan(&o.ID, &templateID, &o.UserID, &o.Name, &amount, &direction, &o.CategoryID, &o.AccountID,
		&o.Note, &date, &modified, &deletedAt, &created, &updated)
	if err != nil {
		return core.Occurrence{}, err
	}

	o.TemplateID = templateID.String
	o.Direction = core.Direction(direction)
	o.Modified = modified != 0
	if o.Amount, err = parseMoney(amount); err != nil {
		return core.Occurrence{}, err
	}
	if o.Date, err = parseDate(date); err != nil {
		return core.Occurrence{}, err
	}
	if deletedAt.Valid {
		ts, err := parseTimestamp(deletedAt.String)
		if err != nil {
			return core.Occurrence{}, err
		}
		o.DeletedAt = &ts
	}
	if o.CreatedAt, err = parseTimestamp(created); err != nil {
		return core.Occurrence{}, err
	}
	if o.UpdatedAt, err = parseTimestamp(updated); err != nil {
		return core.Occurrence{}, err
	}
	return o, nil
}
