package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"recurring/internal/core"
	"recurring/internal/log"
)

const templateColumns = `id, user_id, name, amount, direction, category_id, account_id, note,
	rule_unit, rule_interval, start_date, end_date, active, created_at, updated_at`

func (r *SQLiteRepository) CreateTemplate(ctx context.Context, t core.Template) error {
	created := t.CreatedAt
	if created.IsZero() {
		created = r.now()
	}
	updated := t.UpdatedAt
	if updated.IsZero() {
		updated = created
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO templates (`+templateColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Name, t.Amount.String(), string(t.Direction), t.CategoryID, t.AccountID, t.Note,
		string(t.Rule.Unit), t.Rule.Interval, t.StartDate.String(), nullDate(t.EndDate), boolToInt(t.Active),
		created.UTC().Format(timestampLayout), updated.UTC().Format(timestampLayout))
	if err != nil {
		return fmt.Errorf("create template: %w", err)
	}

	r.logger.InfoContext(ctx, "Template saved to SQLite",
		log.FieldTemplateID, t.ID,
		log.FieldUserID, t.UserID,
		log.FieldRule, t.Rule.String())
	return nil
}

func (r *SQLiteRepository) GetTemplate(ctx context.Context, id string) (core.Template, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM templates WHERE id = ?`, id)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Template{}, fmt.Errorf("%w: %s", core.ErrTemplateNotFound, id)
	}
	if err != nil {
		return core.Template{}, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

// ListActiveTemplates returns the user's active templates, oldest first.
func (r *SQLiteRepository) ListActiveTemplates(ctx context.Context, userID string) ([]core.Template, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+templateColumns+` FROM templates
		WHERE user_id = ? AND active = 1
		ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list active templates: %w", err)
	}
	defer rows.Close()

	var templates []core.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}
	return templates, nil
}

func (r *SQLiteRepository) ListActiveUsers(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM templates WHERE active = 1 ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list active users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// UpdateTemplateFields rewrites the template-owned fields. An empty AccountID
// keeps the stored account, matching UpdateFutureUnmodified.
func (r *SQLiteRepository) UpdateTemplateFields(ctx context.Context, id string, f core.FieldValues) error {
	res, err := r.db.ExecContext(ctx, `UPDATE templates
		SET name = ?, amount = ?, direction = ?, category_id = ?,
			account_id = CASE WHEN ? = '' THEN account_id ELSE ? END,
			note = ?, updated_at = ?
		WHERE id = ?`,
		f.Name, f.Amount.String(), string(f.Direction), f.CategoryID,
		f.AccountID, f.AccountID,
		f.Note, r.timestamp(), id)
	if err != nil {
		return fmt.Errorf("update template fields: %w", err)
	}
	return templateAffected(res, id)
}

func (r *SQLiteRepository) SetTemplateActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE templates SET active = ?, updated_at = ? WHERE id = ?`,
		boolToInt(active), r.timestamp(), id)
	if err != nil {
		return fmt.Errorf("set template active: %w", err)
	}
	return templateAffected(res, id)
}

func (r *SQLiteRepository) UpdateTemplateSchedule(ctx context.Context, id string, rule core.Rule, start, end core.Date) error {
	res, err := r.db.ExecContext(ctx, `UPDATE templates
		SET rule_unit = ?, rule_interval = ?, start_date = ?, end_date = ?, updated_at = ?
		WHERE id = ?`,
		string(rule.Unit), rule.Interval, start.String(), nullDate(end), r.timestamp(), id)
	if err != nil {
		return fmt.Errorf("update template schedule: %w", err)
	}
	return templateAffected(res, id)
}

func templateAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", core.ErrTemplateNotFound, id)
	}
	return nil
}

func scanTemplate(s rowScanner) (core.Template, error) {
	var (
		t                    core.Template
		amount, direction    string
		unit, start, created string
		updated              string
		end                  sql.NullString
		active               int
	)
	err := s.Scan(&t.ID, &t.UserID, &t.Name, &amount, &direction, &t.CategoryID, &t.AccountID, &t.Note,
		&unit, &t.Rule.Interval, &start, &end, &active, &created, &updated)
	if err != nil {
		return core.Template{}, err
	}

	t.Direction = core.Direction(direction)
	t.Rule.Unit = core.Unit(unit)
	t.Active = active != 0
	if t.Amount, err = parseMoney(amount); err != nil {
		return core.Template{}, err
	}
	if t.StartDate, err = parseDate(start); err != nil {
		return core.Template{}, err
	}
	if t.EndDate, err = parseNullDate(end); err != nil {
		return core.Template{}, err
	}
	if t.CreatedAt, err = parseTimestamp(created); err != nil {
		return core.Template{}, err
	}
	if t.UpdatedAt, err = parseTimestamp(updated); err != nil {
		return core.Template{}, err
	}
	return t, nil
}
