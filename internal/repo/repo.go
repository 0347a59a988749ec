package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"hourglass/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// users

func (r Repo) InsertUser(ctx context.Context, tx *sql.Tx, u domain.User) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO users(name,email,password_hash,created_at) VALUES (?,?,?,?)`,
		u.Name, u.Email, u.PasswordHash, u.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetUser(ctx context.Context, id int64) (domain.User, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT id,name,email,password_hash,created_at FROM users WHERE id=?`, id)
	return scanUser(row)
}

func (r Repo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT id,name,email,password_hash,created_at FROM users WHERE email=?`, email)
	return scanUser(row)
}

func scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// categories

func (r Repo) InsertCategory(ctx context.Context, tx *sql.Tx, c domain.Category) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO categories(owner_id,name,created_at) VALUES (?,?,?)`,
		c.OwnerID, c.Name, c.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetCategory(ctx context.Context, ownerID, id int64) (domain.Category, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT id,owner_id,name,created_at FROM categories WHERE id=? AND owner_id=?`, id, ownerID)
	var c domain.Category
	err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.Category{}, ErrNotFound
	}
	if err != nil {
		return domain.Category{}, err
	}
	return c, nil
}

func (r Repo) GetCategoryByName(ctx context.Context, ownerID int64, name string) (domain.Category, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT id,owner_id,name,created_at FROM categories WHERE owner_id=? AND name=?`, ownerID, name)
	var c domain.Category
	err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.Category{}, ErrNotFound
	}
	if err != nil {
		return domain.Category{}, err
	}
	return c, nil
}

func (r Repo) ListCategories(ctx context.Context, ownerID int64) ([]domain.Category, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,owner_id,name,created_at FROM categories WHERE owner_id=? ORDER BY name ASC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// CategoryInUse reports whether any activity or goal still references the category.
func (r Repo) CategoryInUse(ctx context.Context, id int64) (bool, error) {
	var n int
	row := r.DB.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(1) FROM activities WHERE category_id=?) +
		(SELECT COUNT(1) FROM goals WHERE category_id=?)`, id, id)
	if err := row.Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r Repo) DeleteCategory(ctx context.Context, tx *sql.Tx, ownerID, id int64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id=? AND owner_id=?`, id, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// activities

func (r Repo) InsertActivity(ctx context.Context, tx *sql.Tx, a domain.Activity) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO activities(owner_id,category_id,date,duration_hours,created_at,updated_at) VALUES (?,?,?,?,?,?)`,
		a.OwnerID, a.CategoryID, a.Date, a.DurationHours, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) UpdateActivity(ctx context.Context, tx *sql.Tx, a domain.Activity) error {
	res, err := tx.ExecContext(ctx, `UPDATE activities SET category_id=?, date=?, duration_hours=?, updated_at=? WHERE id=? AND owner_id=?`,
		a.CategoryID, a.Date, a.DurationHours, a.UpdatedAt, a.ID, a.OwnerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteActivity(ctx context.Context, tx *sql.Tx, ownerID, id int64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM activities WHERE id=? AND owner_id=?`, id, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const activitySelect = `SELECT a.id,a.owner_id,a.category_id,c.name,a.date,a.duration_hours,a.created_at,a.updated_at
	FROM activities a JOIN categories c ON c.id=a.category_id `

func (r Repo) GetActivity(ctx context.Context, ownerID, id int64) (domain.Activity, error) {
	row := r.DB.QueryRowContext(ctx, activitySelect+`WHERE a.id=? AND a.owner_id=?`, id, ownerID)
	var a domain.Activity
	err := row.Scan(&a.ID, &a.OwnerID, &a.CategoryID, &a.CategoryName, &a.Date, &a.DurationHours, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return domain.Activity{}, ErrNotFound
	}
	if err != nil {
		return domain.Activity{}, err
	}
	return a, nil
}

type ActivityFilters struct {
	OwnerID         int64
	From            string
	To              string
	CategoryID      int64
	Limit           int
	CursorCreatedAt string
	CursorID        int64
}

func (r Repo) ListActivities(ctx context.Context, f ActivityFilters) ([]domain.Activity, error) {
	clauses := []string{"a.owner_id=?"}
	args := []any{f.OwnerID}
	if f.From != "" {
		clauses = append(clauses, "a.date>=?")
		args = append(args, f.From)
	}
	if f.To != "" {
		clauses = append(clauses, "a.date<=?")
		args = append(args, f.To)
	}
	if f.CategoryID > 0 {
		clauses = append(clauses, "a.category_id=?")
		args = append(args, f.CategoryID)
	}
	if f.CursorCreatedAt != "" && f.CursorID > 0 {
		clauses = append(clauses, "(a.created_at < ? OR (a.created_at = ? AND a.id < ?))")
		args = append(args, f.CursorCreatedAt, f.CursorCreatedAt, f.CursorID)
	}
	query := activitySelect + "WHERE " + strings.Join(clauses, " AND ") + ` ORDER BY a.created_at DESC, a.id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Activity
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.CategoryID, &a.CategoryName, &a.Date, &a.DurationHours, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// QueryActivities returns all activities for an owner whose date falls in
// [start,end] inclusive, oldest first. The analytics package reads through
// this method only.
func (r Repo) QueryActivities(ctx context.Context, ownerID int64, start, end time.Time, categoryID *int64) ([]domain.Activity, error) {
	clauses := []string{"a.owner_id=?", "a.date>=?", "a.date<=?"}
	args := []any{ownerID, start.Format(time.DateOnly), end.Format(time.DateOnly)}
	if categoryID != nil {
		clauses = append(clauses, "a.category_id=?")
		args = append(args, *categoryID)
	}
	query := activitySelect + "WHERE " + strings.Join(clauses, " AND ") + ` ORDER BY a.date ASC, a.id ASC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Activity
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.CategoryID, &a.CategoryName, &a.Date, &a.DurationHours, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// goals

const goalSelect = `SELECT g.id,g.owner_id,g.category_id,COALESCE(c.name,''),g.title,g.description,g.type,g.target_hours,g.start_date,g.end_date,g.created_at
	FROM goals g LEFT JOIN categories c ON c.id=g.category_id `

func (r Repo) InsertGoal(ctx context.Context, tx *sql.Tx, g domain.Goal) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO goals(owner_id,category_id,title,description,type,target_hours,start_date,end_date,created_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		g.OwnerID, nullableInt64Ptr(g.CategoryID), g.Title, nullable(g.Description), g.Type, g.TargetHours, g.StartDate, g.EndDate, g.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) UpdateGoal(ctx context.Context, tx *sql.Tx, g domain.Goal) error {
	res, err := tx.ExecContext(ctx, `UPDATE goals SET category_id=?, title=?, description=?, type=?, target_hours=?, start_date=?, end_date=? WHERE id=? AND owner_id=?`,
		nullableInt64Ptr(g.CategoryID), g.Title, nullable(g.Description), g.Type, g.TargetHours, g.StartDate, g.EndDate, g.ID, g.OwnerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteGoal(ctx context.Context, tx *sql.Tx, ownerID, id int64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM goals WHERE id=? AND owner_id=?`, id, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetGoal(ctx context.Context, ownerID, id int64) (domain.Goal, error) {
	row := r.DB.QueryRowContext(ctx, goalSelect+`WHERE g.id=? AND g.owner_id=?`, id, ownerID)
	return scanGoalRow(row)
}

func scanGoalRow(row *sql.Row) (domain.Goal, error) {
	var g domain.Goal
	var categoryID sql.NullInt64
	var description sql.NullString
	err := row.Scan(&g.ID, &g.OwnerID, &categoryID, &g.CategoryName, &g.Title, &description, &g.Type, &g.TargetHours, &g.StartDate, &g.EndDate, &g.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.Goal{}, ErrNotFound
	}
	if err != nil {
		return domain.Goal{}, err
	}
	if categoryID.Valid {
		g.CategoryID = &categoryID.Int64
	}
	if description.Valid {
		g.Description = description.String
	}
	return g, nil
}

func (r Repo) ListGoals(ctx context.Context, ownerID int64) ([]domain.Goal, error) {
	rows, err := r.DB.QueryContext(ctx, goalSelect+`WHERE g.owner_id=? ORDER BY g.created_at DESC, g.id DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Goal
	for rows.Next() {
		var g domain.Goal
		var categoryID sql.NullInt64
		var description sql.NullString
		if err := rows.Scan(&g.ID, &g.OwnerID, &categoryID, &g.CategoryName, &g.Title, &description, &g.Type, &g.TargetHours, &g.StartDate, &g.EndDate, &g.CreatedAt); err != nil {
			return nil, err
		}
		if categoryID.Valid {
			g.CategoryID = &categoryID.Int64
		}
		if description.Valid {
			g.Description = description.String
		}
		res = append(res, g)
	}
	return res, rows.Err()
}

// events

func (r Repo) LatestEvents(ctx context.Context, limit int, ownerID int64, evtType, entityKind string) ([]domain.Event, error) {
	return r.LatestEventsFrom(ctx, limit, 0, ownerID, evtType, entityKind)
}

func (r Repo) LatestEventsFrom(ctx context.Context, limit int, cursor, ownerID int64, evtType, entityKind string) ([]domain.Event, error) {
	clauses := []string{"owner_id=?"}
	args := []any{ownerID}
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	if entityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, entityKind)
	}
	if cursor > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, cursor)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,type,owner_id,entity_kind,entity_id,payload_json FROM events %s ORDER BY id DESC LIMIT ?`, where)
	args = append(args, limit)
	return r.queryEvents(ctx, query, args...)
}

// EventsAfter returns events with IDs greater than the cursor in ascending
// order. An ownerID of zero spans all owners; the webhook dispatcher relies
// on that.
func (r Repo) EventsAfter(ctx context.Context, limit int, cursor, ownerID int64) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	clauses := []string{"1=1"}
	var args []any
	if ownerID > 0 {
		clauses = append(clauses, "owner_id=?")
		args = append(args, ownerID)
	}
	if cursor > 0 {
		clauses = append(clauses, "id>?")
		args = append(args, cursor)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,type,owner_id,entity_kind,entity_id,payload_json FROM events %s ORDER BY id ASC LIMIT ?`, where)
	args = append(args, limit)
	return r.queryEvents(ctx, query, args...)
}

func (r Repo) queryEvents(ctx context.Context, query string, args ...any) ([]domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var entityID, payload sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.OwnerID, &e.EntityKind, &entityID, &payload); err != nil {
			return nil, err
		}
		if entityID.Valid {
			e.EntityID = entityID.String
		}
		if payload.Valid {
			e.Payload = payload.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// LatestEventID returns the most recent event ID, across all owners when
// ownerID is zero.
func (r Repo) LatestEventID(ctx context.Context, ownerID int64) (int64, error) {
	query := `SELECT COALESCE(MAX(id),0) FROM events`
	var args []any
	if ownerID > 0 {
		query += ` WHERE owner_id=?`
		args = append(args, ownerID)
	}
	row := r.DB.QueryRowContext(ctx, query, args...)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableInt64Ptr(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
