package repo

import (
	"context"
	"database/sql"
	"errors"

	"rotaline/internal/domain"
)

// EnsureActivity inserts an activity by name if it is missing and returns its id.
func (r Repo) EnsureActivity(ctx context.Context, tx *sql.Tx, a domain.RotaActivity) (int64, error) {
	db := r.conn(tx)
	if _, err := db.ExecContext(ctx, `INSERT INTO rota_activities(name, description) VALUES (?,?)
ON CONFLICT(name) DO UPDATE SET description=COALESCE(excluded.description, rota_activities.description)`, a.Name, nullable(a.Description)); err != nil {
		return 0, err
	}
	var id int64
	err := db.QueryRowContext(ctx, `SELECT id FROM rota_activities WHERE name=?`, a.Name).Scan(&id)
	return id, err
}

func (r Repo) GetActivity(ctx context.Context, tx *sql.Tx, id int64) (domain.RotaActivity, error) {
	var a domain.RotaActivity
	err := r.conn(tx).QueryRowContext(ctx, `SELECT id,name,COALESCE(description,'') FROM rota_activities WHERE id=?`, id).
		Scan(&a.ID, &a.Name, &a.Description)
	if err != nil {
		return domain.RotaActivity{}, notFound(err)
	}
	return a, nil
}

func (r Repo) ListActivities(ctx context.Context) ([]domain.RotaActivity, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,COALESCE(description,'') FROM rota_activities ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.RotaActivity
	for rows.Next() {
		var a domain.RotaActivity
		if err := rows.Scan(&a.ID, &a.Name, &a.Description); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// GetRotaItem returns the single rota item for (person, date). More than one row is
// reported as ErrNotUnique.
func (r Repo) GetRotaItem(ctx context.Context, tx *sql.Tx, personID int64, workDate string) (domain.RotaItem, error) {
	rows, err := r.conn(tx).QueryContext(ctx, `SELECT id,work_date,person_id,activity_id,author_id,updated_at FROM rota_items WHERE person_id=? AND work_date=? LIMIT 2`, personID, workDate)
	if err != nil {
		return domain.RotaItem{}, err
	}
	defer rows.Close()
	var items []domain.RotaItem
	for rows.Next() {
		var it domain.RotaItem
		var author sql.NullInt64
		if err := rows.Scan(&it.ID, &it.WorkDate, &it.PersonID, &it.ActivityID, &author, &it.UpdatedAt); err != nil {
			return domain.RotaItem{}, err
		}
		if author.Valid {
			it.AuthorID = &author.Int64
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return domain.RotaItem{}, err
	}
	switch len(items) {
	case 0:
		return domain.RotaItem{}, ErrNotFound
	case 1:
		return items[0], nil
	default:
		return domain.RotaItem{}, ErrNotUnique
	}
}

// UpsertRotaItem writes the item, overwriting activity and author when (person, date) exists.
func (r Repo) UpsertRotaItem(ctx context.Context, tx *sql.Tx, it domain.RotaItem) error {
	_, err := r.conn(tx).ExecContext(ctx, `INSERT INTO rota_items(id,work_date,person_id,activity_id,author_id,updated_at) VALUES (?,?,?,?,?,?)
ON CONFLICT(person_id, work_date) DO UPDATE SET activity_id=excluded.activity_id, author_id=excluded.author_id, updated_at=excluded.updated_at`,
		it.ID, it.WorkDate, it.PersonID, it.ActivityID, nullableInt64(it.AuthorID), it.UpdatedAt)
	return err
}

func (r Repo) CountRotaItems(ctx context.Context, personID int64, workDate string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM rota_items WHERE person_id=? AND work_date=?`, personID, workDate).Scan(&n)
	return n, err
}

// ScheduledActivityName resolves the activity label for (person, date).
func (r Repo) ScheduledActivityName(ctx context.Context, personID int64, workDate string) (string, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT a.name FROM rota_items ri
JOIN rota_activities a ON a.id=ri.activity_id
WHERE ri.person_id=? AND ri.work_date=? LIMIT 2`, personID, workDate)
	if err != nil {
		return "", err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return "", err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(names) {
	case 0:
		return "", ErrNotFound
	case 1:
		return names[0], nil
	default:
		return "", ErrNotUnique
	}
}

// InsertEngineeringDay stores an engineering day with its WIP and work item references.
func (r Repo) InsertEngineeringDay(ctx context.Context, tx *sql.Tx, d domain.EngineeringDay) (int64, error) {
	if d.ResourceID == 0 || d.WorkDate == "" {
		return 0, errors.New("resource and work_date required")
	}
	db := r.conn(tx)
	res, err := db.ExecContext(ctx, `INSERT INTO engineering_days(work_date,resource_id,day_type,created_at) VALUES (?,?,?,?)`,
		d.WorkDate, d.ResourceID, d.DayType, d.CreatedAt)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	insertItems := func(kind string, refs []string) error {
		for _, ref := range refs {
			if _, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO engineering_day_items(engineering_day_id,kind,reference) VALUES (?,?,?)`, id, kind, ref); err != nil {
				return err
			}
		}
		return nil
	}
	if err := insertItems("wip", d.WIPItems); err != nil {
		return 0, err
	}
	if err := insertItems("work", d.WorkItems); err != nil {
		return 0, err
	}
	return id, nil
}

// ListEngineeringDays returns the engineering days of a person on a date in creation order.
func (r Repo) ListEngineeringDays(ctx context.Context, resourceID int64, workDate string) ([]domain.EngineeringDay, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT ed.id, ed.work_date, ed.resource_id, ed.day_type, ed.created_at, edi.kind, edi.reference
FROM engineering_days ed
LEFT JOIN engineering_day_items edi ON edi.engineering_day_id=ed.id
WHERE ed.resource_id=? AND ed.work_date=?
ORDER BY ed.id, edi.kind, edi.reference`, resourceID, workDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.EngineeringDay
	for rows.Next() {
		var d domain.EngineeringDay
		var kind, ref sql.NullString
		if err := rows.Scan(&d.ID, &d.WorkDate, &d.ResourceID, &d.DayType, &d.CreatedAt, &kind, &ref); err != nil {
			return nil, err
		}
		if len(res) == 0 || res[len(res)-1].ID != d.ID {
			res = append(res, d)
		}
		cur := &res[len(res)-1]
		switch kind.String {
		case "wip":
			cur.WIPItems = append(cur.WIPItems, ref.String)
		case "work":
			cur.WorkItems = append(cur.WorkItems, ref.String)
		}
	}
	return res, rows.Err()
}
