package repo

import (
	"context"
	"database/sql"

	"rotaline/internal/domain"
)

func (r Repo) InsertTeam(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	res, err := r.conn(tx).ExecContext(ctx, `INSERT INTO teams(name) VALUES (?)`, name)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetTeamByName(ctx context.Context, tx *sql.Tx, name string) (domain.Team, error) {
	var t domain.Team
	err := r.conn(tx).QueryRowContext(ctx, `SELECT id,name FROM teams WHERE name=?`, name).Scan(&t.ID, &t.Name)
	return t, notFound(err)
}

func (r Repo) ListTeams(ctx context.Context) ([]domain.Team, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name FROM teams ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Team
	for rows.Next() {
		var t domain.Team
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) AddTeamMember(ctx context.Context, tx *sql.Tx, teamID, userID int64) error {
	_, err := r.conn(tx).ExecContext(ctx, `INSERT OR IGNORE INTO team_members(team_id,user_id) VALUES (?,?)`, teamID, userID)
	return err
}

func (r Repo) RemoveTeamMember(ctx context.Context, tx *sql.Tx, teamID, userID int64) error {
	_, err := r.conn(tx).ExecContext(ctx, `DELETE FROM team_members WHERE team_id=? AND user_id=?`, teamID, userID)
	return err
}

func (r Repo) InsertCompany(ctx context.Context, tx *sql.Tx, c domain.Company) (int64, error) {
	res, err := r.conn(tx).ExecContext(ctx, `INSERT INTO companies(name,active,created_at) VALUES (?,?,?)`, c.Name, boolInt(c.Active), c.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListCompanies returns companies by name; activeOnly drops inactive ones.
func (r Repo) ListCompanies(ctx context.Context, activeOnly bool) ([]domain.Company, error) {
	query := `SELECT id,name,active,created_at FROM companies`
	if activeOnly {
		query += ` WHERE active=1`
	}
	query += ` ORDER BY name`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Company
	for rows.Next() {
		var c domain.Company
		var active int
		if err := rows.Scan(&c.ID, &c.Name, &active, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Active = active != 0
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) SetCompanyActive(ctx context.Context, id int64, active bool) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE companies SET active=? WHERE id=?`, boolInt(active), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
