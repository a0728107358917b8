package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"rotaline/internal/domain"
)

const projectColumns = `project_number,project_name,project_status,company_id,project_manager_id,project_sponsor,project_description,business_case,business_benefits,project_scope,exclusions,assumptions,created_at,updated_at`

func scanProject(s scanner) (domain.Project, error) {
	var p domain.Project
	var company, manager sql.NullInt64
	err := s.Scan(&p.Number, &p.Name, &p.Status, &company, &manager, &p.Sponsor, &p.Description,
		&p.BusinessCase, &p.BusinessBenefits, &p.Scope, &p.Exclusions, &p.Assumptions, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Project{}, notFound(err)
	}
	if company.Valid {
		p.CompanyID = &company.Int64
	}
	if manager.Valid {
		p.ProjectManagerID = &manager.Int64
	}
	return p, nil
}

func (r Repo) InsertProject(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	if strings.TrimSpace(p.Number) == "" {
		return errors.New("project_number required")
	}
	db := r.conn(tx)
	_, err := db.ExecContext(ctx, `INSERT INTO projects(`+projectColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.Number, p.Name, p.Status, nullableInt64(p.CompanyID), nullableInt64(p.ProjectManagerID), p.Sponsor, p.Description,
		p.BusinessCase, p.BusinessBenefits, p.Scope, p.Exclusions, p.Assumptions, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return err
	}
	for _, id := range p.TeamManagerIDs {
		if _, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO project_team_managers(project_number,user_id) VALUES (?,?)`, p.Number, id); err != nil {
			return err
		}
	}
	return nil
}

func (r Repo) GetProject(ctx context.Context, tx *sql.Tx, number string) (domain.Project, error) {
	db := r.conn(tx)
	p, err := scanProject(db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE project_number=?`, number))
	if err != nil {
		return p, err
	}
	rows, err := db.QueryContext(ctx, `SELECT user_id FROM project_team_managers WHERE project_number=? ORDER BY user_id`, number)
	if err != nil {
		return p, err
	}
	defer rows.Close()
	p.TeamManagerIDs = []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return p, err
		}
		p.TeamManagerIDs = append(p.TeamManagerIDs, id)
	}
	return p, rows.Err()
}

func (r Repo) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY project_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// UpdatePID overwrites the initiation document fields of a project, team managers
// included.
func (r Repo) UpdatePID(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	db := r.conn(tx)
	res, err := db.ExecContext(ctx, `UPDATE projects SET project_name=?, project_status=?, company_id=?, project_manager_id=?,
project_sponsor=?, project_description=?, business_case=?, business_benefits=?, project_scope=?, exclusions=?, assumptions=?, updated_at=?
WHERE project_number=?`,
		p.Name, p.Status, nullableInt64(p.CompanyID), nullableInt64(p.ProjectManagerID), p.Sponsor, p.Description,
		p.BusinessCase, p.BusinessBenefits, p.Scope, p.Exclusions, p.Assumptions, p.UpdatedAt, p.Number)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM project_team_managers WHERE project_number=?`, p.Number); err != nil {
		return err
	}
	for _, id := range p.TeamManagerIDs {
		if _, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO project_team_managers(project_number,user_id) VALUES (?,?)`, p.Number, id); err != nil {
			return err
		}
	}
	return nil
}

// ProjectReaders lists distinct users holding a role in the project's read or write ACL;
// write access implies read.
func (r Repo) ProjectReaders(ctx context.Context, number string) ([]domain.User, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT DISTINCT `+userColumns+`
FROM users u
JOIN user_roles ur ON ur.user_id=u.id
JOIN project_acl pa ON pa.role_id=ur.role_id
WHERE pa.project_number=? AND pa.access IN ('read','write')
ORDER BY u.first_name, u.last_name, u.id`, number)
	if err != nil {
		return nil, err
	}
	return collectUsers(rows)
}
