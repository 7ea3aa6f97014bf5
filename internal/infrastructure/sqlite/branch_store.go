package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/zjrosen/vellum/internal/vcs/domain"
)

// BranchStore implements branch row persistence over SQLite.
type BranchStore struct {
	db *sql.DB
}

const branchColumns = `id, project_id, name, head_commit, is_default, is_protected, status, created_by, created_at, updated_at`

// Save inserts or updates a branch row.
func (s *BranchStore) Save(branch *domain.Branch) error {
	m := toBranchModel(branch)
	_, err := s.db.Exec(
		`INSERT INTO branches (`+branchColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   head_commit = excluded.head_commit,
		   is_default = excluded.is_default,
		   is_protected = excluded.is_protected,
		   status = excluded.status,
		   updated_at = excluded.updated_at`,
		m.ID, m.ProjectID, m.Name, m.HeadCommit, m.IsDefault, m.IsProtected, m.Status, m.CreatedBy, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save branch: %w", err)
	}
	return nil
}

// FindByID retrieves a branch by id, regardless of status.
// Returns BranchNotFoundError if no row exists.
func (s *BranchStore) FindByID(id string) (*domain.Branch, error) {
	var m branchModel
	err := s.db.QueryRow(
		`SELECT `+branchColumns+` FROM branches WHERE id = ?`, id,
	).Scan(&m.ID, &m.ProjectID, &m.Name, &m.HeadCommit, &m.IsDefault, &m.IsProtected, &m.Status, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, &domain.BranchNotFoundError{BranchID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find branch by id: %w", err)
	}
	return m.toDomain(), nil
}

// FindByName retrieves a non-deleted branch by exact name within a project.
// Returns BranchNotFoundError if no such branch exists.
func (s *BranchStore) FindByName(projectID, name string) (*domain.Branch, error) {
	var m branchModel
	err := s.db.QueryRow(
		`SELECT `+branchColumns+` FROM branches
		 WHERE project_id = ? AND name = ? AND status != 'deleted'`,
		projectID, name,
	).Scan(&m.ID, &m.ProjectID, &m.Name, &m.HeadCommit, &m.IsDefault, &m.IsProtected, &m.Status, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, &domain.BranchNotFoundError{ProjectID: projectID, Name: name}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find branch by name: %w", err)
	}
	return m.toDomain(), nil
}

// ListByProject returns a page of non-deleted branches for a project,
// default branch first, then by creation time, plus the total count.
func (s *BranchStore) ListByProject(projectID string, offset, limit int) ([]domain.Branch, int, error) {
	var total int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM branches WHERE project_id = ? AND status != 'deleted'`,
		projectID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count branches: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT `+branchColumns+` FROM branches
		 WHERE project_id = ? AND status != 'deleted'
		 ORDER BY is_default DESC, created_at ASC, id ASC
		 LIMIT ? OFFSET ?`,
		projectID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list branches: %w", err)
	}
	defer rows.Close()

	var branches []domain.Branch
	for rows.Next() {
		var m branchModel
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Name, &m.HeadCommit, &m.IsDefault, &m.IsProtected, &m.Status, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan branch: %w", err)
		}
		branches = append(branches, *m.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate branches: %w", err)
	}
	return branches, total, nil
}

// UpdateHead sets the cached head commit of a branch.
func (s *BranchStore) UpdateHead(branchID, headCommit string) error {
	res, err := s.db.Exec(
		`UPDATE branches SET head_commit = ?, updated_at = ? WHERE id = ?`,
		headCommit, time.Now().Unix(), branchID,
	)
	if err != nil {
		return fmt.Errorf("failed to update branch head: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &domain.BranchNotFoundError{BranchID: branchID}
	}
	return nil
}

// Delete removes a branch row. Used to roll back a failed first-time
// initialization; lifecycle transitions go through status updates instead.
func (s *BranchStore) Delete(id string) error {
	if _, err := s.db.Exec(`DELETE FROM branches WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete branch: %w", err)
	}
	return nil
}
