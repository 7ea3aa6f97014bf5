package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/zjrosen/vellum/internal/vcs/domain"
)

// RepositoryStore implements repository row persistence over SQLite.
type RepositoryStore struct {
	db *sql.DB
}

const repositoryColumns = `id, project_id, name, path, default_branch_id, initialized, created_at, updated_at`

// Save inserts a repository row, or updates it if the project already has
// one.
func (s *RepositoryStore) Save(repo *domain.Repository) error {
	m := toRepositoryModel(repo)
	_, err := s.db.Exec(
		`INSERT INTO repositories (`+repositoryColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(project_id) DO UPDATE SET
		   name = excluded.name,
		   path = excluded.path,
		   default_branch_id = excluded.default_branch_id,
		   initialized = excluded.initialized,
		   updated_at = excluded.updated_at`,
		m.ID, m.ProjectID, m.Name, m.Path, m.DefaultBranchID, m.Initialized, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save repository: %w", err)
	}
	return nil
}

// FindByProject retrieves the repository row for a project.
// Returns RepositoryNotFoundError if no row exists.
func (s *RepositoryStore) FindByProject(projectID string) (*domain.Repository, error) {
	var m repositoryModel
	err := s.db.QueryRow(
		`SELECT `+repositoryColumns+` FROM repositories WHERE project_id = ?`,
		projectID,
	).Scan(&m.ID, &m.ProjectID, &m.Name, &m.Path, &m.DefaultBranchID, &m.Initialized, &m.CreatedAt, &m.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, &domain.RepositoryNotFoundError{ProjectID: projectID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find repository by project: %w", err)
	}
	return m.toDomain(), nil
}

// Delete removes a repository row. Used only to undo a failed
// initialization; repositories are never auto-deleted in normal operation.
func (s *RepositoryStore) Delete(id string) error {
	if _, err := s.db.Exec(`DELETE FROM repositories WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete repository: %w", err)
	}
	return nil
}
