package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/zjrosen/vellum/internal/vcs/domain"
)

// FileRecordStore implements file metadata persistence over SQLite.
type FileRecordStore struct {
	db *sql.DB
}

const fileColumns = `id, project_id, branch_id, path, name, file_type, size, encoding, created_by, last_modified_by, deleted_at, created_at, updated_at`

// Upsert inserts a file record, or updates size/modifier/type if the
// (branch, path) pair already exists. A soft-deleted row written again is
// revived.
func (s *FileRecordStore) Upsert(record *domain.FileRecord) error {
	m := toFileModel(record)
	_, err := s.db.Exec(
		`INSERT INTO files (`+fileColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(branch_id, path) DO UPDATE SET
		   size = excluded.size,
		   file_type = excluded.file_type,
		   encoding = excluded.encoding,
		   last_modified_by = excluded.last_modified_by,
		   deleted_at = NULL,
		   updated_at = excluded.updated_at`,
		m.ID, m.ProjectID, m.BranchID, m.Path, m.Name, m.FileType, m.Size, m.Encoding,
		m.CreatedBy, m.LastModifiedBy, m.DeletedAt, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert file record: %w", err)
	}
	return nil
}

// FindByPath retrieves a non-deleted file record by branch and path.
// Returns FileNotFoundError if no row exists.
func (s *FileRecordStore) FindByPath(branchID, path string) (*domain.FileRecord, error) {
	var m fileModel
	err := s.db.QueryRow(
		`SELECT `+fileColumns+` FROM files
		 WHERE branch_id = ? AND path = ? AND deleted_at IS NULL`,
		branchID, path,
	).Scan(&m.ID, &m.ProjectID, &m.BranchID, &m.Path, &m.Name, &m.FileType, &m.Size, &m.Encoding,
		&m.CreatedBy, &m.LastModifiedBy, &m.DeletedAt, &m.CreatedAt, &m.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, &domain.FileNotFoundError{BranchID: branchID, Path: path}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find file record: %w", err)
	}
	return m.toDomain(), nil
}

// ListByBranch returns all non-deleted file records on a branch, ordered
// by path.
func (s *FileRecordStore) ListByBranch(branchID string) ([]domain.FileRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+fileColumns+` FROM files
		 WHERE branch_id = ? AND deleted_at IS NULL
		 ORDER BY path ASC`,
		branchID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list file records: %w", err)
	}
	defer rows.Close()

	var records []domain.FileRecord
	for rows.Next() {
		var m fileModel
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.BranchID, &m.Path, &m.Name, &m.FileType, &m.Size, &m.Encoding,
			&m.CreatedBy, &m.LastModifiedBy, &m.DeletedAt, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan file record: %w", err)
		}
		records = append(records, *m.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate file records: %w", err)
	}
	return records, nil
}

// CountByBranch returns non-deleted file counts keyed by branch id for a
// project, for merging into branch listings.
func (s *FileRecordStore) CountByBranch(projectID string) (map[string]int, error) {
	rows, err := s.db.Query(
		`SELECT branch_id, COUNT(*) FROM files
		 WHERE project_id = ? AND deleted_at IS NULL
		 GROUP BY branch_id`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count files: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var branchID string
		var n int
		if err := rows.Scan(&branchID, &n); err != nil {
			return nil, fmt.Errorf("failed to scan file count: %w", err)
		}
		counts[branchID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate file counts: %w", err)
	}
	return counts, nil
}
