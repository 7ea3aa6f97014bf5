package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/zjrosen/vellum/internal/vcs/domain"
)

// PermissionStore implements branch permission persistence over SQLite.
type PermissionStore struct {
	db *sql.DB
}

// Get retrieves the permission row for (branch, user). Returns (nil, nil)
// when no row exists: absence means no access, not an error.
func (s *PermissionStore) Get(branchID, userID string) (*domain.BranchPermission, error) {
	var m permissionModel
	err := s.db.QueryRow(
		`SELECT branch_id, user_id, can_read, can_write, can_admin, granted_by, updated_at
		 FROM branch_permissions WHERE branch_id = ? AND user_id = ?`,
		branchID, userID,
	).Scan(&m.BranchID, &m.UserID, &m.CanRead, &m.CanWrite, &m.CanAdmin, &m.GrantedBy, &m.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get branch permission: %w", err)
	}
	return m.toDomain(), nil
}

// Upsert writes a permission row, last writer wins.
func (s *PermissionStore) Upsert(perm *domain.BranchPermission) error {
	m := toPermissionModel(perm)
	_, err := s.db.Exec(
		`INSERT INTO branch_permissions (branch_id, user_id, can_read, can_write, can_admin, granted_by, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(branch_id, user_id) DO UPDATE SET
		   can_read = excluded.can_read,
		   can_write = excluded.can_write,
		   can_admin = excluded.can_admin,
		   granted_by = excluded.granted_by,
		   updated_at = excluded.updated_at`,
		m.BranchID, m.UserID, m.CanRead, m.CanWrite, m.CanAdmin, m.GrantedBy, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert branch permission: %w", err)
	}
	return nil
}
