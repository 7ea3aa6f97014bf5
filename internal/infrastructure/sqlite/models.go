package sqlite

import (
	"time"

	"github.com/zjrosen/vellum/internal/vcs/domain"
)

// repositoryModel maps the repositories table. Time values are stored as
// Unix seconds.
type repositoryModel struct {
	ID              string
	ProjectID       string
	Name            string
	Path            string
	DefaultBranchID *string // nullable until the main branch row exists
	Initialized     int64
	CreatedAt       int64
	UpdatedAt       int64
}

func toRepositoryModel(r *domain.Repository) *repositoryModel {
	m := &repositoryModel{
		ID:        r.ID,
		ProjectID: r.ProjectID,
		Name:      r.Name,
		Path:      r.Path,
		CreatedAt: r.CreatedAt.Unix(),
		UpdatedAt: r.UpdatedAt.Unix(),
	}
	if r.DefaultBranchID != "" {
		id := r.DefaultBranchID
		m.DefaultBranchID = &id
	}
	if r.Initialized {
		m.Initialized = 1
	}
	return m
}

func (m *repositoryModel) toDomain() *domain.Repository {
	r := &domain.Repository{
		ID:          m.ID,
		ProjectID:   m.ProjectID,
		Name:        m.Name,
		Path:        m.Path,
		Initialized: m.Initialized != 0,
		CreatedAt:   time.Unix(m.CreatedAt, 0),
		UpdatedAt:   time.Unix(m.UpdatedAt, 0),
	}
	if m.DefaultBranchID != nil {
		r.DefaultBranchID = *m.DefaultBranchID
	}
	return r
}

// branchModel maps the branches table.
type branchModel struct {
	ID          string
	ProjectID   string
	Name        string
	HeadCommit  string
	IsDefault   int64
	IsProtected int64
	Status      string
	CreatedBy   string
	CreatedAt   int64
	UpdatedAt   int64
}

func toBranchModel(b *domain.Branch) *branchModel {
	m := &branchModel{
		ID:         b.ID,
		ProjectID:  b.ProjectID,
		Name:       b.Name,
		HeadCommit: b.HeadCommit,
		Status:     string(b.Status),
		CreatedBy:  b.CreatedBy,
		CreatedAt:  b.CreatedAt.Unix(),
		UpdatedAt:  b.UpdatedAt.Unix(),
	}
	if b.IsDefault {
		m.IsDefault = 1
	}
	if b.IsProtected {
		m.IsProtected = 1
	}
	return m
}

func (m *branchModel) toDomain() *domain.Branch {
	return &domain.Branch{
		ID:          m.ID,
		ProjectID:   m.ProjectID,
		Name:        m.Name,
		HeadCommit:  m.HeadCommit,
		IsDefault:   m.IsDefault != 0,
		IsProtected: m.IsProtected != 0,
		Status:      domain.BranchStatus(m.Status),
		CreatedBy:   m.CreatedBy,
		CreatedAt:   time.Unix(m.CreatedAt, 0),
		UpdatedAt:   time.Unix(m.UpdatedAt, 0),
	}
}

// fileModel maps the files table.
type fileModel struct {
	ID             string
	ProjectID      string
	BranchID       string
	Path           string
	Name           string
	FileType       string
	Size           int64
	Encoding       string
	CreatedBy      string
	LastModifiedBy string
	DeletedAt      *int64
	CreatedAt      int64
	UpdatedAt      int64
}

func toFileModel(f *domain.FileRecord) *fileModel {
	m := &fileModel{
		ID:             f.ID,
		ProjectID:      f.ProjectID,
		BranchID:       f.BranchID,
		Path:           f.Path,
		Name:           f.Name,
		FileType:       f.FileType,
		Size:           f.Size,
		Encoding:       f.Encoding,
		CreatedBy:      f.CreatedBy,
		LastModifiedBy: f.LastModifiedBy,
		CreatedAt:      f.CreatedAt.Unix(),
		UpdatedAt:      f.UpdatedAt.Unix(),
	}
	if f.DeletedAt != nil {
		ts := f.DeletedAt.Unix()
		m.DeletedAt = &ts
	}
	return m
}

func (m *fileModel) toDomain() *domain.FileRecord {
	f := &domain.FileRecord{
		ID:             m.ID,
		ProjectID:      m.ProjectID,
		BranchID:       m.BranchID,
		Path:           m.Path,
		Name:           m.Name,
		FileType:       m.FileType,
		Size:           m.Size,
		Encoding:       m.Encoding,
		CreatedBy:      m.CreatedBy,
		LastModifiedBy: m.LastModifiedBy,
		CreatedAt:      time.Unix(m.CreatedAt, 0),
		UpdatedAt:      time.Unix(m.UpdatedAt, 0),
	}
	if m.DeletedAt != nil {
		t := time.Unix(*m.DeletedAt, 0)
		f.DeletedAt = &t
	}
	return f
}

// permissionModel maps the branch_permissions table.
type permissionModel struct {
	BranchID  string
	UserID    string
	CanRead   int64
	CanWrite  int64
	CanAdmin  int64
	GrantedBy string
	UpdatedAt int64
}

func toPermissionModel(p *domain.BranchPermission) *permissionModel {
	m := &permissionModel{
		BranchID:  p.BranchID,
		UserID:    p.UserID,
		GrantedBy: p.GrantedBy,
		UpdatedAt: p.UpdatedAt.Unix(),
	}
	if p.Flags.CanRead {
		m.CanRead = 1
	}
	if p.Flags.CanWrite {
		m.CanWrite = 1
	}
	if p.Flags.CanAdmin {
		m.CanAdmin = 1
	}
	return m
}

func (m *permissionModel) toDomain() *domain.BranchPermission {
	return &domain.BranchPermission{
		BranchID: m.BranchID,
		UserID:   m.UserID,
		Flags: domain.PermissionFlags{
			CanRead:  m.CanRead != 0,
			CanWrite: m.CanWrite != 0,
			CanAdmin: m.CanAdmin != 0,
		},
		GrantedBy: m.GrantedBy,
		UpdatedAt: time.Unix(m.UpdatedAt, 0),
	}
}
