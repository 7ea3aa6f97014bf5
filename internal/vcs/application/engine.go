package application

// Engine bundles the version-control services over one set of ports. It
// is the narrow operation surface collaborators call into; everything
// else in the surrounding application stays outside.
type Engine struct {
	Repositories *RepositoryManager
	Branches     *BranchManager
	Files        *FileStore
	Permissions  *PermissionIndex
}

// Deps are the ports an Engine is built from.
type Deps struct {
	Root     string
	Git      GitExecutor
	Repos    RepositoryIndex
	Branches BranchIndex
	Files    FileIndex
	Perms    PermissionStore

	// Locker is optional; nil means no per-branch serialization.
	Locker BranchLocker
}

// NewEngine wires the services together.
func NewEngine(deps Deps) *Engine {
	perms := NewPermissionIndex(deps.Perms)
	repoMgr := NewRepositoryManager(deps.Root, deps.Git, deps.Repos, deps.Branches, perms)
	return &Engine{
		Repositories: repoMgr,
		Branches:     NewBranchManager(deps.Git, deps.Repos, deps.Branches, deps.Files, perms),
		Files:        NewFileStore(deps.Git, deps.Repos, deps.Branches, deps.Files, perms, repoMgr, deps.Locker),
		Permissions:  perms,
	}
}
