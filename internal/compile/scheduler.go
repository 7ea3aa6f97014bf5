package compile

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/zjrosen/vellum/internal/log"
	"github.com/zjrosen/vellum/internal/paths"
	"github.com/zjrosen/vellum/internal/vcs/domain"
)

const (
	defaultEngine = "pdflatex"
	defaultFormat = "pdf"

	sourceDirName = "source"
	outputDirName = "output"
)

// allowedEngines is the closed set of compiler binaries a request may
// name. Anything else is rejected before a job directory is created.
var allowedEngines = map[string]bool{
	"pdflatex": true,
	"xelatex":  true,
	"lualatex": true,
	"latex":    true,
}

// Request describes one compilation submission. Zero-valued fields fall
// back to the sub-project manifest, then to built-in defaults.
type Request struct {
	RepoPath     string
	ProjectID    string
	SubprojectID string
	MainFile     string
	Engine       string
	OutputFormat string
	Actor        domain.Actor
}

// Scheduler runs compilation jobs as detached subprocesses. Submit
// returns as soon as the job's status document is persisted; the
// compiler itself runs in a background goroutine with no queue and no
// concurrency cap.
type Scheduler struct {
	root  string
	store statusStore

	mu   sync.Mutex
	jobs map[string]jobHandle

	// engineBin maps an allowed engine name to the binary to execute.
	// Overridden in tests to substitute a stub compiler.
	engineBin func(engine string) string
	// onDone, when set, is invoked after a job reaches a terminal state.
	onDone func(jobID string)
}

type jobHandle struct {
	repoPath string
	pid      int
}

// NewScheduler returns a scheduler placing job directories under the
// repositories rooted at root.
func NewScheduler(root string) *Scheduler {
	return &Scheduler{
		root:      root,
		jobs:      make(map[string]jobHandle),
		engineBin: func(engine string) string { return engine },
	}
}

// Submit prepares and launches a compilation job, returning its id. The
// status document exists on disk in state "started" before Submit
// returns, so a status query for the returned id always succeeds even if
// the compiler has not yet been spawned.
func (s *Scheduler) Submit(ctx context.Context, req Request) (string, error) {
	sourceDir, err := resolveSourceDir(req.RepoPath, req.SubprojectID)
	if err != nil {
		return "", err
	}

	manifest, err := loadManifest(sourceDir)
	if err != nil {
		return "", err
	}
	engine := firstNonEmpty(req.Engine, manifest.Engine, defaultEngine)
	format := firstNonEmpty(req.OutputFormat, manifest.OutputFormat, defaultFormat)
	if !allowedEngines[engine] {
		return "", &domain.ValidationError{Field: "engine", Reason: fmt.Sprintf("unsupported engine %q", engine)}
	}

	// A requested or manifest main file that is not actually present falls
	// back to the first .tex, same as no request at all. Stale manifests
	// must not reach the compiler.
	mainFile := firstNonEmpty(req.MainFile, manifest.MainFile)
	if mainFile != "" {
		if _, statErr := os.Stat(filepath.Join(sourceDir, mainFile)); statErr != nil {
			log.Warn(log.CatCompile, "requested main file missing, falling back",
				"subproject", req.SubprojectID, "main_file", mainFile)
			mainFile = ""
		}
	}
	if mainFile == "" {
		mainFile, err = firstTexFile(sourceDir)
		if err != nil {
			return "", err
		}
		if mainFile == "" {
			return "", &NoSourcesError{SubprojectID: req.SubprojectID}
		}
	}

	jobID := uuid.New().String()
	jobDir := paths.JobDir(req.RepoPath, jobID)
	jobSource := filepath.Join(jobDir, sourceDirName)
	jobOutput := filepath.Join(jobDir, outputDirName)
	for _, dir := range []string{jobSource, jobOutput} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return "", fmt.Errorf("failed to create job directory: %w", err)
		}
	}
	if err := copyTree(sourceDir, jobSource); err != nil {
		os.RemoveAll(jobDir)
		return "", fmt.Errorf("failed to snapshot sources: %w", err)
	}

	doc := &StatusDocument{
		JobID:        jobID,
		ProjectID:    req.ProjectID,
		SubprojectID: req.SubprojectID,
		MainFile:     mainFile,
		OutputFormat: format,
		Engine:       engine,
		Actor:        req.Actor.ID,
		Status:       StatusStarted,
		StartedAt:    time.Now().UTC(),
		Errors:       []string{},
		Warnings:     []string{},
		OutputFiles:  []OutputFile{},
	}
	if err := s.store.write(jobDir, doc); err != nil {
		os.RemoveAll(jobDir)
		return "", err
	}

	s.mu.Lock()
	s.jobs[jobID] = jobHandle{repoPath: req.RepoPath}
	s.mu.Unlock()

	log.Info(log.CatCompile, "compilation job submitted",
		"job_id", jobID, "project_id", req.ProjectID, "engine", engine, "main_file", mainFile)

	go s.run(jobID, jobDir, doc)
	return jobID, nil
}

// GetStatus returns the stored status document for a job, with the
// output file list refreshed from a live scan of the output directory.
// A timeout-sealed document still reports artifacts the compiler managed
// to write before it was killed.
func (s *Scheduler) GetStatus(jobID string) (*StatusDocument, error) {
	jobDir, err := s.findJobDir(jobID)
	if err != nil {
		return nil, err
	}
	doc, err := s.store.read(jobDir)
	if err != nil {
		return nil, err
	}
	if files, err := scanOutputs(filepath.Join(jobDir, outputDirName)); err == nil {
		doc.OutputFiles = files
	}
	return doc, nil
}

// GetOutputFile returns the absolute path of a completed job's artifact
// with the given format (matched by file extension).
func (s *Scheduler) GetOutputFile(jobID, format string) (string, error) {
	jobDir, err := s.findJobDir(jobID)
	if err != nil {
		return "", err
	}
	doc, err := s.store.read(jobDir)
	if err != nil {
		return "", err
	}
	if doc.Status != StatusCompleted {
		return "", &NotCompletedError{JobID: jobID, Status: doc.Status}
	}
	want := "." + strings.TrimPrefix(strings.ToLower(format), ".")
	for _, f := range doc.OutputFiles {
		if strings.ToLower(filepath.Ext(f.Name)) == want {
			return filepath.Join(jobDir, outputDirName, f.Name), nil
		}
	}
	return "", &ArtifactNotFoundError{JobID: jobID, Format: format}
}

// MarkTimeout forces a non-terminal job into the timeout state and
// best-effort kills its process group. Jobs already terminal are left
// untouched.
func (s *Scheduler) MarkTimeout(jobID string) error {
	jobDir, err := s.findJobDir(jobID)
	if err != nil {
		return err
	}

	doc, err := s.store.read(jobDir)
	if err != nil {
		return err
	}
	if doc.Status.Terminal() {
		return nil
	}
	now := time.Now().UTC()
	doc.Status = StatusTimeout
	doc.CompletedAt = &now
	doc.Errors = append(doc.Errors, "compilation timed out")
	if err := s.store.write(jobDir, doc); err != nil {
		return err
	}

	// The document is sealed before the signal so the runner's final
	// write is suppressed regardless of when the process dies.
	s.mu.Lock()
	handle := s.jobs[jobID]
	s.mu.Unlock()
	if handle.pid > 0 {
		if err := killProcessGroup(handle.pid); err != nil {
			log.Warn(log.CatCompile, "failed to signal job process group",
				"job_id", jobID, "pid", handle.pid, "error", err.Error())
		}
	}
	log.Warn(log.CatCompile, "compilation job timed out", "job_id", jobID)
	return nil
}

// run executes the compiler subprocess and records the outcome. It never
// overwrites a terminal status written concurrently by MarkTimeout.
func (s *Scheduler) run(jobID, jobDir string, doc *StatusDocument) {
	defer func() {
		s.mu.Lock()
		delete(s.jobs, jobID)
		s.mu.Unlock()
		if s.onDone != nil {
			s.onDone(jobID)
		}
	}()

	sourceDir := filepath.Join(jobDir, sourceDirName)
	outputDir := filepath.Join(jobDir, outputDirName)

	doc.Status = StatusRunning
	if err := s.store.write(jobDir, doc); err != nil {
		log.ErrorErr(log.CatCompile, "failed to record running state", err, "job_id", jobID)
	}

	cmd := exec.Command(s.engineBin(doc.Engine),
		"-interaction=nonstopmode",
		"-output-directory="+outputDir,
		doc.MainFile)
	cmd.Dir = sourceDir
	configureProcessGroup(cmd)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	runErr := cmd.Start()
	if runErr == nil {
		s.mu.Lock()
		if h, ok := s.jobs[jobID]; ok {
			h.pid = cmd.Process.Pid
			s.jobs[jobID] = h
		}
		s.mu.Unlock()
		runErr = cmd.Wait()
	}
	output := buf.Bytes()

	// MarkTimeout may have already sealed this job.
	if current, err := s.store.read(jobDir); err == nil && current.Status.Terminal() {
		return
	}

	now := time.Now().UTC()
	doc.CompletedAt = &now
	doc.Errors, doc.Warnings = parseCompilerLog(output)
	if files, err := scanOutputs(outputDir); err == nil {
		doc.OutputFiles = files
	}

	if runErr != nil {
		doc.Status = StatusFailed
		doc.Errors = append(doc.Errors, runErr.Error())
		log.ErrorErr(log.CatCompile, "compilation job failed", runErr, "job_id", jobID)
	} else {
		doc.Status = StatusCompleted
		log.Info(log.CatCompile, "compilation job completed",
			"job_id", jobID, "output_files", len(doc.OutputFiles))
	}
	if err := s.store.write(jobDir, doc); err != nil {
		log.ErrorErr(log.CatCompile, "failed to record final state", err, "job_id", jobID)
	}
}

// findJobDir locates a job directory, preferring the in-memory index and
// falling back to a repository glob so jobs survive a process restart.
func (s *Scheduler) findJobDir(jobID string) (string, error) {
	s.mu.Lock()
	handle, ok := s.jobs[jobID]
	s.mu.Unlock()
	if ok {
		return paths.JobDir(handle.repoPath, jobID), nil
	}

	matches, err := filepath.Glob(filepath.Join(s.root, "*", paths.CompilationsDir, jobID))
	if err != nil || len(matches) == 0 {
		return "", &JobNotFoundError{JobID: jobID}
	}
	return matches[0], nil
}

// resolveSourceDir picks the first existing sub-project directory,
// current layout before the legacy nested one.
func resolveSourceDir(repoPath, subprojectID string) (string, error) {
	for _, candidate := range paths.SubprojectCandidates(repoPath, subprojectID) {
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
	}
	return "", &NoSourcesError{SubprojectID: subprojectID}
}

// firstTexFile returns the lexicographically first .tex file directly in
// dir, or "" when none exists.
func firstTexFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to list sources: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".tex") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", nil
	}
	sort.Strings(names)
	return names[0], nil
}

// copyTree copies src into dst recursively, skipping version control
// metadata and nested job directories.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && (d.Name() == ".git" || d.Name() == paths.CompilationsDir) {
			return filepath.SkipDir
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o750)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// scanOutputs lists the artifacts under outputDir. Sizes are gathered
// concurrently; ordering is stable by name.
func scanOutputs(outputDir string) ([]OutputFile, error) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	files := make([]OutputFile, len(names))
	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(4)
	for i, name := range names {
		g.Go(func() error {
			info, err := os.Stat(filepath.Join(outputDir, name))
			if err != nil {
				return err
			}
			files[i] = OutputFile{
				Name: name,
				Size: info.Size(),
				Path: filepath.Join(outputDirName, name),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

// parseCompilerLog extracts error and warning lines from TeX engine
// output. Error lines start with "!", warnings contain "Warning:".
func parseCompilerLog(output []byte) (errs, warnings []string) {
	errs = []string{}
	warnings = []string{}
	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case strings.HasPrefix(line, "!"):
			errs = append(errs, strings.TrimSpace(strings.TrimPrefix(line, "!")))
		case strings.Contains(line, "Warning:"):
			warnings = append(warnings, strings.TrimSpace(line))
		}
	}
	return errs, warnings
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
