// Package compile renders a branch's LaTeX sources to an output artifact
// in a detached background job.
//
// Jobs are filesystem-resident: each lives in
// <repo>/compilations/<jobID>/{source/,output/,metadata.json} and survives
// for audit until an external cleanup removes it. There is no job table
// and no queue durability across restarts; the metadata.json sidecar is
// the whole record.
package compile

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a compilation job.
type Status string

const (
	// StatusStarted means the status document exists but the compiler
	// subprocess has not been spawned yet.
	StatusStarted Status = "started"
	// StatusRunning means the compiler subprocess is executing.
	StatusRunning Status = "running"
	// StatusCompleted means the compiler exited zero.
	StatusCompleted Status = "completed"
	// StatusFailed means the compiler exited non-zero or could not run.
	StatusFailed Status = "failed"
	// StatusTimeout is set only by an external caller-driven trigger.
	StatusTimeout Status = "timeout"
)

// Terminal reports whether no further transition may leave this state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusTimeout
}

// OutputFile describes one produced artifact.
type OutputFile struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Path string `json:"path"`
}

// StatusDocument is the persisted job record. Its JSON shape is a
// compatibility surface and must not change.
type StatusDocument struct {
	JobID        string       `json:"jobId"`
	ProjectID    string       `json:"projectId"`
	SubprojectID string       `json:"subprojectId"`
	MainFile     string       `json:"mainFile"`
	OutputFormat string       `json:"outputFormat"`
	Engine       string       `json:"engine"`
	Actor        string       `json:"actor"`
	Status       Status       `json:"status"`
	StartedAt    time.Time    `json:"startedAt"`
	CompletedAt  *time.Time   `json:"completedAt"`
	Errors       []string     `json:"errors"`
	Warnings     []string     `json:"warnings"`
	OutputFiles  []OutputFile `json:"outputFiles"`
}

// JobNotFoundError indicates no job directory exists for the id.
type JobNotFoundError struct {
	JobID string
}

// Error implements the error interface.
func (e *JobNotFoundError) Error() string {
	return fmt.Sprintf("compilation job not found: id=%q", e.JobID)
}

// NotCompletedError indicates an artifact was requested from a job that
// has not completed.
type NotCompletedError struct {
	JobID  string
	Status Status
}

// Error implements the error interface.
func (e *NotCompletedError) Error() string {
	return fmt.Sprintf("compilation job %q is %s, not completed", e.JobID, e.Status)
}

// ArtifactNotFoundError indicates a completed job produced no artifact of
// the requested format.
type ArtifactNotFoundError struct {
	JobID  string
	Format string
}

// Error implements the error interface.
func (e *ArtifactNotFoundError) Error() string {
	return fmt.Sprintf("no %s artifact for compilation job %q", e.Format, e.JobID)
}

// NoSourcesError indicates the sub-project contains no compilable file;
// the compiler is never spawned in this case.
type NoSourcesError struct {
	SubprojectID string
}

// Error implements the error interface.
func (e *NoSourcesError) Error() string {
	return fmt.Sprintf("no .tex sources found in subproject %q", e.SubprojectID)
}
