package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNoMessage is returned when the queue is empty.
var ErrNoMessage = errors.New("no messages in queue")

// JobStatus is the lifecycle state of a generation job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusActive    JobStatus = "active"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are allowed.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// Pipeline phase names, in execution order.
const (
	PhaseQueued  = "queued"
	PhaseScope   = "scope"
	PhaseClarify = "clarify"
	PhaseDraft   = "draft"
	PhaseMatch   = "match"
	PhaseDone    = "done"
)

// MatchOptions carries the per-request similarity thresholds.
type MatchOptions struct {
	HardThreshold float64 `json:"hard_threshold,omitempty"`
	SoftThreshold float64 `json:"soft_threshold,omitempty"`
}

// GenerationRequest is the immutable payload of a generation job.
// Phase set to "draft" resumes a clarified resubmission at the draft phase,
// skipping scope analysis. Clarifications are free-form answers converted to
// user-role messages; Messages are explicit conversation turns supplied by
// the caller. When both are present, explicit messages come first.
type GenerationRequest struct {
	Assessment     Assessment   `json:"assessment"`
	Phase          string       `json:"phase,omitempty"`
	Options        MatchOptions `json:"options,omitempty"`
	Clarifications []string     `json:"clarifications,omitempty"`
	Messages       []Message    `json:"messages,omitempty"`
}

// ExtraMessages merges explicit messages and clarification answers into the
// additional conversation turns appended to the draft prompt.
func (r *GenerationRequest) ExtraMessages() []Message {
	extra := make([]Message, 0, len(r.Messages)+len(r.Clarifications))
	extra = append(extra, r.Messages...)
	for _, c := range r.Clarifications {
		extra = append(extra, UserMessage(c))
	}
	return extra
}

// GenerationResult is the terminal output of a completed job. Success is
// false for pipeline-level halts (clarification needed, unparseable model
// output); infrastructure failures use Job.Error instead.
type GenerationResult struct {
	Success              bool            `json:"success"`
	Phase                string          `json:"phase"`
	RequiredMeasurements []string        `json:"required_measurements,omitempty"`
	Questions            []string        `json:"questions,omitempty"`
	Items                []AnnotatedItem `json:"items,omitempty"`
	ErrorCode            string          `json:"error_code,omitempty"`
	Error                string          `json:"error,omitempty"`
	RawResponse          string          `json:"raw_response,omitempty"`
}

// Job is one unit of asynchronous pipeline work. It is created on enqueue
// and mutated only by the worker processing it. Result is set iff the job
// completed; Error is set iff it failed; both states are terminal.
type Job struct {
	ID          string             `json:"id" badgerhold:"key"`
	Status      JobStatus          `json:"status"`
	Phase       string             `json:"phase"`
	Progress    int                `json:"progress"`
	Payload     GenerationRequest  `json:"payload"`
	Result      *GenerationResult  `json:"result,omitempty"`
	Error       string             `json:"error,omitempty"`
	Attempts    int                `json:"attempts"`
	CreatedAt   time.Time          `json:"created_at"`
	StartedAt   *time.Time         `json:"started_at,omitempty"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
}

// NewJob builds a queued job around a request payload.
func NewJob(id string, payload GenerationRequest) *Job {
	return &Job{
		ID:        id,
		Status:    JobStatusQueued,
		Phase:     PhaseQueued,
		Progress:  0,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
}

// MarkActive transitions queued -> active and stamps the start time.
func (j *Job) MarkActive() error {
	if j.Status.IsTerminal() {
		return fmt.Errorf("job %s is %s: no further transitions", j.ID, j.Status)
	}
	now := time.Now().UTC()
	j.Status = JobStatusActive
	if j.StartedAt == nil {
		j.StartedAt = &now
	}
	j.Attempts++
	return nil
}

// MarkCompleted stores the result and seals the job.
func (j *Job) MarkCompleted(result *GenerationResult) error {
	if j.Status.IsTerminal() {
		return fmt.Errorf("job %s is %s: no further transitions", j.ID, j.Status)
	}
	now := time.Now().UTC()
	j.Status = JobStatusCompleted
	j.Progress = 100
	if result != nil && result.Phase != "" {
		j.Phase = result.Phase
	}
	j.Result = result
	j.Error = ""
	j.CompletedAt = &now
	return nil
}

// MarkFailed records the failure reason verbatim and seals the job.
func (j *Job) MarkFailed(reason string) error {
	if j.Status.IsTerminal() {
		return fmt.Errorf("job %s is %s: no further transitions", j.ID, j.Status)
	}
	now := time.Now().UTC()
	j.Status = JobStatusFailed
	j.Result = nil
	j.Error = reason
	j.CompletedAt = &now
	return nil
}

// MarkCancelled seals a job removed by the caller before completion.
func (j *Job) MarkCancelled() error {
	if j.Status.IsTerminal() {
		return fmt.Errorf("job %s is %s: no further transitions", j.ID, j.Status)
	}
	now := time.Now().UTC()
	j.Status = JobStatusCancelled
	j.CompletedAt = &now
	return nil
}

// QueueMessage is the envelope stored in the durable queue. Just enough to
// route the work; the job record itself holds the payload.
type QueueMessage struct {
	JobID   string          `json:"job_id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ProgressUpdate is published by the worker at phase boundaries and consumed
// by the status store. Progress values are advisory.
type ProgressUpdate struct {
	JobID    string
	Phase    string
	Progress int
}
