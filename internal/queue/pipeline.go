package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/quotienthq/quotient/internal/catalog"
	"github.com/quotienthq/quotient/internal/interfaces"
	"github.com/quotienthq/quotient/internal/models"
	"github.com/quotienthq/quotient/internal/scope"
)

// errJobCancelled aborts a pipeline run without failing the job; the caller
// already sealed the job as cancelled.
var errJobCancelled = errors.New("job cancelled")

// Coarse progress at phase boundaries. Intermediate values are advisory.
const (
	progressScope   = 5
	progressClarify = 25
	progressDraft   = 40
	progressMatch   = 60
	progressStore   = 90
)

// Pipeline executes the generation phases for one job, strictly in order:
// scope analysis, optional clarification halt, draft generation, catalog
// matching. It reports progress at phase boundaries and checks for
// cancellation between phases; it never interrupts a phase mid-flight.
type Pipeline struct {
	engine   *scope.Engine
	matcher  *catalog.Matcher
	jobs     interfaces.JobStorage
	progress chan<- models.ProgressUpdate
	logger   arbor.ILogger
}

func NewPipeline(engine *scope.Engine, matcher *catalog.Matcher, jobs interfaces.JobStorage, progress chan<- models.ProgressUpdate, logger arbor.ILogger) *Pipeline {
	return &Pipeline{
		engine:   engine,
		matcher:  matcher,
		jobs:     jobs,
		progress: progress,
		logger:   logger,
	}
}

func (p *Pipeline) publish(jobID, phase string, progress int) {
	if p.progress == nil {
		return
	}
	select {
	case p.progress <- models.ProgressUpdate{JobID: jobID, Phase: phase, Progress: progress}:
	default:
		// A full channel drops the update; progress is advisory.
	}
}

// cancelled reports whether the job was cancelled since the last check.
func (p *Pipeline) cancelled(ctx context.Context, jobID string) bool {
	job, err := p.jobs.GetJob(ctx, jobID)
	if err != nil {
		return false
	}
	return job.Status == models.JobStatusCancelled
}

// Run executes the pipeline. A returned GenerationResult with Success=false
// is a pipeline-level halt (clarification needed, unparseable output) and
// still completes the job; a returned error is an infrastructure failure the
// worker may retry.
func (p *Pipeline) Run(ctx context.Context, job *models.Job) (*models.GenerationResult, error) {
	req := &job.Payload

	// A resubmission after clarification names the draft phase and goes
	// straight to generation; re-running scope could halt again on the same
	// questions the caller just answered.
	if req.Phase != models.PhaseDraft {
		p.publish(job.ID, models.PhaseScope, progressScope)

		scopeResult, err := p.engine.AnalyzeScope(ctx, &req.Assessment)
		if err != nil {
			var parseErr *scope.ParseError
			if errors.As(err, &parseErr) {
				return &models.GenerationResult{
					Success:     false,
					Phase:       models.PhaseScope,
					ErrorCode:   "parse_error",
					Error:       parseErr.Error(),
					RawResponse: parseErr.Raw,
				}, nil
			}
			return nil, fmt.Errorf("scope phase: %w", err)
		}

		if scopeResult.NeedsClarification() {
			p.publish(job.ID, models.PhaseClarify, progressClarify)
			return &models.GenerationResult{
				Success:              false,
				Phase:                models.PhaseClarify,
				RequiredMeasurements: scopeResult.RequiredMeasurements,
				Questions:            scopeResult.Questions,
			}, nil
		}

		if p.cancelled(ctx, job.ID) {
			return nil, errJobCancelled
		}
	}

	p.publish(job.ID, models.PhaseDraft, progressDraft)

	items, raw, err := p.engine.GenerateDraft(ctx, req)
	if err != nil {
		var parseErr *scope.ParseError
		if errors.As(err, &parseErr) {
			return &models.GenerationResult{
				Success:     false,
				Phase:       models.PhaseDraft,
				ErrorCode:   "parse_error",
				Error:       parseErr.Error(),
				RawResponse: raw,
			}, nil
		}
		return nil, fmt.Errorf("draft phase: %w", err)
	}

	if p.cancelled(ctx, job.ID) {
		return nil, errJobCancelled
	}

	p.publish(job.ID, models.PhaseMatch, progressMatch)

	annotated := p.matcher.MatchAll(ctx, items, req.Options)

	p.publish(job.ID, models.PhaseDone, progressStore)

	return &models.GenerationResult{
		Success: true,
		Phase:   models.PhaseDone,
		Items:   annotated,
	}, nil
}
