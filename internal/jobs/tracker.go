package jobs

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"docforms/internal/logger"
	"docforms/internal/metrics"
	"docforms/internal/store"
	"docforms/pkg/models"
)

// Kind names what a job does. It labels metrics and logs.
type Kind string

const (
	KindExtract   Kind = "extract"
	KindConvert   Kind = "convert"
	KindEnhance   Kind = "enhance"
	KindSummary   Kind = "summary"
	KindReanalyze Kind = "reanalyze"
)

// Target tags a job with the document and template it works on.
type Target struct {
	Kind       Kind
	DocumentID string
	TemplateID string
}

// Tracker waits for jobs and mirrors every snapshot into the store, tagged
// with its target so pages can find the active job of a template.
type Tracker struct {
	poller Poller
	store  *store.Store
	log    zerolog.Logger
}

func NewTracker(p Poller, st *store.Store) *Tracker {
	return &Tracker{
		poller: p,
		store:  st,
		log:    logger.WithComponent("jobs"),
	}
}

// Track records a freshly submitted job as queued before the first poll.
func (t *Tracker) Track(jobID string, target Target) {
	t.store.SetJob(models.Job{
		JobID:      jobID,
		Status:     models.JobQueued,
		DocumentID: target.DocumentID,
		TemplateID: target.TemplateID,
	})
}

// Wait is the package Wait with store updates, metrics and logging.
func (t *Tracker) Wait(ctx context.Context, jobID string, target Target, onProgress func(models.Job)) (*models.Job, error) {
	kind := string(target.Kind)
	metrics.JobsWatched.WithLabelValues(kind).Inc()
	defer metrics.JobsWatched.WithLabelValues(kind).Dec()

	t.log.Info().
		Str("job_id", jobID).
		Str("kind", kind).
		Str("document_id", target.DocumentID).
		Str("template_id", target.TemplateID).
		Msg("Waiting for job")

	job, err := Wait(ctx, t.poller, jobID, func(j models.Job) {
		j.DocumentID = target.DocumentID
		j.TemplateID = target.TemplateID
		t.store.SetJob(j)
		metrics.JobPolls.WithLabelValues(kind, string(j.Status)).Inc()

		t.log.Debug().Str("job_id", jobID).Str("status", string(j.Status)).Str("step", j.Step).Msg("Job progress")
		if onProgress != nil {
			onProgress(j)
		}
	})
	if err != nil {
		t.log.Warn().Err(err).Str("job_id", jobID).Msg("Stopped waiting for job")
		return nil, err
	}

	job.DocumentID = target.DocumentID
	job.TemplateID = target.TemplateID
	metrics.JobsFinished.WithLabelValues(kind, string(job.Status)).Inc()

	ev := t.log.Info()
	if job.Status == models.JobFailed {
		ev = t.log.Warn().Str("error", strings.TrimSpace(job.Error))
	}
	ev.Str("job_id", jobID).Str("status", string(job.Status)).Msg("Job finished")

	return job, nil
}

// Result is the outcome of a job waited for in the background.
type Result struct {
	Job *models.Job
	Err error
}

// Start waits for jobID in its own goroutine. The channel yields exactly one
// Result and is then closed. Cancelling ctx stops polling.
func (t *Tracker) Start(ctx context.Context, jobID string, target Target, onProgress func(models.Job)) <-chan Result {
	t.Track(jobID, target)

	out := make(chan Result, 1)
	go func() {
		defer close(out)
		job, err := t.Wait(ctx, jobID, target, onProgress)
		out <- Result{Job: job, Err: err}
	}()
	return out
}
