// Package jobs drives backend jobs to a terminal state and turns their
// outcome into messages for the user.
package jobs

import (
	"context"
	"fmt"

	"docforms/pkg/models"
)

// Poller fetches the current snapshot of a job. Implementations are expected
// to long-poll: the call returns when the job changes or a server timeout passes.
type Poller interface {
	PollJob(ctx context.Context, jobID string) (*models.Job, error)
}

// Wait polls jobID until it reports a terminal status and returns that
// snapshot. onProgress, if non-nil, sees every non-terminal snapshot and
// finally the terminal one. Polls are issued back to back; the server-side
// hold is the only pacing. A "failed" job is returned without error; only
// poll failures and ctx cancellation end the loop early.
func Wait(ctx context.Context, p Poller, jobID string, onProgress func(models.Job)) (*models.Job, error) {
	const op = "jobs.Wait"

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s: %s: %w", op, jobID, err)
		}

		job, err := p.PollJob(ctx, jobID)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", op, jobID, err)
		}

		if onProgress != nil {
			onProgress(*job)
		}
		if !job.Status.Active() {
			return job, nil
		}
	}
}
