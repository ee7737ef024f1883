package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"docforms/internal/api"
	"docforms/internal/auth"
	"docforms/internal/editor"
	"docforms/internal/jobs"
	"docforms/internal/store"
	"docforms/pkg/models"
)

// newClient builds the backend client from the loaded configuration.
func newClient(ctx context.Context) (*api.Client, error) {
	return api.New(appConfig.API.BaseURL,
		api.WithTokenSource(auth.NewTokenSource(ctx, appConfig.Auth)),
		api.WithTimeout(appConfig.API.Timeout),
		api.WithPollTimeout(appConfig.API.PollTimeout),
	)
}

// commandContext creates a context with timeout and signal handling
func commandContext(timeout time.Duration, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Warn().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// openSession loads the edit buffer of a (document, template) pair.
func openSession(ctx context.Context, client *api.Client, documentID, templateID string, log zerolog.Logger) (*editor.Session, error) {
	tpl, err := client.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}

	sess := editor.New(editor.Options{
		DocumentID: documentID,
		TemplateID: templateID,
		Backend:    client,
		Store:      store.New(),
	})
	if err := sess.LoadSchema(tpl.Variables); err != nil {
		log.Warn().Err(err).Str("template_id", templateID).Msg("Template has no usable schema")
	}
	if err := sess.Load(ctx); err != nil {
		return nil, err
	}
	return sess, nil
}

// progress prints the status text of a job whenever it changes.
func progress(cmd *cobra.Command) func(models.Job) {
	var last string
	return func(j models.Job) {
		msg := jobs.StatusMessage(j.Status, j.Step)
		if msg != last {
			fmt.Fprintln(cmd.ErrOrStderr(), msg)
			last = msg
		}
	}
}

// waitJob follows a submitted job to its end and turns a failure into an error.
func waitJob(ctx context.Context, cmd *cobra.Command, client *api.Client, jobID string, target jobs.Target) (*models.Job, error) {
	tracker := jobs.NewTracker(client, store.New())
	tracker.Track(jobID, target)
	job, err := tracker.Wait(ctx, jobID, target, progress(cmd))
	if err != nil {
		return nil, err
	}
	return job, jobs.Outcome(job)
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// describe is the message shown for a failed command.
func describe(err error) string {
	var failed *jobs.FailedError
	switch {
	case errors.As(err, &failed):
		return failed.Friendly()
	case errors.Is(err, auth.ErrNotLoggedIn), errors.Is(err, api.ErrUnauthorized):
		return jobs.DescribeError(err) + " (docforms login)"
	case errors.As(err, new(*api.Error)), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return jobs.DescribeError(err)
	}
	return err.Error()
}

func formatTime(sec int64) string {
	if sec == 0 {
		return "-"
	}
	return time.Unix(sec, 0).Format("2006-01-02 15:04")
}
