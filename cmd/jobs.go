package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"docforms/internal/jobs"
	"docforms/internal/logger"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect backend jobs",
}

var jobsGetCmd = &cobra.Command{
	Use:   "get <job-id>",
	Short: "Show the current state of a job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsGet,
}

var jobsWaitCmd = &cobra.Command{
	Use:   "wait <job-id>",
	Short: "Wait until a job succeeds or fails",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsWait,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsGetCmd, jobsWaitCmd)

	jobsWaitCmd.Flags().Duration("timeout", 30*time.Minute, "Give up waiting after this long")
}

func runJobsGet(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("jobs")

	ctx, cancel := commandContext(appConfig.API.Timeout, log)
	defer cancel()
	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	job, err := client.GetJob(ctx, args[0])
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return printJSON(cmd, job)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", job.Status, jobs.StatusMessage(job.Status, job.Step))
	if job.Error != "" {
		fmt.Fprintln(cmd.OutOrStdout(), jobs.FriendlyError(job.Error))
	}
	return nil
}

func runJobsWait(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("jobs")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	ctx, cancel := commandContext(timeout, log)
	defer cancel()
	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	job, err := jobs.Wait(ctx, client, args[0], progress(cmd))
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		if err := printJSON(cmd, job); err != nil {
			return err
		}
	}
	return jobs.Outcome(job)
}
