package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"docforms/internal/logger"
)

var enhanceCmd = &cobra.Command{
	Use:   "enhance <document-id> <template-id> <field-path>",
	Short: "Ask the backend to improve the text of one field",
	Long: `Run an enhancement job for one text field and print the original and the
improved text. With --apply the improved text is written back and saved;
otherwise the structured data is left as it was.`,
	Example: `  # Review a suggestion
  docforms enhance 6f1c... 9ab2... self_pr

  # Accept it right away, with extra guidance for the model
  docforms enhance 6f1c... 9ab2... projects.0.detail --instructions "shorter" --apply`,
	Args: cobra.ExactArgs(3),
	RunE: runEnhance,
}

func init() {
	rootCmd.AddCommand(enhanceCmd)

	enhanceCmd.Flags().String("instructions", "", "Extra instructions for the improvement")
	enhanceCmd.Flags().Bool("apply", false, "Write the improved text back and save")
	enhanceCmd.Flags().Duration("timeout", 10*time.Minute, "Give up waiting after this long")
}

func runEnhance(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("enhance")
	instructions, _ := cmd.Flags().GetString("instructions")
	apply, _ := cmd.Flags().GetBool("apply")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	documentID, templateID, path := args[0], args[1], args[2]

	ctx, cancel := commandContext(timeout, log)
	defer cancel()
	client, err := newClient(ctx)
	if err != nil {
		return err
	}
	sess, err := openSession(ctx, client, documentID, templateID, log)
	if err != nil {
		return err
	}

	e, err := sess.EnhanceField(ctx, path, instructions, progress(cmd))
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		if err := printJSON(cmd, e); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "--- %s (original)\n%s\n\n+++ %s (improved)\n%s\n", e.Path, e.Original, e.Path, e.Improved)
	}

	if !apply {
		_, err := sess.Reject()
		return err
	}
	if _, err := sess.Accept(""); err != nil {
		return err
	}
	if err := sess.Save(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "改善案を反映して保存しました。")
	return nil
}
