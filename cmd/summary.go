package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"docforms/internal/editor"
	"docforms/internal/logger"
)

var summaryCmd = &cobra.Command{
	Use:   "summary <document-id> <template-id>",
	Short: "Generate the introduction text of a document",
	Example: `  docforms summary 6f1c... 9ab2...
  docforms summary 6f1c... 9ab2... --copy-to intro.txt`,
	Args: cobra.ExactArgs(2),
	RunE: runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)

	summaryCmd.Flags().String("copy-to", "", "Also write the generated text to this file")
	summaryCmd.Flags().Duration("timeout", 10*time.Minute, "Give up waiting after this long")
}

// fileClipboard receives copied text in a file.
type fileClipboard string

func (f fileClipboard) WriteText(ctx context.Context, text string) error {
	return os.WriteFile(string(f), []byte(text+"\n"), 0o644)
}

func runSummary(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("summary")
	copyTo, _ := cmd.Flags().GetString("copy-to")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	documentID, templateID := args[0], args[1]

	ctx, cancel := commandContext(timeout, log)
	defer cancel()
	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	sess := editor.New(editor.Options{
		DocumentID: documentID,
		TemplateID: templateID,
		Backend:    client,
	})
	if _, err := sess.GenerateSummary(ctx, progress(cmd)); err != nil {
		return err
	}

	doc, err := client.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), doc.GeneratedIntroduction)

	if copyTo != "" {
		if err := editor.CopySummary(ctx, fileClipboard(copyTo), doc.GeneratedIntroduction); err != nil {
			return err
		}
		log.Info().Str("file", copyTo).Msg("Summary copied")
	}
	return nil
}
