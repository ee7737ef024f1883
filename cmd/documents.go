package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"docforms/internal/jobs"
	"docforms/internal/logger"
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "Manage uploaded documents",
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	Example: `  docforms documents list --limit 20
  docforms documents list --last-key <key-from-previous-page>`,
	Args: cobra.NoArgs,
	RunE: runDocumentsList,
}

var documentsGetCmd = &cobra.Command{
	Use:   "get <document-id>",
	Short: "Show a document and its structured data records",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsGet,
}

var documentsUploadCmd = &cobra.Command{
	Use:   "upload <pdf-file>",
	Short: "Upload a PDF",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsUpload,
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete <document-id>",
	Short: "Delete a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsDelete,
}

var documentsReanalyzeCmd = &cobra.Command{
	Use:   "reanalyze <document-id>",
	Short: "Run the backend analysis of a document again",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsReanalyze,
}

func init() {
	rootCmd.AddCommand(documentsCmd)
	documentsCmd.AddCommand(documentsListCmd, documentsGetCmd, documentsUploadCmd, documentsDeleteCmd, documentsReanalyzeCmd)

	documentsListCmd.Flags().Int("limit", 50, "Page size")
	documentsListCmd.Flags().String("last-key", "", "Continue after this key")
	documentsReanalyzeCmd.Flags().Bool("no-wait", false, "Return after submitting the job")
}

func runDocumentsList(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("documents")
	limit, _ := cmd.Flags().GetInt("limit")
	lastKey, _ := cmd.Flags().GetString("last-key")

	ctx, cancel := commandContext(appConfig.API.Timeout, log)
	defer cancel()
	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	list, err := client.ListDocuments(ctx, limit, lastKey)
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return printJSON(cmd, list)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DOCUMENT ID\tFILENAME\tCREATED")
	for _, d := range list.Items {
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.DocumentID, d.Filename, formatTime(d.CreatedAt))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if list.HasMore {
		fmt.Fprintf(cmd.OutOrStdout(), "\nMore results: --last-key %s\n", list.LastEvaluatedKey)
	}
	return nil
}

func runDocumentsGet(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("documents")

	ctx, cancel := commandContext(appConfig.API.Timeout, log)
	defer cancel()
	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	doc, err := client.GetDocument(ctx, args[0])
	if err != nil {
		return err
	}
	structures, err := client.ListStructuredData(ctx, args[0])
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return printJSON(cmd, map[string]any{"document": doc, "structures": structures.Items})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Document:  %s\nFilename:  %s\nCreated:   %s\n", doc.DocumentID, doc.Filename, formatTime(doc.CreatedAt))
	if doc.GeneratedIntroduction != "" {
		fmt.Fprintf(out, "\n%s\n", doc.GeneratedIntroduction)
	}
	if len(structures.Items) == 0 {
		return nil
	}

	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TEMPLATE ID\tSTATUS\tCONVERTED\tUPDATED")
	for _, st := range structures.Items {
		converted := "-"
		if key := doc.ConvertedFileKey(st.TemplateID); key != "" {
			converted = key
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", st.TemplateID, st.Status, converted, formatTime(st.UpdatedAt))
	}
	return w.Flush()
}

func runDocumentsUpload(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("documents")
	path := args[0]

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open PDF file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close PDF file")
		}
	}()

	ctx, cancel := commandContext(5*time.Minute, log)
	defer cancel()
	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	resp, err := client.UploadDocument(ctx, filepath.Base(path), f)
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return printJSON(cmd, resp)
	}
	fmt.Fprintln(cmd.OutOrStdout(), resp.DocumentID)
	return nil
}

func runDocumentsDelete(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("documents")

	ctx, cancel := commandContext(appConfig.API.Timeout, log)
	defer cancel()
	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	if _, err := client.DeleteDocument(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
	return nil
}

func runDocumentsReanalyze(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("documents")
	noWait, _ := cmd.Flags().GetBool("no-wait")

	ctx, cancel := commandContext(30*time.Minute, log)
	defer cancel()
	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	resp, err := client.ReanalyzeDocument(ctx, args[0])
	if err != nil {
		return err
	}
	if noWait {
		fmt.Fprintln(cmd.OutOrStdout(), resp.JobID)
		return nil
	}

	if _, err := waitJob(ctx, cmd, client, resp.JobID, jobs.Target{Kind: jobs.KindReanalyze, DocumentID: args[0]}); err != nil {
		return err
	}
	return nil
}
