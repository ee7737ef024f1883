package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"docforms/internal/logger"
	"docforms/internal/sheets"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export structured data",
}

var exportSheetsCmd = &cobra.Command{
	Use:   "sheets <document-id> <template-id>",
	Short: "Append structured data to a Google Sheet",
	Long: `Flatten the structured data in template order and append one row per
field (document, filename, template, path, value, export time) to a
worksheet. The worksheet and its header row are created when missing.

Required environment variables:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string`,
	Example: `  docforms export sheets 6f1c... 9ab2... --sheet-url "https://docs.google.com/spreadsheets/d/1AbC.../edit"`,
	Args:    cobra.ExactArgs(2),
	RunE:    runExportSheets,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.AddCommand(exportSheetsCmd)

	exportSheetsCmd.Flags().String("sheet-url", "", "Spreadsheet URL (overrides sheets.url)")
	exportSheetsCmd.Flags().String("worksheet", "", "Worksheet name (overrides sheets.worksheet)")
}

func runExportSheets(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("export")
	sheetURL, _ := cmd.Flags().GetString("sheet-url")
	worksheet, _ := cmd.Flags().GetString("worksheet")
	documentID, templateID := args[0], args[1]

	if sheetURL == "" {
		sheetURL = appConfig.Sheets.URL
	}
	if worksheet == "" {
		worksheet = appConfig.Sheets.Worksheet
	}
	if sheetURL == "" {
		return errors.New("no spreadsheet given: use --sheet-url or sheets.url")
	}

	ctx, cancel := commandContext(5*time.Minute, log)
	defer cancel()
	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	sess, err := openSession(ctx, client, documentID, templateID, log)
	if err != nil {
		return err
	}
	root, err := sess.Schema()
	if err != nil {
		return err
	}
	doc, err := client.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}
	tpl, err := client.GetTemplate(ctx, templateID)
	if err != nil {
		return err
	}

	svc, err := sheets.NewSheetsService(ctx, sheetURL)
	if err != nil {
		return err
	}
	n, err := svc.WriteStructuredData(ctx, worksheet, sheets.Export{
		DocumentID:   documentID,
		Filename:     doc.Filename,
		TemplateID:   templateID,
		TemplateName: tpl.Name,
		Rows:         root.Flatten(sess.Data()),
	})
	if err != nil {
		return err
	}

	log.Info().Str("spreadsheet_id", svc.SpreadsheetID()).Int("rows", n).Msg("Export finished")
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to %s\n", n, worksheet)
	return nil
}
