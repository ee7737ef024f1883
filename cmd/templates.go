package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"docforms/internal/api"
	"docforms/internal/logger"
	"docforms/internal/schema"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Manage Excel templates",
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List templates",
	Args:  cobra.NoArgs,
	RunE:  runTemplatesList,
}

var templatesGetCmd = &cobra.Command{
	Use:   "get <template-id>",
	Short: "Show a template and the fields of its schema",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplatesGet,
}

var templatesUploadCmd = &cobra.Command{
	Use:   "upload <xlsx-file>",
	Short: "Register an Excel template",
	Long: `Upload an Excel workbook with its variable definition. The variables
file is a JSON object whose shape is the shape of the structured data:
nested objects are groups, one-element arrays are repeatable groups, and
strings or {"type": ...} markers are fields.`,
	Example: `  docforms templates upload resume.xlsx --name Resume --variables resume.json`,
	Args:    cobra.ExactArgs(1),
	RunE:    runTemplatesUpload,
}

var templatesDeleteCmd = &cobra.Command{
	Use:   "delete <template-id>",
	Short: "Delete a template",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplatesDelete,
}

func init() {
	rootCmd.AddCommand(templatesCmd)
	templatesCmd.AddCommand(templatesListCmd, templatesGetCmd, templatesUploadCmd, templatesDeleteCmd)

	templatesUploadCmd.Flags().String("name", "", "Template name (required)")
	templatesUploadCmd.Flags().String("description", "", "Template description")
	templatesUploadCmd.Flags().String("variables", "", "Path to the variables JSON file")
	_ = templatesUploadCmd.MarkFlagRequired("name")
}

func runTemplatesList(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("templates")

	ctx, cancel := commandContext(appConfig.API.Timeout, log)
	defer cancel()
	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	list, err := client.ListTemplates(ctx, 0, "")
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return printJSON(cmd, list)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TEMPLATE ID\tNAME\tFILENAME\tCREATED")
	for _, t := range list.Items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.TemplateID, t.Name, t.Filename, formatTime(t.CreatedAt))
	}
	return w.Flush()
}

func runTemplatesGet(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("templates")

	ctx, cancel := commandContext(appConfig.API.Timeout, log)
	defer cancel()
	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	tpl, err := client.GetTemplate(ctx, args[0])
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return printJSON(cmd, tpl)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Template:     %s\nName:         %s\nDescription:  %s\n", tpl.TemplateID, tpl.Name, tpl.Description)

	root, err := schema.Parse(tpl.Variables)
	if err != nil {
		fmt.Fprintln(out, "\nNo usable variable definition.")
		return nil
	}
	fmt.Fprintln(out)
	for _, row := range root.Flatten(root.Initial()) {
		fmt.Fprintln(out, "  "+row.Path)
	}
	for _, f := range root.Fields {
		if f.Node.IsArray() {
			fmt.Fprintf(out, "  %s[] (repeatable)\n", f.Key)
		}
	}
	return nil
}

func runTemplatesUpload(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("templates")
	name, _ := cmd.Flags().GetString("name")
	description, _ := cmd.Flags().GetString("description")
	variablesPath, _ := cmd.Flags().GetString("variables")

	var variables string
	if variablesPath != "" {
		b, err := os.ReadFile(variablesPath)
		if err != nil {
			return fmt.Errorf("failed to read variables file: %w", err)
		}
		variables = string(b)
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open template file: %w", err)
	}
	defer f.Close()

	ctx, cancel := commandContext(5*time.Minute, log)
	defer cancel()
	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	resp, err := client.UploadTemplate(ctx, api.TemplateUpload{
		Filename:    filepath.Base(args[0]),
		File:        f,
		Name:        name,
		Description: description,
		Variables:   variables,
	})
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return printJSON(cmd, resp)
	}
	fmt.Fprintln(cmd.OutOrStdout(), resp.TemplateID)
	return nil
}

func runTemplatesDelete(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("templates")

	ctx, cancel := commandContext(appConfig.API.Timeout, log)
	defer cancel()
	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	if _, err := client.DeleteTemplate(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
	return nil
}
