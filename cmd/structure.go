package cmd

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"docforms/internal/logger"
)

var structureCmd = &cobra.Command{
	Use:     "structure",
	Aliases: []string{"struct"},
	Short:   "Inspect and edit structured data",
}

var structureListCmd = &cobra.Command{
	Use:   "list <document-id>",
	Short: "List the structured data records of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runStructureList,
}

var structureShowCmd = &cobra.Command{
	Use:   "show <document-id> <template-id>",
	Short: "Print structured data in template order",
	Example: `  docforms structure show 6f1c... 9ab2...
  docforms structure show 6f1c... 9ab2... --overview
  docforms structure show 6f1c... 9ab2... --json`,
	Args: cobra.ExactArgs(2),
	RunE: runStructureShow,
}

var structureSetCmd = &cobra.Command{
	Use:   "set <document-id> <template-id> <path=value>...",
	Short: "Change fields and save",
	Long: `Set one or more fields by dotted path and save the whole record.
Numeric segments address array items; missing items are created, so
"skills.2.category=Go" grows a shorter list.`,
	Example: `  docforms structure set 6f1c... 9ab2... basic_info.name=Taro skills.0.category=Go`,
	Args:    cobra.MinimumNArgs(3),
	RunE:    runStructureSet,
}

var structureValidateCmd = &cobra.Command{
	Use:   "validate <document-id> <template-id>",
	Short: "Check structured data against the template schema",
	Args:  cobra.ExactArgs(2),
	RunE:  runStructureValidate,
}

func init() {
	rootCmd.AddCommand(structureCmd)
	structureCmd.AddCommand(structureListCmd, structureShowCmd, structureSetCmd, structureValidateCmd)

	structureShowCmd.Flags().Bool("overview", false, "Only show the fill state of each top-level field")
}

func runStructureList(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("structure")

	ctx, cancel := commandContext(appConfig.API.Timeout, log)
	defer cancel()
	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	list, err := client.ListStructuredData(ctx, args[0])
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return printJSON(cmd, list)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TEMPLATE ID\tSTATUS\tUPDATED")
	for _, st := range list.Items {
		fmt.Fprintf(w, "%s\t%s\t%s\n", st.TemplateID, st.Status, formatTime(st.UpdatedAt))
	}
	return w.Flush()
}

func runStructureShow(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("structure")
	overview, _ := cmd.Flags().GetBool("overview")

	ctx, cancel := commandContext(appConfig.API.Timeout, log)
	defer cancel()
	client, err := newClient(ctx)
	if err != nil {
		return err
	}
	sess, err := openSession(ctx, client, args[0], args[1], log)
	if err != nil {
		return err
	}

	if jsonOutput(cmd) {
		return printJSON(cmd, sess.Data())
	}

	root, err := sess.Schema()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	if overview {
		for _, st := range sess.Overview() {
			fmt.Fprintf(w, "%s\t%s\n", st.Label, st.Status)
		}
		return w.Flush()
	}
	for _, row := range root.Flatten(sess.Data()) {
		fmt.Fprintf(w, "%s\t%s\n", row.Path, oneLine(row.Value))
	}
	return w.Flush()
}

func oneLine(s string) string {
	return strings.ReplaceAll(s, "\n", `\n`)
}

func runStructureSet(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("structure")
	documentID, templateID := args[0], args[1]

	ctx, cancel := commandContext(appConfig.API.Timeout, log)
	defer cancel()
	client, err := newClient(ctx)
	if err != nil {
		return err
	}
	sess, err := openSession(ctx, client, documentID, templateID, log)
	if err != nil {
		return err
	}

	root, _ := sess.Schema()
	for _, assignment := range args[2:] {
		path, raw, ok := strings.Cut(assignment, "=")
		if !ok || path == "" {
			return fmt.Errorf("expected path=value, got %q", assignment)
		}
		var value any = raw
		if root != nil {
			if node, ok := root.LookupPath(path); ok && node.IsLeaf() {
				value = node.Coerce(raw)
			}
		}
		if err := sess.SetField(path, value); err != nil {
			return fmt.Errorf("%s: %w", assignment, err)
		}
		log.Debug().Str("path", path).Msg("Field changed")
	}

	if err := sess.Save(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "保存しました。")
	return nil
}

func runStructureValidate(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("structure")

	ctx, cancel := commandContext(appConfig.API.Timeout, log)
	defer cancel()
	client, err := newClient(ctx)
	if err != nil {
		return err
	}
	sess, err := openSession(ctx, client, args[0], args[1], log)
	if err != nil {
		return err
	}

	violations, err := sess.Validate()
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return printJSON(cmd, violations)
	}
	for _, v := range violations {
		fmt.Fprintln(cmd.OutOrStdout(), v.String())
	}
	if len(violations) > 0 {
		return errors.New("structured data does not match the template schema")
	}
	fmt.Fprintln(cmd.OutOrStdout(), "OK")
	return nil
}
