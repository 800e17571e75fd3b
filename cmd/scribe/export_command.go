package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"scribe/internal/api"
	"scribe/internal/export"
	"scribe/internal/textutil"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var version int
	var formatValue string
	var output string

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a version with its derived content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := export.ParseFormat(formatValue)
			if err != nil {
				return err
			}
			if version < 0 {
				return fmt.Errorf("invalid version number %d", version)
			}
			return ctx.withService(func(svc *api.Service) error {
				c := cmd.Context()
				t, err := svc.Show(c, args[0])
				if err != nil {
					return err
				}
				v, err := svc.Version(c, args[0], version)
				if err != nil {
					return err
				}
				derived, err := svc.Derived(c, args[0])
				if err != nil {
					return err
				}
				doc := export.NewDocument(t, v, derived)

				target := strings.TrimSpace(output)
				if target == "" {
					return export.Write(cmd.OutOrStdout(), format, doc)
				}
				if info, statErr := os.Stat(target); statErr == nil && info.IsDir() {
					stem := textutil.FileStem(t.Title, t.ID)
					target = filepath.Join(target, fmt.Sprintf("%s-v%d%s", stem, doc.Version.Number, format.Extension()))
				} else if filepath.Ext(target) == "" {
					target += format.Extension()
				}
				f, err := os.Create(target)
				if err != nil {
					return fmt.Errorf("create export file: %w", err)
				}
				if err := export.Write(f, format, doc); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return fmt.Errorf("close export file: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported version %d to %s\n", doc.Version.Number, target)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&version, "version", 0, "Version to export (default current)")
	cmd.Flags().StringVarP(&formatValue, "format", "f", string(export.FormatMarkdown), "Output format: markdown, json or yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file, or into a directory using the title as the name")
	return cmd
}
