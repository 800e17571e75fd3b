package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"scribe/internal/api"
	"scribe/internal/notifications"
)

func newDeriveCommand(ctx *commandContext) *cobra.Command {
	var version int

	cmd := &cobra.Command{
		Use:   "derive <id>",
		Short: "Generate a summary and insights for a version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if version < 0 {
				return fmt.Errorf("invalid version number %d", version)
			}
			return ctx.withService(func(svc *api.Service) error {
				d, err := svc.Derive(cmd.Context(), args[0], version)
				if err != nil {
					return err
				}
				ctx.notify(cmd.Context(), notifications.EventInsightsDerived, notifications.Payload{
					"title":           args[0],
					"transcriptionId": d.TranscriptionID,
					"version":         d.SourceVersion,
					"summary":         d.Summary,
				})
				if ctx.jsonOutput() {
					return writeJSON(cmd, d)
				}
				renderDerived(cmd.OutOrStdout(), d)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&version, "version", 0, "Version to derive from (default current)")
	return cmd
}

func newDerivedCommand(ctx *commandContext) *cobra.Command {
	derivedCmd := &cobra.Command{
		Use:   "derived",
		Short: "Inspect and remove derived content",
	}

	derivedCmd.AddCommand(&cobra.Command{
		Use:     "list <id>",
		Aliases: []string{"ls"},
		Short:   "List derived content for a transcription",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.Service) error {
				items, err := svc.Derived(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, items)
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No derived content")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, d := range items {
					rows = append(rows, []string{
						d.ID,
						d.Kind,
						strconv.Itoa(d.SourceVersion),
						strconv.Itoa(d.TokensUsed),
						formatTime(d.CreatedAt),
					})
				}
				writeTable(out, []string{"ID", "Kind", "Version", "Tokens", "Created"}, rows, 3, 4)
				return nil
			})
		},
	})

	derivedCmd.AddCommand(&cobra.Command{
		Use:   "show <id> <derived-id>",
		Short: "Show one derived entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.Service) error {
				d, err := svc.GetDerived(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, d)
				}
				renderDerived(cmd.OutOrStdout(), d)
				return nil
			})
		},
	})

	derivedCmd.AddCommand(&cobra.Command{
		Use:     "rm <id> <derived-id>",
		Aliases: []string{"remove"},
		Short:   "Remove one derived entry",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.Service) error {
				if err := svc.RemoveDerived(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed derived entry %s\n", args[1])
				return nil
			})
		},
	})

	return derivedCmd
}

func renderDerived(out io.Writer, d api.DerivedDTO) {
	fmt.Fprintf(out, "Derived %s from version %d (%d tokens)\n\n", d.ID, d.SourceVersion, d.TokensUsed)
	fmt.Fprintf(out, "Summary:\n  %s\n", d.Summary)
	if len(d.Insights) == 0 {
		return
	}
	fmt.Fprintln(out, "\nInsights:")
	for _, insight := range d.Insights {
		fmt.Fprintf(out, "  - %s\n", insight)
	}
}
