package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"scribe/internal/api"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show the current version of a transcription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.Service) error {
				t, err := svc.Show(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, t)
				}
				out := cmd.OutOrStdout()
				renderTranscriptionHeader(out, t)
				fmt.Fprintln(out)
				if len(t.Segments) == 0 {
					fmt.Fprintln(out, "No segments")
					return nil
				}
				renderSegments(out, t.Segments, t.Speakers)
				return nil
			})
		},
	}
}

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List transcriptions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.Service) error {
				items, err := svc.List(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, items)
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No transcriptions")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, t := range items {
					rows = append(rows, []string{
						t.ID,
						t.Title,
						t.Language,
						strconv.Itoa(t.CurrentVersion),
						formatTime(t.UpdatedAt),
					})
				}
				writeTable(out, []string{"ID", "Title", "Lang", "Version", "Updated"}, rows, 4)
				return nil
			})
		},
	}
}

func newVersionsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "versions <id>",
		Short: "List the version history of a transcription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.Service) error {
				versions, err := svc.Versions(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, versions)
				}
				out := cmd.OutOrStdout()
				if len(versions) == 0 {
					fmt.Fprintln(out, "No versions committed")
					return nil
				}
				rows := make([][]string, 0, len(versions))
				for _, v := range versions {
					rows = append(rows, []string{
						strconv.Itoa(v.Number),
						formatTime(v.EditedAt),
						v.EditorID,
						strconv.Itoa(v.SegmentCount),
						v.ChangesSummary,
					})
				}
				writeTable(out, []string{"Version", "Edited", "Editor", "Segments", "Summary"}, rows, 1, 4)
				return nil
			})
		},
	}
}

func newVersionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "version <id> <number>",
		Short: "Show one historical version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := parseVersionNumber(args[1])
			if err != nil {
				return err
			}
			return ctx.withService(func(svc *api.Service) error {
				v, err := svc.Version(cmd.Context(), args[0], number)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, v)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Version %d by %s at %s\n", v.Number, v.EditorID, formatTime(v.EditedAt))
				if v.ChangesSummary != "" {
					fmt.Fprintf(out, "Summary: %s\n", v.ChangesSummary)
				}
				fmt.Fprintln(out)
				renderSegments(out, v.Segments, v.Speakers)
				return nil
			})
		},
	}
}

func newEditCommand(ctx *commandContext) *cobra.Command {
	var file string
	var editor string
	var summary string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Commit a new version from a segments file",
		Long: "The file holds an edit request ({editorId, changesSummary, segments}) as JSON, " +
			"or as YAML when its extension is .yaml or .yml.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(file) == "" {
				return fmt.Errorf("--file is required")
			}
			req, err := readEditRequest(file)
			if err != nil {
				return err
			}
			if strings.TrimSpace(editor) != "" {
				req.EditorID = editor
			}
			if strings.TrimSpace(summary) != "" {
				req.ChangesSummary = summary
			}
			return ctx.withService(func(svc *api.Service) error {
				meta, err := svc.Edit(cmd.Context(), args[0], req)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, meta)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Committed version %d (%d segments)\n", meta.Number, meta.SegmentCount)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Edit request file (JSON or YAML)")
	cmd.Flags().StringVar(&editor, "editor", "", "Editor id, overriding the file")
	cmd.Flags().StringVarP(&summary, "message", "m", "", "Changes summary, overriding the file")
	return cmd
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transcription with its versions, derived content and audio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.Service) error {
				if err := svc.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func readEditRequest(path string) (api.EditRequest, error) {
	var req api.EditRequest
	data, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("read edit file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &req); err != nil {
			return req, fmt.Errorf("parse edit file: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			return req, fmt.Errorf("parse edit file: %w", err)
		}
	}
	return req, nil
}

func parseVersionNumber(value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid version number %q", value)
	}
	return n, nil
}
