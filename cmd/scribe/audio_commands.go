package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"scribe/internal/api"
)

func newAudioCommand(ctx *commandContext) *cobra.Command {
	audioCmd := &cobra.Command{
		Use:   "audio",
		Short: "Manage the original audio kept for re-listening",
	}

	audioCmd.AddCommand(&cobra.Command{
		Use:   "attach <id> <file>",
		Short: "Store a recording as the transcription's original audio",
		Long:  "Replaces the audio kept by the capture session, for example with a full-quality recording made alongside it.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("open audio: %w", err)
			}
			defer file.Close()
			return ctx.withService(func(svc *api.Service) error {
				audio, err := svc.AttachAudio(cmd.Context(), args[0], file, filepath.Ext(args[1]))
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, audio)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Attached %d bytes to %s\n", audio.Size, audio.TranscriptionID)
				fmt.Fprintf(out, "Path:   %s\n", audio.Path)
				fmt.Fprintf(out, "SHA256: %s\n", audio.SHA256)
				return nil
			})
		},
	})

	audioCmd.AddCommand(&cobra.Command{
		Use:   "export <id> <destination>",
		Short: "Copy the original audio out (use - for stdout)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.Service) error {
				src, stored, err := svc.OpenAudio(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				defer src.Close()

				dest := args[1]
				if dest == "-" {
					_, err := io.Copy(cmd.OutOrStdout(), src)
					return err
				}
				if info, err := os.Stat(dest); err == nil && info.IsDir() {
					dest = filepath.Join(dest, filepath.Base(stored))
				}
				out, err := os.Create(dest)
				if err != nil {
					return fmt.Errorf("create %s: %w", dest, err)
				}
				written, err := io.Copy(out, src)
				if closeErr := out.Close(); err == nil {
					err = closeErr
				}
				if err != nil {
					return fmt.Errorf("write %s: %w", dest, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d bytes to %s\n", written, dest)
				return nil
			})
		},
	})

	return audioCmd
}
