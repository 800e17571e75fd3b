package main

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"scribe/internal/api"
	"scribe/internal/chunk"
	"scribe/internal/logging"
	"scribe/internal/notifications"
	"scribe/internal/preflight"
	"scribe/internal/session"
	"scribe/internal/store"
)

const defaultChunkMS = 5000

type transcribeSummary struct {
	TranscriptionID string           `json:"transcriptionId"`
	SessionID       string           `json:"sessionId"`
	Version         int              `json:"versionNumber"`
	Language        string           `json:"language,omitempty"`
	Placeholders    int              `json:"placeholders"`
	Corrected       bool             `json:"corrected"`
	TokensUsed      int              `json:"tokensUsed"`
	Segments        []api.SegmentDTO `json:"segments"`
	Speakers        []api.SpeakerDTO `json:"speakers"`
}

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var title string
	var chunkMS int
	var labels []string
	var noAudio bool

	cmd := &cobra.Command{
		Use:   "transcribe <chunk files...>",
		Short: "Transcribe audio chunk files as one session",
		Long: "Each file is treated as one captured chunk, in argument order. " +
			"Chunks are transcribed concurrently and reassembled in order before the first version is committed.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if chunkMS <= 0 {
				return fmt.Errorf("--chunk-ms must be positive")
			}
			if len(labels) > len(args) {
				return fmt.Errorf("%d labels given for %d chunk files", len(labels), len(args))
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			checks := []preflight.Result{preflight.CheckDirectoryAccess("Data directory", cfg.Paths.DataDir)}
			if !noAudio {
				checks = append(checks, preflight.CheckDirectoryAccess("Audio directory", cfg.Paths.AudioDir))
			}
			if failed := preflight.Failed(checks); len(failed) > 0 {
				return fmt.Errorf("%s not usable: %s", strings.ToLower(failed[0].Name), failed[0].Detail)
			}
			stt, err := newSpeechToText(cfg)
			if err != nil {
				return err
			}
			return ctx.withStore(func(st *store.Store) error {
				logger := ctx.log()
				options := []session.Option{
					session.WithLogger(logger),
					session.WithCorrector(ctx.corrector()),
				}
				if !noAudio {
					options = append(options, session.WithBlobStore(ctx.blobStore()))
				}
				coordinator := session.New(stt, st, session.OptionsFromConfig(cfg), options...)

				runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer cancel()

				sess, err := coordinator.Start(runCtx, title)
				if err != nil {
					return err
				}
				logger.Info("transcription session started",
					logging.String(logging.FieldSessionID, sess.ID()),
					logging.String(logging.FieldTranscriptionID, sess.TranscriptionID()),
					logging.Int("chunks", len(args)),
				)

				span := time.Duration(chunkMS) * time.Millisecond
				for i, path := range args {
					audio, err := os.ReadFile(path)
					if err != nil {
						_ = sess.Abort()
						return fmt.Errorf("read chunk %s: %w", path, err)
					}
					c := chunk.AudioChunk{
						Seq:         int64(i),
						Audio:       audio,
						MimeType:    mimeFor(path),
						StartOffset: time.Duration(i) * span,
						Duration:    span,
					}
					if i < len(labels) {
						c.Label = strings.TrimSpace(labels[i])
					}
					if err := sess.Append(runCtx, c); err != nil {
						if errors.Is(err, context.Canceled) || runCtx.Err() != nil {
							break
						}
						_ = sess.Abort()
						return err
					}
				}

				result, finalizeErr := sess.Finalize(runCtx)
				notifyCtx := context.WithoutCancel(runCtx)
				if finalizeErr != nil {
					ctx.notify(notifyCtx, notifications.EventError, notifications.Payload{
						"context": "finalize " + sess.TranscriptionID(),
						"error":   finalizeErr,
					})
				}
				if result == nil {
					return finalizeErr
				}
				if finalizeErr == nil {
					ctx.notify(notifyCtx, notifications.EventTranscriptionCommitted, notifications.Payload{
						"title":           sess.Title(),
						"transcriptionId": result.TranscriptionID,
						"version":         result.Version,
						"segments":        len(result.Segments),
						"placeholders":    result.Placeholders,
					})
				}
				summary := transcribeSummary{
					TranscriptionID: result.TranscriptionID,
					SessionID:       result.SessionID,
					Version:         result.Version,
					Language:        result.Language,
					Placeholders:    result.Placeholders,
					Corrected:       result.Corrected,
					TokensUsed:      result.TokensUsed,
					Segments:        api.FromSegments(result.Segments),
					Speakers:        api.FromSpeakers(result.Speakers),
				}
				if ctx.jsonOutput() {
					if err := writeJSON(cmd, summary); err != nil {
						return err
					}
					return finalizeErr
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Transcription %s committed as version %d\n", summary.TranscriptionID, summary.Version)
				if summary.Placeholders > 0 {
					fmt.Fprintf(out, "%d chunk(s) could not be transcribed\n", summary.Placeholders)
				}
				if summary.Corrected {
					fmt.Fprintf(out, "Punctuation corrected (%d tokens)\n", summary.TokensUsed)
				}
				fmt.Fprintln(out)
				renderSegments(out, summary.Segments, summary.Speakers)
				return finalizeErr
			})
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Title for the new transcription")
	cmd.Flags().IntVar(&chunkMS, "chunk-ms", defaultChunkMS, "Duration of each chunk file in milliseconds")
	cmd.Flags().StringSliceVar(&labels, "labels", nil, "Per-chunk speaker or event labels in file order (e.g. S1,S2,[MUSIC])")
	cmd.Flags().BoolVar(&noAudio, "no-audio", false, "Do not keep the session audio")
	return cmd
}

func mimeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return ""
	}
	if value := mime.TypeByExtension(ext); value != "" {
		return value
	}
	return "audio/" + strings.TrimPrefix(ext, ".")
}
