package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"scribe/internal/api"
)

const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiDim   = "\033[2m"
)

// Speaker colors cycle through the same eight slots the palette uses.
var ansiSpeakerColors = []string{
	"\033[34m", "\033[32m", "\033[33m", "\033[35m",
	"\033[36m", "\033[31m", "\033[94m", "\033[92m",
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func formatMS(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	minutes := int(d / time.Minute)
	seconds := int((d % time.Minute) / time.Second)
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// renderSegments prints one line per segment, coloring speaker names when the
// writer is a terminal.
func renderSegments(out io.Writer, segments []api.SegmentDTO, speakers []api.SpeakerDTO) {
	colorize := shouldColorize(out)
	index := make(map[string]api.SpeakerDTO, len(speakers))
	for _, sp := range speakers {
		index[sp.ID] = sp
	}
	for _, seg := range segments {
		stamp := fmt.Sprintf("[%s-%s]", formatMS(seg.StartMS), formatMS(seg.EndMS))
		if colorize {
			stamp = ansiDim + stamp + ansiReset
		}
		if seg.EventType != "" {
			fmt.Fprintf(out, "%s (%s)\n", stamp, strings.ToLower(seg.EventType))
			continue
		}
		name := seg.SpeakerID
		color := ""
		if sp, ok := index[seg.SpeakerID]; ok {
			name = sp.DisplayName
			color = ansiSpeakerColors[sp.ColorIndex%len(ansiSpeakerColors)]
		}
		if colorize && color != "" {
			name = ansiBold + color + name + ansiReset
		}
		fmt.Fprintf(out, "%s %s: %s\n", stamp, name, seg.Text)
	}
}

func renderTranscriptionHeader(out io.Writer, t api.TranscriptionDTO) {
	fmt.Fprintf(out, "ID:       %s\n", t.ID)
	fmt.Fprintf(out, "Title:    %s\n", t.Title)
	if t.Language != "" {
		fmt.Fprintf(out, "Language: %s (%s)\n", t.LanguageName, t.Language)
	}
	fmt.Fprintf(out, "Version:  %d\n", t.CurrentVersion)
	fmt.Fprintf(out, "Audio:    %s\n", yesNo(t.AudioKey != ""))
	fmt.Fprintf(out, "Updated:  %s\n", formatTime(t.UpdatedAt))
}
