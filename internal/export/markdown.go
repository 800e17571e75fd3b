package export

import (
	"fmt"
	"strings"
	"time"

	"scribe/internal/api"
)

// RenderMarkdown produces a readable transcript with one paragraph per
// segment, prefixed by its time range and speaker.
func RenderMarkdown(doc Document) string {
	var b strings.Builder
	if doc.Title != "" {
		fmt.Fprintf(&b, "# %s\n\n", doc.Title)
	} else {
		b.WriteString("# Transcript\n\n")
	}

	v := doc.Version
	fmt.Fprintf(&b, "- Version: %d (%s", v.Number, v.EditorID)
	if !v.EditedAt.IsZero() {
		fmt.Fprintf(&b, ", %s", v.EditedAt.UTC().Format(time.RFC3339))
	}
	b.WriteString(")\n")
	if v.ChangesSummary != "" {
		fmt.Fprintf(&b, "- Changes: %s\n", v.ChangesSummary)
	}
	if doc.LanguageName != "" {
		fmt.Fprintf(&b, "- Language: %s\n", doc.LanguageName)
	}
	if d := duration(v.Segments); d > 0 {
		fmt.Fprintf(&b, "- Duration: %s\n", d.Truncate(time.Second))
	}
	if len(v.Speakers) > 0 {
		names := make([]string, 0, len(v.Speakers))
		for _, sp := range v.Speakers {
			names = append(names, fmt.Sprintf("%s (%s)", sp.DisplayName, time.Duration(sp.TotalDurationMS)*time.Millisecond))
		}
		fmt.Fprintf(&b, "- Speakers: %s\n", strings.Join(names, ", "))
	}

	for _, d := range doc.Derived {
		b.WriteString("\n## Summary\n\n")
		fmt.Fprintf(&b, "%s\n", strings.TrimSpace(d.Summary))
		if len(d.Insights) > 0 {
			b.WriteString("\n### Insights\n\n")
			for _, item := range d.Insights {
				fmt.Fprintf(&b, "- %s\n", item)
			}
		}
	}

	b.WriteString("\n---\n\n")

	names := make(map[string]string, len(v.Speakers))
	for _, sp := range v.Speakers {
		names[sp.ID] = sp.DisplayName
	}
	for _, seg := range v.Segments {
		fmt.Fprintf(&b, "[%s-%s] ", msToTS(seg.StartMS), msToTS(seg.EndMS))
		if seg.SpeakerID != "" {
			name := names[seg.SpeakerID]
			if name == "" {
				name = seg.SpeakerID
			}
			fmt.Fprintf(&b, "**%s:** ", name)
		}
		text := strings.TrimSpace(seg.Text)
		if seg.EventType != "" {
			if text == "" {
				fmt.Fprintf(&b, "_[%s]_", seg.EventType)
			} else {
				fmt.Fprintf(&b, "_[%s]_ %s", seg.EventType, text)
			}
		} else {
			b.WriteString(text)
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

func duration(segments []api.SegmentDTO) time.Duration {
	if len(segments) == 0 {
		return 0
	}
	var end int64
	for _, seg := range segments {
		if seg.EndMS > end {
			end = seg.EndMS
		}
	}
	return time.Duration(end-segments[0].StartMS) * time.Millisecond
}

func msToTS(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
