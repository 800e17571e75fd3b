package transcript

import (
	"fmt"
	"time"
)

// Palette is the fixed set of speaker colors. Speakers are assigned colors in
// order of first appearance, cycling when there are more speakers than entries.
var Palette = []string{
	"#3B82F6",
	"#EF4444",
	"#10B981",
	"#F59E0B",
	"#8B5CF6",
	"#EC4899",
	"#14B8A6",
	"#F97316",
}

// SpeakerInfo aggregates one speaker's contribution to a segment set.
type SpeakerInfo struct {
	ID            string
	DisplayName   string
	Color         string
	ColorIndex    int
	TotalDuration time.Duration
	SegmentCount  int
}

// ComputeSpeakers derives speaker aggregates from segments. Event segments
// without a speaker id are not attributed to anyone.
func ComputeSpeakers(segments []Segment) []SpeakerInfo {
	var (
		order []string
		byID  = make(map[string]*SpeakerInfo)
	)
	for _, seg := range segments {
		if seg.SpeakerID == "" {
			continue
		}
		info, ok := byID[seg.SpeakerID]
		if !ok {
			idx := len(order)
			info = &SpeakerInfo{
				ID:          seg.SpeakerID,
				DisplayName: fmt.Sprintf("Speaker %d", idx+1),
				ColorIndex:  idx % len(Palette),
				Color:       Palette[idx%len(Palette)],
			}
			byID[seg.SpeakerID] = info
			order = append(order, seg.SpeakerID)
		}
		info.TotalDuration += seg.Duration()
		info.SegmentCount++
	}
	out := make([]SpeakerInfo, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out
}
