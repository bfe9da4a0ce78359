package search

import (
	"strings"
	"unicode/utf8"

	domsubject "github.com/schemalabz/opencouncil-sub005/internal/domain/subject"
	"github.com/schemalabz/opencouncil-sub005/internal/metrics"
)

// DefaultMinSegmentTextLength is the shortest segment text, in characters, shown in results.
const DefaultMinSegmentTextLength = 100

// Drop reasons reported by the segment filter.
const (
	dropShortText      = "short_text"
	dropNoSpeaker      = "unresolved_speaker"
	dropNoSpeakerRoles = "speaker_without_roles"
)

// SegmentFilter removes segments unfit for display: text shorter than the
// minimum, or a speaker that is unknown or holds no role. It never touches
// score or order, and applying it twice equals applying it once.
type SegmentFilter struct {
	minLength int
}

// NewSegmentFilter creates a filter. minLength <= 0 selects the default.
func NewSegmentFilter(minLength int) SegmentFilter {
	if minLength <= 0 {
		minLength = DefaultMinSegmentTextLength
	}
	return SegmentFilter{minLength: minLength}
}

// Apply filters rec.Segments in place and returns how many were dropped.
// Matched segment ids are trimmed to the segments that survive.
func (f SegmentFilter) Apply(rec *domsubject.Record) int {
	kept := rec.Segments[:0]
	dropped := 0
	for _, seg := range rec.Segments {
		if reason := f.reject(seg); reason != "" {
			metrics.SearchSegmentsDroppedTotal.WithLabelValues(reason).Inc()
			dropped++
			continue
		}
		kept = append(kept, seg)
	}
	rec.Segments = kept
	if dropped > 0 {
		trimMatched(rec)
	}
	return dropped
}

func trimMatched(rec *domsubject.Record) {
	if len(rec.MatchedSegmentIDs) == 0 {
		return
	}
	shown := make(map[string]struct{}, len(rec.Segments))
	for _, seg := range rec.Segments {
		shown[seg.ID] = struct{}{}
	}
	matched := rec.MatchedSegmentIDs[:0]
	for _, id := range rec.MatchedSegmentIDs {
		if _, ok := shown[id]; ok {
			matched = append(matched, id)
		}
	}
	rec.MatchedSegmentIDs = matched
}

func (f SegmentFilter) reject(seg domsubject.Segment) string {
	if utf8.RuneCountInString(strings.TrimSpace(seg.Text)) < f.minLength {
		return dropShortText
	}
	if seg.Speaker == nil {
		return dropNoSpeaker
	}
	if len(seg.Speaker.Roles) == 0 {
		return dropNoSpeakerRoles
	}
	return ""
}
