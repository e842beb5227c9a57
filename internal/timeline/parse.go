// Package timeline extracts timestamped, classified events from raw incident
// artifacts and reconstructs the incident timeline.
package timeline

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"sleuth/internal/incident"
)

const (
	maxDetails = 500
	maxExcerpt = 300

	// rawUnknown is the placeholder when no timestamp encoding matched.
	rawUnknown = "unknown"
)

// tsPattern is one recognized literal timestamp encoding.
type tsPattern struct {
	re      *regexp.Regexp
	layouts []string // empty for the unix variants
	unit    string   // "", "s", or "ms"
}

// tsPatterns is ordered: richer encodings first so a full date-time is not
// half-consumed by a narrower pattern.
var tsPatterns = []tsPattern{
	{
		re:      regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:?\d{2})?`),
		layouts: []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05"},
	},
	{
		re:      regexp.MustCompile(`\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}(?:\.\d+)?`),
		layouts: []string{"2006-01-02 15:04:05.999999999", "2006-01-02 15:04:05"},
	},
	{
		re:      regexp.MustCompile(`[A-Z][a-z]{2}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2}`),
		layouts: []string{"Jan _2 15:04:05"},
	},
	{re: regexp.MustCompile(`\b\d{10}\b`), unit: "s"},
	{re: regexp.MustCompile(`\b\d{13}\b`), unit: "ms"},
}

// ExtractTimestamp scans text for the first parseable timestamp. It returns
// the parsed time, the raw matched text, and whether parsing succeeded. A
// malformed match is skipped, not fatal: later patterns still get a chance.
func ExtractTimestamp(text string) (time.Time, string, bool) {
	for _, p := range tsPatterns {
		raw := p.re.FindString(text)
		if raw == "" {
			continue
		}
		switch p.unit {
		case "s":
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				continue
			}
			return time.Unix(n, 0).UTC(), raw, true
		case "ms":
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				continue
			}
			return time.UnixMilli(n).UTC(), raw, true
		default:
			for _, layout := range p.layouts {
				if ts, err := time.Parse(layout, raw); err == nil {
					return ts, raw, true
				}
			}
		}
	}
	return time.Time{}, "", false
}

// Parse extracts ordered timeline events from one artifact, scanning line by
// line. Lines matching no classification rule are kept only when a timestamp
// was found, as info-level noise-suppressed observations.
func Parse(a incident.Artifact) []incident.TimelineEvent {
	var events []incident.TimelineEvent

	for _, line := range strings.Split(a.Content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		ts, raw, ok := ExtractTimestamp(line)
		rule := classify(line)

		if rule == nil {
			if !ok {
				continue
			}
			events = append(events, incident.TimelineEvent{
				Timestamp:    ts,
				TimestampRaw: raw,
				Kind:         "note",
				Title:        "Unclassified event",
				Details:      truncate(line, maxDetails),
				Severity:     incident.SeverityInfo,
			})
			continue
		}

		if raw == "" {
			raw = rawUnknown
		}
		events = append(events, incident.TimelineEvent{
			Timestamp:    ts,
			TimestampRaw: raw,
			Kind:         rule.Kind,
			Title:        titleFor(rule.Kind),
			Details:      truncate(line, maxDetails),
			Severity:     rule.Severity,
			Evidence: []incident.Evidence{{
				SourceID:     a.SourceID,
				Excerpt:      truncate(line, maxExcerpt),
				Relevance:    incident.ClampRelevance(rule.Relevance),
				ArtifactType: a.Type,
			}},
		})
	}
	return events
}

// ParseAll parses every artifact and returns a single chronologically ordered
// timeline.
func ParseAll(artifacts []incident.Artifact) []incident.TimelineEvent {
	var all []incident.TimelineEvent
	for _, a := range artifacts {
		all = append(all, Parse(a)...)
	}
	SortEvents(all)
	return all
}

// SortEvents orders events by parsed timestamp ascending. Events without a
// parseable timestamp keep their ingestion order and sort after all dated
// events. Equal timestamps preserve source order.
func SortEvents(events []incident.TimelineEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		switch {
		case a.Timestamp.IsZero() && b.Timestamp.IsZero():
			return false
		case a.Timestamp.IsZero():
			return false
		case b.Timestamp.IsZero():
			return true
		default:
			return a.Timestamp.Before(b.Timestamp)
		}
	})
}

// titleFor renders a rule kind as a short human title ("pool_exhaustion" →
// "Pool exhaustion detected").
func titleFor(kind string) string {
	words := strings.ReplaceAll(kind, "_", " ")
	if words == "" {
		return "Event detected"
	}
	return strings.ToUpper(words[:1]) + words[1:] + " detected"
}

// truncate caps s at n bytes, backing up to a rune boundary so a multibyte
// character is never split.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
