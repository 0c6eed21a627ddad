package calculator

import "github.com/banshee-data/telemetry-bridge/internal/telemetry"

// peakTracker retains a bounded history of recorded peaks plus a lifetime
// count, so the result surface can expose "most recent N" without keeping
// every peak ever seen.
type peakTracker struct {
	recent []telemetry.Peak
	count  int
	retain int
}

func newPeakTracker(retain int) *peakTracker {
	return &peakTracker{retain: retain}
}

func (p *peakTracker) record(peak telemetry.Peak) {
	p.recent = append(p.recent, peak)
	if len(p.recent) > p.retain {
		p.recent = p.recent[len(p.recent)-p.retain:]
	}
	p.count++
}

func (p *peakTracker) summary(recentN int) telemetry.PeaksSummary {
	n := recentN
	if n > len(p.recent) {
		n = len(p.recent)
	}
	start := len(p.recent) - n
	out := make([]telemetry.Peak, n)
	copy(out, p.recent[start:])
	return telemetry.PeaksSummary{Recent: out, Count: p.count}
}

func severityHighMediumLow(value, highThreshold, mediumThreshold float64) string {
	switch {
	case value > highThreshold:
		return "high"
	case value > mediumThreshold:
		return "medium"
	default:
		return "low"
	}
}
