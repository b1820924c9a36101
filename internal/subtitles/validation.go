package subtitles

import "fmt"

// Validate checks a transcript returned by the inference server before it is
// written to disk. Returns a list of issues found; empty slice means the
// transcript is usable. videoSeconds of zero skips the duration check.
func Validate(content string, videoSeconds float64) []string {
	var issues []string

	cues := CueCount(content)
	if cues == 0 {
		issues = append(issues, "empty_transcript")
		return issues
	}

	last := LastTimestamp(content)
	if last == 0 {
		issues = append(issues, "no_valid_timestamps")
	}

	if videoSeconds > 0 && last > videoSeconds+durationSlackSeconds {
		issues = append(issues, fmt.Sprintf("cues_past_end: last=%.1fs video=%.1fs", last, videoSeconds))
	}

	return issues
}

// Cues that run slightly past the container duration are common when the
// final segment is padded; only flag overruns beyond this slack.
const durationSlackSeconds = 5.0
