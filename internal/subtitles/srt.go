// Package subtitles validates SRT transcripts and writes them as sidecar
// files next to the source video.
package subtitles

import (
	"fmt"
	"strconv"
	"strings"
)

// CueCount returns the number of non-empty cue blocks in an SRT document.
func CueCount(content string) int {
	trimmed := strings.TrimSpace(normalizeNewlines(content))
	if trimmed == "" {
		return 0
	}
	blocks := strings.Split(trimmed, "\n\n")
	count := 0
	for _, block := range blocks {
		if strings.TrimSpace(block) != "" {
			count++
		}
	}
	return count
}

// LastTimestamp returns the latest cue end time in seconds.
func LastTimestamp(content string) float64 {
	var last float64
	for _, line := range strings.Split(normalizeNewlines(content), "\n") {
		if !strings.Contains(line, "-->") {
			continue
		}
		parts := strings.Split(line, "-->")
		if len(parts) != 2 {
			continue
		}
		seconds, err := parseSRTTimestamp(parts[1])
		if err != nil {
			continue
		}
		if seconds > last {
			last = seconds
		}
	}
	return last
}

func normalizeNewlines(content string) string {
	return strings.ReplaceAll(content, "\r\n", "\n")
}

func parseSRTTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	// Some encoders emit a period instead of the standard comma.
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}
