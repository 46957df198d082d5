package media

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// positionRegex matches [HH:]MM:SS with optional fractional seconds
var positionRegex = regexp.MustCompile(`^(?:(\d{1,2}):)?(\d{1,2}):(\d{2}(?:\.\d+)?)$`)

// ParsePosition parses a playhead position given as HH:MM:SS, MM:SS or plain
// seconds ("12.5").
func ParsePosition(s string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("invalid position %q: must not be negative", s)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}

	matches := positionRegex.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("invalid position format %q: expected HH:MM:SS, MM:SS or seconds", s)
	}

	hours := 0
	if matches[1] != "" {
		hours, _ = strconv.Atoi(matches[1])
	}
	minutes, _ := strconv.Atoi(matches[2])
	seconds, _ := strconv.ParseFloat(matches[3], 64)

	if minutes > 59 {
		return 0, fmt.Errorf("invalid position %q: minutes must be 0-59", s)
	}
	if seconds >= 60 {
		return 0, fmt.Errorf("invalid position %q: seconds must be 0-59", s)
	}

	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds*float64(time.Second)), nil
}

// FormatPosition renders d as HH:MM:SS
func FormatPosition(d time.Duration) string {
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total/60%60, total%60)
}
