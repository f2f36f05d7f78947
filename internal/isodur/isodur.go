// Package isodur parses the ISO 8601 duration strings the video API
// uses for content length (e.g. "PT4M13S", "P1DT2H").
package isodur

import (
	"fmt"
	"strconv"
	"strings"
)

// Seconds converts an ISO 8601 duration to total seconds.
// Only the day, hour, minute and second components occur in video
// durations; anything else is rejected.
func Seconds(duration string) (int64, error) {
	if !strings.HasPrefix(duration, "P") {
		return 0, fmt.Errorf("invalid duration format: %s", duration)
	}
	rest := strings.TrimPrefix(duration, "P")

	var days, hours, minutes, seconds int64

	if tIdx := strings.Index(rest, "T"); tIdx != -1 {
		datePart := rest[:tIdx]
		timePart := rest[tIdx+1:]

		if datePart != "" {
			dIdx := strings.Index(datePart, "D")
			if dIdx == -1 {
				return 0, fmt.Errorf("invalid duration date part: %s", duration)
			}
			d, err := strconv.ParseInt(datePart[:dIdx], 10, 64)
			if err != nil {
				return 0, err
			}
			days = d
		}

		if hIdx := strings.Index(timePart, "H"); hIdx != -1 {
			h, err := strconv.ParseInt(timePart[:hIdx], 10, 64)
			if err != nil {
				return 0, err
			}
			hours = h
			timePart = timePart[hIdx+1:]
		}

		if mIdx := strings.Index(timePart, "M"); mIdx != -1 {
			m, err := strconv.ParseInt(timePart[:mIdx], 10, 64)
			if err != nil {
				return 0, err
			}
			minutes = m
			timePart = timePart[mIdx+1:]
		}

		if sIdx := strings.Index(timePart, "S"); sIdx != -1 {
			s, err := strconv.ParseInt(timePart[:sIdx], 10, 64)
			if err != nil {
				return 0, err
			}
			seconds = s
		}
	} else {
		// "P3D" style, no time component.
		dIdx := strings.Index(rest, "D")
		if dIdx == -1 {
			return 0, fmt.Errorf("invalid duration format: %s", duration)
		}
		d, err := strconv.ParseInt(rest[:dIdx], 10, 64)
		if err != nil {
			return 0, err
		}
		days = d
	}

	return days*86400 + hours*3600 + minutes*60 + seconds, nil
}

// SecondsOrZero is Seconds with parse failures mapped to zero, for
// callers that treat an unparseable duration as "no duration" (sorting).
func SecondsOrZero(duration string) int64 {
	s, err := Seconds(duration)
	if err != nil {
		return 0
	}
	return s
}
