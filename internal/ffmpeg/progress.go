package ffmpeg

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// scanProgress consumes ffmpeg's -progress key=value stream, invoking
// onProgress with the number of output seconds produced so far. The
// reader is always drained so the child never blocks on a full pipe.
func scanProgress(r io.Reader, onProgress func(seconds float64)) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		value, ok := strings.CutPrefix(line, "out_time=")
		if !ok {
			continue
		}
		if seconds, ok := parseClock(value); ok && onProgress != nil {
			onProgress(seconds)
		}
	}
}

// parseClock converts ffmpeg's HH:MM:SS.micro clock format to seconds.
func parseClock(s string) (float64, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, false
	}

	hours, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, false
	}

	total := hours*3600 + minutes*60 + seconds
	if total < 0 {
		return 0, false
	}
	return total, true
}
