package compose

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// PlaylistFilename builds a safe, timestamped filename from a playlist name.
func PlaylistFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}

	safe := strings.TrimRight(b.String(), " ")
	safe = strings.ReplaceAll(safe, " ", "_")
	if safe == "" {
		safe = "untitled"
	}

	return fmt.Sprintf("playlist_%s_%s.mp4", safe, time.Now().Format("20060102_150405"))
}
