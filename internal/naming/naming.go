// Package naming computes the deterministic file, album, track, and remote
// path metadata for a recording. Everything here is a pure function of the
// show and the air date so the same inputs always produce the same archive
// layout.
package naming

import (
	"fmt"
	"strings"
	"time"

	"aircheck/internal/registry"
)

const maxNameLength = 100

// fallbackName is used when sanitization strips a show name to nothing.
const fallbackName = "Unknown_Show"

var invalidNameChars = strings.NewReplacer(
	"<", "_",
	">", "_",
	":", "_",
	`"`, "_",
	"/", "_",
	`\`, "_",
	"|", "_",
	"?", "_",
	"*", "_",
)

// SanitizeName makes a show name safe for use in file and directory names.
// Filesystem-reserved characters become underscores, leading and trailing
// dots and spaces are stripped, and overly long names are truncated.
func SanitizeName(name string) string {
	cleaned := invalidNameChars.Replace(strings.TrimSpace(name))
	cleaned = strings.Trim(cleaned, ". ")
	if len(cleaned) > maxNameLength {
		cleaned = strings.Trim(cleaned[:maxNameLength], ". ")
	}
	if cleaned == "" {
		return fallbackName
	}
	return cleaned
}

// Filename returns the archival file name for a recording: "YYYY-MM-DD show.mp3".
func Filename(show string, date time.Time) string {
	return fmt.Sprintf("%s %s.mp3", date.Format("2006-01-02"), SanitizeName(show))
}

// Album returns the album grouping for a recording: "show YEAR".
func Album(show string, date time.Time) string {
	return fmt.Sprintf("%s %d", SanitizeName(show), date.Year())
}

// TrackNumber computes a stable ordinal for the recording within its year.
// Daily shows use the day of year; weekly shows use the week ordinal counted
// from January 1.
func TrackNumber(freq registry.Frequency, date time.Time) int {
	switch freq {
	case registry.FrequencyWeekly:
		return 1 + (date.YearDay()-1)/7
	default:
		return date.YearDay()
	}
}

// RemotePath joins the remote base, show, album, and filename into a
// slash-separated path with exactly one separator between segments.
func RemotePath(base, show, album, filename string) string {
	segments := make([]string, 0, 4)
	trimmedBase := strings.TrimRight(strings.TrimSpace(base), "/")
	if trimmedBase != "" {
		segments = append(segments, trimmedBase)
	}
	for _, segment := range []string{show, album, filename} {
		trimmed := strings.Trim(strings.TrimSpace(segment), "/")
		if trimmed != "" {
			segments = append(segments, trimmed)
		}
	}
	return collapseSlashes(strings.Join(segments, "/"))
}

// collapseSlashes reduces runs of separators to one, preserving a leading "/".
func collapseSlashes(path string) string {
	var b strings.Builder
	b.Grow(len(path))
	prevSlash := false
	for _, r := range path {
		if r == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
