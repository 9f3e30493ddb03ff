package naming_test

import (
	"strings"
	"testing"
	"time"

	"aircheck/internal/naming"
	"aircheck/internal/registry"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 0, 0, 0, time.UTC)
}

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Morning Edition", "Morning Edition"},
		{"reserved chars", `Jazz: After/Hours?`, "Jazz_ After_Hours_"},
		{"trailing dots and spaces", "  The Late Show... ", "The Late Show"},
		{"empty", "", "Unknown_Show"},
		{"only invalid", `///"""`, "Unknown_Show"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := naming.SanitizeName(tc.input); got != tc.want {
				t.Fatalf("SanitizeName(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestSanitizeNameTruncatesLongNames(t *testing.T) {
	long := strings.Repeat("x", 300)
	got := naming.SanitizeName(long)
	if len(got) > 100 {
		t.Fatalf("sanitized name too long: %d chars", len(got))
	}
}

func TestFilename(t *testing.T) {
	got := naming.Filename("Morning Edition", date(2026, time.March, 5))
	want := "2026-03-05 Morning Edition.mp3"
	if got != want {
		t.Fatalf("Filename = %q, want %q", got, want)
	}
}

func TestAlbum(t *testing.T) {
	got := naming.Album("Morning Edition", date(2026, time.December, 31))
	if got != "Morning Edition 2026" {
		t.Fatalf("Album = %q", got)
	}
}

func TestTrackNumberDaily(t *testing.T) {
	cases := []struct {
		day  time.Time
		want int
	}{
		{date(2026, time.January, 1), 1},
		{date(2026, time.February, 1), 32},
		{date(2026, time.December, 31), 365},
	}
	for _, tc := range cases {
		if got := naming.TrackNumber(registry.FrequencyDaily, tc.day); got != tc.want {
			t.Fatalf("TrackNumber(daily, %s) = %d, want %d", tc.day.Format("2006-01-02"), got, tc.want)
		}
	}
}

func TestTrackNumberWeekly(t *testing.T) {
	cases := []struct {
		day  time.Time
		want int
	}{
		{date(2026, time.January, 1), 1},
		{date(2026, time.January, 7), 1},
		{date(2026, time.January, 8), 2},
		{date(2026, time.January, 15), 3},
	}
	for _, tc := range cases {
		if got := naming.TrackNumber(registry.FrequencyWeekly, tc.day); got != tc.want {
			t.Fatalf("TrackNumber(weekly, %s) = %d, want %d", tc.day.Format("2006-01-02"), got, tc.want)
		}
	}
}

func TestRemotePath(t *testing.T) {
	cases := []struct {
		name string
		base string
		want string
	}{
		{"clean base", "/archive/recordings", "/archive/recordings/Show/Show 2026/2026-01-02 Show.mp3"},
		{"trailing slash", "/archive/recordings/", "/archive/recordings/Show/Show 2026/2026-01-02 Show.mp3"},
		{"doubled separators", "/archive//recordings", "/archive/recordings/Show/Show 2026/2026-01-02 Show.mp3"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := naming.RemotePath(tc.base, "Show", "Show 2026", "2026-01-02 Show.mp3")
			if got != tc.want {
				t.Fatalf("RemotePath = %q, want %q", got, tc.want)
			}
		})
	}
}
