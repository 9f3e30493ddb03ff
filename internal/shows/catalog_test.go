package shows_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"aircheck/internal/config"
	"aircheck/internal/registry"
	"aircheck/internal/shows"
)

func writeCatalogs(t *testing.T, showsJSON, stationsJSON string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.ShowsFile = filepath.Join(dir, "config_shows.json")
	cfg.Paths.StationsFile = filepath.Join(dir, "config_stations.json")
	if err := os.WriteFile(cfg.Paths.ShowsFile, []byte(showsJSON), 0o644); err != nil {
		t.Fatalf("write shows: %v", err)
	}
	if err := os.WriteFile(cfg.Paths.StationsFile, []byte(stationsJSON), 0o644); err != nil {
		t.Fatalf("write stations: %v", err)
	}
	return &cfg
}

const validStations = `{
  "_comment": "station catalog",
  "kexp": {"name": "KEXP Seattle", "stream_url": "https://kexp.example/stream.mp3"}
}`

func TestLoadValidCatalog(t *testing.T) {
	cfg := writeCatalogs(t, `{
  "_comment": "show catalog",
  "morning-show": {"name": "The Morning Show", "station": "kexp", "frequency": "daily"},
  "weekly-jazz": {"name": "Jazz Theater", "station": "kexp", "frequency": "weekly"}
}`, validStations)

	catalog, err := shows.Load(cfg)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if catalog.Len() != 2 {
		t.Fatalf("expected 2 shows, got %d", catalog.Len())
	}

	show, ok := catalog.Get("weekly-jazz")
	if !ok {
		t.Fatal("expected weekly-jazz to exist")
	}
	if show.Frequency != registry.FrequencyWeekly {
		t.Fatalf("frequency = %q, want weekly", show.Frequency)
	}

	station, ok := catalog.StationFor(show)
	if !ok {
		t.Fatal("expected station to resolve")
	}
	if station.StreamURL != "https://kexp.example/stream.mp3" {
		t.Fatalf("unexpected stream url %q", station.StreamURL)
	}

	if _, ok := catalog.Get("_comment"); ok {
		t.Fatal("comment keys must not become shows")
	}
}

func TestLoadRejectsUnknownStation(t *testing.T) {
	cfg := writeCatalogs(t, `{
  "orphan": {"name": "Orphan Show", "station": "nowhere"}
}`, validStations)

	_, err := shows.Load(cfg)
	if err == nil {
		t.Fatal("expected cross-reference error")
	}
	if !strings.Contains(err.Error(), "unknown station") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRejectsBadFrequency(t *testing.T) {
	cfg := writeCatalogs(t, `{
  "show": {"name": "Show", "station": "kexp", "frequency": "hourly"}
}`, validStations)

	if _, err := shows.Load(cfg); err == nil || !strings.Contains(err.Error(), "frequency") {
		t.Fatalf("expected frequency error, got %v", err)
	}
}

func TestLoadDefaultsFrequencyToDaily(t *testing.T) {
	cfg := writeCatalogs(t, `{
  "show": {"name": "Show", "station": "kexp"}
}`, validStations)

	catalog, err := shows.Load(cfg)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	show, _ := catalog.Get("show")
	if show.Frequency != registry.FrequencyDaily {
		t.Fatalf("frequency = %q, want daily default", show.Frequency)
	}
}

func TestLoadRejectsMissingStreamURL(t *testing.T) {
	cfg := writeCatalogs(t, `{
  "show": {"name": "Show", "station": "kexp"}
}`, `{"kexp": {"name": "KEXP"}}`)

	if _, err := shows.Load(cfg); err == nil || !strings.Contains(err.Error(), "stream_url") {
		t.Fatalf("expected stream_url error, got %v", err)
	}
}
