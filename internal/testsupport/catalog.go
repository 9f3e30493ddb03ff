package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"aircheck/internal/config"
	"aircheck/internal/shows"
)

// WriteCatalog writes a small show and station catalog to the paths named by
// the config. It contains one station ("wxyz") streaming at streamURL, a
// daily show "morning-show", and a weekly show "jazz-hour".
func WriteCatalog(t testing.TB, cfg *config.Config, streamURL string) {
	t.Helper()

	stationsJSON := `{
  "_comment": "test stations",
  "wxyz": {"name": "WXYZ Public Radio", "stream_url": "` + streamURL + `"}
}`
	showsJSON := `{
  "morning-show": {"name": "Morning Show", "station": "wxyz", "frequency": "daily"},
  "jazz-hour": {"name": "Jazz Hour", "station": "wxyz", "frequency": "weekly"}
}`
	writeCatalogFile(t, cfg.Paths.StationsFile, stationsJSON)
	writeCatalogFile(t, cfg.Paths.ShowsFile, showsJSON)
}

// MustLoadCatalog writes the standard test catalog and loads it.
func MustLoadCatalog(t testing.TB, cfg *config.Config, streamURL string) *shows.Catalog {
	t.Helper()

	WriteCatalog(t, cfg, streamURL)
	catalog, err := shows.Load(cfg)
	if err != nil {
		t.Fatalf("shows.Load: %v", err)
	}
	return catalog
}

func writeCatalogFile(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
