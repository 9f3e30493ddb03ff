// Package shows loads the show and station catalogs that describe what the
// daemon can record. Both catalogs are JSON files edited by hand, so loading
// validates the cross-references up front: every show must name a station
// that exists and carries a stream URL.
package shows

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"aircheck/internal/config"
	"aircheck/internal/registry"
)

// Show describes a single recordable program.
type Show struct {
	Key       string
	Name      string
	Station   string
	Frequency registry.Frequency
}

// Station describes a stream source.
type Station struct {
	Key       string
	Name      string
	StreamURL string
}

// Catalog holds the validated show and station tables.
type Catalog struct {
	shows    map[string]Show
	stations map[string]Station
}

type showRecord struct {
	Name      string `json:"name"`
	Station   string `json:"station"`
	Frequency string `json:"frequency"`
}

type stationRecord struct {
	Name      string `json:"name"`
	StreamURL string `json:"stream_url"`
}

// Load reads and validates both catalog files named by the configuration.
func Load(cfg *config.Config) (*Catalog, error) {
	stations, err := loadStations(cfg.Paths.StationsFile)
	if err != nil {
		return nil, err
	}
	showTable, err := loadShows(cfg.Paths.ShowsFile, stations)
	if err != nil {
		return nil, err
	}
	return &Catalog{shows: showTable, stations: stations}, nil
}

func loadStations(path string) (map[string]Station, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stations file: %w", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse stations file %s: %w", path, err)
	}

	stations := make(map[string]Station, len(raw))
	for key, body := range raw {
		if isCommentKey(key) {
			continue
		}
		var rec stationRecord
		if err := json.Unmarshal(body, &rec); err != nil {
			return nil, fmt.Errorf("station %q: %w", key, err)
		}
		if strings.TrimSpace(rec.StreamURL) == "" {
			return nil, fmt.Errorf("station %q: stream_url is required", key)
		}
		name := strings.TrimSpace(rec.Name)
		if name == "" {
			name = key
		}
		stations[key] = Station{Key: key, Name: name, StreamURL: strings.TrimSpace(rec.StreamURL)}
	}
	if len(stations) == 0 {
		return nil, fmt.Errorf("stations file %s defines no stations", path)
	}
	return stations, nil
}

func loadShows(path string, stations map[string]Station) (map[string]Show, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read shows file: %w", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse shows file %s: %w", path, err)
	}

	table := make(map[string]Show, len(raw))
	for key, body := range raw {
		if isCommentKey(key) {
			continue
		}
		var rec showRecord
		if err := json.Unmarshal(body, &rec); err != nil {
			return nil, fmt.Errorf("show %q: %w", key, err)
		}
		name := strings.TrimSpace(rec.Name)
		if name == "" {
			return nil, fmt.Errorf("show %q: name is required", key)
		}
		station := strings.TrimSpace(rec.Station)
		if station == "" {
			return nil, fmt.Errorf("show %q: station is required", key)
		}
		if _, ok := stations[station]; !ok {
			return nil, fmt.Errorf("show %q references unknown station %q", key, station)
		}
		freq := registry.FrequencyDaily
		if trimmed := strings.TrimSpace(rec.Frequency); trimmed != "" {
			parsed, ok := registry.ParseFrequency(trimmed)
			if !ok {
				return nil, fmt.Errorf("show %q: frequency must be daily or weekly, got %q", key, rec.Frequency)
			}
			freq = parsed
		}
		table[key] = Show{Key: key, Name: name, Station: station, Frequency: freq}
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("shows file %s defines no shows", path)
	}
	return table, nil
}

// Comment entries let operators annotate the hand-edited JSON catalogs.
func isCommentKey(key string) bool {
	return strings.HasPrefix(key, "_")
}

// Get returns the show for a key.
func (c *Catalog) Get(key string) (Show, bool) {
	show, ok := c.shows[key]
	return show, ok
}

// StationFor returns the station a show records from.
func (c *Catalog) StationFor(show Show) (Station, bool) {
	station, ok := c.stations[show.Station]
	return station, ok
}

// Shows returns all shows sorted by key.
func (c *Catalog) Shows() []Show {
	out := make([]Show, 0, len(c.shows))
	for _, show := range c.shows {
		out = append(out, show)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Len returns the number of shows in the catalog.
func (c *Catalog) Len() int {
	return len(c.shows)
}
