package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dmoreira/transferwire/internal/models"
)

// SourceEntry is one source as declared in sources.json.
type SourceEntry struct {
	Handle      string   `json:"handle"`
	DisplayName string   `json:"displayName"`
	FeedURL     string   `json:"feedUrl"`
	Kind        string   `json:"kind"`
	Tier        int      `json:"tier"`
	Reliability float64  `json:"reliability"`
	MinScore    int      `json:"minEngagement,omitempty"`
	AllowTerms  []string `json:"allowTerms,omitempty"`
	DenyTerms   []string `json:"denyTerms,omitempty"`
	Enabled     bool     `json:"enabled"`
}

type sourcesFile struct {
	Sources []SourceEntry `json:"sources"`
}

// LoadSources loads the source registry from the given path, searching the
// usual locations when path is empty. A missing file falls back to the
// built-in defaults; a present but unparseable file is a ConfigError.
func LoadSources(path string) ([]SourceEntry, error) {
	if path == "" {
		path = findSourcesConfig()
	}
	if path == "" {
		return defaultSources(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("read sources config: %v", err)}
	}

	var file sourcesFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("parse %s: %v", path, err)}
	}

	valid := make([]SourceEntry, 0, len(file.Sources))
	for _, entry := range file.Sources {
		if err := validateEntry(entry); err != nil {
			// Invalid entries are dropped, not fatal; the caller logs
			// the final count.
			continue
		}
		valid = append(valid, entry)
	}

	sortSources(valid)
	return valid, nil
}

// findSourcesConfig searches for sources.json in common locations.
func findSourcesConfig() string {
	locations := []string{
		"sources.json",
		"./sources.json",
		"../sources.json",
		"/app/sources.json",
		"config/sources.json",
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			absPath, _ := filepath.Abs(loc)
			return absPath
		}
	}

	return ""
}

func validateEntry(e SourceEntry) error {
	if strings.TrimSpace(e.Handle) == "" {
		return fmt.Errorf("handle is empty")
	}
	if e.Tier < 1 {
		return fmt.Errorf("tier must be >= 1")
	}
	if e.Reliability < 0 || e.Reliability > 100 {
		return fmt.Errorf("reliability %v out of [0,100]", e.Reliability)
	}
	switch e.Kind {
	case "rss", "timeline":
	default:
		return fmt.Errorf("unknown source kind %q", e.Kind)
	}
	if e.FeedURL == "" {
		return fmt.Errorf("feedUrl is empty")
	}
	return nil
}

// sortSources fixes the processing priority: tier first, then name, so that
// the serial delivery stage never starves tier-1 sources near the daily cap.
func sortSources(entries []SourceEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Tier != entries[j].Tier {
			return entries[i].Tier < entries[j].Tier
		}
		return entries[i].Handle < entries[j].Handle
	})
}

// Model converts an entry to the runtime source type.
func (e SourceEntry) Model() models.Source {
	name := e.DisplayName
	if name == "" {
		name = e.Handle
	}
	return models.Source{
		ID:          strings.ToLower(e.Handle),
		Handle:      e.Handle,
		DisplayName: name,
		FeedURL:     e.FeedURL,
		Kind:        e.Kind,
		Tier:        e.Tier,
		Reliability: e.Reliability,
		MinScore:    e.MinScore,
		AllowTerms:  e.AllowTerms,
		DenyTerms:   e.DenyTerms,
		Enabled:     e.Enabled,
	}
}

// defaultSources is the registry used when no sources.json is found.
func defaultSources() []SourceEntry {
	entries := []SourceEntry{
		{Handle: "FabrizioRomano", DisplayName: "Fabrizio Romano", FeedURL: "https://feeds.example.org/FabrizioRomano.rss", Kind: "rss", Tier: 1, Reliability: 95, Enabled: true},
		{Handle: "David_Ornstein", DisplayName: "David Ornstein", FeedURL: "https://feeds.example.org/David_Ornstein.rss", Kind: "rss", Tier: 1, Reliability: 93, Enabled: true},
		{Handle: "SkySportsNews", DisplayName: "Sky Sports News", FeedURL: "https://feeds.example.org/SkySportsNews.rss", Kind: "rss", Tier: 2, Reliability: 80, Enabled: true},
		{Handle: "JPercyTelegraph", DisplayName: "John Percy", FeedURL: "https://feeds.example.org/JPercyTelegraph.rss", Kind: "rss", Tier: 2, Reliability: 78, Enabled: true},
		{Handle: "ElGolDigital", DisplayName: "El Gol Digital", FeedURL: "https://feeds.example.org/ElGolDigital.rss", Kind: "rss", Tier: 3, Reliability: 35, Enabled: true},
	}
	sortSources(entries)
	return entries
}
