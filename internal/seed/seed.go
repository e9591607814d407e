// Package seed provides the demo collections the portal starts with.
package seed

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kalambet/jobportal/internal/filter"
)

//go:embed data/*.yaml
var dataFS embed.FS

// Experience levels derived for the browse jobs filter.
const (
	LevelFresher     = "fresher"
	LevelExperienced = "experienced"
)

// Collections returns the names of every seeded collection, sorted.
func Collections() ([]string, error) {
	entries, err := dataFS.ReadDir("data")
	if err != nil {
		return nil, fmt.Errorf("reading seed directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".yaml"); ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

// Load parses the named collection.
func Load(collection string) ([]filter.Record, error) {
	raw, err := dataFS.ReadFile(path.Join("data", collection+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("unknown seed collection %q: %w", collection, err)
	}
	var records []filter.Record
	if err := yaml.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("parsing seed %s: %w", collection, err)
	}
	for i, r := range records {
		if r.ID() == "" {
			return nil, fmt.Errorf("seed %s: record %d has no id", collection, i)
		}
	}
	if collection == "jobs" {
		for _, r := range records {
			r["experienceLevel"] = ExperienceLevel(fmt.Sprint(r["experience"]))
		}
	}
	return records, nil
}

// ExperienceLevel classifies a job's experience text: anything mentioning a
// zero ("0-2 years", "0 years") is open to freshers.
func ExperienceLevel(experience string) string {
	if strings.Contains(experience, "0") {
		return LevelFresher
	}
	return LevelExperienced
}

// All loads every collection keyed by name.
func All() (map[string][]filter.Record, error) {
	names, err := Collections()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]filter.Record, len(names))
	for _, n := range names {
		recs, err := Load(n)
		if err != nil {
			return nil, err
		}
		out[n] = recs
	}
	return out, nil
}

// Seeder stores a collection unless it already has records.
type Seeder interface {
	SeedCollection(ctx context.Context, collection string, records []filter.Record) (bool, error)
}

// Apply seeds every empty collection of s and returns the names it filled.
func Apply(ctx context.Context, s Seeder, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	all, err := All()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(all))
	for n := range all {
		names = append(names, n)
	}
	slices.Sort(names)

	var filled []string
	for _, n := range names {
		seeded, err := s.SeedCollection(ctx, n, all[n])
		if err != nil {
			return filled, fmt.Errorf("seeding %s: %w", n, err)
		}
		if seeded {
			logger.Debug("seeded collection", "collection", n, "records", len(all[n]))
			filled = append(filled, n)
		}
	}
	return filled, nil
}
