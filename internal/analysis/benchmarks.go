package analysis

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultVertical is the vertical the built-in benchmarks were tuned for
const DefaultVertical = "beauty"

var verticalPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// ValidVertical reports whether name is safe to use as an override file name
func ValidVertical(name string) bool {
	return verticalPattern.MatchString(name)
}

// BenchmarkStore manages per-vertical benchmark overrides on disk.
// Files live at <dir>/<vertical>.json, .yaml or .yml and map tier names to
// benchmarks; tiers that are not listed keep their default values.
type BenchmarkStore struct {
	dataDir string
}

// NewBenchmarkStore creates a new benchmark store
func NewBenchmarkStore(dataDir string) *BenchmarkStore {
	return &BenchmarkStore{dataDir: dataDir}
}

// LoadBenchmarks returns the effective table for a vertical
func (s *BenchmarkStore) LoadBenchmarks(vertical string) (BenchmarkTable, error) {
	if !ValidVertical(vertical) {
		return nil, fmt.Errorf("invalid vertical name %q", vertical)
	}

	table := DefaultBenchmarks()
	if s.dataDir == "" {
		return table, nil
	}

	path, ok := s.findFile(vertical)
	if !ok {
		return table, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read benchmark file: %w", err)
	}

	overrides := make(map[string]Benchmark)
	if strings.HasSuffix(path, ".json") {
		err = json.Unmarshal(data, &overrides)
	} else {
		err = yaml.Unmarshal(data, &overrides)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode benchmark file %s: %w", filepath.Base(path), err)
	}

	for name, b := range overrides {
		tier := Tier(name)
		if !tier.Valid() {
			return nil, fmt.Errorf("unknown tier %q in %s", name, filepath.Base(path))
		}
		if err := b.validate(); err != nil {
			return nil, fmt.Errorf("tier %s: %w", name, err)
		}
		table[tier] = b
	}

	return table, nil
}

// SaveBenchmarks writes a vertical's table as JSON
func (s *BenchmarkStore) SaveBenchmarks(vertical string, table BenchmarkTable) error {
	if !ValidVertical(vertical) {
		return fmt.Errorf("invalid vertical name %q", vertical)
	}

	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create benchmark directory: %w", err)
	}

	file, err := os.Create(filepath.Join(s.dataDir, vertical+".json"))
	if err != nil {
		return fmt.Errorf("failed to create benchmark file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(table); err != nil {
		return fmt.Errorf("failed to encode benchmarks: %w", err)
	}

	return nil
}

// Verticals lists the verticals that have an override file
func (s *BenchmarkStore) Verticals() ([]string, error) {
	entries, err := os.ReadDir(s.dataDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list benchmark directory: %w", err)
	}

	seen := make(map[string]struct{})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		switch ext {
		case ".json", ".yaml", ".yml":
			name := strings.TrimSuffix(entry.Name(), ext)
			if ValidVertical(name) {
				seen[name] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (s *BenchmarkStore) findFile(vertical string) (string, bool) {
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		path := filepath.Join(s.dataDir, vertical+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

func (b Benchmark) validate() error {
	values := map[string]float64{
		"engagement_per_1k":         b.EngagementPer1K,
		"views_per_day":             b.ViewsPerDay,
		"demand_index":              b.DemandIndex,
		"problem_rate":              b.ProblemRate,
		"videos_per_week_benchmark": b.VideosPerWeek,
	}
	for name, v := range values {
		if v < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}
