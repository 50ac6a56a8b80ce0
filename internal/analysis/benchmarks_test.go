package analysis

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestBenchmarkStore_LoadBenchmarks(t *testing.T) {
	dir := t.TempDir()
	store := NewBenchmarkStore(dir)

	writeFile(t, dir, "food.json", `{"Tier_2_Mid": {"engagement_per_1k": 12, "views_per_day": 300, "demand_index": 0.2, "problem_rate": 0.004, "videos_per_week_benchmark": 2}}`)
	writeFile(t, dir, "fashion.yaml", "Tier_4_Emerging:\n  engagement_per_1k: 9\n  views_per_day: 20\n  demand_index: 0.05\n  problem_rate: 0.001\n  videos_per_week_benchmark: 1.5\n")
	writeFile(t, dir, "broken.json", `{"Tier_2_Mid": [1, 2]}`)
	writeFile(t, dir, "unknown.yml", "Tier_9: {}\n")
	writeFile(t, dir, "negative.json", `{"Tier_1_Major": {"views_per_day": -1}}`)

	tests := []struct {
		name     string
		vertical string
		check    func(t *testing.T, table BenchmarkTable)
		hasError bool
	}{
		{
			name:     "missing file falls back to defaults",
			vertical: "beauty",
			check: func(t *testing.T, table BenchmarkTable) {
				assert.Equal(t, DefaultBenchmarks(), table)
			},
		},
		{
			name:     "json override replaces one tier",
			vertical: "food",
			check: func(t *testing.T, table BenchmarkTable) {
				assert.Equal(t, Benchmark{EngagementPer1K: 12, ViewsPerDay: 300, DemandIndex: 0.2, ProblemRate: 0.004, VideosPerWeek: 2}, table[TierMid])
				assert.Equal(t, DefaultBenchmarks()[TierMajor], table[TierMajor])
			},
		},
		{
			name:     "yaml override",
			vertical: "fashion",
			check: func(t *testing.T, table BenchmarkTable) {
				assert.Equal(t, 9.0, table[TierEmerging].EngagementPer1K)
				assert.Equal(t, 1.5, table[TierEmerging].VideosPerWeek)
			},
		},
		{name: "malformed file", vertical: "broken", hasError: true},
		{name: "unknown tier", vertical: "unknown", hasError: true},
		{name: "negative benchmark", vertical: "negative", hasError: true},
		{name: "path traversal rejected", vertical: "../etc", hasError: true},
		{name: "empty vertical rejected", vertical: "", hasError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := store.LoadBenchmarks(tt.vertical)
			if tt.hasError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, table)
		})
	}
}

func TestBenchmarkStore_NoDataDir(t *testing.T) {
	table, err := NewBenchmarkStore("").LoadBenchmarks("beauty")
	require.NoError(t, err)
	assert.Equal(t, DefaultBenchmarks(), table)
}

func TestBenchmarkStore_SaveAndList(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "benchmarks")
	store := NewBenchmarkStore(dir)

	verticals, err := store.Verticals()
	require.NoError(t, err)
	assert.Empty(t, verticals)

	table := DefaultBenchmarks()
	table[TierRising] = Benchmark{EngagementPer1K: 19, ViewsPerDay: 210, DemandIndex: 0.25, ProblemRate: 0.006, VideosPerWeek: 1}
	require.NoError(t, store.SaveBenchmarks("pets", table))
	require.NoError(t, store.SaveBenchmarks("beauty", DefaultBenchmarks()))
	writeFile(t, dir, "notes.txt", "ignored")

	loaded, err := store.LoadBenchmarks("pets")
	require.NoError(t, err)
	assert.Equal(t, table, loaded)

	verticals, err = store.Verticals()
	require.NoError(t, err)
	assert.Equal(t, []string{"beauty", "pets"}, verticals)

	assert.Error(t, store.SaveBenchmarks("Bad Name", table))
}

func TestValidVertical(t *testing.T) {
	assert.True(t, ValidVertical("beauty"))
	assert.True(t, ValidVertical("k-beauty_2"))
	assert.False(t, ValidVertical("Beauty"))
	assert.False(t, ValidVertical("a/b"))
	assert.False(t, ValidVertical("-lead"))
}
