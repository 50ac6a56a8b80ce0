package analysis

import (
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/ZanzyTHEbar/blc-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/blc-o-meter/internal/types"
)

// Analyzer validates incoming bundles and scores them with the engine for
// the requested vertical. Engines are built once per vertical.
type Analyzer struct {
	store           *BenchmarkStore
	defaultVertical string
	clock           func() time.Time
	logger          *slog.Logger

	mu      sync.RWMutex
	engines map[string]*Engine
}

// AnalyzerOption configures an Analyzer
type AnalyzerOption func(*Analyzer)

// WithDefaultVertical sets the vertical used when a request names none
func WithDefaultVertical(vertical string) AnalyzerOption {
	return func(a *Analyzer) {
		if vertical != "" {
			a.defaultVertical = vertical
		}
	}
}

// WithAnalyzerClock sets the clock passed to every engine
func WithAnalyzerClock(now func() time.Time) AnalyzerOption {
	return func(a *Analyzer) {
		a.clock = now
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAnalyzer creates an analyzer reading benchmark overrides from benchmarkDir
func NewAnalyzer(benchmarkDir string, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		store:           NewBenchmarkStore(benchmarkDir),
		defaultVertical: DefaultVertical,
		clock:           time.Now,
		logger:          slog.Default(),
		engines:         make(map[string]*Engine),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Store exposes the benchmark store
func (a *Analyzer) Store() *BenchmarkStore {
	return a.store
}

// AnalyzeBundle scores a bundle. A nil bundle or one without channel or
// videos is rejected before any computation.
func (a *Analyzer) AnalyzeBundle(bundle *types.ChannelBundle, vertical string) (ScoreReport, error) {
	if err := ValidateBundle(bundle); err != nil {
		return ScoreReport{}, err
	}

	engine, vertical, err := a.Engine(vertical)
	if err != nil {
		return ScoreReport{}, err
	}

	start := time.Now()
	report := engine.Score(*bundle.Channel, bundle.Videos)
	report.Vertical = vertical

	a.logger.Debug("bundle scored",
		"channel", report.ChannelName,
		"tier", report.Tier,
		"videos", report.VideoCountAnalyzed,
		"blc_score", report.BLCScore,
		"verdict", report.Verdict,
		"vertical", vertical,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return report, nil
}

// ValidateBundle checks the structural requirements of an input bundle
func ValidateBundle(bundle *types.ChannelBundle) error {
	if bundle == nil {
		return apperrors.NewValidationError("Request body must contain a channel bundle")
	}
	missing := map[string]string{}
	if bundle.Channel == nil {
		missing["channel"] = "required"
	}
	if bundle.Videos == nil {
		missing["videos"] = "required"
	}
	if len(missing) > 0 {
		return apperrors.NewValidationErrorWithMap(missing)
	}
	if bundle.Channel.SubscriberCount < 0 {
		return apperrors.NewValidationError("subscriber_count must not be negative", "field", "channel.subscriber_count")
	}
	return nil
}

// Engine returns the engine for a vertical (the default when empty) and the
// resolved vertical name
func (a *Analyzer) Engine(vertical string) (*Engine, string, error) {
	if vertical == "" {
		vertical = a.defaultVertical
	}
	if !ValidVertical(vertical) {
		return nil, "", apperrors.NewValidationError("Invalid vertical name", "vertical", vertical)
	}

	a.mu.RLock()
	engine, ok := a.engines[vertical]
	a.mu.RUnlock()
	if ok {
		return engine, vertical, nil
	}

	table, err := a.store.LoadBenchmarks(vertical)
	if err != nil {
		return nil, "", apperrors.NewConfigurationError("Failed to load benchmarks for "+vertical, err)
	}

	engine = NewEngine(WithBenchmarks(table), WithClock(a.clock))

	a.mu.Lock()
	if existing, ok := a.engines[vertical]; ok {
		engine = existing
	} else {
		a.engines[vertical] = engine
	}
	a.mu.Unlock()

	return engine, vertical, nil
}

// Reload drops cached engines so override files are read again
func (a *Analyzer) Reload() {
	a.mu.Lock()
	a.engines = make(map[string]*Engine)
	a.mu.Unlock()
}
