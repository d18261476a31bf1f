package mbti

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Service owns the session state of a dashboard: configuration, the
// memoized table and an optional file watcher. Queries run against the
// current table.
type Service struct {
	memo   *Memo
	logger *zap.Logger

	cfgMu     sync.RWMutex
	cfg       Config
	formatter *PercentFormatter

	tableMu sync.RWMutex
	table   *Table

	watchMu sync.Mutex
	watcher *Watcher
}

// Snapshot gathers every view the dashboard renders at once.
type Snapshot struct {
	Source       SourceID        `json:"source"`
	Countries    []string        `json:"countries"`
	Types        []TypeCode      `json:"types"`
	Averages     []TypeAverage   `json:"averages"`
	MostCommon   []TypeAverage   `json:"mostCommon"`
	SelectedType TypeCode        `json:"selectedType,omitempty"`
	Top          []RankedCountry `json:"top,omitempty"`
	Reference    string          `json:"reference"`
	Target       string          `json:"target,omitempty"`
	Comparison   *Comparison     `json:"comparison,omitempty"`
	// ReferenceMissing is set when the configured reference country is not
	// in the table; the comparison view is then skipped.
	ReferenceMissing bool `json:"referenceMissing"`
}

// NewService constructs a service. The dataset is loaded lazily on first use.
func NewService(cfg Config, loader *Loader, logger *zap.Logger) (*Service, error) {
	if loader == nil {
		return nil, errors.New("loader is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	formatter, err := NewPercentFormatter(cfg.Locale)
	if err != nil {
		return nil, err
	}
	return &Service{
		memo:      NewMemo(loader),
		logger:    logger,
		cfg:       cfg,
		formatter: formatter,
	}, nil
}

// Close stops the watcher if one is running.
func (s *Service) Close() error {
	s.watchMu.Lock()
	w := s.watcher
	s.watcher = nil
	s.watchMu.Unlock()
	if w != nil {
		w.Stop()
	}
	return nil
}

// Config returns a copy of the current configuration.
func (s *Service) Config() Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg.Clone()
}

// UpdateConfig replaces the configuration. A changed data path drops the
// current table.
func (s *Service) UpdateConfig(cfg Config) error {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	formatter, err := NewPercentFormatter(cfg.Locale)
	if err != nil {
		return err
	}
	s.cfgMu.Lock()
	pathChanged := s.cfg.DataPath != cfg.DataPath
	s.cfg = cfg
	s.formatter = formatter
	s.cfgMu.Unlock()
	if pathChanged {
		s.tableMu.Lock()
		s.table = nil
		s.tableMu.Unlock()
	}
	return nil
}

// Formatter returns the percent formatter for the configured locale.
func (s *Service) Formatter() *PercentFormatter {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.formatter
}

// Memo exposes the session cache.
func (s *Service) Memo() *Memo {
	return s.memo
}

// Reload loads the configured dataset through the memo and makes it current.
// On failure the previous table is dropped so stale data is never served.
func (s *Service) Reload() (*Table, error) {
	path := s.Config().DataPath
	table, err := s.memo.Load(path)
	s.tableMu.Lock()
	s.table = table
	s.tableMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return table, nil
}

// Table returns the current table, loading it on first use.
func (s *Service) Table() (*Table, error) {
	s.tableMu.RLock()
	table := s.table
	s.tableMu.RUnlock()
	if table != nil {
		return table, nil
	}
	return s.Reload()
}

// Averages runs the global average view.
func (s *Service) Averages() ([]TypeAverage, error) {
	table, err := s.Table()
	if err != nil {
		return nil, err
	}
	return GlobalAverage(table), nil
}

// MostCommon returns the configured number of most common types.
func (s *Service) MostCommon() ([]TypeAverage, error) {
	avgs, err := s.Averages()
	if err != nil {
		return nil, err
	}
	return MostCommon(avgs, s.Config().MostCommon), nil
}

// TopN ranks countries for code; n <= 0 uses the configured length.
func (s *Service) TopN(code TypeCode, n int) ([]RankedCountry, error) {
	table, err := s.Table()
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		n = s.Config().TopN
	}
	return TopNByType(table, code, n)
}

// Compare compares the configured reference country with target.
func (s *Service) Compare(target string) (*Comparison, error) {
	return s.CompareWith(s.Config().ReferenceCountry, target)
}

// CompareWith compares two arbitrary countries.
func (s *Service) CompareWith(reference, target string) (*Comparison, error) {
	table, err := s.Table()
	if err != nil {
		return nil, err
	}
	return Compare(table, reference, target)
}

// DefaultTarget picks the initial comparison target: the last persisted
// choice, then the configured default, then the first country.
func (s *Service) DefaultTarget() (string, error) {
	table, err := s.Table()
	if err != nil {
		return "", err
	}
	cfg := s.Config()
	for _, candidate := range []string{cfg.LastTarget, cfg.DefaultTarget} {
		if candidate == "" {
			continue
		}
		if _, ok := table.Row(candidate); ok {
			return candidate, nil
		}
	}
	countries := table.Countries()
	if len(countries) == 0 {
		return "", fmt.Errorf("%w: table has no rows", ErrCountryNotFound)
	}
	return countries[0], nil
}

// Snapshot computes every dashboard view. An empty code selects the first
// type of the table; an empty target uses DefaultTarget. A missing reference
// country is reported through ReferenceMissing rather than an error.
func (s *Service) Snapshot(code TypeCode, target string) (*Snapshot, error) {
	table, err := s.Table()
	if err != nil {
		return nil, err
	}
	cfg := s.Config()
	avgs := GlobalAverage(table)
	snap := &Snapshot{
		Source:     table.Source(),
		Countries:  table.Countries(),
		Types:      table.Types(),
		Averages:   avgs,
		MostCommon: MostCommon(avgs, cfg.MostCommon),
		Reference:  cfg.ReferenceCountry,
	}

	if code == "" && len(snap.Types) > 0 {
		code = snap.Types[0]
	}
	if code != "" {
		top, err := TopNByType(table, code, cfg.TopN)
		if err != nil {
			return nil, err
		}
		snap.SelectedType = code
		snap.Top = top
	}

	if target == "" && table.Len() > 0 {
		if target, err = s.DefaultTarget(); err != nil {
			return nil, err
		}
	}
	snap.Target = target
	if _, ok := table.Row(cfg.ReferenceCountry); !ok {
		snap.ReferenceMissing = true
		s.logger.Warn("reference country missing", zap.String("reference", cfg.ReferenceCountry))
		return snap, nil
	}
	if target != "" {
		cmp, err := Compare(table, cfg.ReferenceCountry, target)
		if err != nil {
			return nil, err
		}
		snap.Comparison = cmp
	}
	return snap, nil
}

// Watch starts a file watcher that reloads the dataset on change and then
// calls onChange with the reload result. Calling Watch twice is a no-op.
func (s *Service) Watch(ctx context.Context, onChange func(*Table, error)) error {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if s.watcher != nil {
		return nil
	}
	w, err := NewWatcher(s.Config().DataPath, s.memo, WatcherOptions{
		Logger: s.logger,
		OnChange: func(string) {
			table, err := s.Reload()
			if err != nil {
				s.logger.Warn("reload after change failed", zap.Error(err))
			}
			if onChange != nil {
				onChange(table, err)
			}
		},
	})
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return err
	}
	s.watcher = w
	return nil
}
