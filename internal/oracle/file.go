package oracle

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileOracle serves prices, volatility, and book snapshots from a local
// snapshot file. It backs the offline and paper-trading modes, where an
// upstream feed handler refreshes the file and the decision core reads it
// on demand. The file is re-read when its mtime changes.
type FileOracle struct {
	mu      sync.Mutex
	path    string
	modTime int64
	snap    fileSnapshot
}

type fileSnapshot struct {
	Prices map[string]float64     `yaml:"prices"`
	ATRBps map[string]float64     `yaml:"atr_bps"`
	Books  map[string]fileBookRow `yaml:"books"`
}

type fileBookRow struct {
	BidDepth float64 `yaml:"bid_depth"`
	AskDepth float64 `yaml:"ask_depth"`
	AvgDepth float64 `yaml:"avg_depth"`
}

// NewFileOracle creates a snapshot-file oracle for path. The file may not
// exist yet; lookups fail with ErrDataUnavailable until it appears.
func NewFileOracle(path string) *FileOracle {
	return &FileOracle{path: path}
}

// Price implements PriceOracle.
func (f *FileOracle) Price(_ context.Context, symbol string) (float64, error) {
	snap, err := f.load()
	if err != nil {
		return 0, err
	}
	p, ok := snap.Prices[symbol]
	if !ok || p <= 0 {
		return 0, fmt.Errorf("%w: no price for %s", ErrDataUnavailable, symbol)
	}
	return p, nil
}

// ATRBps implements PriceOracle.
func (f *FileOracle) ATRBps(_ context.Context, symbol string) (float64, error) {
	snap, err := f.load()
	if err != nil {
		return 0, err
	}
	atr, ok := snap.ATRBps[symbol]
	if !ok || atr <= 0 {
		return 0, fmt.Errorf("%w: no atr for %s", ErrDataUnavailable, symbol)
	}
	return atr, nil
}

// Snapshot implements BookProvider.
func (f *FileOracle) Snapshot(_ context.Context, symbol string) (BookSnapshot, error) {
	snap, err := f.load()
	if err != nil {
		return BookSnapshot{}, err
	}
	row, ok := snap.Books[symbol]
	if !ok {
		return BookSnapshot{}, fmt.Errorf("%w: no book for %s", ErrDataUnavailable, symbol)
	}
	return BookSnapshot{
		BidDepth: row.BidDepth,
		AskDepth: row.AskDepth,
		AvgDepth: row.AvgDepth,
	}, nil
}

func (f *FileOracle) load() (fileSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	info, err := os.Stat(f.path)
	if err != nil {
		return fileSnapshot{}, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	mtime := info.ModTime().UnixNano()
	if mtime == f.modTime && f.snap.Prices != nil {
		return f.snap, nil
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return fileSnapshot{}, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	var snap fileSnapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return fileSnapshot{}, fmt.Errorf("%w: malformed snapshot: %v", ErrDataUnavailable, err)
	}

	f.modTime = mtime
	f.snap = snap
	return snap, nil
}
