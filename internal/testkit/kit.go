// Package testkit provides in-memory adapters for the sync ports and a
// synthetic website portfolio generator for tests and local runs.
package testkit

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"dashsync/domain/grid"
	"dashsync/internal/synclog"
	"dashsync/ports"
)

// MemoryStore is an in-memory ports.ObjectStore
type MemoryStore struct {
	mu           sync.RWMutex
	objects      map[string][]byte
	contentTypes map[string]string
	// FailGet and FailPut make the named keys fail with the given error.
	FailGet map[string]error
	FailPut map[string]error
	puts    []string
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects:      map[string][]byte{},
		contentTypes: map[string]string{},
		FailGet:      map[string]error{},
		FailPut:      map[string]error{},
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.FailGet[key]; err != nil {
		return nil, err
	}
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ports.ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.FailPut[key]; err != nil {
		return err
	}
	s.objects[key] = append([]byte(nil), body...)
	s.contentTypes[key] = contentType
	s.puts = append(s.puts, key)
	return nil
}

func (s *MemoryStore) Head(ctx context.Context, key string) (ports.ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	if !ok {
		return ports.ObjectInfo{}, fmt.Errorf("%s: %w", key, ports.ErrNotFound)
	}
	return ports.ObjectInfo{Key: key, Size: int64(len(data)), ContentType: s.contentTypes[key]}, nil
}

// Seed stores a grid as CSV under key.
func (s *MemoryStore) Seed(key string, g grid.Grid) {
	data, err := grid.EncodeCSV(g)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	s.contentTypes[key] = grid.ContentTypeCSV
}

// Grid decodes the CSV stored under key, or returns nil.
func (s *MemoryStore) Grid(key string) grid.Grid {
	s.mu.RLock()
	data, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	g, err := grid.DecodeCSV(data)
	if err != nil {
		return nil
	}
	return g
}

// Object returns the raw bytes stored under key, or nil.
func (s *MemoryStore) Object(key string) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]byte(nil), s.objects[key]...)
}

// Keys lists stored keys in order.
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.objects))
	for key := range s.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Puts lists the keys written, in write order.
func (s *MemoryStore) Puts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.puts...)
}

// StaticSheets is a ports.SheetReader over fixed tabs keyed by sheet ID and tab.
type StaticSheets struct {
	mu    sync.Mutex
	tabs  map[string]grid.Grid
	fails map[string]error
	hangs map[string]bool
	reads []string
}

// NewStaticSheets creates an empty reader
func NewStaticSheets() *StaticSheets {
	return &StaticSheets{tabs: map[string]grid.Grid{}, fails: map[string]error{}, hangs: map[string]bool{}}
}

func tabKey(sheetID, tab string) string {
	return sheetID + "/" + tab
}

// SetTab registers the content of a tab.
func (s *StaticSheets) SetTab(sheetID, tab string, g grid.Grid) *StaticSheets {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs[tabKey(sheetID, tab)] = g
	return s
}

// FailTab makes reads of a tab fail with err.
func (s *StaticSheets) FailTab(sheetID, tab string, err error) *StaticSheets {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fails[tabKey(sheetID, tab)] = err
	return s
}

// HangTab makes reads of a tab block until their context ends.
func (s *StaticSheets) HangTab(sheetID, tab string) *StaticSheets {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hangs[tabKey(sheetID, tab)] = true
	return s
}

func (s *StaticSheets) ReadTab(ctx context.Context, sheetID, tab string) (grid.Grid, error) {
	key := tabKey(sheetID, tab)
	s.mu.Lock()
	s.reads = append(s.reads, key)
	hang := s.hangs[key]
	s.mu.Unlock()

	if hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fails[key]; err != nil {
		return nil, err
	}
	g, ok := s.tabs[key]
	if !ok {
		return nil, fmt.Errorf("tab %q not found in sheet %s", tab, sheetID)
	}
	return g.Clone(), nil
}

// Reads lists the tabs read, in order.
func (s *StaticSheets) Reads() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.reads...)
}

// MemoryArchive is an in-memory ports.RunArchive
type MemoryArchive struct {
	mu   sync.Mutex
	runs []synclog.RunLog
	Err  error
}

func (a *MemoryArchive) Record(ctx context.Context, run synclog.RunLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return a.Err
	}
	a.runs = append(a.runs, run)
	return nil
}

func (a *MemoryArchive) Recent(ctx context.Context, limit int) ([]ports.RunSummary, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return nil, a.Err
	}
	var out []ports.RunSummary
	for i := len(a.runs) - 1; i >= 0 && len(out) < limit; i-- {
		run := a.runs[i]
		out = append(out, ports.RunSummary{
			RunID:               run.RunID,
			StartedAt:           run.LastSync,
			Status:              string(run.Status),
			DurationSeconds:     run.DurationSeconds,
			PriorityDomainCount: run.PriorityDomainCount,
			DataChanged:         len(run.Changes) > 0,
			ErrorCount:          len(run.Errors),
		})
	}
	return out, nil
}

// Runs returns the recorded runs, oldest first.
func (a *MemoryArchive) Runs() []synclog.RunLog {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]synclog.RunLog(nil), a.runs...)
}
