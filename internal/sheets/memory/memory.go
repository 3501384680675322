package memory

import (
	"context"
	"sync"

	"society/internal/core"
	ports "society/internal/sheets"
)

// Exporter keeps the last export of every tab in memory.
type Exporter struct {
	mu     sync.Mutex
	tabs   map[string][][]any
	writes int
}

var _ ports.ReportExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{tabs: map[string][][]any{}}
}

// ExportMonth replaces the month tab and returns a synthetic reference.
func (e *Exporter) ExportMonth(_ context.Context, rows *core.ReportRows) (string, error) {
	if rows == nil || rows.Month == 0 {
		return "", ports.ErrNoMonth
	}
	tab := ports.TabName("", rows.Year, rows.Month)
	values := ports.Values(rows)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.tabs[tab] = values
	e.writes++
	return "mem:" + tab, nil
}

// Tab returns the cells of a tab and whether it exists.
func (e *Exporter) Tab(name string) ([][]any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.tabs[name]
	return v, ok
}

// Writes is the number of exports performed.
func (e *Exporter) Writes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.writes
}
