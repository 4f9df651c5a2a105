package conditions

import (
	"context"
	"fmt"

	"github.com/roach88/warden/internal/ir"
	"github.com/roach88/warden/internal/state"
)

// SweepReport summarizes one sweep.
type SweepReport struct {
	Visited int
	Ticked  int
	Changed []string
	Expired []string
	Failed  []string
	Flushed bool
}

// Sweep runs one scheduler pass and flushes the store once if any
// condition changed.
func (m *Manager) Sweep(ctx context.Context) (*SweepReport, error) {
	if m.store == nil {
		return nil, ErrNotReady
	}
	report := &SweepReport{}
	now := m.now().UnixMilli()

	dirty := m.store.Batch(func() {
		for _, name := range m.categories.IDs() {
			if m.disabled[name] || !m.store.HasCategory(name) {
				continue
			}
			cat, _ := m.categories.Get(name)
			for _, id := range m.order(cat, m.store.ConditionIDs(name)) {
				m.visit(cat, id, now, report)
			}
		}
	})

	if dirty || len(report.Changed) > 0 || len(report.Expired) > 0 {
		if err := m.store.Flush(ctx); err != nil {
			return report, fmt.Errorf("sweep flush: %w", err)
		}
		report.Flushed = true
	}
	m.logger.Debug("sweep complete",
		"visited", report.Visited,
		"ticked", report.Ticked,
		"changed", len(report.Changed),
		"failed", len(report.Failed),
		"flushed", report.Flushed,
	)
	return report, nil
}

// visit processes one condition with panics isolated to it.
func (m *Manager) visit(cat Category, id string, now int64, report *SweepReport) {
	c, ok := m.store.Condition(cat.Name, id)
	if !ok {
		// Removed by an earlier condition in this sweep.
		return
	}
	report.Visited++
	key := cat.Name + "/" + id
	before := c.Value()
	changed := false

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("condition tick failed",
				"category", cat.Name,
				"condition", id,
				"panic", r,
			)
			report.Failed = append(report.Failed, key)
		}
		if current, ok := m.store.Condition(cat.Name, id); ok && current == c {
			if changed || !ir.Equal(before, c.Value()) {
				report.Changed = append(report.Changed, key)
			}
		}
	}()

	if c.Timer > 0 && now >= c.Timer {
		report.Expired = append(report.Expired, key)
		if c.TimerRemove {
			m.logger.Info("condition timer expired; removing", "category", cat.Name, "condition", id)
			m.expireRemove(cat, id, c)
			return
		}
		m.logger.Info("condition timer expired; deactivating", "category", cat.Name, "condition", id)
		c.Active = false
		c.Timer = 0
		c.TimerRemove = false
	}

	m.updateEffect(cat, id, c)

	if c.Active {
		report.Ticked++
		changed = cat.Handler.TickHandler(id, c)
	}
}

func (m *Manager) expireRemove(cat Category, id string, c *state.Condition) {
	m.setEffect(cat, id, c, false)
	m.store.RemoveCondition(cat.Name, id)
	delete(m.effects[cat.Name], id)
	m.notifyRemoved(cat, id, c)
}
