package logstore

import (
	"cmp"
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/kbukum/faultline/errors"
)

// TopError is one distinct error message with its frequency.
type TopError struct {
	Message  string    `json:"message"`
	Count    int       `json:"count"`
	LastSeen time.Time `json:"lastSeen"`
}

// Metrics aggregates the error-level entries of the log.
type Metrics struct {
	TotalErrors       int                 `json:"totalErrors"`
	ErrorsByComponent map[string]int      `json:"errorsByComponent"`
	ErrorsByType      map[errors.Kind]int `json:"errorsByType"`
	RecentErrors      []Entry             `json:"recentErrors"`
	TopErrors         []TopError          `json:"topErrors"`
}

// Criteria filters SearchLogs. Zero fields match everything; string fields
// are case-insensitive substrings and the time range is inclusive.
type Criteria struct {
	Component string    `form:"component" json:"component,omitempty"`
	Action    string    `form:"action" json:"action,omitempty"`
	Level     Level     `form:"level" json:"level,omitempty"`
	Message   string    `form:"message" json:"message,omitempty"`
	From      time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00" json:"from,omitempty"`
	To        time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00" json:"to,omitempty"`
}

func (c Criteria) matches(e Entry) bool {
	if c.Component != "" && !containsFold(e.Context.Component, c.Component) {
		return false
	}
	if c.Action != "" && !containsFold(e.Context.Action, c.Action) {
		return false
	}
	if c.Level != "" && e.Level != c.Level {
		return false
	}
	if c.Message != "" && !containsFold(e.Message, c.Message) {
		return false
	}
	ts := e.Timestamp()
	if !c.From.IsZero() && ts.Before(c.From) {
		return false
	}
	if !c.To.IsZero() && ts.After(c.To) {
		return false
	}
	return true
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// Export is the document produced by ExportLogs.
type Export struct {
	SessionID  string    `json:"sessionId"`
	ExportedAt time.Time `json:"exportedAt"`
	Logs       []Entry   `json:"logs"`
	Metrics    Metrics   `json:"metrics"`
}

// SearchLogs returns the entries matching c in arrival order.
func (s *Store) SearchLogs(c Criteria) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, e := range s.entries {
		if c.matches(e) {
			out = append(out, e.clone())
		}
	}
	return out
}

// Metrics aggregates the current log.
func (s *Store) Metrics() Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metricsLocked(s.now())
}

// ExportLogs returns the whole log together with its metrics.
func (s *Store) ExportLogs() Export {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	return Export{
		SessionID:  s.sessionID,
		ExportedAt: now.UTC(),
		Logs:       cloneEntries(s.entries),
		Metrics:    s.metricsLocked(now),
	}
}

// ExportJSON renders ExportLogs as indented JSON.
func (s *Store) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(s.ExportLogs(), "", "  ")
}

func (s *Store) metricsLocked(now time.Time) Metrics {
	m := Metrics{
		ErrorsByComponent: make(map[string]int),
		ErrorsByType:      make(map[errors.Kind]int),
		RecentErrors:      []Entry{},
		TopErrors:         []TopError{},
	}
	top := make(map[string]*TopError)
	since := now.Add(-s.cfg.RecentWindow)

	for _, e := range s.entries {
		if !e.IsError() {
			continue
		}
		m.TotalErrors++
		component := e.Context.Component
		if component == "" {
			component = "unknown"
		}
		m.ErrorsByComponent[component]++
		m.ErrorsByType[e.effectiveKind()]++

		t, ok := top[e.Message]
		if !ok {
			t = &TopError{Message: e.Message}
			top[e.Message] = t
		}
		t.Count++
		if e.Timestamp().After(t.LastSeen) {
			t.LastSeen = e.Timestamp()
		}
	}

	for i := len(s.entries) - 1; i >= 0 && len(m.RecentErrors) < s.cfg.RecentLimit; i-- {
		e := s.entries[i]
		if e.IsError() && !e.Timestamp().Before(since) {
			m.RecentErrors = append(m.RecentErrors, e.clone())
		}
	}

	for _, t := range top {
		m.TopErrors = append(m.TopErrors, *t)
	}
	slices.SortFunc(m.TopErrors, func(a, b TopError) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		if c := b.LastSeen.Compare(a.LastSeen); c != 0 {
			return c
		}
		return strings.Compare(a.Message, b.Message)
	})
	if len(m.TopErrors) > s.cfg.TopLimit {
		m.TopErrors = m.TopErrors[:s.cfg.TopLimit]
	}
	return m
}
