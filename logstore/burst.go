package logstore

import "strings"

// isCritical reports whether msg matches one of the critical patterns.
func (s *Store) isCritical(msg string) bool {
	lower := strings.ToLower(msg)
	for _, p := range s.cfg.CriticalPatterns {
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// detectBurstLocked counts error entries from e's component with e's exact
// message inside the trailing burst window, e included. It reports whether
// an alert should fire, honouring the per-pattern cooldown.
func (s *Store) detectBurstLocked(e Entry) (int, bool) {
	if !e.IsError() || !s.isCritical(e.Message) {
		return 0, false
	}

	at := e.Timestamp()
	since := at.Add(-s.cfg.BurstWindow)
	count := 0
	for _, x := range s.entries {
		if !x.IsError() || x.Context.Component != e.Context.Component || x.Message != e.Message {
			continue
		}
		if x.Timestamp().Before(since) || x.Timestamp().After(at) {
			continue
		}
		count++
	}
	if count < s.cfg.BurstThreshold {
		return count, false
	}

	if s.cfg.BurstCooldown > 0 {
		key := e.Context.Component + "\x00" + e.Message
		if last, ok := s.lastAlert[key]; ok && at.Sub(last) < s.cfg.BurstCooldown {
			return count, false
		}
		for k, t := range s.lastAlert {
			if at.Sub(t) >= s.cfg.BurstCooldown {
				delete(s.lastAlert, k)
			}
		}
		s.lastAlert[key] = at
	}
	return count, true
}
