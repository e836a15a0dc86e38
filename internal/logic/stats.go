package logic

import "time"

// Stats accumulates counters and compressor run time across ticks.
type Stats struct {
	startTime     time.Time
	lastHeartbeat time.Time
	counts        Counts

	cooling      bool
	coolingSince time.Time
	coolingTotal time.Duration
}

// NewStats creates a Stats tracker.
// The startTime is used for calculating uptime in heartbeat events.
func NewStats(startTime time.Time) *Stats {
	return &Stats{
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Observe records the outcome of one tick taken at now.
func (s *Stats) Observe(now time.Time, rec Record, event *Event) {
	s.counts.Ticks++
	if rec.Fault {
		s.counts.Faults++
	}

	if event != nil {
		switch event.Type {
		case EventCoolingOn:
			s.counts.CoolingOn++
		case EventCoolingOff:
			s.counts.CoolingOff++
		}
	}

	if rec.Compressor && !s.cooling {
		s.coolingSince = now
	} else if !rec.Compressor && s.cooling {
		s.coolingTotal += now.Sub(s.coolingSince)
	}
	s.cooling = rec.Compressor
}

// AddWriteErrors adds output write failures seen during a tick.
func (s *Stats) AddWriteErrors(n int) {
	s.counts.WriteErrors += n
}

// Counts returns a copy of the counters.
func (s *Stats) Counts() Counts {
	return s.counts
}

// CoolingTime returns the accumulated cooling time up to now.
func (s *Stats) CoolingTime(now time.Time) time.Duration {
	if s.cooling {
		return s.coolingTotal + now.Sub(s.coolingSince)
	}
	return s.coolingTotal
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed,
// or if interval is <= 0 (disabled).
func (s *Stats) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(s.lastHeartbeat) < interval {
		return nil
	}

	s.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp:   now,
		Uptime:      now.Sub(s.startTime),
		Counts:      s.counts,
		Cooling:     s.cooling,
		CoolingTime: s.CoolingTime(now),
	}
}
