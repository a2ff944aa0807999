package multiplayer

import "time"

// Scheduler paces a client's outbound traffic independently of any frame
// rate: moves are sampled every MoveInterval and a heartbeat goes out when
// nothing else was sent for the current heartbeat interval.
type Scheduler struct {
	MoveInterval     time.Duration
	HeartbeatWaiting time.Duration
	HeartbeatPlaying time.Duration

	lastMove time.Time
	lastSend time.Time
}

// NewScheduler creates a scheduler with the given cadences.
func NewScheduler(move, waiting, playing time.Duration) *Scheduler {
	return &Scheduler{
		MoveInterval:     move,
		HeartbeatWaiting: waiting,
		HeartbeatPlaying: playing,
	}
}

// DefaultScheduler uses 30ms move sampling, a 1s heartbeat in the lobby and
// a 30ms heartbeat once playing.
func DefaultScheduler() *Scheduler {
	return NewScheduler(30*time.Millisecond, time.Second, 30*time.Millisecond)
}

// MoveDue reports whether a move sample is due and, if so, starts the next interval.
func (s *Scheduler) MoveDue(now time.Time) bool {
	if !s.lastMove.IsZero() && now.Sub(s.lastMove) < s.MoveInterval {
		return false
	}
	s.lastMove = now
	return true
}

// HeartbeatDue reports whether the link has been quiet for the heartbeat
// interval of the current phase.
func (s *Scheduler) HeartbeatDue(now time.Time, playing bool) bool {
	interval := s.HeartbeatWaiting
	if playing {
		interval = s.HeartbeatPlaying
	}
	return now.Sub(s.lastSend) >= interval
}

// Sent records outbound traffic at now.
func (s *Scheduler) Sent(now time.Time) {
	s.lastSend = now
}

// PollInterval is the finest cadence the scheduler needs to be polled at.
func (s *Scheduler) PollInterval() time.Duration {
	return min(s.MoveInterval, s.HeartbeatWaiting, s.HeartbeatPlaying)
}
