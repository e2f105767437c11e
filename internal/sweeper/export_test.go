package sweeper

import "time"

// SetClock pins the sweeper's notion of now.
func (s *Sweeper) SetClock(now func() time.Time) { s.now = now }
