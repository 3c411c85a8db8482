package arena

import "sync/atomic"

// ScoreBoard counts completed fights. Safe for concurrent use.
type ScoreBoard struct {
	totalFights atomic.Int64
}

// RecordFight records one successful fight transaction.
func (s *ScoreBoard) RecordFight() {
	s.totalFights.Add(1)
}

// TotalFights returns the number of fights recorded so far.
func (s *ScoreBoard) TotalFights() int64 {
	return s.totalFights.Load()
}
