// Package stats keeps upload counters for the running bot and reports host
// resource usage.
package stats

import (
	"sync"
	"time"
)

type Stats struct {
	mu sync.RWMutex

	startTime time.Time
	uploads   int64
	failed    int64
	bytes     int64
	duration  time.Duration
	users     map[int64]struct{}
	last      time.Time
}

type Snapshot struct {
	Uploads     int64
	Failed      int64
	TotalBytes  int64
	Users       int
	AvgDuration time.Duration
	LastUpload  time.Time
	Uptime      time.Duration
}

func New() *Stats {
	return &Stats{startTime: time.Now(), users: make(map[int64]struct{})}
}

// RecordUpload counts one finished upload. Cancelled uploads are not recorded.
func (s *Stats) RecordUpload(userID, bytes int64, took time.Duration, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[userID] = struct{}{}
	s.last = time.Now()
	if !success {
		s.failed++
		return
	}
	s.uploads++
	s.bytes += bytes
	s.duration += took
}

func (s *Stats) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var avg time.Duration
	if s.uploads > 0 {
		avg = s.duration / time.Duration(s.uploads)
	}
	return Snapshot{
		Uploads:     s.uploads,
		Failed:      s.failed,
		TotalBytes:  s.bytes,
		Users:       len(s.users),
		AvgDuration: avg,
		LastUpload:  s.last,
		Uptime:      time.Since(s.startTime),
	}
}

func (s *Stats) StartTime() time.Time {
	return s.startTime
}
