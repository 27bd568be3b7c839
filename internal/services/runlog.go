package services

import (
	"sync"
	"time"
)

const runLogCapacity = 50

// RunRecord captures one report generation attempt for the admin
// endpoint.
type RunRecord struct {
	Report     int       `json:"report"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Recipients []string  `json:"recipients"`
	OK         bool      `json:"ok"`
	Error      string    `json:"error,omitempty"`
}

// RunLog keeps the most recent run records in memory. It is the
// process-local replacement for a job-runs table: history does not
// survive a restart, which is acceptable for an advisory endpoint.
type RunLog struct {
	mu   sync.Mutex
	recs []RunRecord
}

func NewRunLog() *RunLog { return &RunLog{} }

func (l *RunLog) Add(r RunRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recs = append(l.recs, r)
	if len(l.recs) > runLogCapacity {
		l.recs = l.recs[len(l.recs)-runLogCapacity:]
	}
}

// Recent returns newest-first copies of the stored records.
func (l *RunLog) Recent() []RunRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]RunRecord, len(l.recs))
	for i, r := range l.recs {
		out[len(l.recs)-1-i] = r
	}
	return out
}

// Last returns the most recent record, if any.
func (l *RunLog) Last() (RunRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.recs) == 0 {
		return RunRecord{}, false
	}
	return l.recs[len(l.recs)-1], true
}
