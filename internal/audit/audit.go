// Package audit maintains the append-only record of security gate
// decisions and exposes them to external observability collaborators.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Record is one immutable audit entry. Targets are stored hashed so the
// audit stream never leaks file contents or command lines verbatim.
type Record struct {
	ID         string    `json:"id"`
	Capability string    `json:"capability"`
	TargetHash string    `json:"target_hash"`
	Tier       string    `json:"tier"`
	Outcome    string    `json:"outcome"`
	Timestamp  time.Time `json:"timestamp"`
}

// Sink receives records as they are appended. Sink failures are logged
// and never block the pipeline.
type Sink interface {
	Publish(rec Record) error
}

// maxRetained bounds in-memory history; the oldest records are dropped
// once the cap is reached.
const maxRetained = 10000

// Log is the append-only audit log. Appends and snapshots are safe under
// concurrent top-level handle() calls.
type Log struct {
	mu      sync.Mutex
	records []Record
	sinks   []Sink
	logger  *zap.Logger
	now     func() time.Time
}

// NewLog creates an audit log. logger may be nil.
func NewLog(logger *zap.Logger, sinks ...Sink) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{
		sinks:  sinks,
		logger: logger,
		now:    time.Now,
	}
}

// Append records one gate decision and publishes it to all sinks.
func (l *Log) Append(capability, target, tier, outcome string) Record {
	rec := Record{
		ID:         uuid.NewString(),
		Capability: capability,
		TargetHash: HashTarget(target),
		Tier:       tier,
		Outcome:    outcome,
		Timestamp:  l.now(),
	}

	l.mu.Lock()
	l.records = append(l.records, rec)
	if len(l.records) > maxRetained {
		l.records = l.records[len(l.records)-maxRetained:]
	}
	sinks := l.sinks
	l.mu.Unlock()

	for _, s := range sinks {
		if err := s.Publish(rec); err != nil {
			l.logger.Warn("audit sink publish failed",
				zap.String("record_id", rec.ID),
				zap.Error(err),
			)
		}
	}
	return rec
}

// Recent returns up to limit records, newest last. limit <= 0 returns
// the full retained history.
func (l *Log) Recent(limit int) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.records)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Record, n)
	copy(out, l.records[len(l.records)-n:])
	return out
}

// Len returns the number of retained records.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// HashTarget hashes an action target for audit storage.
func HashTarget(target string) string {
	sum := sha256.Sum256([]byte(target))
	return hex.EncodeToString(sum[:])
}
