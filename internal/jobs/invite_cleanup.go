package jobs

import (
	"context"
	"log"
	"time"

	"simplekanban/internal/store"
)

// InviteTokenCleanupJob deletes expired invite tokens so stale links
// stop resolving and the table stays small.
type InviteTokenCleanupJob struct {
	store    *store.Store
	interval time.Duration
	lastRun  time.Time
}

// NewInviteTokenCleanupJob creates a cleanup job running every interval.
func NewInviteTokenCleanupJob(s *store.Store, interval time.Duration) *InviteTokenCleanupJob {
	return &InviteTokenCleanupJob{store: s, interval: interval}
}

// Run deletes all invite tokens past their expiry.
func (j *InviteTokenCleanupJob) Run(ctx context.Context) error {
	j.lastRun = time.Now()

	deleted, err := j.store.DeleteExpiredInviteTokens(ctx)
	if err != nil {
		log.Printf("❌ [INVITE-CLEANUP] Failed to delete expired invite tokens: %v", err)
		return err
	}
	if deleted > 0 {
		log.Printf("🧹 [INVITE-CLEANUP] Deleted %d expired invite tokens", deleted)
	}
	return nil
}

// GetNextRunTime returns when this job should next execute.
func (j *InviteTokenCleanupJob) GetNextRunTime() time.Time {
	if j.lastRun.IsZero() {
		// First run: 1 minute after startup
		return time.Now().Add(1 * time.Minute)
	}
	return j.lastRun.Add(j.interval)
}
