package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"house-rent-service/internal/domain/services"
	"house-rent-service/internal/test/testutil"
)

type fakeReminders struct {
	mu      sync.Mutex
	due     []time.Time
	overdue []time.Time
	owners  []uint
	dueErr  error
}

func (f *fakeReminders) SendDailyRentReminders(ctx context.Context, ownerID uint, today time.Time) (*services.ReminderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.due = append(f.due, today)
	f.owners = append(f.owners, ownerID)
	if f.dueErr != nil {
		return nil, f.dueErr
	}
	return &services.ReminderResult{Checked: 2, Sent: 1, Skipped: 1}, nil
}

func (f *fakeReminders) SendOverdueNotices(ctx context.Context, ownerID uint, today time.Time) (*services.ReminderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overdue = append(f.overdue, today)
	f.owners = append(f.owners, ownerID)
	return &services.ReminderResult{}, nil
}

func init() {
	testutil.SilenceLogs()
}

func TestDailyCronEntry(t *testing.T) {
	fake := &fakeReminders{}
	s := NewScheduler(fake, 8)
	purged := 0
	s.AfterRun = func() { purged++ }

	assert.Equal(t, "0 8 * * *", s.Spec())
	entries := s.cron.Entries()
	require.Len(t, entries, 1)

	next := entries[0].Schedule.Next(time.Date(2024, 1, 2, 7, 59, 0, 0, time.Local))
	assert.Equal(t, time.Date(2024, 1, 2, 8, 0, 0, 0, time.Local), next)
	assert.Equal(t, time.Date(2024, 1, 3, 8, 0, 0, 0, time.Local), entries[0].Schedule.Next(next), "一天只触发一次")

	entries[0].Job.Run()
	entries[0].Job.Run()

	assert.Len(t, fake.due, 2)
	assert.Len(t, fake.overdue, 2)
	assert.Equal(t, 2, purged)
	for _, owner := range fake.owners {
		assert.Zero(t, owner)
	}
}

func TestRunOnceContinuesAfterFailure(t *testing.T) {
	fake := &fakeReminders{dueErr: errors.New("db down")}
	s := NewScheduler(fake, 8)

	s.RunOnce(time.Date(2024, 1, 2, 8, 0, 0, 0, time.Local))

	assert.Len(t, fake.due, 1)
	assert.Len(t, fake.overdue, 1, "overdue notices still run when reminders fail")
}

func TestNewSchedulerClampsHour(t *testing.T) {
	assert.Equal(t, 8, NewScheduler(&fakeReminders{}, 24).hour)
	assert.Equal(t, 0, NewScheduler(&fakeReminders{}, 0).hour)
	assert.Equal(t, "0 23 * * *", NewScheduler(&fakeReminders{}, 23).Spec())
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(&fakeReminders{}, 8)
	s.Start()
	assert.False(t, s.cron.Entry(s.entryID).Next.IsZero())
	s.Stop()
	s.Stop()
}
