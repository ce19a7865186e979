package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyRentReminders(t *testing.T) {
	f := newFixture(t, nil)
	b := f.building(t, 4)

	// 到期日 2024-01-05，默认提前3天
	due := f.tenant(t, uintPtr(f.house(t, b.ID, "A").ID), true)
	dueCharge := f.charge(t, due.ID, 2024, 1)

	req := f.tenantRequest(uintPtr(f.house(t, b.ID, "B").ID), true)
	req.RentDueDate = time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
	later, err := f.tenants.CreateTenant(f.ctx, f.owner, req)
	require.NoError(t, err)
	f.charge(t, later.ID, 2024, 1)

	f.tenant(t, uintPtr(f.house(t, b.ID, "C").ID), true)

	req = f.tenantRequest(uintPtr(f.house(t, b.ID, "D").ID), true)
	req.SMSNotifications = boolPtr(false)
	muted, err := f.tenants.CreateTenant(f.ctx, f.owner, req)
	require.NoError(t, err)
	f.charge(t, muted.ID, 2024, 1)

	today := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)
	res, err := f.reminders.SendDailyRentReminders(f.ctx, f.owner, today)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Checked)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 1, res.Skipped)
	assert.Zero(t, res.Failed)

	jobs := f.sender.JobsOfKind(SMSKindReminder)
	require.Len(t, jobs, 1)
	assert.Equal(t, due.Phone, jobs[0].To)

	got, err := f.ledger.GetRentCharge(f.ctx, f.owner, dueCharge.ID)
	require.NoError(t, err)
	assert.True(t, got.ReminderSent)

	// 到期当天不再重复提醒同一账单
	res, err = f.reminders.SendDailyRentReminders(f.ctx, f.owner, time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, res.Sent)
	assert.Len(t, f.sender.JobsOfKind(SMSKindReminder), 1)
}

func TestDailyRentRemindersCountsSendFailures(t *testing.T) {
	f := newFixture(t, nil)
	b := f.building(t, 1)
	tenant := f.tenant(t, uintPtr(f.house(t, b.ID, "A").ID), true)
	rc := f.charge(t, tenant.ID, 2024, 1)

	f.sender.err = errors.New("broker offline")
	res, err := f.reminders.SendDailyRentReminders(f.ctx, 0, time.Date(2024, 1, 5, 7, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)

	got, err := f.ledger.GetRentCharge(f.ctx, f.owner, rc.ID)
	require.NoError(t, err)
	assert.False(t, got.ReminderSent)
}

func TestOverdueNotices(t *testing.T) {
	f := newFixture(t, nil)
	b := f.building(t, 2)
	tenant := f.tenant(t, uintPtr(f.house(t, b.ID, "A").ID), true)
	dec23 := f.charge(t, tenant.ID, 2023, 12)
	jan := f.charge(t, tenant.ID, 2024, 1)
	f.pay(t, dec23, "1000")
	f.pay(t, jan, "600")

	onTime := f.tenant(t, uintPtr(f.house(t, b.ID, "B").ID), true)
	_, err := f.tenants.UpdateTenant(f.ctx, f.owner, onTime.ID, TenantUpdate{RentDueDate: timePtr(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))})
	require.NoError(t, err)
	f.charge(t, onTime.ID, 2024, 1)

	res, err := f.reminders.SendOverdueNotices(f.ctx, f.owner, time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Checked)
	assert.Equal(t, 1, res.Sent)

	jobs := f.sender.JobsOfKind(SMSKindOverdue)
	require.Len(t, jobs, 1)
	assert.Contains(t, jobs[0].Message, "OVERDUE NOTICE: Your rent payment for January 2024 is 5 days overdue.")
	assert.Contains(t, jobs[0].Message, "Amount Due: KES 400.00")
	assert.Contains(t, jobs[0].Message, "Due Date: 05 Jan 2024")
}

func timePtr(v time.Time) *time.Time { return &v }
