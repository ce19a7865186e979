package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"house-rent-service/internal/domain/models"
	"house-rent-service/internal/test/testutil"
)

func TestFormatMoney(t *testing.T) {
	cases := map[string]string{
		"0":           "0.00",
		"999":         "999.00",
		"1000":        "1,000.00",
		"1234.5":      "1,234.50",
		"1234567.891": "1,234,567.89",
		"-1000":       "-1,000.00",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatMoney(dec(in)), in)
	}
}

func TestDaysBetween(t *testing.T) {
	from := time.Date(2024, 1, 2, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, 3, daysBetween(from, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, daysBetween(from, time.Date(2024, 1, 2, 1, 0, 0, 0, time.UTC)))
	assert.Equal(t, -1, daysBetween(from, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)))
}

func TestWelcomeMessageOnMoveIn(t *testing.T) {
	f := newFixture(t, nil)
	b := f.building(t, 2)
	h := f.house(t, b.ID, "A")

	waiting := f.tenant(t, nil, true)
	assert.Empty(t, f.sender.JobsOfKind(SMSKindWelcome))

	_, err := f.tenants.UpdateTenant(f.ctx, f.owner, waiting.ID, TenantUpdate{HouseID: uintPtr(h.ID)})
	require.NoError(t, err)

	jobs := f.sender.JobsOfKind(SMSKindWelcome)
	require.Len(t, jobs, 1)
	assert.Equal(t, waiting.Phone, jobs[0].To)
	assert.NotEmpty(t, jobs[0].ID)
	assert.Contains(t, jobs[0].Message, "Welcome "+waiting.Name+"!")
	assert.Contains(t, jobs[0].Message, b.Name+" - House A")
	assert.Contains(t, jobs[0].Message, "Monthly Rent: KES 1,000.00")
	assert.Contains(t, jobs[0].Message, "Rent Due Date: 05 of each month")

	// 未换房的更新不重复发送
	_, err = f.tenants.UpdateTenant(f.ctx, f.owner, waiting.ID, TenantUpdate{Name: strPtr("Renamed")})
	require.NoError(t, err)
	assert.Len(t, f.sender.JobsOfKind(SMSKindWelcome), 1)
}

func TestPaymentConfirmationMessages(t *testing.T) {
	f := newFixture(t, nil)
	b := f.building(t, 1)
	tenant := f.tenant(t, uintPtr(f.house(t, b.ID, "A").ID), true)
	rc := f.charge(t, tenant.ID, 2024, 1)

	paidAt := time.Date(2024, 1, 3, 14, 30, 0, 0, time.UTC)
	_, err := f.ledger.RecordPayment(f.ctx, f.owner, PaymentRequest{
		TenantID: tenant.ID, RentChargeID: rc.ID, Amount: dec("600"), Method: models.PaymentMethodMPesa, Reference: "QAB123", PaidAt: &paidAt,
	})
	require.NoError(t, err)
	f.pay(t, rc, "400")

	jobs := f.sender.JobsOfKind(SMSKindConfirmation)
	require.Len(t, jobs, 2)
	assert.Contains(t, jobs[0].Message, "Payment Received: KES 600.00 for January 2024 rent.")
	assert.Contains(t, jobs[0].Message, "Payment Method: M-Pesa")
	assert.Contains(t, jobs[0].Message, "Date: 03 Jan 2024, 02:30 PM")
	assert.Contains(t, jobs[0].Message, "Remaining balance: KES 400.00")
	assert.Contains(t, jobs[1].Message, "Payment Received: KES 400.00")
	assert.Contains(t, jobs[1].Message, "Your rent is now fully paid. Thank you!")
}

func TestSenderFailureDoesNotFailPayment(t *testing.T) {
	f := newFixture(t, nil)
	b := f.building(t, 1)
	tenant := f.tenant(t, uintPtr(f.house(t, b.ID, "A").ID), true)
	rc := f.charge(t, tenant.ID, 2024, 1)

	f.sender.err = errors.New("broker offline")
	p := f.pay(t, rc, "100")
	assert.Equal(t, "900.00", p.RentCharge.Balance.StringFixed(2))
}

func TestRentDueReminderWording(t *testing.T) {
	f := newFixture(t, nil)
	b := f.building(t, 1)
	tenant := f.tenant(t, uintPtr(f.house(t, b.ID, "A").ID), true)
	rc := f.charge(t, tenant.ID, 2024, 1)
	f.pay(t, rc, "250")

	cases := []struct {
		today time.Time
		want  string
	}{
		{time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC), "is due in 3 days (05 Jan 2024)"},
		{time.Date(2024, 1, 4, 8, 0, 0, 0, time.UTC), "is due TOMORROW (05 Jan 2024)"},
		{time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC), "is due TODAY (05 Jan 2024)"},
	}
	for i, tc := range cases {
		require.NoError(t, f.notifier.SendRentDueReminder(f.ctx, rc.ID, tc.today))
		jobs := f.sender.JobsOfKind(SMSKindReminder)
		require.Len(t, jobs, i+1)
		msg := jobs[i].Message
		assert.Contains(t, msg, "Hi "+tenant.Name)
		assert.Contains(t, msg, "Your rent of KES 1,000.00 for "+b.Name+" - House A "+tc.want)
		assert.Contains(t, msg, "Current balance: KES 750.00")
		assert.Contains(t, msg, "Thank you for your prompt payment!")
	}

	got, err := f.ledger.GetRentCharge(f.ctx, f.owner, rc.ID)
	require.NoError(t, err)
	assert.True(t, got.ReminderSent)
	assert.NotNil(t, got.ReminderSentAt)

	reloaded, err := f.tenants.GetTenant(f.ctx, f.owner, tenant.ID)
	require.NoError(t, err)
	assert.NotNil(t, reloaded.LastReminderSentAt)
}

func TestNotificationsRespectTenantOptOut(t *testing.T) {
	f := newFixture(t, nil)
	b := f.building(t, 1)
	req := f.tenantRequest(uintPtr(f.house(t, b.ID, "A").ID), true)
	req.SMSNotifications = boolPtr(false)
	tenant, err := f.tenants.CreateTenant(f.ctx, f.owner, req)
	require.NoError(t, err)
	rc := f.charge(t, tenant.ID, 2024, 1)

	err = f.notifier.SendRentDueReminder(f.ctx, rc.ID, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrNotificationsDisabled)
	f.pay(t, rc, "100")
	assert.Empty(t, f.sender.Jobs())

	got, err := f.ledger.GetRentCharge(f.ctx, f.owner, rc.ID)
	require.NoError(t, err)
	assert.False(t, got.ReminderSent)
}

func TestLogSMSSender(t *testing.T) {
	var s InterfaceSMSSender = LogSMSSender{}
	assert.NoError(t, s.Send(context.Background(), SMSJob{To: "+254700000000", Message: "hello", Kind: SMSKindReminder}))
	s.Close()
}

func TestNewSMSSenderDisabled(t *testing.T) {
	_, ok := NewSMSSender(testutil.NewTestConfig(t, nil)).(LogSMSSender)
	assert.True(t, ok)
}
