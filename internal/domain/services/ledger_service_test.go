package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"house-rent-service/internal/domain/models"
)

func (f *fixture) charge(t *testing.T, tenantID uint, year, month int) *models.RentCharge {
	t.Helper()
	rc, err := f.ledger.CreateRentCharge(f.ctx, f.owner, RentChargeRequest{TenantID: tenantID, Year: year, Month: month})
	require.NoError(t, err)
	return rc
}

func (f *fixture) pay(t *testing.T, rc *models.RentCharge, amount string) *models.Payment {
	t.Helper()
	p, err := f.ledger.RecordPayment(f.ctx, f.owner, PaymentRequest{
		TenantID:     rc.TenantID,
		RentChargeID: rc.ID,
		Amount:       dec(amount),
		Method:       models.PaymentMethodCash,
	})
	require.NoError(t, err)
	return p
}

func TestPartialThenFullPayment(t *testing.T) {
	f := newFixture(t, nil)
	b := f.building(t, 2)
	a := f.house(t, b.ID, "A")
	f.house(t, b.ID, "B")
	tenant := f.tenant(t, uintPtr(a.ID), true)

	reloaded, err := f.buildings.GetBuilding(f.ctx, f.owner, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.OccupiedCount)
	assert.Equal(t, 1, reloaded.VacantCount)

	rc := f.charge(t, tenant.ID, 2024, 1)
	assert.Equal(t, "1000.00", rc.AmountDue.StringFixed(2))
	assert.Equal(t, "1000.00", rc.Balance.StringFixed(2))
	assert.False(t, rc.Paid)

	p := f.pay(t, rc, "600")
	require.NotNil(t, p.RentCharge)
	assert.Equal(t, "400.00", p.RentCharge.Balance.StringFixed(2))
	assert.False(t, p.RentCharge.Paid)

	bal, err := f.ledger.TenantBalance(f.ctx, f.owner, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, "400.00", bal.Balance.StringFixed(2))

	p = f.pay(t, rc, "400")
	assert.Equal(t, "0.00", p.RentCharge.Balance.StringFixed(2))
	assert.True(t, p.RentCharge.Paid)

	// 付款后余额快照已失效
	bal, err = f.ledger.TenantBalance(f.ctx, f.owner, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, "0.00", bal.Balance.StringFixed(2))
	assert.Equal(t, "1000.00", bal.TotalDue.StringFixed(2))
	assert.Equal(t, "1000.00", bal.TotalPaid.StringFixed(2))

	got, err := f.ledger.GetRentCharge(f.ctx, f.owner, rc.ID)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", got.TotalPaid.StringFixed(2))
	assert.True(t, got.Paid)
}

func TestPaymentValidation(t *testing.T) {
	f := newFixture(t, nil)
	b := f.building(t, 2)
	t1 := f.tenant(t, uintPtr(f.house(t, b.ID, "A").ID), true)
	t2 := f.tenant(t, uintPtr(f.house(t, b.ID, "B").ID), true)
	rc := f.charge(t, t1.ID, 2024, 1)

	cases := []struct {
		name string
		req  PaymentRequest
		want error
	}{
		{"tenant mismatch", PaymentRequest{TenantID: t2.ID, RentChargeID: rc.ID, Amount: dec("100"), Method: models.PaymentMethodCash}, ErrTenantMismatch},
		{"mpesa without reference", PaymentRequest{TenantID: t1.ID, RentChargeID: rc.ID, Amount: dec("100"), Method: models.PaymentMethodMPesa}, ErrMissingReference},
		{"blank reference", PaymentRequest{TenantID: t1.ID, RentChargeID: rc.ID, Amount: dec("100"), Method: models.PaymentMethodBank, Reference: "   "}, ErrMissingReference},
		{"zero amount", PaymentRequest{TenantID: t1.ID, RentChargeID: rc.ID, Amount: dec("0"), Method: models.PaymentMethodCash}, ErrNegativeAmount},
		{"negative amount", PaymentRequest{TenantID: t1.ID, RentChargeID: rc.ID, Amount: dec("-5"), Method: models.PaymentMethodCash}, ErrNegativeAmount},
		{"sub-cent amount", PaymentRequest{TenantID: t1.ID, RentChargeID: rc.ID, Amount: dec("0.001"), Method: models.PaymentMethodCash}, ErrNegativeAmount},
		{"unknown method", PaymentRequest{TenantID: t1.ID, RentChargeID: rc.ID, Amount: dec("5"), Method: "cheque"}, ErrValidation},
		{"unknown charge", PaymentRequest{TenantID: t1.ID, RentChargeID: 999, Amount: dec("5"), Method: models.PaymentMethodCash}, ErrRentChargeNotFound},
		{"unknown tenant", PaymentRequest{TenantID: 999, RentChargeID: rc.ID, Amount: dec("5"), Method: models.PaymentMethodCash}, ErrTenantNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.ledger.RecordPayment(f.ctx, f.owner, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	var n int64
	require.NoError(t, f.db.Model(&models.Payment{}).Count(&n).Error)
	assert.Zero(t, n)

	p, err := f.ledger.RecordPayment(f.ctx, f.owner, PaymentRequest{
		TenantID: t1.ID, RentChargeID: rc.ID, Amount: dec("250.50"), Method: models.PaymentMethodMPesa, Reference: "QJK12ABC",
	})
	require.NoError(t, err)
	assert.Equal(t, "QJK12ABC", p.Reference)
	assert.Equal(t, "749.50", p.RentCharge.Balance.StringFixed(2))
}

func TestOverpaymentAllowedByDefault(t *testing.T) {
	f := newFixture(t, nil)
	b := f.building(t, 1)
	tenant := f.tenant(t, uintPtr(f.house(t, b.ID, "A").ID), true)
	rc := f.charge(t, tenant.ID, 2024, 1)

	p := f.pay(t, rc, "1200")
	assert.Equal(t, "-200.00", p.RentCharge.Balance.StringFixed(2))
	assert.True(t, p.RentCharge.Paid)
}

func TestOverpaymentRejectedWithoutCredit(t *testing.T) {
	f := newFixture(t, map[string]string{"LEDGER_ALLOW_CREDIT": "false"})
	b := f.building(t, 1)
	tenant := f.tenant(t, uintPtr(f.house(t, b.ID, "A").ID), true)
	rc := f.charge(t, tenant.ID, 2024, 1)

	f.pay(t, rc, "900")
	_, err := f.ledger.RecordPayment(f.ctx, f.owner, PaymentRequest{
		TenantID: tenant.ID, RentChargeID: rc.ID, Amount: dec("100.01"), Method: models.PaymentMethodCash,
	})
	assert.ErrorIs(t, err, ErrTenantBalanceNegative)

	p := f.pay(t, rc, "100")
	assert.True(t, p.RentCharge.Balance.IsZero())
}

func TestRentChargeRules(t *testing.T) {
	f := newFixture(t, nil)
	b := f.building(t, 1)
	tenant := f.tenant(t, uintPtr(f.house(t, b.ID, "A").ID), true)

	f.charge(t, tenant.ID, 2024, 1)
	_, err := f.ledger.CreateRentCharge(f.ctx, f.owner, RentChargeRequest{TenantID: tenant.ID, Year: 2024, Month: 1})
	assert.ErrorIs(t, err, ErrDuplicateRentCharge)

	feb, err := f.ledger.CreateRentCharge(f.ctx, f.owner, RentChargeRequest{TenantID: tenant.ID, Year: 2024, Month: 2, AmountDue: decPtr("850.555")})
	require.NoError(t, err)
	assert.Equal(t, "850.56", feb.AmountDue.StringFixed(2))
	assert.Equal(t, "February 2024", feb.Period())

	_, err = f.ledger.UpdateRentCharge(f.ctx, f.owner, feb.ID, RentChargeUpdate{Month: intPtr(1)})
	assert.ErrorIs(t, err, ErrDuplicateRentCharge)

	_, err = f.ledger.CreateRentCharge(f.ctx, f.owner, RentChargeRequest{TenantID: tenant.ID, Year: 2024, Month: 13})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.ledger.CreateRentCharge(f.ctx, f.owner, RentChargeRequest{TenantID: tenant.ID, Year: 2024, Month: 3, AmountDue: decPtr("-1")})
	assert.ErrorIs(t, err, ErrNegativeAmount)

	homeless := f.tenant(t, nil, true)
	_, err = f.ledger.CreateRentCharge(f.ctx, f.owner, RentChargeRequest{TenantID: homeless.ID, Year: 2024, Month: 1})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateRentChargeAmountChangesBalance(t *testing.T) {
	f := newFixture(t, nil)
	b := f.building(t, 1)
	tenant := f.tenant(t, uintPtr(f.house(t, b.ID, "A").ID), true)
	rc := f.charge(t, tenant.ID, 2024, 1)
	f.pay(t, rc, "800")

	bal, err := f.ledger.TenantBalance(f.ctx, f.owner, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, "200.00", bal.Balance.StringFixed(2))

	updated, err := f.ledger.UpdateRentCharge(f.ctx, f.owner, rc.ID, RentChargeUpdate{AmountDue: decPtr("800")})
	require.NoError(t, err)
	assert.True(t, updated.Paid)

	bal, err = f.ledger.TenantBalance(f.ctx, f.owner, tenant.ID)
	require.NoError(t, err)
	assert.True(t, bal.Balance.IsZero())
}

func TestDeleteCascades(t *testing.T) {
	f := newFixture(t, nil)
	b := f.building(t, 1)
	h := f.house(t, b.ID, "A")
	tenant := f.tenant(t, uintPtr(h.ID), true)
	jan := f.charge(t, tenant.ID, 2024, 1)
	feb := f.charge(t, tenant.ID, 2024, 2)
	p := f.pay(t, jan, "300")
	f.pay(t, feb, "200")

	require.NoError(t, f.ledger.DeletePayment(f.ctx, f.owner, p.ID))
	_, err := f.ledger.GetPayment(f.ctx, f.owner, p.ID)
	assert.ErrorIs(t, err, ErrPaymentNotFound)

	require.NoError(t, f.ledger.DeleteRentCharge(f.ctx, f.owner, feb.ID))
	var payments int64
	require.NoError(t, f.db.Model(&models.Payment{}).Where("rent_charge_id = ?", feb.ID).Count(&payments).Error)
	assert.Zero(t, payments)

	require.NoError(t, f.tenants.DeleteTenant(f.ctx, f.owner, tenant.ID))
	var charges int64
	require.NoError(t, f.db.Model(&models.RentCharge{}).Where("tenant_id = ?", tenant.ID).Count(&charges).Error)
	assert.Zero(t, charges)
	assert.False(t, f.reloadHouse(t, h.ID).Occupied)

	_, err = f.ledger.TenantBalance(f.ctx, f.owner, tenant.ID)
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestBulkCreateRentCharges(t *testing.T) {
	f := newFixture(t, nil)
	b := f.building(t, 3)
	t1 := f.tenant(t, uintPtr(f.house(t, b.ID, "A").ID), true)
	t2 := f.tenant(t, uintPtr(f.house(t, b.ID, "B").ID), true)
	f.tenant(t, uintPtr(f.house(t, b.ID, "C").ID), false)
	homeless := f.tenant(t, nil, true)

	f.charge(t, t1.ID, 2024, 3)

	res, err := f.ledger.BulkCreateRentCharges(f.ctx, f.owner, BulkRentChargeRequest{Year: 2024, Month: 3})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Skipped)
	assert.Zero(t, res.Failed)

	res, err = f.ledger.BulkCreateRentCharges(f.ctx, f.owner, BulkRentChargeRequest{Year: 2024, Month: 4, TenantIDs: []uint{t2.ID, homeless.ID, 999}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 2, res.Failed)
	assert.Len(t, res.Errors, 2)

	charges, total, err := f.ledger.ListRentCharges(f.ctx, f.owner, RentChargeFilter{TenantID: t2.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, rc := range charges {
		assert.Equal(t, "1000.00", rc.AmountDue.StringFixed(2))
	}
}

func TestListPaymentsNewestFirst(t *testing.T) {
	f := newFixture(t, nil)
	b := f.building(t, 1)
	tenant := f.tenant(t, uintPtr(f.house(t, b.ID, "A").ID), true)
	rc := f.charge(t, tenant.ID, 2024, 1)

	base := time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		paidAt := base.Add(time.Duration(i) * time.Hour)
		_, err := f.ledger.RecordPayment(f.ctx, f.owner, PaymentRequest{
			TenantID: tenant.ID, RentChargeID: rc.ID, Amount: dec("100"), Method: models.PaymentMethodCash, PaidAt: &paidAt,
		})
		require.NoError(t, err)
	}

	payments, total, err := f.ledger.ListPayments(f.ctx, f.owner, PaymentFilter{TenantID: tenant.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, payments, 3)
	assert.True(t, payments[0].PaidAt.After(payments[2].PaidAt))
}
