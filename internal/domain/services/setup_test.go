package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"house-rent-service/internal/domain/models"
	"house-rent-service/internal/infrastructure/config"
	"house-rent-service/internal/test/testutil"
)

type recordingSender struct {
	mu   sync.Mutex
	jobs []SMSJob
	err  error
}

func (r *recordingSender) Send(ctx context.Context, job SMSJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.jobs = append(r.jobs, job)
	return nil
}

func (r *recordingSender) Close() {}

func (r *recordingSender) Jobs() []SMSJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]SMSJob(nil), r.jobs...)
}

func (r *recordingSender) JobsOfKind(kind string) []SMSJob {
	var out []SMSJob
	for _, j := range r.Jobs() {
		if j.Kind == kind {
			out = append(out, j)
		}
	}
	return out
}

var errStoreDown = errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")

// brokenStore 模拟不可达的缓存后端
type brokenStore struct{}

func (brokenStore) Get(ctx context.Context, key string, dest interface{}) error { return errStoreDown }
func (brokenStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return errStoreDown
}
func (brokenStore) Delete(ctx context.Context, keys ...string) error { return errStoreDown }
func (brokenStore) Ping(ctx context.Context) error { return errStoreDown }

type fixture struct {
	ctx        context.Context
	db         *gorm.DB
	cfg        *config.Config
	store      InterfaceCacheStore
	sender     *recordingSender
	validator  InterfaceValidatorService
	cache      InterfaceOccupancyCacheService
	occupancy  InterfaceOccupancyService
	notifier   InterfaceNotificationService
	dispatcher *Dispatcher
	buildings  InterfaceBuildingService
	houses     InterfaceHouseService
	tenants    InterfaceTenantService
	ledger     InterfaceLedgerService
	reminders  InterfaceReminderService
	owner      uint
	seq        int
}

func newFixture(t *testing.T, overrides map[string]string) *fixture {
	return newFixtureWithStore(t, overrides, NewMemoryCacheStore())
}

func newFixtureWithStore(t *testing.T, overrides map[string]string, store InterfaceCacheStore) *fixture {
	t.Helper()
	f := &fixture{
		ctx:    context.Background(),
		db:     testutil.NewTestDB(t),
		cfg:    testutil.NewTestConfig(t, overrides),
		store:  store,
		sender: &recordingSender{},
	}
	f.validator = NewValidatorService()
	f.cache = NewOccupancyCacheService(f.db, f.store, f.cfg)
	f.occupancy = NewOccupancyService(f.db, f.cache)
	f.notifier = NewNotificationService(f.db, f.cfg, f.sender)
	f.dispatcher = NewDispatcher(
		&OccupancyHandler{Occupancy: f.occupancy},
		&CacheInvalidationHandler{Cache: f.cache},
		&NotificationHandler{Notifier: f.notifier},
	)
	f.buildings = NewBuildingService(f.db, f.cfg, f.validator, f.cache, f.dispatcher)
	f.houses = NewHouseService(f.db, f.cfg, f.validator, f.dispatcher)
	f.tenants = NewTenantService(f.db, f.cfg, f.validator, f.dispatcher)
	f.ledger = NewLedgerService(f.db, f.cfg, f.validator, f.cache, f.dispatcher)
	f.reminders = NewReminderService(f.db, f.notifier)

	user := &models.User{Username: "landlord", Password: "secret123", Role: models.RoleLandlord, Status: "active"}
	require.NoError(t, f.db.Create(user).Error)
	f.owner = user.ID
	return f
}

func (f *fixture) building(t *testing.T, capacity int) *models.Building {
	t.Helper()
	f.seq++
	b, err := f.buildings.CreateBuilding(f.ctx, f.owner, BuildingRequest{
		Name:     fmt.Sprintf("Block %d", f.seq),
		Address:  "Ngong Road",
		Capacity: capacity,
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) house(t *testing.T, buildingID uint, unit string) *models.House {
	t.Helper()
	h, err := f.houses.CreateHouse(f.ctx, f.owner, HouseRequest{
		BuildingID:    buildingID,
		UnitNumber:    unit,
		Size:          "1 bedroom",
		RentAmount:    decimal.NewFromInt(1000),
		DepositAmount: decimal.NewFromInt(1000),
	})
	require.NoError(t, err)
	return h
}

func (f *fixture) tenantRequest(houseID *uint, active bool) TenantRequest {
	f.seq++
	return TenantRequest{
		Name:        fmt.Sprintf("Tenant %d", f.seq),
		Phone:       fmt.Sprintf("+2547000000%02d", f.seq),
		HouseID:     houseID,
		IsActive:    &active,
		RentDueDate: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) tenant(t *testing.T, houseID *uint, active bool) *models.Tenant {
	t.Helper()
	tenant, err := f.tenants.CreateTenant(f.ctx, f.owner, f.tenantRequest(houseID, active))
	require.NoError(t, err)
	return tenant
}

func (f *fixture) reloadHouse(t *testing.T, id uint) *models.House {
	t.Helper()
	var h models.House
	require.NoError(t, f.db.First(&h, id).Error)
	return &h
}

// assertOccupancyConsistent 每套房屋的 occupied 等于是否存在活跃租户
func (f *fixture) assertOccupancyConsistent(t *testing.T) {
	t.Helper()
	var houses []models.House
	require.NoError(t, f.db.Find(&houses).Error)
	for _, h := range houses {
		var n int64
		require.NoError(t, f.db.Model(&models.Tenant{}).Where("house_id = ? AND is_active = ?", h.ID, true).Count(&n).Error)
		require.Equalf(t, n > 0, h.Occupied, "house %d occupied flag out of sync", h.ID)
	}
}

func uintPtr(v uint) *uint { return &v }
func boolPtr(v bool) *bool { return &v }
func intPtr(v int) *int { return &v }
func strPtr(v string) *string { return &v }
func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }
func decPtr(v string) *decimal.Decimal { d := dec(v); return &d }
