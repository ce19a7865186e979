package main

import (
	"bytes"
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"house-rent-service/internal/domain/models"
	"house-rent-service/internal/domain/services"
	"house-rent-service/internal/domain/services/container"
	"house-rent-service/internal/infrastructure/config"
	"house-rent-service/internal/test/testutil"
)

type cliEnv struct {
	db      *gorm.DB
	cfg     *config.Config
	ownerID uint
	tenant  *models.Tenant
	house   *models.House
}

func (e *cliEnv) open() (*gorm.DB, *config.Config, func(), error) {
	return e.db, e.cfg, func() {}, nil
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(e.open)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// newCLIEnv 一个房东、一栋楼、一套已入住的房屋
func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	db := testutil.NewTestDB(t)
	cfg := testutil.NewTestConfig(t, nil)
	c := container.NewServiceContainer(db, cfg, container.Options{SyncNotifications: true})
	t.Cleanup(c.Close)
	ctx := context.Background()

	user, err := c.GetService("user").(services.InterfaceUserService).Register(services.RegisterRequest{
		Username: "landlord",
		Password: "secret123",
	})
	require.NoError(t, err)

	building, err := c.GetService("building").(services.InterfaceBuildingService).CreateBuilding(ctx, user.ID, services.BuildingRequest{
		Name:     "Sunrise Court",
		Capacity: 2,
	})
	require.NoError(t, err)
	house, err := c.GetService("house").(services.InterfaceHouseService).CreateHouse(ctx, user.ID, services.HouseRequest{
		BuildingID: building.ID,
		UnitNumber: "A1",
		RentAmount: decimal.NewFromInt(1000),
	})
	require.NoError(t, err)
	tenant, err := c.GetService("tenant").(services.InterfaceTenantService).CreateTenant(ctx, user.ID, services.TenantRequest{
		Name:        "Jane Wanjiku",
		Phone:       "0712000001",
		HouseID:     &house.ID,
		RentDueDate: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	return &cliEnv{db: db, cfg: cfg, ownerID: user.ID, tenant: tenant, house: house}
}

func TestMigrateCommand(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "mode=auto")

	var n int64
	require.NoError(t, env.db.Model(&models.Tenant{}).Count(&n).Error)
	assert.EqualValues(t, 1, n, "auto migration keeps data")
}

func TestBulkChargesAndReminders(t *testing.T) {
	env := newCLIEnv(t)
	owner := uintArg(env.ownerID)

	_, err := env.run(t, "bulk-charges", "--owner", owner, "--year", "2024")
	require.Error(t, err, "month is required")

	out, err := env.run(t, "bulk-charges", "--owner", owner, "--year", "2024", "--month", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "created=1 skipped=0 failed=0")

	out, err = env.run(t, "bulk-charges", "--owner", owner, "--year", "2024", "--month", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "created=0 skipped=1 failed=0")

	out, err = env.run(t, "send-reminders", "--date", "2024-01-02")
	require.NoError(t, err)
	assert.Contains(t, out, "checked=1 sent=1 skipped=0 failed=0")

	out, err = env.run(t, "send-overdue", "--date", "2024-01-10", "--owner", owner)
	require.NoError(t, err)
	assert.Contains(t, out, "sent=1")

	_, err = env.run(t, "send-reminders", "--date", "2024/01/02")
	assert.Error(t, err)
}

func TestRecomputeOccupancyCommand(t *testing.T) {
	env := newCLIEnv(t)

	// 绕过服务层制造不一致
	require.NoError(t, env.db.Model(&models.House{}).Where("id = ?", env.house.ID).Update("occupied", false).Error)

	out, err := env.run(t, "recompute-occupancy", "--building", uintArg(env.house.BuildingID))
	require.NoError(t, err)
	assert.Contains(t, out, "changed=1")

	var h models.House
	require.NoError(t, env.db.First(&h, env.house.ID).Error)
	assert.True(t, h.Occupied)

	out, err = env.run(t, "recompute-occupancy")
	require.NoError(t, err)
	assert.Contains(t, out, "changed=0")
}

func uintArg(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
