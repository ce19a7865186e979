package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"house-rent-service/internal/app/middleware"
	"house-rent-service/internal/domain/services"
	"house-rent-service/internal/domain/services/container"
	"house-rent-service/internal/error/code"
	"house-rent-service/internal/test/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type apiClient struct {
	t         *testing.T
	router    *gin.Engine
	container *container.ServiceContainer
	token     string
}

func newAPI(t *testing.T) *apiClient {
	t.Helper()
	// 响应缓存是进程级的，每个测试从空缓存开始
	middleware.PurgeCache()

	db := testutil.NewTestDB(t)
	cfg := testutil.NewTestConfig(t, nil)
	c := container.NewServiceContainer(db, cfg, container.Options{
		CacheStore:        services.NewMemoryCacheStore(),
		SMSSender:         services.LogSMSSender{},
		SyncNotifications: true,
	})
	t.Cleanup(c.Close)

	return &apiClient{t: t, router: SetupRouter(c), container: c}
}

func (a *apiClient) do(method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func (a *apiClient) decode(env envelope, dst interface{}) {
	a.t.Helper()
	require.NoError(a.t, json.Unmarshal(env.Data, dst))
}

func (a *apiClient) register(username string) {
	a.t.Helper()
	w, env := a.do(http.MethodPost, "/api/auth/register", map[string]string{
		"username": username,
		"password": "secret123",
	})
	require.Equal(a.t, http.StatusOK, w.Code, env.Message)

	var result services.LoginResult
	a.decode(env, &result)
	require.NotEmpty(a.t, result.Token)
	a.token = result.Token
}

func (a *apiClient) create(path string, body interface{}) uint {
	a.t.Helper()
	w, env := a.do(http.MethodPost, path, body)
	require.Equal(a.t, http.StatusOK, w.Code, env.Message)
	var obj struct {
		ID uint `json:"id"`
	}
	a.decode(env, &obj)
	require.NotZero(a.t, obj.ID)
	return obj.ID
}

func TestPublicRoutesAndAuth(t *testing.T) {
	api := newAPI(t)

	w, env := api.do(http.MethodGet, "/api/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, code.ErrSuccess, env.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	w, env = api.do(http.MethodGet, "/api/health/status", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var status map[string]string
	api.decode(env, &status)
	assert.Equal(t, "up", status["database"])
	assert.Equal(t, "memory", status["cache_backend"])

	w, _ = api.do(http.MethodGet, "/api/buildings", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	api.register("landlord")

	w, env = api.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "landlord", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, code.ErrUserPasswordIncorrect, env.Code)

	w, env = api.do(http.MethodPost, "/api/auth/register", map[string]string{"username": "landlord", "password": "secret123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, code.ErrUserAlreadyExist, env.Code)
}

func TestOccupancyThroughHTTP(t *testing.T) {
	api := newAPI(t)
	api.register("landlord")

	buildingID := api.create("/api/buildings", map[string]interface{}{"name": "Sunrise Court", "capacity": 2})
	houseID := api.create("/api/houses", map[string]interface{}{
		"building_id": buildingID,
		"unit_number": "A1",
		"rent_amount": "1000",
	})
	api.create("/api/tenants", map[string]interface{}{
		"name":          "Jane Wanjiku",
		"phone":         "0712000001",
		"house_id":      houseID,
		"rent_due_date": "2024-01-05T00:00:00Z",
	})

	w, env := api.do(http.MethodGet, "/api/houses/"+itoa(houseID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var house struct {
		Occupied bool `json:"occupied"`
	}
	api.decode(env, &house)
	assert.True(t, house.Occupied)

	w, env = api.do(http.MethodPost, "/api/tenants", map[string]interface{}{
		"name":          "John Otieno",
		"phone":         "0712000002",
		"house_id":      houseID,
		"rent_due_date": "2024-01-05T00:00:00Z",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, code.ErrHouseOccupied, env.Code)

	w, env = api.do(http.MethodGet, "/api/buildings/"+itoa(buildingID)+"/occupancy", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var occupancy services.BuildingOccupancy
	api.decode(env, &occupancy)
	assert.Equal(t, 1, occupancy.OccupiedCount)
	assert.Equal(t, 1, occupancy.VacantCount)
	assert.Equal(t, 1, occupancy.TenantCount)
	assert.Equal(t, 50.0, occupancy.PercentOccupied)

	w, env = api.do(http.MethodDelete, "/api/houses/"+itoa(houseID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, code.ErrHouseOccupied, env.Code)

	w, env = api.do(http.MethodGet, "/api/buildings/"+itoa(buildingID)+"/houses", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		List       []json.RawMessage `json:"list"`
		Pagination struct {
			Total int `json:"total"`
		} `json:"pagination"`
	}
	api.decode(env, &page)
	assert.Len(t, page.List, 1)
	assert.Equal(t, 1, page.Pagination.Total)
}

func TestListCachePurgedOnWrite(t *testing.T) {
	api := newAPI(t)
	api.register("landlord")
	api.create("/api/buildings", map[string]interface{}{"name": "Block A", "capacity": 1})

	w, _ := api.do(http.MethodGet, "/api/buildings", nil)
	assert.Empty(t, w.Header().Get("X-Cache"))
	w, _ = api.do(http.MethodGet, "/api/buildings", nil)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))

	api.create("/api/buildings", map[string]interface{}{"name": "Block B", "capacity": 1})

	w, env := api.do(http.MethodGet, "/api/buildings", nil)
	assert.Empty(t, w.Header().Get("X-Cache"))
	var page struct {
		List []json.RawMessage `json:"list"`
	}
	api.decode(env, &page)
	assert.Len(t, page.List, 2)
}

func TestLedgerThroughHTTP(t *testing.T) {
	api := newAPI(t)
	api.register("landlord")

	buildingID := api.create("/api/buildings", map[string]interface{}{"name": "Sunrise Court", "capacity": 1})
	houseID := api.create("/api/houses", map[string]interface{}{
		"building_id": buildingID,
		"unit_number": "A1",
		"rent_amount": "1000",
	})
	tenantID := api.create("/api/tenants", map[string]interface{}{
		"name":          "Jane Wanjiku",
		"phone":         "0712000001",
		"house_id":      houseID,
		"rent_due_date": "2024-01-05T00:00:00Z",
	})
	chargeID := api.create("/api/rent-charges", map[string]interface{}{"tenant_id": tenantID, "year": 2024, "month": 1})

	w, env := api.do(http.MethodPost, "/api/payments", map[string]interface{}{
		"tenant_id":      tenantID,
		"rent_charge_id": chargeID,
		"amount":         "600",
		"method":         "mpesa",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, code.ErrMissingReference, env.Code)

	api.create("/api/payments", map[string]interface{}{
		"tenant_id":      tenantID,
		"rent_charge_id": chargeID,
		"amount":         "600",
		"method":         "mpesa",
		"reference":      "QAB12XYZ",
	})

	w, env = api.do(http.MethodGet, "/api/tenants/"+itoa(tenantID)+"/balance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var balance services.TenantBalance
	api.decode(env, &balance)
	assert.True(t, decimal.NewFromInt(400).Equal(balance.Balance), balance.Balance.String())

	w, env = api.do(http.MethodPost, "/api/rent-charges", map[string]interface{}{"tenant_id": tenantID, "year": 2024, "month": 1})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, code.ErrDuplicateRentCharge, env.Code)

	w, env = api.do(http.MethodPost, "/api/rent-charges/bulk", map[string]interface{}{"year": 2024, "month": 2})
	require.Equal(t, http.StatusOK, w.Code)
	var bulk services.BulkRentChargeResult
	api.decode(env, &bulk)
	assert.Equal(t, 1, bulk.Created)

	w, env = api.do(http.MethodPost, "/api/reminders/send", map[string]string{"type": "due", "date": "2024-01-02"})
	require.Equal(t, http.StatusOK, w.Code)
	var result services.ReminderResult
	api.decode(env, &result)
	assert.Equal(t, 1, result.Sent)

	w, _ = api.do(http.MethodPost, "/api/reminders/send", map[string]string{"date": "02/01/2024"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestErrors(t *testing.T) {
	api := newAPI(t)
	api.register("landlord")

	w, env := api.do(http.MethodGet, "/api/buildings/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, code.ErrValidation, env.Code)

	w, env = api.do(http.MethodGet, "/api/buildings/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, code.ErrBuildingNotFound, env.Code)

	w, env = api.do(http.MethodPost, "/api/buildings", map[string]interface{}{"capacity": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, code.ErrValidation, env.Code)
}

func TestOwnerIsolation(t *testing.T) {
	api := newAPI(t)
	api.register("first")
	buildingID := api.create("/api/buildings", map[string]interface{}{"name": "Private", "capacity": 1})

	api.register("second")
	w, env := api.do(http.MethodGet, "/api/buildings/"+itoa(buildingID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, code.ErrBuildingNotFound, env.Code)
}

func TestAdminRoutes(t *testing.T) {
	api := newAPI(t)
	api.register("landlord")

	w, env := api.do(http.MethodPost, "/api/admin/occupancy/recompute", map[string]interface{}{})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, code.ErrForbidden, env.Code)

	users := api.container.GetService("user").(services.InterfaceUserService)
	require.NoError(t, users.EnsureAdminExists())
	w, env = api.do(http.MethodPost, "/api/auth/login", map[string]string{
		"username": "admin",
		"password": api.container.GetConfig().DefaultAdminPassword,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var login services.LoginResult
	api.decode(env, &login)
	api.token = login.Token

	w, env = api.do(http.MethodPost, "/api/admin/occupancy/recompute", map[string]interface{}{})
	require.Equal(t, http.StatusOK, w.Code)
	var result map[string]int
	api.decode(env, &result)
	assert.Equal(t, 0, result["changed"])

	// 空请求体等同于处理全部楼栋
	w, env = api.do(http.MethodPost, "/api/admin/occupancy/recompute", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, code.ErrSuccess, env.Code)

	w, env = api.do(http.MethodPost, "/api/admin/occupancy/recompute", "not-an-object")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, code.ErrBind, env.Code)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
