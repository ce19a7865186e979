package code

// HTTP状态码.
const (
	// StatusOK - 200: 成功.
	StatusOK = 200
	// StatusBadRequest - 400: 请求参数错误.
	StatusBadRequest = 400
	// StatusUnauthorized - 401: 未授权.
	StatusUnauthorized = 401
	// StatusForbidden - 403: 禁止访问.
	StatusForbidden = 403
	// StatusNotFound - 404: 资源不存在.
	StatusNotFound = 404
	// StatusConflict - 409: 资源冲突.
	StatusConflict = 409
	// StatusInternalServerError - 500: 服务器内部错误.
	StatusInternalServerError = 500
	// StatusTooManyRequests - 429: 请求过多.
	StatusTooManyRequests = 429
)

// 通用错误码 (100xxx).
const (
	// ErrSuccess - 200: 成功.
	ErrSuccess int = iota + 100000
	// ErrUnknown - 500: 未知错误.
	ErrUnknown
	// ErrBind - 400: 请求参数绑定错误.
	ErrBind
	// ErrValidation - 400: 请求参数验证错误.
	ErrValidation
	// ErrTokenInvalid - 401: 令牌无效.
	ErrTokenInvalid
	// ErrTooManyRequests - 429: 请求频率过高.
	ErrTooManyRequests
	// ErrForbidden - 403: 无权访问.
	ErrForbidden
)

// 用户相关错误码 (101xxx).
const (
	// ErrUserNotFound - 404: 用户不存在.
	ErrUserNotFound int = iota + 101000
	// ErrUserAlreadyExist - 400: 用户已存在.
	ErrUserAlreadyExist
	// ErrUserPasswordIncorrect - 401: 用户密码错误.
	ErrUserPasswordIncorrect
)

// 数据库相关错误码 (105xxx).
const (
	// ErrDatabase - 500: 数据库错误.
	ErrDatabase int = iota + 105000
	// ErrRecordNotFound - 404: 记录不存在.
	ErrRecordNotFound
)

// 楼栋与房屋相关错误码 (106xxx).
const (
	// ErrBuildingNotFound - 404: 楼栋不存在.
	ErrBuildingNotFound int = iota + 106000
	// ErrHouseNotFound - 404: 房屋不存在.
	ErrHouseNotFound
	// ErrCapacityExceeded - 400: 楼栋房屋数量已达上限.
	ErrCapacityExceeded
	// ErrDuplicateUnit - 409: 同一楼栋内房号重复.
	ErrDuplicateUnit
	// ErrHouseOccupied - 409: 房屋已有活跃租户.
	ErrHouseOccupied
	// ErrHasOccupiedUnits - 409: 楼栋内仍有已入住房屋.
	ErrHasOccupiedUnits
	// ErrCapacityBelowHouses - 400: 容量小于现有房屋数.
	ErrCapacityBelowHouses
)

// 租户与账务相关错误码 (107xxx).
const (
	// ErrTenantNotFound - 404: 租户不存在.
	ErrTenantNotFound int = iota + 107000
	// ErrDuplicateContact - 409: 手机号/邮箱/证件号重复.
	ErrDuplicateContact
	// ErrRentChargeNotFound - 404: 租金账单不存在.
	ErrRentChargeNotFound
	// ErrDuplicateRentCharge - 409: 同一租户同一月份账单重复.
	ErrDuplicateRentCharge
	// ErrPaymentNotFound - 404: 付款记录不存在.
	ErrPaymentNotFound
	// ErrNegativeAmount - 400: 金额不能为负.
	ErrNegativeAmount
	// ErrMissingReference - 400: 非现金付款缺少流水号.
	ErrMissingReference
	// ErrTenantMismatch - 400: 付款租户与账单租户不一致.
	ErrTenantMismatch
	// ErrTenantBalanceNegative - 400: 付款将导致余额为负.
	ErrTenantBalanceNegative
)

// 基础设施相关错误码 (108xxx).
const (
	// ErrCacheUnavailable - 500: 缓存不可用.
	ErrCacheUnavailable int = iota + 108000
	// ErrNotificationFailed - 500: 通知发送失败.
	ErrNotificationFailed
)

// 迁移相关错误码 (109xxx).
const (
	// ErrMigrationFailed - 500: 迁移失败.
	ErrMigrationFailed int = iota + 109000
	// ErrConnectionFailed - 500: 连接失败.
	ErrConnectionFailed
)
