package code

// 错误码消息映射
var codeMessageMap = map[int]string{
	// 通用错误码
	ErrSuccess:         "成功",
	ErrUnknown:         "未知错误",
	ErrBind:            "请求参数绑定错误",
	ErrValidation:      "请求参数验证错误",
	ErrTokenInvalid:    "无效的认证令牌",
	ErrTooManyRequests: "请求频率过高，请稍后再试",
	ErrForbidden:       "无权访问",

	// 用户相关错误码
	ErrUserNotFound:          "用户不存在",
	ErrUserAlreadyExist:      "用户已存在",
	ErrUserPasswordIncorrect: "用户密码错误",

	// 数据库相关错误码
	ErrDatabase:       "数据库错误",
	ErrRecordNotFound: "记录不存在",

	// 楼栋与房屋相关错误码
	ErrBuildingNotFound:    "楼栋不存在",
	ErrHouseNotFound:       "房屋不存在",
	ErrCapacityExceeded:    "楼栋房屋数量已达容量上限",
	ErrDuplicateUnit:       "该楼栋已存在相同房号",
	ErrHouseOccupied:       "房屋已有活跃租户",
	ErrHasOccupiedUnits:    "楼栋内仍有已入住房屋",
	ErrCapacityBelowHouses: "容量不能小于现有房屋数量",

	// 租户与账务相关错误码
	ErrTenantNotFound:        "租户不存在",
	ErrDuplicateContact:      "手机号、邮箱或证件号已被使用",
	ErrRentChargeNotFound:    "租金账单不存在",
	ErrDuplicateRentCharge:   "该租户当月账单已存在",
	ErrPaymentNotFound:       "付款记录不存在",
	ErrNegativeAmount:        "金额无效",
	ErrMissingReference:      "非现金付款必须填写流水号",
	ErrTenantMismatch:        "付款租户与账单租户不一致",
	ErrTenantBalanceNegative: "付款金额超过应付余额",

	// 基础设施相关错误码
	ErrCacheUnavailable:   "缓存不可用",
	ErrNotificationFailed: "通知发送失败",

	// 迁移相关错误码
	ErrMigrationFailed:  "迁移失败",
	ErrConnectionFailed: "连接失败",
}

// 错误码HTTP状态码映射
var codeStatusMap = map[int]int{
	// 通用错误码
	ErrSuccess:         StatusOK,
	ErrUnknown:         StatusInternalServerError,
	ErrBind:            StatusBadRequest,
	ErrValidation:      StatusBadRequest,
	ErrTokenInvalid:    StatusUnauthorized,
	ErrTooManyRequests: StatusTooManyRequests,
	ErrForbidden:       StatusForbidden,

	// 用户相关错误码
	ErrUserNotFound:          StatusNotFound,
	ErrUserAlreadyExist:      StatusBadRequest,
	ErrUserPasswordIncorrect: StatusUnauthorized,

	// 数据库相关错误码
	ErrDatabase:       StatusInternalServerError,
	ErrRecordNotFound: StatusNotFound,

	// 楼栋与房屋相关错误码
	ErrBuildingNotFound:    StatusNotFound,
	ErrHouseNotFound:       StatusNotFound,
	ErrCapacityExceeded:    StatusBadRequest,
	ErrDuplicateUnit:       StatusConflict,
	ErrHouseOccupied:       StatusConflict,
	ErrHasOccupiedUnits:    StatusConflict,
	ErrCapacityBelowHouses: StatusBadRequest,

	// 租户与账务相关错误码
	ErrTenantNotFound:        StatusNotFound,
	ErrDuplicateContact:      StatusConflict,
	ErrRentChargeNotFound:    StatusNotFound,
	ErrDuplicateRentCharge:   StatusConflict,
	ErrPaymentNotFound:       StatusNotFound,
	ErrNegativeAmount:        StatusBadRequest,
	ErrMissingReference:      StatusBadRequest,
	ErrTenantMismatch:        StatusBadRequest,
	ErrTenantBalanceNegative: StatusBadRequest,

	// 基础设施相关错误码
	ErrCacheUnavailable:   StatusInternalServerError,
	ErrNotificationFailed: StatusInternalServerError,

	// 迁移相关错误码
	ErrMigrationFailed:  StatusInternalServerError,
	ErrConnectionFailed: StatusInternalServerError,
}

// GetMessage 获取错误码对应的消息
func GetMessage(code int) string {
	if msg, ok := codeMessageMap[code]; ok {
		return msg
	}
	return "未知错误"
}

// GetStatus 获取错误码对应的HTTP状态码
func GetStatus(code int) int {
	if status, ok := codeStatusMap[code]; ok {
		return status
	}
	return StatusInternalServerError
}

// IsClientError 判断错误码是否属于调用方可修正的错误
func IsClientError(code int) bool {
	status := GetStatus(code)
	return status >= 400 && status < 500
}
