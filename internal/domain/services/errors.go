package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"house-rent-service/internal/error/code"
)

// DomainError 携带业务错误码的错误，控制器据此生成响应
type DomainError struct {
	Code    int
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// ErrorCode 返回业务错误码
func (e *DomainError) ErrorCode() int {
	return e.Code
}

// Is 按错误码比较，使 errors.Is(err, ErrHouseOccupied) 对自定义消息同样成立
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError 使用错误码的默认消息创建错误
func NewDomainError(c int) *DomainError {
	return &DomainError{Code: c, Message: code.GetMessage(c)}
}

// DomainErrorf 使用自定义消息创建错误
func DomainErrorf(c int, format string, args ...interface{}) *DomainError {
	return &DomainError{Code: c, Message: fmt.Sprintf(format, args...)}
}

// 哨兵错误，配合 errors.Is 使用
var (
	ErrBuildingNotFound      = NewDomainError(code.ErrBuildingNotFound)
	ErrHouseNotFound         = NewDomainError(code.ErrHouseNotFound)
	ErrTenantNotFound        = NewDomainError(code.ErrTenantNotFound)
	ErrRentChargeNotFound    = NewDomainError(code.ErrRentChargeNotFound)
	ErrPaymentNotFound       = NewDomainError(code.ErrPaymentNotFound)
	ErrUserNotFound          = NewDomainError(code.ErrUserNotFound)
	ErrCapacityExceeded      = NewDomainError(code.ErrCapacityExceeded)
	ErrCapacityBelowHouses   = NewDomainError(code.ErrCapacityBelowHouses)
	ErrDuplicateUnit         = NewDomainError(code.ErrDuplicateUnit)
	ErrHouseOccupied         = NewDomainError(code.ErrHouseOccupied)
	ErrHasOccupiedUnits      = NewDomainError(code.ErrHasOccupiedUnits)
	ErrDuplicateContact      = NewDomainError(code.ErrDuplicateContact)
	ErrDuplicateRentCharge   = NewDomainError(code.ErrDuplicateRentCharge)
	ErrNegativeAmount        = NewDomainError(code.ErrNegativeAmount)
	ErrMissingReference      = NewDomainError(code.ErrMissingReference)
	ErrTenantMismatch        = NewDomainError(code.ErrTenantMismatch)
	ErrTenantBalanceNegative = NewDomainError(code.ErrTenantBalanceNegative)
	ErrValidation            = NewDomainError(code.ErrValidation)
	ErrUserAlreadyExist      = NewDomainError(code.ErrUserAlreadyExist)
	ErrPasswordIncorrect     = NewDomainError(code.ErrUserPasswordIncorrect)
)

// isUniqueViolation 判断是否为唯一索引冲突
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "Duplicate entry")
}

// notFoundOr 将记录不存在映射为指定业务错误
func notFoundOr(err error, notFound *DomainError) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}
