package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"house-rent-service/pkg/logger"
)

// EventType 实体变更事件类型
type EventType string

const (
	EventBuildingUpdated   EventType = "building.updated"
	EventBuildingDeleted   EventType = "building.deleted"
	EventHouseCreated      EventType = "house.created"
	EventHouseUpdated      EventType = "house.updated"
	EventHouseDeleted      EventType = "house.deleted"
	EventTenantCreated     EventType = "tenant.created"
	EventTenantUpdated     EventType = "tenant.updated"
	EventTenantDeleted     EventType = "tenant.deleted"
	EventRentChargeCreated EventType = "rent_charge.created"
	EventRentChargeUpdated EventType = "rent_charge.updated"
	EventRentChargeDeleted EventType = "rent_charge.deleted"
	EventPaymentCreated    EventType = "payment.created"
	EventPaymentDeleted    EventType = "payment.deleted"
)

// Event 已提交的实体变更
// HouseIDs 与 BuildingIDs 包含变更前后涉及的全部房屋和楼栋，删除事件中为删除前的值
type Event struct {
	Type         EventType
	OwnerID      uint
	HouseIDs     []uint
	BuildingIDs  []uint
	TenantID     uint
	RentChargeID uint
	PaymentID    uint
	// MovedIn 租户本次变更后成为某房屋的活跃租户
	MovedIn bool
}

// ConsistencyHandler 事件处理器
type ConsistencyHandler interface {
	Name() string
	Handle(ctx context.Context, ev Event) error
}

// Dispatcher 按固定顺序调用处理器，处理器错误只记录日志
type Dispatcher struct {
	handlers []ConsistencyHandler
}

// NewDispatcher 创建事件分发器，处理器按传入顺序执行
func NewDispatcher(handlers ...ConsistencyHandler) *Dispatcher {
	return &Dispatcher{handlers: handlers}
}

// Handlers 返回处理器列表
func (d *Dispatcher) Handlers() []ConsistencyHandler {
	return d.handlers
}

// Dispatch 在写事务提交后调用
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) {
	if d == nil {
		return
	}
	for _, h := range d.handlers {
		if err := d.run(ctx, h, ev); err != nil {
			logger.WithFields(logrus.Fields{
				"component": "dispatcher",
				"handler":   h.Name(),
				"event":     string(ev.Type),
			}).WithError(err).Error("一致性处理失败")
		}
	}
}

func (d *Dispatcher) run(ctx context.Context, h ConsistencyHandler, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.Handle(ctx, ev)
}

// OccupancyHandler 重新计算受影响房屋的入住状态
type OccupancyHandler struct {
	Occupancy InterfaceOccupancyService
}

func (h *OccupancyHandler) Name() string { return "occupancy" }

func (h *OccupancyHandler) Handle(ctx context.Context, ev Event) error {
	switch ev.Type {
	case EventTenantCreated, EventTenantUpdated, EventTenantDeleted,
		EventHouseCreated, EventHouseUpdated, EventHouseDeleted:
	default:
		return nil
	}
	var firstErr error
	for _, id := range uniqueIDs(ev.HouseIDs) {
		if _, err := h.Occupancy.RecomputeOccupancy(ctx, id); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("house %d: %w", id, err)
		}
	}
	return firstErr
}

// CacheInvalidationHandler 删除受影响楼栋的统计缓存和租户余额快照
type CacheInvalidationHandler struct {
	Cache InterfaceOccupancyCacheService
}

func (h *CacheInvalidationHandler) Name() string { return "cache_invalidation" }

func (h *CacheInvalidationHandler) Handle(ctx context.Context, ev Event) error {
	var firstErr error
	for _, id := range uniqueIDs(ev.BuildingIDs) {
		if err := h.Cache.Invalidate(ctx, id); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("building %d: %w", id, err)
		}
	}
	switch ev.Type {
	case EventTenantDeleted, EventRentChargeCreated, EventRentChargeUpdated, EventRentChargeDeleted,
		EventPaymentCreated, EventPaymentDeleted:
		if ev.TenantID != 0 {
			if err := h.Cache.InvalidateTenantBalance(ctx, ev.TenantID); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("tenant %d balance: %w", ev.TenantID, err)
			}
		}
	}
	return firstErr
}

// NotificationHandler 付款确认与入住欢迎短信，默认异步发送
type NotificationHandler struct {
	Notifier InterfaceNotificationService
	Async    bool
}

func (h *NotificationHandler) Name() string { return "notification" }

func (h *NotificationHandler) Handle(ctx context.Context, ev Event) error {
	var send func(context.Context) error
	switch {
	case ev.Type == EventPaymentCreated && ev.PaymentID != 0:
		send = func(ctx context.Context) error { return h.Notifier.SendPaymentConfirmation(ctx, ev.PaymentID) }
	case (ev.Type == EventTenantCreated || ev.Type == EventTenantUpdated) && ev.MovedIn:
		send = func(ctx context.Context) error { return h.Notifier.SendMoveInWelcome(ctx, ev.TenantID) }
	default:
		return nil
	}

	if !h.Async {
		if err := send(ctx); err != nil && !errors.Is(err, ErrNotificationsDisabled) {
			return err
		}
		return nil
	}
	// 请求结束后ctx会被取消，异步发送使用独立的ctx
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.WithFields(logrus.Fields{"component": "notification"}).Errorf("发送通知panic: %v", r)
			}
		}()
		if err := send(context.Background()); err != nil && !errors.Is(err, ErrNotificationsDisabled) {
			logger.WithFields(logrus.Fields{
				"component": "notification",
				"event":     string(ev.Type),
			}).WithError(err).Warn("发送通知失败")
		}
	}()
	return nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
