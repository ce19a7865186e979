package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"house-rent-service/internal/domain/models"
	"house-rent-service/pkg/logger"
)

// InterfaceReminderService 租金提醒任务
type InterfaceReminderService interface {
	SendDailyRentReminders(ctx context.Context, ownerID uint, today time.Time) (*ReminderResult, error)
	SendOverdueNotices(ctx context.Context, ownerID uint, today time.Time) (*ReminderResult, error)
}

// ReminderResult 任务执行结果
type ReminderResult struct {
	Checked int `json:"checked"`
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// ReminderService 提醒任务，ownerID 为0时处理全部账号
type ReminderService struct {
	DB       *gorm.DB
	Notifier InterfaceNotificationService
}

// NewReminderService 创建提醒任务服务
func NewReminderService(db *gorm.DB, notifier InterfaceNotificationService) InterfaceReminderService {
	return &ReminderService{DB: db, Notifier: notifier}
}

func reminderLog() *logrus.Entry {
	return logger.WithFields(logrus.Fields{"component": "reminder"})
}

func (s *ReminderService) activeTenants(ctx context.Context, ownerID uint) *gorm.DB {
	q := s.DB.WithContext(ctx).Where("is_active = ? AND sms_notifications = ?", true, true)
	if ownerID != 0 {
		q = q.Where("user_id = ?", ownerID)
	}
	return q
}

// 1 SendDailyRentReminders 到期前 reminder_days_before 天或到期当天发送本月账单提醒，每个账单只提醒一次
func (s *ReminderService) SendDailyRentReminders(ctx context.Context, ownerID uint, today time.Time) (*ReminderResult, error) {
	var tenants []models.Tenant
	if err := s.activeTenants(ctx, ownerID).Order("id").Find(&tenants).Error; err != nil {
		return nil, err
	}

	result := &ReminderResult{}
	for _, tenant := range tenants {
		result.Checked++
		days := daysBetween(today, tenant.RentDueDate)
		if days != tenant.ReminderDaysBefore && days != 0 {
			continue
		}

		var rc models.RentCharge
		err := s.DB.WithContext(ctx).
			Where("tenant_id = ? AND year = ? AND month = ?", tenant.ID, today.Year(), int(today.Month())).
			First(&rc).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			reminderLog().WithField("tenant_id", tenant.ID).Warnf("租户 %s 没有 %d/%d 的账单", tenant.Name, int(today.Month()), today.Year())
			result.Skipped++
			continue
		}
		if err != nil {
			return result, err
		}
		if rc.ReminderSent {
			result.Skipped++
			continue
		}

		if err := s.Notifier.SendRentDueReminder(ctx, rc.ID, today); err != nil {
			if errors.Is(err, ErrNotificationsDisabled) {
				result.Skipped++
				continue
			}
			reminderLog().WithError(err).WithField("tenant_id", tenant.ID).Error("发送租金提醒失败")
			result.Failed++
			continue
		}
		result.Sent++
	}

	reminderLog().WithFields(logrus.Fields{
		"checked": result.Checked,
		"sent":    result.Sent,
		"skipped": result.Skipped,
		"failed":  result.Failed,
	}).Info("每日租金提醒完成")
	return result, nil
}

// 2 SendOverdueNotices 已过到期日且余额为正的账单发送逾期通知
func (s *ReminderService) SendOverdueNotices(ctx context.Context, ownerID uint, today time.Time) (*ReminderResult, error) {
	var tenants []models.Tenant
	if err := s.activeTenants(ctx, ownerID).Order("id").Find(&tenants).Error; err != nil {
		return nil, err
	}

	db := s.DB.WithContext(ctx)
	result := &ReminderResult{}
	for _, tenant := range tenants {
		if daysBetween(tenant.RentDueDate, today) <= 0 {
			continue
		}

		var charges []models.RentCharge
		if err := db.Where("tenant_id = ?", tenant.ID).Order("year, month").Find(&charges).Error; err != nil {
			return result, err
		}
		for i := range charges {
			result.Checked++
			if err := fillChargeBalance(db, &charges[i]); err != nil {
				return result, err
			}
			if charges[i].Paid {
				continue
			}
			if err := s.Notifier.SendOverdueNotice(ctx, charges[i].ID, today); err != nil {
				if errors.Is(err, ErrNotificationsDisabled) {
					result.Skipped++
					continue
				}
				reminderLog().WithError(err).WithField("rent_charge_id", charges[i].ID).Error("发送逾期通知失败")
				result.Failed++
				continue
			}
			result.Sent++
		}
	}

	reminderLog().WithFields(logrus.Fields{"sent": result.Sent, "failed": result.Failed}).Info("逾期通知完成")
	return result, nil
}
