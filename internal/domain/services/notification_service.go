package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"house-rent-service/internal/domain/models"
	"house-rent-service/internal/infrastructure/config"
)

// ErrNotificationsDisabled 租户关闭了短信通知
var ErrNotificationsDisabled = errors.New("notifications disabled for tenant")

// InterfaceNotificationService 租户短信通知
type InterfaceNotificationService interface {
	SendPaymentConfirmation(ctx context.Context, paymentID uint) error
	SendMoveInWelcome(ctx context.Context, tenantID uint) error
	SendRentDueReminder(ctx context.Context, rentChargeID uint, today time.Time) error
	SendOverdueNotice(ctx context.Context, rentChargeID uint, today time.Time) error
}

// NotificationService 组装短信内容并交给发送通道
type NotificationService struct {
	DB     *gorm.DB
	Config *config.Config
	Sender InterfaceSMSSender
	now    func() time.Time
}

// NewNotificationService 创建通知服务
func NewNotificationService(db *gorm.DB, cfg *config.Config, sender InterfaceSMSSender) InterfaceNotificationService {
	return &NotificationService{
		DB:     db,
		Config: cfg,
		Sender: sender,
		now:    time.Now,
	}
}

func (s *NotificationService) currency() string {
	if s.Config != nil && s.Config.Currency != "" {
		return s.Config.Currency
	}
	return "KES"
}

func (s *NotificationService) send(ctx context.Context, tenant *models.Tenant, kind, message string) error {
	if !tenant.SMSNotifications {
		smsLog().WithFields(logrus.Fields{"tenant_id": tenant.ID, "kind": kind}).Info("租户已关闭短信通知")
		return ErrNotificationsDisabled
	}
	return s.Sender.Send(ctx, SMSJob{
		ID:        uuid.New().String(),
		To:        tenant.Phone,
		Message:   message,
		Kind:      kind,
		CreatedAt: s.now(),
	})
}

func (s *NotificationService) loadCharge(ctx context.Context, rentChargeID uint) (*models.RentCharge, error) {
	db := s.DB.WithContext(ctx)
	var rc models.RentCharge
	if err := db.Preload("Tenant.House.Building").First(&rc, rentChargeID).Error; err != nil {
		return nil, notFoundOr(err, ErrRentChargeNotFound)
	}
	if rc.Tenant == nil {
		return nil, ErrTenantNotFound
	}
	if err := fillChargeBalance(db, &rc); err != nil {
		return nil, err
	}
	return &rc, nil
}

// 1 SendPaymentConfirmation 付款确认
func (s *NotificationService) SendPaymentConfirmation(ctx context.Context, paymentID uint) error {
	db := s.DB.WithContext(ctx)
	var payment models.Payment
	if err := db.Preload("Tenant").Preload("RentCharge").First(&payment, paymentID).Error; err != nil {
		return notFoundOr(err, ErrPaymentNotFound)
	}
	if payment.Tenant == nil || payment.RentCharge == nil {
		return fmt.Errorf("付款 %d 缺少租户或账单", paymentID)
	}
	if err := fillChargeBalance(db, payment.RentCharge); err != nil {
		return err
	}
	return s.send(ctx, payment.Tenant, SMSKindConfirmation, s.paymentConfirmationMessage(&payment))
}

// 2 SendMoveInWelcome 入住欢迎
func (s *NotificationService) SendMoveInWelcome(ctx context.Context, tenantID uint) error {
	var tenant models.Tenant
	if err := s.DB.WithContext(ctx).Preload("House.Building").First(&tenant, tenantID).Error; err != nil {
		return notFoundOr(err, ErrTenantNotFound)
	}
	if tenant.House == nil {
		return nil
	}
	return s.send(ctx, &tenant, SMSKindWelcome, s.welcomeMessage(&tenant))
}

// 3 SendRentDueReminder 租金到期提醒，发送成功后标记账单与租户
func (s *NotificationService) SendRentDueReminder(ctx context.Context, rentChargeID uint, today time.Time) error {
	rc, err := s.loadCharge(ctx, rentChargeID)
	if err != nil {
		return err
	}
	days := daysBetween(today, rc.Tenant.RentDueDate)
	if err := s.send(ctx, rc.Tenant, SMSKindReminder, s.reminderMessage(rc, days)); err != nil {
		return err
	}

	sentAt := s.now()
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.RentCharge{}).Where("id = ?", rc.ID).
			UpdateColumns(map[string]interface{}{"reminder_sent": true, "reminder_sent_at": sentAt}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Tenant{}).Where("id = ?", rc.TenantID).
			UpdateColumn("last_reminder_sent_at", sentAt).Error
	})
}

// 4 SendOverdueNotice 逾期通知
func (s *NotificationService) SendOverdueNotice(ctx context.Context, rentChargeID uint, today time.Time) error {
	rc, err := s.loadCharge(ctx, rentChargeID)
	if err != nil {
		return err
	}
	days := daysBetween(rc.Tenant.RentDueDate, today)
	return s.send(ctx, rc.Tenant, SMSKindOverdue, s.overdueMessage(rc, days))
}

func (s *NotificationService) reminderMessage(rc *models.RentCharge, daysUntilDue int) string {
	tenant := rc.Tenant
	var urgency string
	switch {
	case daysUntilDue <= 0:
		urgency = "TODAY"
	case daysUntilDue == 1:
		urgency = "TOMORROW"
	default:
		urgency = fmt.Sprintf("in %d days", daysUntilDue)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", tenant.Name)
	fmt.Fprintf(&b, "Rent Reminder: Your rent of %s %s for %s is due %s (%s).\n\n",
		s.currency(), FormatMoney(rc.AmountDue), houseLabel(tenant), urgency, tenant.RentDueDate.Format("02 Jan 2006"))
	if rc.Balance.IsPositive() {
		fmt.Fprintf(&b, "Current balance: %s %s\n\n", s.currency(), FormatMoney(rc.Balance))
	}
	b.WriteString("Thank you for your prompt payment!")
	return b.String()
}

func (s *NotificationService) paymentConfirmationMessage(p *models.Payment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", p.Tenant.Name)
	fmt.Fprintf(&b, "Payment Received: %s %s for %s rent.\n\n", s.currency(), FormatMoney(p.Amount), p.RentCharge.Period())
	fmt.Fprintf(&b, "Payment Method: %s\n", p.Method.DisplayName())
	fmt.Fprintf(&b, "Date: %s\n\n", p.PaidAt.Format("02 Jan 2006, 03:04 PM"))
	if p.RentCharge.Balance.IsPositive() {
		fmt.Fprintf(&b, "Remaining balance: %s %s\n\n", s.currency(), FormatMoney(p.RentCharge.Balance))
	} else {
		b.WriteString("Your rent is now fully paid. Thank you!\n\n")
	}
	return b.String()
}

func (s *NotificationService) welcomeMessage(t *models.Tenant) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Welcome %s!\n\n", t.Name)
	fmt.Fprintf(&b, "You've been assigned to %s.\n\n", houseLabel(t))
	fmt.Fprintf(&b, "Monthly Rent: %s %s\n", s.currency(), FormatMoney(t.House.RentAmount))
	fmt.Fprintf(&b, "Rent Due Date: %s of each month\n\n", t.RentDueDate.Format("02"))
	b.WriteString("We're happy to have you!")
	return b.String()
}

func (s *NotificationService) overdueMessage(rc *models.RentCharge, daysOverdue int) string {
	tenant := rc.Tenant
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", tenant.Name)
	fmt.Fprintf(&b, "OVERDUE NOTICE: Your rent payment for %s is %d days overdue.\n\n", rc.Period(), daysOverdue)
	fmt.Fprintf(&b, "Amount Due: %s %s\n", s.currency(), FormatMoney(rc.Balance))
	fmt.Fprintf(&b, "Due Date: %s\n\n", tenant.RentDueDate.Format("02 Jan 2006"))
	b.WriteString("Please make payment as soon as possible.\nContact us if you need assistance.")
	return b.String()
}

func houseLabel(t *models.Tenant) string {
	if t.House == nil {
		return "your house"
	}
	if t.House.Building == nil {
		return "House " + t.House.UnitNumber
	}
	return fmt.Sprintf("%s - House %s", t.House.Building.Name, t.House.UnitNumber)
}

// FormatMoney 格式化为带千分位的两位小数，如 1,234.50
func FormatMoney(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	intPart, frac := s[:len(s)-3], s[len(s)-3:]

	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	b.WriteString(frac)
	return b.String()
}

// daysBetween 按日期计算 to - from 的天数
func daysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}
