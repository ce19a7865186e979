package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"house-rent-service/internal/domain/services"
	"house-rent-service/pkg/logger"
)

// JobType 定时任务类型
type JobType int

const (
	JobTypeDueReminder JobType = iota
	JobTypeOverdueNotice
)

// String returns the string representation of a JobType
func (j JobType) String() string {
	switch j {
	case JobTypeDueReminder:
		return "due_reminder"
	case JobTypeOverdueNotice:
		return "overdue_notice"
	default:
		return "unknown"
	}
}

// Scheduler 每天在指定整点为全部账号发送租金提醒与逾期通知
type Scheduler struct {
	reminders services.InterfaceReminderService
	log       *logrus.Entry
	hour      int
	timeout   time.Duration

	// AfterRun 每轮任务结束后调用，用于清理响应缓存
	AfterRun func()

	cron     *cron.Cron
	entryID  cron.EntryID
	stopOnce sync.Once
}

// NewScheduler 创建定时任务，hour 为本地时间的整点
func NewScheduler(reminders services.InterfaceReminderService, hour int) *Scheduler {
	if hour < 0 || hour > 23 {
		hour = 8
	}
	s := &Scheduler{
		reminders: reminders,
		log:       logger.WithFields(logrus.Fields{"component": "scheduler"}),
		hour:      hour,
		timeout:   10 * time.Minute,
	}

	cronLogger := cron.PrintfLogger(s.log)
	s.cron = cron.New(
		cron.WithLogger(cronLogger),
		// 上一轮未结束时跳过本轮，panic 不影响后续调度
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	id, err := s.cron.AddFunc(s.Spec(), func() { s.RunOnce(time.Now()) })
	if err != nil {
		s.log.WithError(err).WithField("spec", s.Spec()).Error("注册定时任务失败")
	}
	s.entryID = id
	return s
}

// Spec 返回 cron 表达式：每天 hour 点整
func (s *Scheduler) Spec() string {
	return fmt.Sprintf("0 %d * * *", s.hour)
}

// Start 启动 cron 调度
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.WithFields(logrus.Fields{
		"hour": s.hour,
		"next": s.cron.Entry(s.entryID).Next,
	}).Info("租金提醒定时任务已启动")
}

// RunOnce 立即执行一轮提醒任务
func (s *Scheduler) RunOnce(today time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	s.runJob(ctx, JobTypeDueReminder, today, s.reminders.SendDailyRentReminders)
	s.runJob(ctx, JobTypeOverdueNotice, today, s.reminders.SendOverdueNotices)

	if s.AfterRun != nil {
		s.AfterRun()
	}
}

func (s *Scheduler) runJob(ctx context.Context, job JobType, today time.Time, fn func(context.Context, uint, time.Time) (*services.ReminderResult, error)) {
	entry := s.log.WithFields(logrus.Fields{
		"job_type": job.String(),
		"date":     today.Format("2006-01-02"),
	})
	entry.Info("开始执行定时任务")

	// ownerID 为0表示所有账号
	result, err := fn(ctx, 0, today)
	if err != nil {
		entry.WithError(err).Error("定时任务执行失败")
		return
	}
	entry.WithFields(logrus.Fields{
		"checked": result.Checked,
		"sent":    result.Sent,
		"skipped": result.Skipped,
		"failed":  result.Failed,
	}).Info("定时任务执行完成")
}

// Stop 停止定时任务并等待正在执行的任务结束
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		<-s.cron.Stop().Done()
		s.log.Info("租金提醒定时任务已停止")
	})
}
