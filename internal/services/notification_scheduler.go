package services

import (
	"context"
	"sync"
	"time"

	"rentbook/pkg/logger"

	"github.com/robfig/cron/v3"
)

// NotificationScheduler 定时执行通知规则
type NotificationScheduler struct {
	rules   *NotificationRules
	cron    *cron.Cron
	spec    string
	timeout time.Duration
	mu      sync.Mutex
	running bool
}

// NewNotificationScheduler 创建调度器，spec 为标准5段cron表达式
func NewNotificationScheduler(rules *NotificationRules, spec string, loc *time.Location, timeout time.Duration) *NotificationScheduler {
	if loc == nil {
		loc = time.UTC
	}
	if timeout <= 0 {
		timeout = defaultSweepTTL
	}
	return &NotificationScheduler{
		rules:   rules,
		cron:    cron.New(cron.WithLocation(loc)),
		spec:    spec,
		timeout: timeout,
	}
}

// Start 启动调度器
func (s *NotificationScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	log := logger.GetLogger()
	if _, err := s.cron.AddFunc(s.spec, s.runOnce); err != nil {
		return err
	}
	s.cron.Start()
	s.running = true

	log.WithField("spec", s.spec).Info("Notification scheduler started")
	return nil
}

// Stop 停止调度器，等待正在执行的任务结束
func (s *NotificationScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false

	logger.GetLogger().Info("Notification scheduler stopped")
}

func (s *NotificationScheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.rules.Sweep(ctx, Today()); err != nil {
		logger.GetLogger().WithError(err).Error("Scheduled notification sweep failed")
	}
}
