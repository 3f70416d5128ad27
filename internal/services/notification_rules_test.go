package services

import (
	"context"
	"time"

	"rentbook/internal/models"
	"rentbook/pkg/lock"
)

func (s *ServiceSuite) countNotifications(userID uint, kind string) int64 {
	var count int64
	s.Require().NoError(s.db.Model(&models.Notification{}).
		Where("user_id = ? AND notification_type = ?", userID, kind).
		Count(&count).Error)
	return count
}

func (s *ServiceSuite) TestSweepContractRules() {
	today := date(2025, 6, 1)
	aptA := s.createApartment(s.ownerA, "A1")
	aptB := s.createApartment(s.ownerB, "B1")
	s.createTenant(aptA, "Starts Today", today, ptr(date(2026, 5, 31)), 400)
	s.createTenant(aptA, "Also Starts Today", today, ptr(date(2026, 5, 31)), 400)
	s.createTenant(aptB, "Ends Soon", date(2025, 1, 8), ptr(date(2025, 6, 8)), 300)

	rules := NewNotificationRules(s.db, lock.NewLocalLocker(), s.publisher, time.Minute)
	report, err := rules.Sweep(context.Background(), today)
	s.Require().NoError(err)
	s.False(report.Skipped)
	s.Equal("2025-06-01", report.Date)
	s.Equal(1, report.ContractStarting)
	s.Equal(1, report.ContractEnding)

	s.Equal(int64(1), s.countNotifications(s.ownerA.ID, models.NotificationContractStarting))
	s.Equal(int64(1), s.countNotifications(s.ownerB.ID, models.NotificationContractEnding))
	s.Zero(s.countNotifications(s.accountant.ID, models.NotificationContractStarting))

	again, err := rules.Sweep(context.Background(), today)
	s.Require().NoError(err)
	s.Zero(again.ContractStarting)
	s.Zero(again.ContractEnding)
	s.Zero(again.OverduePayments)
	s.Equal(int64(1), s.countNotifications(s.ownerA.ID, models.NotificationContractStarting))
	s.Equal(report.Total(), s.publisher.count())
}

func (s *ServiceSuite) TestSweepOverdueDedupPerOwner() {
	aptA := s.createApartment(s.ownerA, "A1")
	aptB := s.createApartment(s.ownerB, "B1")
	s.createTenant(aptA, "Late One", date(2025, 1, 1), ptr(date(2025, 3, 31)), 400)
	s.createTenant(aptA, "Late Two", date(2025, 1, 1), ptr(date(2025, 3, 31)), 400)
	paidUp := s.createTenant(aptB, "Paid Up", date(2025, 1, 1), ptr(date(2025, 2, 28)), 300)
	s.Require().NoError(s.db.Model(&models.RentPayment{}).Where("tenant_id = ?", paidUp.ID).
		Updates(map[string]interface{}{"paid": true, "paid_date": date(2025, 1, 2)}).Error)

	rules := NewNotificationRules(s.db, nil, nil, 0)
	report, err := rules.Sweep(context.Background(), date(2025, 4, 1))
	s.Require().NoError(err)
	s.Equal(1, report.OverduePayments)
	s.Equal(int64(1), s.countNotifications(s.ownerA.ID, models.NotificationOverduePayment))
	s.Zero(s.countNotifications(s.ownerB.ID, models.NotificationOverduePayment))

	var n models.Notification
	s.Require().NoError(s.db.Where("notification_type = ?", models.NotificationOverduePayment).First(&n).Error)
	s.Contains(n.Title, "Late One")
	s.Contains(n.Message, "(2025/1)")

	report, err = rules.Sweep(context.Background(), date(2025, 4, 2))
	s.Require().NoError(err)
	s.Zero(report.OverduePayments)
}

func (s *ServiceSuite) TestSweepSkippedWhenLocked() {
	locker := lock.NewLocalLocker()
	release, ok, err := locker.TryLock(context.Background(), sweepLockKey, time.Minute)
	s.Require().NoError(err)
	s.Require().True(ok)
	defer release()

	apt := s.createApartment(s.ownerA, "A1")
	s.createTenant(apt, "Today", date(2025, 6, 1), nil, 100)

	report, err := NewNotificationRules(s.db, locker, nil, time.Minute).Sweep(context.Background(), date(2025, 6, 1))
	s.Require().NoError(err)
	s.True(report.Skipped)
	s.Zero(s.countNotifications(s.ownerA.ID, models.NotificationContractStarting))
}
