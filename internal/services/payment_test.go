package services

import (
	"encoding/json"

	"rentbook/internal/models"
	apperrors "rentbook/pkg/errors"
	"rentbook/pkg/pagination"

	"github.com/shopspring/decimal"
)

func (s *ServiceSuite) TestMarkPaidAndUnpaid() {
	freezeToday(s.T(), date(2025, 7, 10))
	apt := s.createApartment(s.ownerA, "A1")
	tenant := s.createTenant(apt, "Maria", date(2025, 6, 1), ptr(date(2026, 5, 31)), 450)
	june := s.payments(tenant.ID)[0]
	s.Require().NoError(s.db.Model(&june).Update("receipt_number", "R-1").Error)

	svc := NewPaymentService(s.db, s.publisher)
	scope := s.actor(s.accountant).Scope

	paid, err := svc.MarkPaid(scope, june.ID, MarkPaidInput{PaymentMethod: ptr(models.PaymentMethodBankTransfer)})
	s.Require().NoError(err)
	s.True(paid.Paid)
	s.Require().NotNil(paid.PaidDate)
	s.Equal("2025-07-10", models.FormatDate(*paid.PaidDate))
	s.Require().NotNil(paid.PaymentMethod)
	s.Equal(models.PaymentMethodBankTransfer, *paid.PaymentMethod)
	s.Equal("R-1", paid.ReceiptNumber)

	var notes []models.Notification
	s.Require().NoError(s.db.Where("notification_type = ?", models.NotificationPaymentReceived).Find(&notes).Error)
	s.Require().Len(notes, 1)
	s.Equal(s.ownerA.ID, notes[0].UserID)
	s.Contains(notes[0].Message, "Maria")
	s.Contains(notes[0].Message, "6/2025")
	s.Contains(notes[0].Message, "450.00")
	var payload map[string]uint
	s.Require().NoError(json.Unmarshal(notes[0].Payload, &payload))
	s.Equal(june.ID, payload["payment_id"])
	s.Equal(1, s.publisher.count())

	unpaid, err := svc.MarkUnpaid(scope, june.ID)
	s.Require().NoError(err)
	s.False(unpaid.Paid)
	s.Nil(unpaid.PaidDate)
	s.Require().NotNil(unpaid.PaymentMethod)
	s.Equal(models.PaymentMethodBankTransfer, *unpaid.PaymentMethod)

	var count int64
	s.db.Model(&models.Notification{}).Count(&count)
	s.Equal(int64(1), count)
}

func (s *ServiceSuite) TestMarkPaidOutsideScope() {
	apt := s.createApartment(s.ownerB, "B1")
	tenant := s.createTenant(apt, "Hidden", date(2025, 1, 1), ptr(date(2025, 1, 31)), 100)
	p := s.payments(tenant.ID)[0]

	_, err := NewPaymentService(s.db, s.publisher).MarkPaid(s.actor(s.accountant).Scope, p.ID, MarkPaidInput{})
	s.ErrorIs(err, apperrors.ErrNotFound)

	var count int64
	s.db.Model(&models.Notification{}).Count(&count)
	s.Zero(count)
}

func (s *ServiceSuite) TestMarkPaidRejectsUnknownMethod() {
	apt := s.createApartment(s.ownerA, "A1")
	tenant := s.createTenant(apt, "T", date(2025, 1, 1), ptr(date(2025, 1, 31)), 100)
	p := s.payments(tenant.ID)[0]

	_, err := NewPaymentService(s.db, nil).MarkPaid(Unrestricted(), p.ID, MarkPaidInput{PaymentMethod: ptr("bitcoin")})
	s.ErrorIs(err, apperrors.ErrValidation)

	var stored models.RentPayment
	s.Require().NoError(s.db.First(&stored, p.ID).Error)
	s.False(stored.Paid)
}

func (s *ServiceSuite) TestIsOverdue() {
	today := date(2025, 7, 10)
	s.True((&models.RentPayment{DueDate: date(2025, 7, 5)}).IsOverdue(today))
	s.False((&models.RentPayment{DueDate: date(2025, 7, 10)}).IsOverdue(today))
	s.False((&models.RentPayment{DueDate: date(2025, 7, 5), Paid: true}).IsOverdue(today))
}

func (s *ServiceSuite) TestPaymentFilters() {
	freezeToday(s.T(), date(2025, 3, 10))
	apt := s.createApartment(s.ownerA, "A1")
	tenant := s.createTenant(apt, "Filter", date(2025, 1, 1), ptr(date(2025, 6, 30)), 200)
	rows := s.payments(tenant.ID)
	s.Require().Len(rows, 6)
	s.Require().NoError(s.db.Model(&rows[0]).Updates(map[string]interface{}{"paid": true, "paid_date": date(2025, 1, 2)}).Error)

	svc := NewPaymentService(s.db, nil)
	page := &pagination.PageParams{Page: 1, PageSize: 50}
	scope := s.actor(s.ownerA).Scope

	overdue, _, err := svc.List(scope, PaymentFilter{Overdue: true}, page)
	s.Require().NoError(err)
	s.Require().Len(overdue, 2) // 2月、3月5日到期未付
	s.Equal(3, overdue[0].Month)
	s.Equal(2, overdue[1].Month)

	paid, _, err := svc.List(scope, PaymentFilter{Paid: ptr(true)}, page)
	s.Require().NoError(err)
	s.Len(paid, 1)

	byMonth, _, err := svc.List(scope, PaymentFilter{TenantID: tenant.ID, Year: 2025, Month: 4}, page)
	s.Require().NoError(err)
	s.Len(byMonth, 1)

	all, _, err := svc.List(scope, PaymentFilter{}, page)
	s.Require().NoError(err)
	s.Equal(6, all[0].Month)
	s.Equal(1, all[5].Month)
}

func (s *ServiceSuite) TestPaymentCreateAndUpdate() {
	apt := s.createApartment(s.ownerA, "A1")
	tenant := s.createTenant(apt, "Manual", date(2025, 1, 1), ptr(date(2025, 1, 31)), 100)
	svc := NewPaymentService(s.db, nil)
	scope := s.actor(s.ownerA).Scope

	_, err := svc.Create(scope, PaymentInput{
		TenantID: &tenant.ID, Month: ptr(1), Year: ptr(2025),
		Amount: ptr(decimal.NewFromInt(100)), DueDate: ptr(date(2025, 1, 5)),
	})
	s.ErrorIs(err, apperrors.ErrConflict)

	created, err := svc.Create(scope, PaymentInput{
		TenantID: &tenant.ID, Month: ptr(2), Year: ptr(2025),
		Amount: ptr(decimal.RequireFromString("120.50")), DueDate: ptr(date(2025, 2, 5)),
	})
	s.Require().NoError(err)
	s.False(created.Paid)

	_, err = svc.Create(s.actor(s.ownerB).Scope, PaymentInput{
		TenantID: &tenant.ID, Month: ptr(3), Year: ptr(2025),
		Amount: ptr(decimal.NewFromInt(1)), DueDate: ptr(date(2025, 3, 5)),
	})
	var verr *apperrors.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Contains(verr.Fields, "tenant_id")

	updated, err := svc.Update(scope, created.ID, PaymentInput{Notes: ptr("late fee waived"), Amount: ptr(decimal.NewFromInt(110))})
	s.Require().NoError(err)
	s.Equal("late fee waived", updated.Notes)
	s.True(updated.Amount.Equal(decimal.NewFromInt(110)))
	s.False(updated.Paid)
}
