package services

import (
	"rentbook/internal/models"

	"github.com/shopspring/decimal"
)

func (s *ServiceSuite) TestTenantHistorySummary() {
	apt := s.createApartment(s.ownerA, "A1")
	current := s.createTenant(apt, "Current", date(2025, 1, 1), nil, 500)
	past := s.createTenant(apt, "Past", date(2024, 1, 1), ptr(date(2024, 3, 31)), 300)
	s.createTenant(s.createApartment(s.ownerB, "B1"), "Other Owner", date(2025, 1, 1), nil, 900)

	s.Require().NoError(s.db.Model(&models.RentPayment{}).
		Where("tenant_id = ? AND month IN ?", past.ID, []int{1, 2}).
		Updates(map[string]interface{}{"paid": true, "paid_date": date(2024, 2, 1)}).Error)
	s.Require().NoError(s.db.Model(&models.RentPayment{}).
		Where("tenant_id = ? AND year = ? AND month = ?", current.ID, 2025, 1).
		Updates(map[string]interface{}{"paid": true, "paid_date": date(2025, 1, 2)}).Error)

	summary, err := NewTenantHistoryService(s.db).Summary(s.actor(s.ownerA).Scope)
	s.Require().NoError(err)
	s.Equal(2, summary.TotalTenants)
	s.Equal(1, summary.CurrentTenants)
	s.Equal(1, summary.PastTenants)
	s.True(summary.TotalRentCollected.Equal(decimal.NewFromInt(500)), summary.TotalRentCollected.String())
	// 已付：过去租客 2*300 + 当前租客 1*500
	s.True(summary.TotalPaymentsReceived.Equal(decimal.NewFromInt(1100)), summary.TotalPaymentsReceived.String())
	// 未付：过去租客 1*300 + 当前租客 12*500
	s.True(summary.PendingPayments.Equal(decimal.NewFromInt(6300)), summary.PendingPayments.String())

	s.Require().Len(summary.Tenants, 2)
	byName := map[string]TenantHistoryEntry{}
	for _, e := range summary.Tenants {
		byName[e.Tenant.FullName] = e
	}
	s.Equal(TenantStatusCurrent, byName["Current"].Status)
	s.Equal(13, byName["Current"].TotalPayments)
	s.Equal(1, byName["Current"].PaidCount)
	s.Equal(TenantStatusPast, byName["Past"].Status)
	s.Equal(2, byName["Past"].PaidCount)
	s.Equal(1, byName["Past"].UnpaidCount)
	s.Require().NotNil(byName["Past"].Tenant.Apartment)
	s.Equal("A1", byName["Past"].Tenant.Apartment.Title)
}

func (s *ServiceSuite) TestTenantHistoryGetIncludesPayments() {
	apt := s.createApartment(s.ownerA, "A1")
	tenant := s.createTenant(apt, "History", date(2025, 1, 1), ptr(date(2025, 3, 31)), 100)

	got, err := NewTenantHistoryService(s.db).Get(s.actor(s.accountant).Scope, tenant.ID)
	s.Require().NoError(err)
	s.Require().Len(got.Payments, 3)
	s.Equal(3, got.Payments[0].Month)

	_, err = NewTenantHistoryService(s.db).Get(s.actor(s.ownerB).Scope, tenant.ID)
	s.Error(err)
}
