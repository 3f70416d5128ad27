package services

import (
	"rentbook/internal/models"
	apperrors "rentbook/pkg/errors"
	"rentbook/pkg/pagination"
)

func (s *ServiceSuite) TestResolveByRole() {
	resolver := NewAccessResolver(s.db)

	scope, err := resolver.Resolve(s.admin)
	s.Require().NoError(err)
	s.True(scope.IsUnrestricted())

	scope, err = resolver.Resolve(s.ownerA)
	s.Require().NoError(err)
	s.False(scope.IsUnrestricted())
	s.Equal([]uint{s.ownerA.ID}, scope.OwnerIDs())

	scope, err = resolver.Resolve(s.accountant)
	s.Require().NoError(err)
	s.Equal([]uint{s.ownerA.ID}, scope.OwnerIDs())

	scope, err = resolver.Resolve(&models.User{BaseModel: models.BaseModel{ID: 99}, Role: "auditor"})
	s.Require().NoError(err)
	s.False(scope.IsUnrestricted())
	s.Empty(scope.OwnerIDs())
}

func (s *ServiceSuite) TestAccountantSeesOnlyDelegatedOwners() {
	aptA := s.createApartment(s.ownerA, "A1")
	aptB := s.createApartment(s.ownerB, "B1")
	svc := NewApartmentService(s.db, s.store)
	page := &pagination.PageParams{Page: 1, PageSize: 20}

	acc := s.actor(s.accountant)
	list, total, err := svc.List(acc.Scope, ApartmentFilter{}, page)
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Require().Len(list, 1)
	s.Equal(aptA.ID, list[0].ID)

	_, err = svc.Get(acc.Scope, aptB.ID)
	s.ErrorIs(err, apperrors.ErrNotFound)

	all, total, err := svc.List(s.actor(s.admin).Scope, ApartmentFilter{}, page)
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	s.Len(all, 2)
}

func (s *ServiceSuite) TestEmptyScopeSeesNothing() {
	apt := s.createApartment(s.ownerA, "A1")
	tenant := s.createTenant(apt, "Nikos", date(2025, 1, 1), nil, 500)
	page := &pagination.PageParams{Page: 1, PageSize: 20}
	none := RestrictedTo()

	apts, _, err := NewApartmentService(s.db, s.store).List(none, ApartmentFilter{}, page)
	s.Require().NoError(err)
	s.Empty(apts)

	tenants, _, err := NewTenantService(s.db, s.store).List(none, TenantFilter{}, page)
	s.Require().NoError(err)
	s.Empty(tenants)

	payments, _, err := NewPaymentService(s.db, nil).List(none, PaymentFilter{}, page)
	s.Require().NoError(err)
	s.Empty(payments)

	_, err = NewTenantService(s.db, s.store).Get(none, tenant.ID)
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *ServiceSuite) TestChildScopesFollowOwnership() {
	aptA := s.createApartment(s.ownerA, "A1")
	aptB := s.createApartment(s.ownerB, "B1")
	tA := s.createTenant(aptA, "Tenant A", date(2025, 1, 1), ptr(date(2025, 3, 31)), 400)
	tB := s.createTenant(aptB, "Tenant B", date(2025, 1, 1), ptr(date(2025, 3, 31)), 600)
	page := &pagination.PageParams{Page: 1, PageSize: 50}
	scope := s.actor(s.ownerB).Scope

	tenants, _, err := NewTenantService(s.db, s.store).List(scope, TenantFilter{}, page)
	s.Require().NoError(err)
	s.Require().Len(tenants, 1)
	s.Equal(tB.ID, tenants[0].ID)

	payments, total, err := NewPaymentService(s.db, nil).List(scope, PaymentFilter{}, page)
	s.Require().NoError(err)
	s.Equal(int64(3), total)
	for _, p := range payments {
		s.Equal(tB.ID, p.TenantID)
	}

	_, err = NewPaymentService(s.db, nil).Get(scope, s.payments(tA.ID)[0].ID)
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *ServiceSuite) TestOwnerScopeAllows() {
	s.True(Unrestricted().Allows(42))
	s.True(RestrictedTo(1, 2).Allows(2))
	s.False(RestrictedTo(1, 2).Allows(3))
	s.False(RestrictedTo().Allows(1))
}
