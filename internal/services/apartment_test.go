package services

import (
	"strings"

	"rentbook/internal/models"
	apperrors "rentbook/pkg/errors"
	"rentbook/pkg/pagination"
)

func apartmentInput(title string) ApartmentInput {
	return ApartmentInput{
		Title:        ptr(title),
		Address:      ptr("Patision 42"),
		SquareMeters: ptr(80),
	}
}

func (s *ServiceSuite) TestIsRentedFollowsStatus() {
	svc := NewApartmentService(s.db, s.store)
	owner := s.actor(s.ownerA)

	apt, err := svc.Create(owner, apartmentInput("Flat"))
	s.Require().NoError(err)
	s.Equal(models.ApartmentStatusVacant, apt.Status)
	s.False(apt.IsRented)

	for _, status := range []string{models.ApartmentStatusRented, models.ApartmentStatusMaintenance, models.ApartmentStatusVacant, models.ApartmentStatusRented} {
		updated, err := svc.Update(owner, apt.ID, ApartmentInput{Status: ptr(status)})
		s.Require().NoError(err)
		s.Equal(status == models.ApartmentStatusRented, updated.IsRented, status)

		var stored models.Apartment
		s.Require().NoError(s.db.First(&stored, apt.ID).Error)
		s.Equal(status == models.ApartmentStatusRented, stored.IsRented, status)
	}

	in := apartmentInput("Rented on create")
	in.Status = ptr(models.ApartmentStatusRented)
	rented, err := svc.Create(owner, in)
	s.Require().NoError(err)
	s.True(rented.IsRented)
}

func (s *ServiceSuite) TestOwnerCreatesForThemselves() {
	svc := NewApartmentService(s.db, s.store)
	in := apartmentInput("Mine")
	in.OwnerID = &s.ownerB.ID

	apt, err := svc.Create(s.actor(s.ownerA), in)
	s.Require().NoError(err)
	s.Equal(s.ownerA.ID, apt.OwnerID)
}

func (s *ServiceSuite) TestPrivilegedCreateRequiresOwner() {
	svc := NewApartmentService(s.db, s.store)

	_, err := svc.Create(s.actor(s.admin), apartmentInput("No owner"))
	var verr *apperrors.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Contains(verr.Fields, "owner_id")

	in := apartmentInput("Owned by accountant")
	in.OwnerID = &s.accountant.ID
	_, err = svc.Create(s.actor(s.admin), in)
	s.Require().ErrorAs(err, &verr)
	s.Contains(verr.Fields, "owner_id")

	in = apartmentInput("Admin for B")
	in.OwnerID = &s.ownerB.ID
	apt, err := svc.Create(s.actor(s.admin), in)
	s.Require().NoError(err)
	s.Equal(s.ownerB.ID, apt.OwnerID)
}

func (s *ServiceSuite) TestAccountantCreateWithinDelegation() {
	svc := NewApartmentService(s.db, s.store)
	acc := s.actor(s.accountant)

	in := apartmentInput("For A")
	in.OwnerID = &s.ownerA.ID
	apt, err := svc.Create(acc, in)
	s.Require().NoError(err)
	s.Equal(s.ownerA.ID, apt.OwnerID)

	in = apartmentInput("For B")
	in.OwnerID = &s.ownerB.ID
	_, err = svc.Create(acc, in)
	s.ErrorIs(err, apperrors.ErrForbidden)
}

func (s *ServiceSuite) TestApartmentValidationAndFilters() {
	svc := NewApartmentService(s.db, s.store)
	owner := s.actor(s.ownerA)

	_, err := svc.Create(owner, ApartmentInput{Title: ptr("x"), Status: ptr("sold")})
	var verr *apperrors.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Contains(verr.Fields, "status")
	s.Contains(verr.Fields, "address")
	s.Contains(verr.Fields, "square_meters")

	in := apartmentInput("Sea View Loft")
	in.City = ptr("Athens")
	_, err = svc.Create(owner, in)
	s.Require().NoError(err)
	in = apartmentInput("Garden House")
	in.City = ptr("Patras")
	in.Status = ptr(models.ApartmentStatusRented)
	_, err = svc.Create(owner, in)
	s.Require().NoError(err)

	page := &pagination.PageParams{Page: 1, PageSize: 20}
	list, _, err := svc.List(owner.Scope, ApartmentFilter{City: "athens"}, page)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal("Sea View Loft", list[0].Title)

	list, _, err = svc.List(owner.Scope, ApartmentFilter{Status: models.ApartmentStatusRented}, page)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal("Garden House", list[0].Title)

	list, _, err = svc.List(owner.Scope, ApartmentFilter{Search: strings.ToUpper("loft")}, page)
	s.Require().NoError(err)
	s.Len(list, 1)
}

func (s *ServiceSuite) TestDeleteApartmentCascades() {
	apt := s.createApartment(s.ownerA, "Doomed")
	tenant := s.createTenant(apt, "Leaving", date(2025, 1, 1), ptr(date(2025, 6, 30)), 300)
	docs := NewDocumentService(s.db, s.store)
	scope := s.actor(s.ownerA).Scope

	tenantDoc, err := docs.Create(bgCtx(), scope, DocumentInput{TenantID: &tenant.ID, Title: ptr("Lease")}, upload("lease.pdf", "lease"))
	s.Require().NoError(err)
	aptDoc, err := docs.Create(bgCtx(), scope, DocumentInput{ApartmentID: &apt.ID, Title: ptr("Insurance")}, upload("ins.pdf", "ins"))
	s.Require().NoError(err)

	s.Require().NoError(NewApartmentService(s.db, s.store).Delete(scope, apt.ID))

	var count int64
	s.db.Model(&models.Tenant{}).Where("id = ?", tenant.ID).Count(&count)
	s.Zero(count)
	s.db.Model(&models.RentPayment{}).Where("tenant_id = ?", tenant.ID).Count(&count)
	s.Zero(count)
	s.db.Model(&models.Document{}).Count(&count)
	s.Zero(count)
	s.False(s.store.has(tenantDoc.FilePath))
	s.False(s.store.has(aptDoc.FilePath))
}

func (s *ServiceSuite) TestDeleteOutsideScopeIsNotFound() {
	apt := s.createApartment(s.ownerB, "Not yours")
	err := NewApartmentService(s.db, s.store).Delete(s.actor(s.accountant).Scope, apt.ID)
	s.ErrorIs(err, apperrors.ErrNotFound)
}
