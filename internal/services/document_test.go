package services

import (
	"context"
	"io"
	"strings"

	"rentbook/internal/models"
	apperrors "rentbook/pkg/errors"
	"rentbook/pkg/pagination"
)

func bgCtx() context.Context {
	return context.Background()
}

func upload(name, body string) *Upload {
	return &Upload{FileName: name, ContentType: "application/pdf", Reader: strings.NewReader(body)}
}

func (s *ServiceSuite) TestDocumentRequiresParent() {
	svc := NewDocumentService(s.db, s.store)
	_, err := svc.Create(bgCtx(), Unrestricted(), DocumentInput{Title: ptr("Orphan")}, upload("a.pdf", "x"))
	var verr *apperrors.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Contains(verr.Fields, "non_field_errors")
	s.Empty(s.store.files)

	_, err = svc.Create(bgCtx(), Unrestricted(), DocumentInput{Title: ptr("No file"), ApartmentID: ptr(uint(1))}, nil)
	s.Require().ErrorAs(err, &verr)
	s.Contains(verr.Fields, "file")
}

func (s *ServiceSuite) TestDocumentParentsMustBeVisibleAndConsistent() {
	aptA := s.createApartment(s.ownerA, "A1")
	aptA2 := s.createApartment(s.ownerA, "A2")
	aptB := s.createApartment(s.ownerB, "B1")
	tenantA := s.createTenant(aptA, "Tenant A", date(2025, 1, 1), ptr(date(2025, 1, 31)), 100)
	svc := NewDocumentService(s.db, s.store)
	scope := s.actor(s.accountant).Scope

	_, err := svc.Create(bgCtx(), scope, DocumentInput{Title: ptr("Foreign"), ApartmentID: &aptB.ID}, upload("b.pdf", "b"))
	var verr *apperrors.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Contains(verr.Fields, "apartment_id")

	_, err = svc.Create(bgCtx(), scope, DocumentInput{Title: ptr("Mismatch"), TenantID: &tenantA.ID, ApartmentID: &aptA2.ID}, upload("m.pdf", "m"))
	s.Require().ErrorAs(err, &verr)
	s.Contains(verr.Fields, "apartment_id")

	doc, err := svc.Create(bgCtx(), scope, DocumentInput{
		Title:        ptr("Lease"),
		TenantID:     &tenantA.ID,
		ApartmentID:  &aptA.ID,
		DocumentType: ptr(models.DocumentTypeContract),
	}, upload("lease.pdf", "lease body"))
	s.Require().NoError(err)
	s.Equal(int64(10), doc.Size)
	s.Equal("lease.pdf", doc.FileName)
	s.True(s.store.has(doc.FilePath))
}

func (s *ServiceSuite) TestDocumentLifecycle() {
	apt := s.createApartment(s.ownerA, "A1")
	aptB := s.createApartment(s.ownerB, "B1")
	svc := NewDocumentService(s.db, s.store)
	scope := s.actor(s.ownerA).Scope

	doc, err := svc.Create(bgCtx(), scope, DocumentInput{Title: ptr("Deed"), ApartmentID: &apt.ID}, upload("deed.pdf", "v1"))
	s.Require().NoError(err)
	oldKey := doc.FilePath

	updated, err := svc.Update(bgCtx(), scope, doc.ID, DocumentInput{Description: ptr("signed")}, upload("deed-v2.pdf", "v2"))
	s.Require().NoError(err)
	s.Equal("signed", updated.Description)
	s.NotEqual(oldKey, updated.FilePath)
	s.False(s.store.has(oldKey))

	got, rc, err := svc.Open(bgCtx(), scope, doc.ID)
	s.Require().NoError(err)
	body, _ := io.ReadAll(rc)
	s.Require().NoError(rc.Close())
	s.Equal("v2", string(body))
	s.Equal("deed-v2.pdf", got.FileName)

	_, err = svc.Get(s.actor(s.ownerB).Scope, doc.ID)
	s.ErrorIs(err, apperrors.ErrNotFound)

	s.Require().NoError(NewDocumentService(s.db, s.store).Delete(scope, doc.ID))
	s.False(s.store.has(updated.FilePath))

	_, err = svc.Create(bgCtx(), s.actor(s.ownerB).Scope, DocumentInput{Title: ptr("B doc"), ApartmentID: &aptB.ID}, upload("b.pdf", "b"))
	s.Require().NoError(err)
	list, total, err := svc.List(scope, DocumentFilter{}, &pagination.PageParams{Page: 1, PageSize: 20})
	s.Require().NoError(err)
	s.Zero(total)
	s.Empty(list)
}
