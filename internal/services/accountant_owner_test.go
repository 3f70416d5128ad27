package services

import (
	"rentbook/internal/models"
	apperrors "rentbook/pkg/errors"
	"rentbook/pkg/pagination"
)

func (s *ServiceSuite) TestDelegationCreateRules() {
	svc := NewAccountantOwnerService(s.db)
	other := s.createUser("accountant_2", "accountant")

	_, err := svc.Create(s.accountant, s.accountant.ID, s.ownerB.ID)
	s.ErrorIs(err, apperrors.ErrForbidden)

	_, err = svc.Create(s.ownerA, other.ID, s.ownerB.ID)
	s.ErrorIs(err, apperrors.ErrForbidden)

	link, err := svc.Create(s.ownerB, other.ID, s.ownerB.ID)
	s.Require().NoError(err)
	s.Equal(other.ID, link.AccountantID)
	s.Require().NotNil(link.Owner)
	s.Equal("owner_b", link.Owner.Username)

	_, err = svc.Create(s.admin, other.ID, s.ownerB.ID)
	s.ErrorIs(err, apperrors.ErrConflict)

	_, err = svc.Create(s.admin, s.ownerA.ID, s.ownerB.ID)
	var verr *apperrors.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Contains(verr.Fields, "accountant_id")

	_, err = svc.Create(s.admin, other.ID, s.accountant.ID)
	s.Require().ErrorAs(err, &verr)
	s.Contains(verr.Fields, "owner_id")

	_, err = svc.Create(s.admin, other.ID, s.ownerA.ID)
	s.Require().NoError(err)

	scope, err := NewAccessResolver(s.db).Resolve(other)
	s.Require().NoError(err)
	s.ElementsMatch([]uint{s.ownerA.ID, s.ownerB.ID}, scope.OwnerIDs())
}

func (s *ServiceSuite) TestDelegationVisibility() {
	svc := NewAccountantOwnerService(s.db)
	page := &pagination.PageParams{Page: 1, PageSize: 20}

	rows, total, err := svc.List(s.ownerA, page)
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Len(rows, 1)

	rows, _, err = svc.List(s.ownerB, page)
	s.Require().NoError(err)
	s.Empty(rows)

	rows, _, err = svc.List(s.accountant, page)
	s.Require().NoError(err)
	s.Require().Len(rows, 1)

	s.ErrorIs(svc.Delete(s.ownerB, rows[0].ID), apperrors.ErrNotFound)
	s.Require().NoError(svc.Delete(s.ownerA, rows[0].ID))

	scope, err := NewAccessResolver(s.db).Resolve(s.accountant)
	s.Require().NoError(err)
	s.Empty(scope.OwnerIDs())
}

func (s *ServiceSuite) TestDelegationUpdateRules() {
	svc := NewAccountantOwnerService(s.db)
	other := s.createUser("accountant_2", "accountant")

	var link models.AccountantOwner
	s.Require().NoError(s.db.Where("accountant_id = ? AND owner_id = ?", s.accountant.ID, s.ownerA.ID).First(&link).Error)

	_, err := svc.Update(s.ownerB, link.ID, &other.ID, nil)
	s.ErrorIs(err, apperrors.ErrNotFound)

	_, err = svc.Update(s.accountant, link.ID, &other.ID, nil)
	s.ErrorIs(err, apperrors.ErrForbidden)

	_, err = svc.Update(s.ownerA, link.ID, nil, &s.ownerB.ID)
	s.ErrorIs(err, apperrors.ErrForbidden)

	// 原值不变也可以保存
	same, err := svc.Update(s.ownerA, link.ID, &s.accountant.ID, &s.ownerA.ID)
	s.Require().NoError(err)
	s.Equal(s.accountant.ID, same.AccountantID)

	updated, err := svc.Update(s.ownerA, link.ID, &other.ID, nil)
	s.Require().NoError(err)
	s.Equal(other.ID, updated.AccountantID)
	s.Equal(s.ownerA.ID, updated.OwnerID)

	second, err := svc.Create(s.admin, s.accountant.ID, s.ownerA.ID)
	s.Require().NoError(err)
	_, err = svc.Update(s.admin, second.ID, &other.ID, nil)
	s.ErrorIs(err, apperrors.ErrConflict)

	_, err = svc.Update(s.admin, second.ID, &s.ownerB.ID, nil)
	var verr *apperrors.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Contains(verr.Fields, "accountant_id")

	scope, err := NewAccessResolver(s.db).Resolve(other)
	s.Require().NoError(err)
	s.Equal([]uint{s.ownerA.ID}, scope.OwnerIDs())
}
