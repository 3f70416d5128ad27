package services

import (
	"time"

	"rentbook/internal/models"
	apperrors "rentbook/pkg/errors"
	"rentbook/pkg/jwt"
)

func (s *ServiceSuite) userService() *UserService {
	return NewUserService(s.db, jwt.NewJWTManager("test-secret", time.Minute, time.Hour))
}

func (s *ServiceSuite) TestRegisterRoles() {
	svc := s.userService()

	u, err := svc.Register(RegisterInput{Username: "new_owner", Email: "o@example.com", Password: "longenough"})
	s.Require().NoError(err)
	s.Equal(models.RoleOwner, u.Role)
	s.True(u.CheckPassword("longenough"))

	u, err = svc.Register(RegisterInput{Username: "new_acc", Password: "longenough", Role: models.RoleAccountant})
	s.Require().NoError(err)
	s.Equal(models.RoleAccountant, u.Role)

	_, err = svc.Register(RegisterInput{Username: "sneaky", Password: "longenough", Role: models.RoleAdmin})
	var verr *apperrors.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Contains(verr.Fields, "role")

	_, err = svc.Register(RegisterInput{Username: "new_owner", Password: "longenough"})
	s.Require().ErrorAs(err, &verr)
	s.Contains(verr.Fields, "username")

	_, err = svc.Register(RegisterInput{Username: "x y", Password: "short"})
	s.Require().ErrorAs(err, &verr)
	s.Contains(verr.Fields, "username")
	s.Contains(verr.Fields, "password")
}

func (s *ServiceSuite) TestAuthenticateAndRefresh() {
	svc := s.userService()

	pair, user, err := svc.Authenticate("owner_a", "secret-pass")
	s.Require().NoError(err)
	s.Equal(s.ownerA.ID, user.ID)
	s.NotEmpty(pair.Access)
	s.NotEmpty(pair.Refresh)

	var stored models.User
	s.Require().NoError(s.db.First(&stored, s.ownerA.ID).Error)
	s.NotNil(stored.LastLoginAt)

	_, _, err = svc.Authenticate("owner_a", "wrong")
	s.ErrorIs(err, apperrors.ErrUnauthorized)
	_, _, err = svc.Authenticate("ghost", "secret-pass")
	s.ErrorIs(err, apperrors.ErrUnauthorized)

	access, err := svc.Refresh(pair.Refresh)
	s.Require().NoError(err)
	s.NotEmpty(access)

	_, err = svc.Refresh(pair.Access)
	s.ErrorIs(err, apperrors.ErrUnauthorized)

	s.Require().NoError(s.db.Model(&models.User{}).Where("id = ?", s.ownerA.ID).Update("is_active", false).Error)
	_, err = svc.Refresh(pair.Refresh)
	s.ErrorIs(err, apperrors.ErrUnauthorized)
	_, _, err = svc.Authenticate("owner_a", "secret-pass")
	s.ErrorIs(err, apperrors.ErrUnauthorized)
}

func (s *ServiceSuite) TestEnsureAdmin() {
	svc := s.userService()

	created, err := svc.EnsureAdmin("root", "root@example.com", "pw-123456")
	s.Require().NoError(err)
	s.False(created, "suite already has an admin")

	s.Require().NoError(s.db.Where("role = ?", models.RoleAdmin).Delete(&models.User{}).Error)
	created, err = svc.EnsureAdmin("root", "root@example.com", "pw-123456")
	s.Require().NoError(err)
	s.True(created)

	root, err := svc.GetByUsername("root")
	s.Require().NoError(err)
	s.True(root.IsAdmin())
}
