package services

import (
	"rentbook/internal/models"
	apperrors "rentbook/pkg/errors"
	"rentbook/pkg/pagination"
)

func (s *ServiceSuite) TestNotificationsArePerUser() {
	for _, n := range []models.Notification{
		{UserID: s.ownerA.ID, NotificationType: models.NotificationOther, Title: "one"},
		{UserID: s.ownerA.ID, NotificationType: models.NotificationOther, Title: "two"},
		{UserID: s.ownerB.ID, NotificationType: models.NotificationOther, Title: "other"},
	} {
		n := n
		s.Require().NoError(s.db.Create(&n).Error)
	}
	svc := NewNotificationService(s.db)
	page := &pagination.PageParams{Page: 1, PageSize: 20}

	list, total, err := svc.List(s.ownerA.ID, NotificationFilter{}, page)
	s.Require().NoError(err)
	s.Equal(int64(2), total)

	count, err := svc.UnreadCount(s.ownerA.ID)
	s.Require().NoError(err)
	s.Equal(int64(2), count)

	read, err := svc.MarkAsRead(s.ownerA.ID, list[0].ID)
	s.Require().NoError(err)
	s.True(read.IsRead)

	_, err = svc.MarkAsRead(s.ownerB.ID, list[0].ID)
	s.ErrorIs(err, apperrors.ErrNotFound)

	updated, err := svc.MarkAllAsRead(s.ownerA.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), updated)

	count, err = svc.UnreadCount(s.ownerA.ID)
	s.Require().NoError(err)
	s.Zero(count)

	count, err = svc.UnreadCount(s.ownerB.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), count)

	unread, _, err := svc.List(s.ownerA.ID, NotificationFilter{IsRead: ptr(false)}, page)
	s.Require().NoError(err)
	s.Empty(unread)

	s.Require().NoError(svc.Delete(s.ownerA.ID, list[1].ID))
	_, err = svc.Get(s.ownerA.ID, list[1].ID)
	s.ErrorIs(err, apperrors.ErrNotFound)
}
