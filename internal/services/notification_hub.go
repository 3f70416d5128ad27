package services

import (
	"sync"

	"rentbook/internal/models"
	"rentbook/pkg/logger"
)

// Publisher 新通知的推送出口
type Publisher interface {
	Publish(n *models.Notification)
}

const subscriberBuffer = 16

// NotificationHub 进程内按用户分发通知
type NotificationHub struct {
	mu          sync.RWMutex
	subscribers map[uint]map[chan *models.Notification]struct{}
}

// NewNotificationHub 创建分发中心
func NewNotificationHub() *NotificationHub {
	return &NotificationHub{
		subscribers: make(map[uint]map[chan *models.Notification]struct{}),
	}
}

// Subscribe 订阅用户的新通知，返回的 cancel 会关闭通道
func (h *NotificationHub) Subscribe(userID uint) (<-chan *models.Notification, func()) {
	ch := make(chan *models.Notification, subscriberBuffer)

	h.mu.Lock()
	if h.subscribers[userID] == nil {
		h.subscribers[userID] = make(map[chan *models.Notification]struct{})
	}
	h.subscribers[userID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs, ok := h.subscribers[userID]
		if !ok {
			return
		}
		if _, ok := subs[ch]; !ok {
			return
		}
		delete(subs, ch)
		if len(subs) == 0 {
			delete(h.subscribers, userID)
		}
		close(ch)
	}
	return ch, cancel
}

// Publish 非阻塞投递，订阅者缓冲区满时丢弃
func (h *NotificationHub) Publish(n *models.Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[n.UserID] {
		select {
		case ch <- n:
		default:
			logger.GetLogger().WithField("user_id", n.UserID).Warn("Notification subscriber is slow, dropping message")
		}
	}
}

// Subscribers 用户当前订阅数
func (h *NotificationHub) Subscribers(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[userID])
}

// Close 关闭所有订阅
func (h *NotificationHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, chans := range h.subscribers {
		for ch := range chans {
			close(ch)
		}
		delete(h.subscribers, userID)
	}
}
