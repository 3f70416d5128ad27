package handlers

import (
	"net/http"
	"strings"
	"time"

	"rentbook/internal/metrics"
	"rentbook/internal/middleware"
	"rentbook/internal/models"
	"rentbook/internal/services"
	"rentbook/pkg/logger"
	"rentbook/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeTimeout = 10 * time.Second
	pongWait     = 300 * time.Second
	pingPeriod   = 60 * time.Second
)

// NotificationStreamHandler 通过 WebSocket 推送新通知
type NotificationStreamHandler struct {
	upgrader websocket.Upgrader
	auth     *middleware.AuthMiddleware
	hub      *services.NotificationHub
	log      *logrus.Logger
}

// NewNotificationStreamHandler 创建推送处理器，allowedOrigins 与 CORS 配置一致
func NewNotificationStreamHandler(auth *middleware.AuthMiddleware, hub *services.NotificationHub, allowedOrigins []string) *NotificationStreamHandler {
	return &NotificationStreamHandler{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// 同源请求
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if allowed == "*" || matchOrigin(origin, allowed) {
						return true
					}
				}
				logger.GetLogger().Warnf("WebSocket connection rejected, origin not allowed: %s", origin)
				return false
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024 * 4,
		},
		auth: auth,
		hub:  hub,
		log:  logger.GetLogger(),
	}
}

// Stream 处理 /notifications/stream，令牌通过 ?token= 传递
func (h *NotificationStreamHandler) Stream(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Unauthorized(c, "missing token")
		return
	}
	user, _, _, err := h.auth.Authenticate(token)
	if err != nil {
		response.Unauthorized(c, "token is invalid or expired")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Error("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	events, cancel := h.hub.Subscribe(user.ID)
	defer cancel()

	metrics.StreamClients.Inc()
	defer metrics.StreamClients.Dec()
	h.log.WithField("user_id", user.ID).Info("Notification stream connected")

	done := make(chan struct{})
	go h.readPump(conn, done)

	h.writePump(conn, events, done)
	h.log.WithField("user_id", user.ID).Info("Notification stream closed")
}

// writePump 转发通知并定期发送 ping，客户端断开或 hub 关闭时返回
func (h *NotificationStreamHandler) writePump(conn *websocket.Conn, events <-chan *models.Notification, done <-chan struct{}) {
	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	for {
		select {
		case <-done:
			return
		case n, ok := <-events:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := conn.WriteJSON(n); err != nil {
				h.log.WithError(err).Debug("WebSocket write failed")
				return
			}
		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 处理客户端消息（主要是 pong 与关闭）
func (h *NotificationStreamHandler) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.log.WithError(err).Warn("WebSocket unexpected close")
			}
			return
		}
	}
}

// matchOrigin 精确匹配或通配符匹配（如 *.example.com）
func matchOrigin(origin, allowed string) bool {
	if origin == allowed {
		return true
	}
	if !strings.HasPrefix(allowed, "*.") {
		return false
	}

	domain := allowed[2:]
	host := origin
	if idx := strings.Index(host, "://"); idx != -1 {
		host = host[idx+3:]
	}
	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}
