package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"cvBuilder/internal/api/middleware"
	"cvBuilder/internal/auth"
	"cvBuilder/internal/tasks"
)

const (
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 5 * time.Second
	// 未鉴权的连接必须在该时间内发送 auth 消息。
	wsAuthTimeout = 10 * time.Second
)

// NotifySubscriber 订阅用户通知频道，返回消息流与取消订阅函数。
type NotifySubscriber interface {
	SubscribeNotify(ctx context.Context, channel string) (<-chan string, func() error, error)
}

type redisSubscriber struct {
	client *redis.Client
}

// NewRedisSubscriber 基于 Redis Pub/Sub 实现 NotifySubscriber。
func NewRedisSubscriber(client *redis.Client) NotifySubscriber {
	return redisSubscriber{client: client}
}

func (s redisSubscriber) SubscribeNotify(ctx context.Context, channel string) (<-chan string, func() error, error) {
	pubsub := s.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	out := make(chan string)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			select {
			case out <- msg.Payload:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, pubsub.Close, nil
}

// WsHandler 负责 WebSocket 鉴权，并把 user_notify:<id> 频道上的导出通知转发给浏览器。
type WsHandler struct {
	notify   NotifySubscriber
	verifier middleware.TokenValidator
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewWsHandler 构造 WebSocket 处理器。allowedOrigins 为空时只接受同源连接。
func NewWsHandler(notify NotifySubscriber, verifier middleware.TokenValidator, logger *slog.Logger, allowedOrigins []string) *WsHandler {
	return &WsHandler{
		notify:   notify,
		verifier: verifier,
		logger:   logger,
		upgrader: websocket.Upgrader{CheckOrigin: originChecker(allowedOrigins)},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if len(allowed) == 0 {
			u, err := url.Parse(origin)
			return err == nil && strings.EqualFold(u.Host, r.Host)
		}
		for _, o := range allowed {
			if origin == o {
				return true
			}
		}
		return false
	}
}

// wsAuthMessage 是连接建立后客户端必须发送的第一条消息，cv_id 可选，用于只接收某份 CV 的通知。
type wsAuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
	CVID  uint   `json:"cv_id"`
}

type wsClient struct {
	userID uint
	cvID   uint
}

// wants 判断一条通知是否属于客户端关注的 CV。
func (cl wsClient) wants(payload string) bool {
	if cl.cvID == 0 {
		return true
	}
	var head struct {
		CVID uint `json:"cv_id"`
	}
	if err := json.Unmarshal([]byte(payload), &head); err != nil {
		return false
	}
	return head.CVID == cl.cvID
}

// HandleConnection 负责升级连接、鉴权，并启动读写循环。
func (h *WsHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	log := h.logger.With(slog.String("client_ip", c.ClientIP()))

	client, err := h.authenticate(conn)
	if err != nil {
		log.Warn("websocket authentication failed", slog.Any("error", err))
		return
	}
	log = log.With(slog.Uint64("user_id", uint64(client.userID)))
	log.Info("websocket authenticated", slog.Uint64("cv_id", uint64(client.cvID)))

	channel := tasks.NotifyChannel(client.userID)
	messages, unsubscribe, err := h.notify.SubscribeNotify(c.Request.Context(), channel)
	if err != nil {
		log.Error("subscribe notify channel failed", slog.Any("error", err))
		writeClose(conn, websocket.CloseInternalServerErr, "subscribe failed")
		return
	}
	defer func() { _ = unsubscribe() }()

	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error { return drainReads(conn) })
	g.Go(func() error { return forward(ctx, conn, client, messages) })
	go func() {
		// ReadMessage 不感知 ctx，只能靠关闭连接解除阻塞。
		<-ctx.Done()
		_ = conn.Close()
	}()

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Info("websocket connection closed", slog.Any("error", err))
		return
	}
	log.Info("websocket connection closed")
}

// authenticate 读取首条消息并校验 access token。
func (h *WsHandler) authenticate(conn *websocket.Conn) (wsClient, error) {
	_ = conn.SetReadDeadline(time.Now().Add(wsAuthTimeout))
	_, message, err := conn.ReadMessage()
	if err != nil {
		return wsClient{}, fmt.Errorf("read auth message: %w", err)
	}

	var msg wsAuthMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		writeClose(conn, websocket.ClosePolicyViolation, "invalid auth payload")
		return wsClient{}, fmt.Errorf("decode auth payload: %w", err)
	}
	if msg.Type != "auth" || msg.Token == "" {
		writeClose(conn, websocket.ClosePolicyViolation, "auth required")
		return wsClient{}, errors.New("invalid auth message")
	}

	claims, err := h.verifier.ValidateToken(msg.Token)
	if err != nil {
		writeClose(conn, websocket.ClosePolicyViolation, "unauthorized")
		return wsClient{}, fmt.Errorf("validate token: %w", err)
	}
	if claims.TokenType != auth.TokenTypeAccess || claims.UserID == 0 {
		writeClose(conn, websocket.ClosePolicyViolation, "access token required")
		return wsClient{}, fmt.Errorf("invalid token type: %s", claims.TokenType)
	}

	_ = conn.SetReadDeadline(time.Time{})
	return wsClient{userID: claims.UserID, cvID: msg.CVID}, nil
}

// drainReads 在鉴权后继续读取，只为及时发现客户端断开。
func drainReads(conn *websocket.Conn) error {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return fmt.Errorf("read message: %w", err)
		}
	}
}

func forward(ctx context.Context, conn *websocket.Conn, client wsClient, messages <-chan string) error {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-messages:
			if !ok {
				return errors.New("notify channel closed")
			}
			if !client.wants(payload) {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
				return fmt.Errorf("write message: %w", err)
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(wsWriteTimeout)); err != nil {
				return fmt.Errorf("write ping: %w", err)
			}
		}
	}
}

func writeClose(conn *websocket.Conn, code int, text string) {
	deadline := time.Now().Add(wsWriteTimeout)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
}
