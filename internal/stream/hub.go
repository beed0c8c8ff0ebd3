// Package stream 通过 WebSocket 向本机 UI 推送监控事件：
// 变更事件、监控器状态切换与周期分析裁决。推送是尽力而为的，
// 没有订阅者或推送失败都不影响监控主流程。
package stream

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"baize/internal/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const writeTimeout = 2 * time.Second

// EventType 推送事件种类。
type EventType string

const (
	EventChange  EventType = "change"
	EventState   EventType = "state"
	EventVerdict EventType = "verdict"
)

// Event 推送信封。
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// Hub 持有全部活跃订阅连接并向它们广播事件。
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	server  *http.Server
}

// NewHub 创建空 Hub；不监听，直到 Serve 被调用。
func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]bool)}
}

// Handler 返回 WebSocket 升级处理器，可挂到任意 mux。
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.mu.Lock()
		h.clients[conn] = true
		h.mu.Unlock()
		// 读循环只为感知断开；客户端消息被丢弃
		go func() {
			defer h.drop(conn)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}

// Serve 启动监听；阻塞直到 ctx 取消后优雅关闭。
func (h *Hub) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/events", h.Handler())
	h.server = &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- h.server.ListenAndServe() }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = h.server.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// Broadcast 向所有订阅者推送事件；写失败或超时的连接被剔除。
// 整个写循环持有 h.mu：gorilla/websocket 的连接只允许单个并发写者，
// 并发 Broadcast 必须在此串行化；写截止时间保证持锁时长有界。
func (h *Hub) Broadcast(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[baize] stream marshal: %v", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

// PublishChange 推送单个变更事件。
func (h *Hub) PublishChange(change *models.Change) {
	h.Broadcast(Event{Type: EventChange, Payload: change})
}

// PublishState 推送监控器状态切换。
func (h *Hub) PublishState(state models.MonitorState) {
	payload := map[string]string{"phase": state.Phase.String()}
	if state.Err != "" {
		payload["error"] = state.Err
	}
	h.Broadcast(Event{Type: EventState, Payload: payload})
}

// ClientCount 当前活跃订阅数。
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}
