// 飞书长连接：使用官方 SDK 建立 WebSocket，接收卡片按钮点击，
// 回调 onAcknowledge 把对应历史记录标记为已确认。
package notify

import (
	"context"
	"log"
	"time"

	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher/callback"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"

	"baize/internal/config"
)

// RunLongConnection 在后台建立飞书长连接，接收卡片交互事件
// （action.value 含 record_id + action=acknowledge）。
// 需在飞书开放平台选择「使用长连接接收事件」。ctx 取消时退出。
func RunLongConnection(ctx context.Context, cfg config.FeishuConfig, onAcknowledge func(recordID string) error) {
	if !cfg.Enabled || !cfg.UseLongConnection || cfg.AppID == "" || cfg.AppSecret == "" {
		return
	}
	go runWSLoop(ctx, cfg, onAcknowledge)
}

func runWSLoop(ctx context.Context, cfg config.FeishuConfig, onAcknowledge func(recordID string) error) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		eventHandler := dispatcher.NewEventDispatcher("", "").
			OnP2CardActionTrigger(func(ctx context.Context, event *callback.CardActionTriggerEvent) (*callback.CardActionTriggerResponse, error) {
				if event == nil || event.Event == nil || event.Event.Action == nil {
					return &callback.CardActionTriggerResponse{}, nil
				}
				return handleCardAction(event.Event.Action.Value, onAcknowledge), nil
			})
		client := larkws.NewClient(cfg.AppID, cfg.AppSecret, larkws.WithEventHandler(eventHandler))
		log.Printf("[baize] feishu long connection established, waiting for card events")
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := client.Start(ctx); err != nil {
				log.Printf("[baize] feishu long connection: %v", err)
			}
		}()
		select {
		case <-ctx.Done():
			return
		case <-done:
			// 连接断开，重连
		}
		time.Sleep(5 * time.Second)
	}
}

// handleCardAction 处理卡片点击（event_type=card.action.trigger），不走 HTTP 回调。
func handleCardAction(value map[string]interface{}, onAcknowledge func(recordID string) error) *callback.CardActionTriggerResponse {
	if value == nil {
		return &callback.CardActionTriggerResponse{}
	}
	recordID, _ := value["record_id"].(string)
	action, _ := value["action"].(string)
	if recordID == "" || action != "acknowledge" {
		return &callback.CardActionTriggerResponse{}
	}
	if err := onAcknowledge(recordID); err != nil {
		log.Printf("[baize] feishu acknowledge %s: %v", recordID, err)
		return &callback.CardActionTriggerResponse{}
	}
	log.Printf("[baize] feishu card acknowledged: record=%s", recordID)
	return &callback.CardActionTriggerResponse{}
}
