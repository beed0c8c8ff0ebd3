// Package watcher 定义目录监视契约。
// 底层文件系统监视原语由采集方实现（FSEvents 等）；核心只消费 (类别, 路径, 事件类型) 回调。
package watcher

import "baize/internal/models"

// EventType 原始文件系统事件类型。
type EventType string

const (
	EventCreated  EventType = "created"
	EventModified EventType = "modified"
	EventDeleted  EventType = "deleted"
	EventRenamed  EventType = "renamed"
)

// Event 一条原始变更事件。
type Event struct {
	Category models.Category
	Path     string
	Type     EventType
}

// Handler 事件回调；由 watcher 的线程异步调用。
type Handler func(Event)

// Watcher 目录监视接口。
type Watcher interface {
	// Watch 为一个类别挂监视；事件通过 handler 异步投递。
	Watch(category models.Category, paths []string, handler Handler) error
	// StopAll 摘除全部监视。
	StopAll()
}
