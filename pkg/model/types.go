package model

import (
	"time"

	"github.com/google/uuid"
)

// CookieRecord 持久化的单条认证 Cookie
type CookieRecord struct {
	Name   string     `json:"name"`
	Value  string     `json:"value"`
	Domain string     `json:"domain"`
	Path   string     `json:"path"`
	Expiry *time.Time `json:"expiry"`
	Secure bool       `json:"secure"`
}

// Expired 判断 Cookie 在 now 时刻是否已过期，未设置过期时间视为未过期
func (c CookieRecord) Expired(now time.Time) bool {
	return c.Expiry != nil && !c.Expiry.After(now)
}

// AlertEvent 一次告警载荷，仅在单轮轮询内构造和消费
type AlertEvent struct {
	ID      string    `json:"id"`
	Sectors []string  `json:"sectors"`
	URL     string    `json:"url"`
	At      time.Time `json:"at"`
}

// NewAlertEvent 创建告警事件
func NewAlertEvent(url string, sectors []string, at time.Time) AlertEvent {
	return AlertEvent{
		ID:      uuid.NewString(),
		Sectors: append([]string(nil), sectors...),
		URL:     url,
		At:      at,
	}
}

// MonitorState 监控循环的内存状态，不做持久化
type MonitorState struct {
	SessionValid bool            `json:"sessionValid"`
	Availability map[string]bool `json:"availability"`
	NextDelay    time.Duration   `json:"nextDelay"`
}

// EventType 监控事件类型
type EventType string

const (
	EventPoll        EventType = "poll"
	EventAlert       EventType = "alert"
	EventSessionLost EventType = "session_lost"
	EventError       EventType = "error"
)

// Event 监控循环对外发布的状态事件
type Event struct {
	Type      EventType       `json:"type"`
	Trace     string          `json:"trace"`
	Sectors   map[string]bool `json:"sectors,omitempty"`
	Delay     time.Duration   `json:"delay"`
	Error     string          `json:"error,omitempty"`
	Timestamp int64           `json:"timestamp"`
}
