package browser

import (
	"context"
	"time"

	"seatwatch/pkg/model"
)

// Element 页面元素句柄
type Element interface {
	// Attribute 读取属性，属性不存在或读取失败时 ok 为 false
	Attribute(ctx context.Context, name string) (value string, ok bool)
}

// Page 核心逻辑依赖的浏览器能力集合
type Page interface {
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)

	// FindElement 立即按 id 查找元素
	FindElement(ctx context.Context, id string) (Element, bool)
	// WaitElement 在 timeout 内轮询等待元素出现
	WaitElement(ctx context.Context, id string, timeout time.Duration) (Element, bool)

	Cookies(ctx context.Context) ([]model.CookieRecord, error)
	SetCookie(ctx context.Context, c model.CookieRecord) error
}
