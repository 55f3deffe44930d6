package probe

import (
	"context"
	"time"

	"seatwatch/internal/browser"
	"seatwatch/internal/logger"
	"seatwatch/internal/rules"
)

// Probe 判断页面上某个区域是否可购买
type Probe struct {
	wait     time.Duration
	disabled string
	log      logger.Logger
}

func New(wait time.Duration, disabledMarker string, l logger.Logger) *Probe {
	if l == nil {
		l = logger.NewNop()
	}
	return &Probe{wait: wait, disabled: disabledMarker, log: l}
}

// Check 在限定时间内查找 id 为 sectorID 的元素，元素存在且 class 中不出现禁用标记（子串匹配）即为可购买。
// 任何查找失败都按不可购买处理，不返回错误。
func (p *Probe) Check(ctx context.Context, page browser.Page, sectorID string) (available bool) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Warn("区域检测异常，按不可购买处理", "sector", sectorID, "panic", r)
			available = false
		}
	}()

	el, ok := page.WaitElement(ctx, sectorID, p.wait)
	if !ok || el == nil {
		p.log.Debug("未找到区域元素", "sector", sectorID)
		return false
	}
	class, ok := el.Attribute(ctx, "class")
	if !ok {
		// 读不到状态标记时宁可漏报
		p.log.Debug("区域元素缺少 class 属性", "sector", sectorID)
		return false
	}
	return !rules.ContainsMarker(class, p.disabled)
}
