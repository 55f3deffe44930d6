package clock

import (
	"context"
	"time"
)

// SleepFunc 可被测试替换的等待函数
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep 等待 d，ctx 结束时提前返回 ctx.Err()
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
