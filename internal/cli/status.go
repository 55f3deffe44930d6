package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"seatwatch/pkg/model"
)

// syncWriter 串行化事件状态行与终端提醒的写入
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// watchEvents 把监控事件逐条打印为状态行，ctx 结束时先输出已缓冲的事件再返回
func watchEvents(ctx context.Context, w io.Writer, events <-chan model.Event) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintln(w, formatEvent(ev))
		case <-ctx.Done():
			for {
				select {
				case ev, ok := <-events:
					if !ok {
						return
					}
					fmt.Fprintln(w, formatEvent(ev))
				default:
					return
				}
			}
		}
	}
}

func formatEvent(ev model.Event) string {
	ts := time.UnixMilli(ev.Timestamp).Format("15:04:05")
	switch ev.Type {
	case model.EventPoll:
		return fmt.Sprintf("[%s] %s  下次检查 %s", ts, sectorStatus(ev.Sectors), ev.Delay.Round(time.Second))
	case model.EventAlert:
		var open []string
		for _, s := range sortedKeys(ev.Sectors) {
			if ev.Sectors[s] {
				open = append(open, strings.ToUpper(s))
			}
		}
		return color.New(color.FgHiRed, color.Bold).Sprintf("[%s] 发现可购门票: %s", ts, strings.Join(open, ", "))
	case model.EventSessionLost:
		return color.YellowString("[%s] 会话失效，等待重新登录", ts)
	case model.EventError:
		return color.YellowString("[%s] 本轮出错: %s，%s 后重试", ts, ev.Error, ev.Delay.Round(time.Second))
	default:
		return fmt.Sprintf("[%s] %s", ts, ev.Type)
	}
}

func sectorStatus(sectors map[string]bool) string {
	parts := make([]string, 0, len(sectors))
	for _, s := range sortedKeys(sectors) {
		st := "OFF"
		if sectors[s] {
			st = color.GreenString("ON")
		}
		parts = append(parts, fmt.Sprintf("%s: %s", strings.ToUpper(s), st))
	}
	return strings.Join(parts, " | ")
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
