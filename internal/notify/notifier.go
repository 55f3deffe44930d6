package notify

import (
	"context"
	"fmt"
	"io"
	"strings"

	"seatwatch/internal/logger"
	"seatwatch/pkg/model"

	"github.com/fatih/color"
)

// Cue 本机提醒，作为远程通知的冗余
type Cue interface {
	Alert(ev model.AlertEvent)
}

// TerminalCue 响铃并打印醒目横幅
type TerminalCue struct {
	out io.Writer
}

func NewTerminalCue(out io.Writer) *TerminalCue { return &TerminalCue{out: out} }

func (c *TerminalCue) Alert(ev model.AlertEvent) {
	banner := color.New(color.FgHiRed, color.Bold)
	fmt.Fprint(c.out, "\a")
	banner.Fprintf(c.out, ">>> 发现可购门票: %s <<<\n", strings.ToUpper(strings.Join(ev.Sectors, ", ")))
}

// Notifier 格式化告警并发送
type Notifier struct {
	messenger Messenger
	recipient string
	cue       Cue
	log       logger.Logger
}

func New(m Messenger, recipient string, cue Cue, l logger.Logger) *Notifier {
	if l == nil {
		l = logger.NewNop()
	}
	return &Notifier{messenger: m, recipient: recipient, cue: cue, log: l}
}

// Notify 发送一次告警；发送失败直接返回，不做重试
func (n *Notifier) Notify(ctx context.Context, ev model.AlertEvent) error {
	n.log.Info("发现可购门票，发送通知", "alert", ev.ID, "sectors", ev.Sectors)
	if err := n.messenger.Send(ctx, n.recipient, FormatMessage(ev)); err != nil {
		return fmt.Errorf("send alert %s: %w", ev.ID, err)
	}
	if n.cue != nil {
		n.cue.Alert(ev)
	}
	return nil
}

// FormatMessage 生成告警正文，逐个列出可购买区域并附上链接
func FormatMessage(ev model.AlertEvent) string {
	var b strings.Builder
	b.WriteString("🚨 发现可购门票！\n")
	for _, s := range ev.Sectors {
		fmt.Fprintf(&b, "✅ %s 区可购买\n", strings.ToUpper(s))
	}
	fmt.Fprintf(&b, "\n立即前往: %s", ev.URL)
	return b.String()
}
