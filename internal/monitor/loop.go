package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"seatwatch/internal/browser"
	"seatwatch/internal/clock"
	"seatwatch/internal/logger"
	"seatwatch/pkg/model"

	"github.com/google/uuid"
)

var (
	ErrSessionNotReady = errors.New("monitor: session not re-established")
	ErrPanic           = errors.New("monitor: iteration panicked")
)

// Establisher 会话管理
type Establisher interface {
	Establish(ctx context.Context) (bool, error)
	Invalidate()
}

// Prober 区域检测
type Prober interface {
	Check(ctx context.Context, page browser.Page, sectorID string) bool
}

// Alerter 告警发送
type Alerter interface {
	Notify(ctx context.Context, ev model.AlertEvent) error
}

// AuthDetector 认证跳转检测
type AuthDetector interface {
	AuthRedirect(url string) bool
}

// Config 监控循环依赖与参数
type Config struct {
	Page     browser.Page
	Sessions Establisher
	Probe    Prober
	Notifier Alerter
	Auth     AuthDetector

	URL     string
	Sectors []string

	Settle   time.Duration
	MinDelay time.Duration
	MaxDelay time.Duration
	Recovery time.Duration

	Jitter Jitter
	Sleep  clock.SleepFunc
	Now    func() time.Time
	Events chan<- model.Event
	Logger logger.Logger
}

// Loop 长期运行的轮询循环，单线程顺序执行
type Loop struct {
	cfg   Config
	log   logger.Logger
	mu    sync.Mutex
	state model.MonitorState
}

// New 创建监控循环。调用方需保证启动前会话已建立
func New(cfg Config) *Loop {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	if cfg.Sleep == nil {
		cfg.Sleep = clock.Sleep
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Jitter == nil {
		cfg.Jitter = NewRandomJitter()
	}
	return &Loop{
		cfg: cfg,
		log: cfg.Logger,
		state: model.MonitorState{
			SessionValid: true,
			Availability: make(map[string]bool, len(cfg.Sectors)),
		},
	}
}

// State 返回当前状态的副本
func (l *Loop) State() model.MonitorState {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := l.state
	st.Availability = make(map[string]bool, len(l.state.Availability))
	for k, v := range l.state.Availability {
		st.Availability[k] = v
	}
	return st
}

// Run 持续轮询直到 ctx 结束；单轮出错只记录并等待恢复间隔，不会退出
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info("开始监控", "url", l.cfg.URL, "sectors", l.cfg.Sectors)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		delay, err := l.iterate(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.log.Err(err, "轮询出错，稍后重试", "retryIn", l.cfg.Recovery)
			l.sendEvent(model.Event{Type: model.EventError, Error: err.Error(), Delay: l.cfg.Recovery})
			delay = l.cfg.Recovery
		}
		if delay <= 0 {
			continue
		}
		if err := l.cfg.Sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// iterate 执行一轮轮询，返回下一轮前的等待时长；返回 0 表示立即开始下一轮
func (l *Loop) iterate(ctx context.Context) (delay time.Duration, err error) {
	trace := uuid.NewString()
	log := l.log.With("trace", trace[:8])
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	if err := l.cfg.Page.Navigate(ctx, l.cfg.URL); err != nil {
		return 0, err
	}
	if err := l.cfg.Sleep(ctx, l.cfg.Settle); err != nil {
		return 0, err
	}
	cur, err := l.cfg.Page.CurrentURL(ctx)
	if err != nil {
		return 0, err
	}

	if l.cfg.Auth.AuthRedirect(cur) {
		log.Warn("监控中会话过期，重新登录", "url", cur)
		l.setSessionValid(false)
		l.sendEvent(model.Event{Type: model.EventSessionLost, Trace: trace})
		l.cfg.Sessions.Invalidate()
		ok, err := l.cfg.Sessions.Establish(ctx)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, ErrSessionNotReady
		}
		l.setSessionValid(true)
		return 0, nil
	}

	avail := make(map[string]bool, len(l.cfg.Sectors))
	var open []string
	for _, s := range l.cfg.Sectors {
		ok := l.cfg.Probe.Check(ctx, l.cfg.Page, s)
		avail[s] = ok
		if ok {
			open = append(open, s)
		}
	}
	l.mu.Lock()
	l.state.SessionValid = true
	l.state.Availability = avail
	l.mu.Unlock()

	if len(open) > 0 {
		ev := model.NewAlertEvent(l.cfg.URL, open, l.cfg.Now())
		l.sendEvent(model.Event{Type: model.EventAlert, Trace: trace, Sectors: avail})
		if err := l.cfg.Notifier.Notify(ctx, ev); err != nil {
			return 0, err
		}
	} else {
		log.Debug("暂无可购门票", "status", statusLine(l.cfg.Sectors, avail))
	}

	delay = l.cfg.Jitter.Between(l.cfg.MinDelay, l.cfg.MaxDelay)
	l.mu.Lock()
	l.state.NextDelay = delay
	l.mu.Unlock()
	log.Info("等待下次轮询", "delay", delay.Round(time.Second))
	l.sendEvent(model.Event{Type: model.EventPoll, Trace: trace, Sectors: avail, Delay: delay})
	return delay, nil
}

func (l *Loop) setSessionValid(v bool) {
	l.mu.Lock()
	l.state.SessionValid = v
	l.mu.Unlock()
}

// sendEvent 非阻塞发送事件，无人接收时丢弃
func (l *Loop) sendEvent(evt model.Event) {
	if l.cfg.Events == nil {
		return
	}
	evt.Timestamp = l.cfg.Now().UnixMilli()
	select {
	case l.cfg.Events <- evt:
	default:
	}
}

func statusLine(sectors []string, avail map[string]bool) string {
	parts := make([]string, 0, len(sectors))
	for _, s := range sectors {
		st := "OFF"
		if avail[s] {
			st = "ON"
		}
		parts = append(parts, fmt.Sprintf("%s: %s", strings.ToUpper(s), st))
	}
	return strings.Join(parts, " | ")
}
