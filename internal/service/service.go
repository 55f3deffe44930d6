package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"seatwatch/internal/browser"
	"seatwatch/internal/cdp"
	"seatwatch/internal/clock"
	"seatwatch/internal/config"
	"seatwatch/internal/logger"
	"seatwatch/internal/monitor"
	"seatwatch/internal/notify"
	"seatwatch/internal/probe"
	"seatwatch/internal/rules"
	"seatwatch/internal/session"
	"seatwatch/internal/storage"
	"seatwatch/pkg/model"
)

// ErrNoSession 启动时无法建立登录会话
var ErrNoSession = errors.New("service: no usable session")

// Browser 可附加的浏览器页面
type Browser interface {
	browser.Page
	AttachTarget(ctx context.Context, target string) error
	Detach() error
}

// Option 服务可选项
type Option func(*Service)

// WithBrowser 替换默认的 CDP 浏览器
func WithBrowser(b Browser) Option { return func(s *Service) { s.browser = b } }

// WithMessenger 替换默认的 Telegram 通道
func WithMessenger(m notify.Messenger) Option { return func(s *Service) { s.messenger = m } }

// WithStore 替换默认的会话文件存储
func WithStore(st *storage.SessionStore) Option { return func(s *Service) { s.store = st } }

// WithIO 设置人工确认的输入与提示输出
func WithIO(in io.Reader, out io.Writer) Option {
	return func(s *Service) { s.in, s.out = in, out }
}

// WithSleep 替换等待函数
func WithSleep(f clock.SleepFunc) Option { return func(s *Service) { s.sleep = f } }

// WithJitter 替换轮询间隔随机源
func WithJitter(j monitor.Jitter) Option { return func(s *Service) { s.jitter = j } }

// Service 装配会话、探测、通知与监控循环
type Service struct {
	mu  sync.Mutex
	cfg *config.Config
	log logger.Logger

	browser   Browser
	messenger notify.Messenger
	store     *storage.SessionStore
	in        io.Reader
	out       io.Writer
	sleep     clock.SleepFunc
	jitter    monitor.Jitter

	sessions *session.Manager
	loop     *monitor.Loop
	events   chan model.Event
}

// New 按配置装配所有组件，不连接浏览器
func New(cfg *config.Config, l logger.Logger, opts ...Option) *Service {
	if l == nil {
		l = logger.NewNop()
	}
	s := &Service{
		cfg:    cfg,
		log:    l,
		in:     os.Stdin,
		out:    os.Stdout,
		sleep:  clock.Sleep,
		events: make(chan model.Event, 128),
	}
	for _, o := range opts {
		o(s)
	}
	if s.browser == nil {
		s.browser = cdp.New(cfg.Browser.DevToolsURL, l.With("component", "cdp"))
	}
	if s.messenger == nil {
		s.messenger = notify.NewTelegram(cfg.Telegram.APIURL, cfg.Telegram.Token)
	}
	if s.store == nil {
		s.store = storage.NewSessionStore(cfg.Session.File, storage.WithLogger(l.With("component", "store")))
	}

	auth := rules.New(cfg.Target.AuthMarkers...)
	s.sessions = session.NewManager(session.Config{
		Page:      s.browser,
		Store:     s.store,
		Confirmer: session.NewLineConfirmer(s.in),
		Auth:      auth,
		SiteURL:   cfg.Target.SiteURL,
		TargetURL: cfg.Target.URL,
		LoginURL:  cfg.Target.LoginURL,
		Settle:    cfg.Poll.RestoreSettle,
		Sleep:     s.sleep,
		Prompt:    s.out,
		Logger:    l.With("component", "session"),
	})
	s.loop = monitor.New(monitor.Config{
		Page:     s.browser,
		Sessions: s.sessions,
		Probe:    probe.New(cfg.Poll.ProbeTimeout, cfg.Target.DisabledMarker, l.With("component", "probe")),
		Notifier: notify.New(s.messenger, cfg.Telegram.ChatID, notify.NewTerminalCue(s.out), l.With("component", "notify")),
		Auth:     auth,
		URL:      cfg.Target.URL,
		Sectors:  cfg.Target.Sectors,
		Settle:   cfg.Poll.Settle,
		MinDelay: cfg.Poll.MinDelay,
		MaxDelay: cfg.Poll.MaxDelay,
		Recovery: cfg.Poll.Recovery,
		Jitter:   s.jitter,
		Sleep:    s.sleep,
		Events:   s.events,
		Logger:   l.With("component", "monitor"),
	})
	return s
}

// Run 连接浏览器、建立会话后持续监控，直到 ctx 结束
func (s *Service) Run(ctx context.Context) error {
	if err := s.attach(ctx); err != nil {
		return err
	}
	defer s.detach()

	ok, err := s.sessions.Establish(ctx)
	if err != nil {
		return fmt.Errorf("establish session: %w", err)
	}
	if !ok {
		return ErrNoSession
	}
	s.log.Info("会话就绪，开始监控", "sectors", s.cfg.Target.Sectors)
	return s.loop.Run(ctx)
}

// Login 只执行一次人工登录并保存会话
func (s *Service) Login(ctx context.Context) error {
	if err := s.attach(ctx); err != nil {
		return err
	}
	defer s.detach()

	ok, err := s.sessions.ForceLogin(ctx)
	if err != nil {
		return fmt.Errorf("manual login: %w", err)
	}
	if !ok {
		return ErrNoSession
	}
	s.log.Info("登录完成，会话已保存", "file", s.store.Path())
	return nil
}

// SavedSession 读取本地保存的有效 Cookie
func (s *Service) SavedSession() []model.CookieRecord {
	return s.store.Load()
}

// ClearSession 删除本地会话文件
func (s *Service) ClearSession() error {
	return s.store.Clear()
}

// Status 当前监控状态
func (s *Service) Status() model.MonitorState {
	return s.loop.State()
}

// SubscribeEvents 订阅监控事件，消费过慢时事件会被丢弃
func (s *Service) SubscribeEvents() <-chan model.Event {
	return s.events
}

func (s *Service) attach(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.browser.AttachTarget(ctx, ""); err != nil {
		return fmt.Errorf("attach browser %s: %w", s.cfg.Browser.DevToolsURL, err)
	}
	return nil
}

func (s *Service) detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.browser.Detach(); err != nil {
		s.log.Warn("断开浏览器失败", "error", err)
	}
}
