package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"seatwatch/internal/browser"
	"seatwatch/internal/clock"
	"seatwatch/internal/logger"
	"seatwatch/pkg/model"
)

// State 会话状态
type State string

const (
	StateNoSession        State = "no_session"
	StateRestoring        State = "restoring"
	StateValid            State = "valid"
	StateSessionLost      State = "session_lost"
	StateNeedsManualLogin State = "needs_manual_login"
	StateCapturing        State = "manual_capture"
)

// ErrEmptyCapture 人工登录后浏览器中没有任何 Cookie
var ErrEmptyCapture = errors.New("session: no cookies captured after manual login")

// Store 会话持久化
type Store interface {
	Save(cookies []model.CookieRecord) error
	Load() []model.CookieRecord
}

// AuthDetector 判断 URL 是否为认证跳转
type AuthDetector interface {
	AuthRedirect(url string) bool
}

const loginInstructions = `--- 需要人工操作 ---
1. 在已打开的浏览器中手动登录。
2. 完成验证码。
3. 进入登录后的首页。
4. 回到这里按 [Enter]。
`

// Config 会话管理器依赖
type Config struct {
	Page      browser.Page
	Store     Store
	Confirmer Confirmer
	Auth      AuthDetector

	SiteURL   string
	TargetURL string
	LoginURL  string
	Settle    time.Duration

	Sleep  clock.SleepFunc
	Prompt io.Writer
	Logger logger.Logger
}

// Manager 维护唯一的浏览器登录会话
type Manager struct {
	mu    sync.Mutex
	state State
	cfg   Config
	log   logger.Logger
}

// NewManager 创建会话管理器
func NewManager(cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	if cfg.Sleep == nil {
		cfg.Sleep = clock.Sleep
	}
	if cfg.Prompt == nil {
		cfg.Prompt = io.Discard
	}
	return &Manager{state: StateNoSession, cfg: cfg, log: cfg.Logger}
}

// State 返回当前状态
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	prev := m.state
	m.state = s
	m.mu.Unlock()
	if prev != s {
		m.log.Debug("会话状态变更", "from", string(prev), "to", string(s))
	}
}

// Invalidate 标记会话在运行中失效，下次 Establish 直接进入人工登录
func (m *Manager) Invalidate() {
	m.setState(StateSessionLost)
}

// Establish 确保存在可用会话，返回 true 表示可以开始监控。
// 首次调用尝试恢复本地会话；已有效时只做一次校验；运行中失效后必定走人工登录。
func (m *Manager) Establish(ctx context.Context) (bool, error) {
	switch m.State() {
	case StateValid:
		if m.revalidate(ctx) {
			return true, nil
		}
		m.log.Warn("会话校验失败，需要重新登录")
		m.setState(StateSessionLost)
	case StateNoSession, StateRestoring:
		if m.restore(ctx) {
			return true, nil
		}
	}
	return m.manualLogin(ctx)
}

// ForceLogin 忽略已保存会话，直接进入人工登录
func (m *Manager) ForceLogin(ctx context.Context) (bool, error) {
	m.setState(StateSessionLost)
	return m.manualLogin(ctx)
}

func (m *Manager) revalidate(ctx context.Context) bool {
	if err := m.cfg.Page.Navigate(ctx, m.cfg.TargetURL); err != nil {
		m.log.Warn("会话校验跳转失败", "error", err)
		return false
	}
	return m.landedOutsideAuth(ctx)
}

func (m *Manager) restore(ctx context.Context) bool {
	cookies := m.cfg.Store.Load()
	if len(cookies) == 0 {
		m.log.Info("没有可用的已保存会话")
		m.setState(StateNeedsManualLogin)
		return false
	}

	m.setState(StateRestoring)
	m.log.Info("正在加载已保存会话", "cookies", len(cookies))
	if err := m.cfg.Page.Navigate(ctx, m.cfg.SiteURL); err != nil {
		m.log.Warn("恢复会话失败", "step", "site", "error", err)
		m.setState(StateNeedsManualLogin)
		return false
	}
	for _, c := range cookies {
		if err := m.cfg.Page.SetCookie(ctx, c); err != nil {
			m.log.Warn("注入 Cookie 失败", "name", c.Name, "domain", c.Domain, "error", err)
		}
	}
	if err := m.cfg.Page.Navigate(ctx, m.cfg.TargetURL); err != nil {
		m.log.Warn("恢复会话失败", "step", "target", "error", err)
		m.setState(StateNeedsManualLogin)
		return false
	}
	if !m.landedOutsideAuth(ctx) {
		m.log.Info("已保存会话已失效")
		m.setState(StateNeedsManualLogin)
		return false
	}
	m.log.Info("会话恢复成功")
	m.setState(StateValid)
	return true
}

func (m *Manager) landedOutsideAuth(ctx context.Context) bool {
	if err := m.cfg.Sleep(ctx, m.cfg.Settle); err != nil {
		return false
	}
	url, err := m.cfg.Page.CurrentURL(ctx)
	if err != nil {
		m.log.Warn("读取当前地址失败", "error", err)
		return false
	}
	return !m.cfg.Auth.AuthRedirect(url)
}

func (m *Manager) manualLogin(ctx context.Context) (bool, error) {
	m.setState(StateNeedsManualLogin)
	if err := m.cfg.Page.Navigate(ctx, m.cfg.LoginURL); err != nil {
		return false, fmt.Errorf("open login page: %w", err)
	}
	fmt.Fprint(m.cfg.Prompt, loginInstructions)

	m.setState(StateCapturing)
	m.log.Info("等待操作员完成人工登录")
	if err := m.cfg.Confirmer.Confirm(ctx); err != nil {
		m.setState(StateNeedsManualLogin)
		return false, fmt.Errorf("wait for login confirmation: %w", err)
	}

	m.log.Info("正在保存新会话")
	cookies, err := m.cfg.Page.Cookies(ctx)
	if err != nil {
		m.setState(StateNeedsManualLogin)
		return false, fmt.Errorf("capture cookies: %w", err)
	}
	if len(cookies) == 0 {
		m.setState(StateNeedsManualLogin)
		return false, ErrEmptyCapture
	}
	if err := m.cfg.Store.Save(cookies); err != nil {
		m.setState(StateNeedsManualLogin)
		return false, err
	}
	m.setState(StateValid)
	m.log.Info("会话已保存", "cookies", len(cookies))
	return true, nil
}
