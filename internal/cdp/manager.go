package cdp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"seatwatch/internal/browser"
	"seatwatch/internal/logger"

	"github.com/mafredri/cdp"
	"github.com/mafredri/cdp/devtool"
	"github.com/mafredri/cdp/protocol/page"
	"github.com/mafredri/cdp/protocol/runtime"
	"github.com/mafredri/cdp/rpcc"
)

var (
	ErrNotAttached = errors.New("cdp: not attached")
	ErrNoTarget    = errors.New("cdp: no page target")
	ErrNavigation  = errors.New("cdp: navigation failed")
)

const (
	defaultNavTimeout = 30 * time.Second
	defaultPollEvery  = 250 * time.Millisecond
)

// Manager 通过 DevTools 协议驱动一个已打开的 Chrome 页面
type Manager struct {
	devtoolsURL string
	conn        *rpcc.Conn
	client      *cdp.Client
	target      *devtool.Target
	navTimeout  time.Duration
	pollEvery   time.Duration
	log         logger.Logger
}

var _ browser.Page = (*Manager)(nil)

// New 创建管理器，devtoolsURL 形如 http://127.0.0.1:9222
func New(devtoolsURL string, l logger.Logger) *Manager {
	if l == nil {
		l = logger.NewNop()
	}
	return &Manager{
		devtoolsURL: devtoolsURL,
		navTimeout:  defaultNavTimeout,
		pollEvery:   defaultPollEvery,
		log:         l,
	}
}

// AttachTarget 连接指定目标，target 为空时选择第一个页面目标，没有页面则新建
func (m *Manager) AttachTarget(ctx context.Context, target string) error {
	dt := devtool.New(m.devtoolsURL)
	targets, err := dt.List(ctx)
	if err != nil {
		return fmt.Errorf("list targets: %w", err)
	}
	var sel *devtool.Target
	for i := range targets {
		if targets[i].Type != devtool.Page {
			continue
		}
		if target == "" || targets[i].ID == target {
			sel = targets[i]
			break
		}
	}
	if sel == nil && target != "" {
		return fmt.Errorf("%w: %s", ErrNoTarget, target)
	}
	if sel == nil {
		if sel, err = dt.Create(ctx); err != nil {
			return fmt.Errorf("create target: %w", err)
		}
	}

	conn, err := rpcc.DialContext(ctx, sel.WebSocketDebuggerURL)
	if err != nil {
		return fmt.Errorf("dial %s: %w", sel.WebSocketDebuggerURL, err)
	}
	m.conn = conn
	m.client = cdp.NewClient(conn)
	m.target = sel
	m.log.Info("已连接浏览器页面", "target", sel.ID, "url", sel.URL)
	return nil
}

// Detach 断开连接
func (m *Manager) Detach() error {
	if m.conn == nil {
		return nil
	}
	err := m.conn.Close()
	m.conn = nil
	m.client = nil
	return err
}

// Navigate 跳转并等待 document.readyState 变为 complete
func (m *Manager) Navigate(ctx context.Context, url string) error {
	if m.client == nil {
		return ErrNotAttached
	}
	reply, err := m.client.Page.Navigate(ctx, page.NewNavigateArgs(url))
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if reply.ErrorText != nil && *reply.ErrorText != "" {
		return fmt.Errorf("%w: %s: %s", ErrNavigation, url, *reply.ErrorText)
	}
	return m.waitReady(ctx)
}

func (m *Manager) waitReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.navTimeout)
	defer cancel()
	t := time.NewTicker(m.pollEvery)
	defer t.Stop()
	for {
		// 跳转过程中执行上下文会被销毁，求值失败时继续等待
		if state, err := m.evalString(ctx, "document.readyState"); err == nil && state == "complete" {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: page not ready: %w", ErrNavigation, ctx.Err())
		case <-t.C:
		}
	}
}

// CurrentURL 返回页面当前地址
func (m *Manager) CurrentURL(ctx context.Context) (string, error) {
	if m.client == nil {
		return "", ErrNotAttached
	}
	return m.evalString(ctx, "location.href")
}

func (m *Manager) evalString(ctx context.Context, expr string) (string, error) {
	reply, err := m.client.Runtime.Evaluate(ctx, runtime.NewEvaluateArgs(expr).SetReturnByValue(true))
	if err != nil {
		return "", err
	}
	if reply.ExceptionDetails != nil {
		return "", fmt.Errorf("evaluate %q: %s", expr, reply.ExceptionDetails.Text)
	}
	var s string
	if err := json.Unmarshal(reply.Result.Value, &s); err != nil {
		return "", fmt.Errorf("evaluate %q: %w", expr, err)
	}
	return s, nil
}
