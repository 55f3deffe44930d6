package cdp

import (
	"context"
	"fmt"
	"strings"
	"time"

	adapter "seatwatch/internal/adapter/cdp"
	"seatwatch/internal/browser"
	"seatwatch/pkg/model"

	"github.com/mafredri/cdp/protocol/dom"
)

type element struct {
	m      *Manager
	nodeID dom.NodeID
}

// Attribute 读取节点属性，GetAttributes 返回扁平的 name/value 列表
func (e *element) Attribute(ctx context.Context, name string) (string, bool) {
	reply, err := e.m.client.DOM.GetAttributes(ctx, dom.NewGetAttributesArgs(e.nodeID))
	if err != nil {
		e.m.log.Debug("读取元素属性失败", "attr", name, "error", err)
		return "", false
	}
	for i := 0; i+1 < len(reply.Attributes); i += 2 {
		if reply.Attributes[i] == name {
			return reply.Attributes[i+1], true
		}
	}
	return "", false
}

// FindElement 立即查找 id 对应的元素
func (m *Manager) FindElement(ctx context.Context, id string) (browser.Element, bool) {
	if m.client == nil {
		return nil, false
	}
	doc, err := m.client.DOM.GetDocument(ctx, nil)
	if err != nil {
		m.log.Debug("获取文档失败", "error", err)
		return nil, false
	}
	q, err := m.client.DOM.QuerySelector(ctx, dom.NewQuerySelectorArgs(doc.Root.NodeID, idSelector(id)))
	if err != nil || q.NodeID == 0 {
		return nil, false
	}
	return &element{m: m, nodeID: q.NodeID}, true
}

// WaitElement 在 timeout 内轮询查找元素
func (m *Manager) WaitElement(ctx context.Context, id string, timeout time.Duration) (browser.Element, bool) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	t := time.NewTicker(m.pollEvery)
	defer t.Stop()
	for {
		if el, ok := m.FindElement(ctx, id); ok {
			return el, true
		}
		select {
		case <-ctx.Done():
			return nil, false
		case <-t.C:
		}
	}
}

// Cookies 读取当前页面上下文中的全部 Cookie
func (m *Manager) Cookies(ctx context.Context) ([]model.CookieRecord, error) {
	if m.client == nil {
		return nil, ErrNotAttached
	}
	reply, err := m.client.Network.GetCookies(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("get cookies: %w", err)
	}
	return adapter.ToCookieRecords(reply.Cookies), nil
}

// SetCookie 向浏览器上下文注入一条 Cookie
func (m *Manager) SetCookie(ctx context.Context, c model.CookieRecord) error {
	if m.client == nil {
		return ErrNotAttached
	}
	if _, err := m.client.Network.SetCookie(ctx, adapter.ToSetCookieArgs(c)); err != nil {
		return fmt.Errorf("set cookie %s: %w", c.Name, err)
	}
	return nil
}

func idSelector(id string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `[id="` + r.Replace(id) + `"]`
}
