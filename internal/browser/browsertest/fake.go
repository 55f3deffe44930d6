// Package browsertest 提供 browser.Page 的内存实现，供测试使用
package browsertest

import (
	"context"
	"sync"
	"time"

	"seatwatch/internal/browser"
	"seatwatch/pkg/model"
)

// Element 内存元素，Attrs 为属性表
type Element struct {
	Attrs map[string]string
}

func (e *Element) Attribute(_ context.Context, name string) (string, bool) {
	v, ok := e.Attrs[name]
	return v, ok
}

// Page 可编程的假页面
type Page struct {
	mu sync.Mutex

	url      string
	elements map[string]*Element
	jar      []model.CookieRecord

	// Route 决定跳转后的实际地址，为空时停留在请求的地址
	Route func(p *Page, url string) string
	// NavigateErr 非空时 Navigate 直接返回该错误
	NavigateErr func(url string) error

	Navigations []string
	Injected    []model.CookieRecord
	Waits       []time.Duration
}

var _ browser.Page = (*Page)(nil)

func New() *Page {
	return &Page{elements: make(map[string]*Element)}
}

// SetElement 放置一个带 class 的元素
func (p *Page) SetElement(id, class string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.elements[id] = &Element{Attrs: map[string]string{"id": id, "class": class}}
}

// SetBareElement 放置一个没有 class 属性的元素
func (p *Page) SetBareElement(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.elements[id] = &Element{Attrs: map[string]string{"id": id}}
}

// RemoveElement 删除元素
func (p *Page) RemoveElement(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.elements, id)
}

// SetJar 设置浏览器当前持有的 Cookie
func (p *Page) SetJar(cs []model.CookieRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jar = append([]model.CookieRecord(nil), cs...)
}

// HasCookie 浏览器是否持有名为 name 的 Cookie
func (p *Page) HasCookie(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.jar {
		if c.Name == name {
			return true
		}
	}
	return false
}

func (p *Page) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	p.Navigations = append(p.Navigations, url)
	route, navErr := p.Route, p.NavigateErr
	p.mu.Unlock()

	if navErr != nil {
		if err := navErr(url); err != nil {
			return err
		}
	}
	dest := url
	if route != nil {
		dest = route(p, url)
	}
	p.mu.Lock()
	p.url = dest
	p.mu.Unlock()
	return nil
}

func (p *Page) CurrentURL(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, nil
}

func (p *Page) FindElement(_ context.Context, id string) (browser.Element, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, ok := p.elements[id]
	if !ok {
		return nil, false
	}
	return el, true
}

func (p *Page) WaitElement(ctx context.Context, id string, timeout time.Duration) (browser.Element, bool) {
	p.mu.Lock()
	p.Waits = append(p.Waits, timeout)
	p.mu.Unlock()
	return p.FindElement(ctx, id)
}

func (p *Page) Cookies(context.Context) ([]model.CookieRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.CookieRecord(nil), p.jar...), nil
}

func (p *Page) SetCookie(_ context.Context, c model.CookieRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Injected = append(p.Injected, c)
	p.jar = append(p.jar, c)
	return nil
}

// NavigationCount 返回跳转次数
func (p *Page) NavigationCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Navigations)
}
