package session

import (
	"bufio"
	"context"
	"errors"
	"io"
	"sync"
)

// Confirmer 阻塞等待操作员确认人工登录已完成
type Confirmer interface {
	Confirm(ctx context.Context) error
}

// LineConfirmer 从输入流读取一行作为确认信号。
// 只有一个后台 goroutine 读取输入，Confirm 被取消后可以再次调用。
type LineConfirmer struct {
	r     *bufio.Reader
	once  sync.Once
	lines chan error
}

func NewLineConfirmer(r io.Reader) *LineConfirmer {
	return &LineConfirmer{r: bufio.NewReader(r), lines: make(chan error)}
}

// Confirm 等待下一行；输入在无换行时结束也视为确认，输入流耗尽后返回 io.EOF
func (c *LineConfirmer) Confirm(ctx context.Context) error {
	c.once.Do(func() { go c.readLines() })
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err, ok := <-c.lines:
		if !ok {
			return io.EOF
		}
		return err
	}
}

func (c *LineConfirmer) readLines() {
	defer close(c.lines)
	for {
		line, err := c.r.ReadString('\n')
		if errors.Is(err, io.EOF) && line != "" {
			c.lines <- nil
			return
		}
		c.lines <- err
		if err != nil {
			return
		}
	}
}
