package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var ErrTelegram = errors.New("telegram: request rejected")

// Messenger 外部消息通道
type Messenger interface {
	Send(ctx context.Context, recipient, text string) error
}

// Telegram 通过 Bot API 的 sendMessage 发送文本
type Telegram struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewTelegram(baseURL, token string) *Telegram {
	return &Telegram{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (t *Telegram) Send(ctx context.Context, recipient, text string) error {
	body, err := sjson.SetBytes([]byte(`{}`), "chat_id", recipient)
	if err != nil {
		return err
	}
	if body, err = sjson.SetBytes(body, "text", text); err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		// 错误信息里的 URL 带有 token，这里只保留底层原因
		var uerr *neturl.Error
		if errors.As(err, &uerr) {
			return fmt.Errorf("telegram: send: %w", uerr.Err)
		}
		return errors.New("telegram: send failed")
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	reply := gjson.ParseBytes(data)
	if resp.StatusCode >= 400 || !reply.Get("ok").Bool() {
		desc := reply.Get("description").String()
		if desc == "" {
			desc = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("%w: http %d: %s", ErrTelegram, resp.StatusCode, desc)
	}
	return nil
}
