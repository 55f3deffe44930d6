package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"seatwatch/internal/logger"
	"seatwatch/pkg/model"

	"github.com/spf13/afero"
)

// SessionStore 把认证 Cookie 集合保存在本地单个 JSON 文件中
type SessionStore struct {
	fs   afero.Fs
	path string
	now  func() time.Time
	log  logger.Logger
}

// Option 配置 SessionStore
type Option func(*SessionStore)

// WithFs 替换底层文件系统
func WithFs(fs afero.Fs) Option { return func(s *SessionStore) { s.fs = fs } }

// WithClock 替换过期判断所用的时钟
func WithClock(now func() time.Time) Option { return func(s *SessionStore) { s.now = now } }

// WithLogger 设置日志
func WithLogger(l logger.Logger) Option { return func(s *SessionStore) { s.log = l } }

// NewSessionStore 创建会话存储，默认使用操作系统文件系统
func NewSessionStore(path string, opts ...Option) *SessionStore {
	s := &SessionStore{
		fs:   afero.NewOsFs(),
		path: path,
		now:  time.Now,
		log:  logger.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Path 返回会话文件路径
func (s *SessionStore) Path() string { return s.path }

// Save 整体替换会话文件：先写同目录临时文件，再原子重命名
func (s *SessionStore) Save(cookies []model.CookieRecord) error {
	if cookies == nil {
		cookies = []model.CookieRecord{}
	}
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}
	tmp, err := afero.TempFile(s.fs, dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = s.fs.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close session: %w", err)
	}
	if err := s.fs.Chmod(tmpName, 0o600); err != nil {
		s.log.Debug("设置会话文件权限失败", "error", err)
	}
	if err := s.fs.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace session: %w", err)
	}
	s.log.Info("会话已保存", "path", s.path, "cookies", len(cookies))
	return nil
}

// Load 读取会话并过滤已过期 Cookie。文件不存在、为空或损坏时返回 nil，从不报错
func (s *SessionStore) Load() []model.CookieRecord {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("读取会话文件失败，视为无会话", "path", s.path, "error", err)
		}
		return nil
	}
	var all []model.CookieRecord
	if err := json.Unmarshal(data, &all); err != nil {
		s.log.Warn("会话文件损坏，视为无会话", "path", s.path, "error", err)
		return nil
	}

	now := s.now()
	out := make([]model.CookieRecord, 0, len(all))
	for _, c := range all {
		if c.Name == "" || c.Expired(now) {
			continue
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil
	}
	s.log.Debug("会话已加载", "path", s.path, "total", len(all), "valid", len(out))
	return out
}

// Clear 删除会话文件，文件不存在不算错误
func (s *SessionStore) Clear() error {
	if err := s.fs.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}
