package api

import (
	"context"

	"seatwatch/internal/config"
	"seatwatch/internal/logger"
	"seatwatch/internal/service"
	"seatwatch/pkg/model"
)

// Service 服务接口
type Service interface {
	// Run 建立会话并持续监控，直到 ctx 结束
	Run(ctx context.Context) error

	// Login 执行一次人工登录并保存会话
	Login(ctx context.Context) error

	// SavedSession 读取已保存的会话
	SavedSession() []model.CookieRecord

	// ClearSession 删除已保存的会话
	ClearSession() error

	// Status 获取监控状态
	Status() model.MonitorState

	// SubscribeEvents 订阅事件
	SubscribeEvents() <-chan model.Event
}

// Option 服务可选项
type Option = service.Option

// WithIO 设置人工确认读取的输入和提示、提醒写入的输出
var WithIO = service.WithIO

// NewService 创建并返回服务接口实现
func NewService(cfg *config.Config, l logger.Logger, opts ...Option) Service {
	return service.New(cfg, l, opts...)
}
