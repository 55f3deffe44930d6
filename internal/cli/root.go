package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"seatwatch/internal/config"
	"seatwatch/internal/logger"
	api "seatwatch/pkg/api"
)

type globalOptions struct {
	configPath string
	logLevel   string
}

// newService 构建服务实例，测试中可替换
var newService = api.NewService

// RootCmd 返回根命令，直接执行即开始监控
func RootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "seatwatch",
		Short: "监控比赛页面的看台区域，有票时通过 Telegram 提醒",
		Long: `seatwatch 连接一个已开启远程调试的 Chrome，复用或人工建立登录会话，
按随机间隔轮询比赛页面，发现可购买的区域后立即发送 Telegram 消息。

必需配置: MATCH_URL, TELEGRAM_BOT_TOKEN, TELEGRAM_CHAT_ID（可写在 .env 中）。`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			out := &syncWriter{w: cmd.OutOrStdout()}
			svc := newService(cfg, log, api.WithIO(cmd.InOrStdin(), out))

			evCtx, stopEvents := context.WithCancel(ctx)
			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				watchEvents(evCtx, out, svc.SubscribeEvents())
			}()

			err = svc.Run(ctx)
			stopEvents()
			wg.Wait()
			if errors.Is(err, context.Canceled) {
				log.Info("监控已停止")
				return nil
			}
			return err
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML 配置文件路径")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "日志级别 (debug|info|warn|error)")

	cmd.AddCommand(loginCmd(opts))
	cmd.AddCommand(sessionCmd(opts))
	cmd.AddCommand(secretCmd())
	return cmd
}

func (o *globalOptions) load() (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	log := logger.New(logger.Options{
		Level:  cfg.Log.Level,
		Writer: cfg.Log.Writer,
		File:   cfg.Log.File,
	})
	return cfg, log, nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// Execute 运行根命令，出错时以非零码退出
func Execute() {
	if err := RootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
