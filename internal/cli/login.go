package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	api "seatwatch/pkg/api"
)

func loginCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "在浏览器中人工登录并保存会话",
		Long: `打开登录页，等待操作员在浏览器中完成登录与验证码后按 Enter，
然后保存浏览器中的全部 Cookie，供之后的监控复用。`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			if err := newService(cfg, log, api.WithIO(cmd.InOrStdin(), cmd.OutOrStdout())).Login(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "会话已保存到 %s\n", cfg.Session.File)
			return nil
		},
	}
}
