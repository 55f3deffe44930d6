package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func sessionCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "查看或清除已保存的会话",
	}
	cmd.AddCommand(sessionShowCmd(opts))
	cmd.AddCommand(sessionClearCmd(opts))
	return cmd
}

func sessionShowCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "列出已保存且未过期的 Cookie（不显示值）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			cookies := newService(cfg, log).SavedSession()
			if len(cookies) == 0 {
				fmt.Fprintf(out, "没有可用的会话 (%s)\n", cfg.Session.File)
				return nil
			}

			color.New(color.Bold).Fprintf(out, "会话文件: %s (%d 个 Cookie)\n", cfg.Session.File, len(cookies))
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tDOMAIN\tPATH\tEXPIRES\tSECURE")
			for _, c := range cookies {
				exp := "session"
				if c.Expiry != nil {
					exp = c.Expiry.Local().Format("2006-01-02 15:04")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", c.Name, c.Domain, c.Path, exp, c.Secure)
			}
			return w.Flush()
		},
	}
}

func sessionClearCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "删除已保存的会话，下次启动需要重新登录",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			if err := newService(cfg, log).ClearSession(); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ 已清除 %s\n", cfg.Session.File)
			return nil
		},
	}
}
