package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zalando/go-keyring"

	"seatwatch/internal/config"
)

var keyringSet = keyring.Set

func secretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "管理保存在系统密钥环中的凭据",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set [token]",
		Short: "保存 Telegram Bot Token，未给出参数时从标准输入读取",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			if len(args) == 1 {
				token = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read token: %w", err)
				}
				token = line
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return errors.New("token is empty")
			}
			if err := keyringSet(config.KeyringService, config.KeyringTokenUser, token); err != nil {
				return fmt.Errorf("save token to keyring: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Token 已保存到系统密钥环")
			return nil
		},
	})
	return cmd
}
