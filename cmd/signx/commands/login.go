package commands

import (
	"github.com/spf13/cobra"

	signx "github.com/MrEthical07/signx"
)

func loginCmd() *cobra.Command {
	var matrix bool
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with a mobile wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setup(cmd); err != nil {
				return err
			}
			defer teardown()

			if matrix {
				data, err := engine.MatrixLogin(cmd.Context(), signx.MatrixLoginOptions{})
				if err != nil {
					return err
				}
				if err := printDeeplink(cmd, data); err != nil {
					return err
				}
				return await(cmd, signx.EventMatrixLoginError, func(ev signx.Event) bool {
					return ev.Name == signx.EventMatrixLoginSuccess || ev.Name == signx.EventMatrixLoginError
				})
			}

			data, err := engine.Login(cmd.Context(), signx.LoginOptions{})
			if err != nil {
				return err
			}
			if err := printDeeplink(cmd, data); err != nil {
				return err
			}
			return await(cmd, signx.EventLoginError, func(ev signx.Event) bool {
				return ev.Name == signx.EventLoginSuccess || ev.Name == signx.EventLoginError
			})
		},
	}
	cmd.Flags().BoolVar(&matrix, "matrix", false, "request matrix credentials instead of an account")
	return cmd
}
