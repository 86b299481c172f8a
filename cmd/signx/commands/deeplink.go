package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	signx "github.com/MrEthical07/signx"
	"github.com/MrEthical07/signx/internal/secure"
)

func deeplinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean-deeplink",
		Short: "Print the deeplink that clears a pending wallet request",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), signx.CleanDeeplink(scheme))
			return nil
		},
	}
}

func hashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash",
		Short: "Print a random 32-byte hex hash",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := secure.NewHash()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
}
