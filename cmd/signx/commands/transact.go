package commands

import (
	"time"

	"github.com/spf13/cobra"

	signx "github.com/MrEthical07/signx"
)

func transactCmd() *cobra.Command {
	var (
		req        signx.TransactRequest
		bodies     []string
		newSession bool
	)
	cmd := &cobra.Command{
		Use:   "transact",
		Short: "Have a mobile wallet sign transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Timestamp == "" {
				req.Timestamp = time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
			}
			for _, b := range bodies {
				req.Transactions = append(req.Transactions, signx.Transaction{TxBodyHex: b})
			}
			if err := setup(cmd); err != nil {
				return err
			}
			defer teardown()

			data, err := engine.Transact(cmd.Context(), req, newSession)
			if err != nil {
				return err
			}
			if err := printDeeplink(cmd, data); err != nil {
				return err
			}

			return await(cmd, signx.EventTransactError, func(ev signx.Event) bool {
				return ev.Name == signx.EventSessionEnded
			})
		},
	}
	cmd.Flags().StringVar(&req.Address, "address", "", "signer account address")
	cmd.Flags().StringVar(&req.DID, "did", "", "signer DID")
	cmd.Flags().StringVar(&req.PubKey, "pubkey", "", "signer public key")
	cmd.Flags().StringVar(&req.Timestamp, "timestamp", "", "request timestamp (default now)")
	cmd.Flags().StringArrayVar(&bodies, "tx", nil, "hex encoded transaction body; repeat for a batch")
	cmd.Flags().BoolVar(&newSession, "new-session", false, "always open a new session")
	_ = cmd.MarkFlagRequired("address")
	_ = cmd.MarkFlagRequired("did")
	_ = cmd.MarkFlagRequired("pubkey")
	_ = cmd.MarkFlagRequired("tx")
	return cmd
}
