package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	signx "github.com/MrEthical07/signx"
)

func dataCmd() *cobra.Command {
	var (
		dataType string
		payload  string
	)
	cmd := &cobra.Command{
		Use:   "data",
		Short: "Pass encrypted data to a mobile wallet and wait for its answer",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readPayload(payload)
			if err != nil {
				return err
			}
			if err := setup(cmd); err != nil {
				return err
			}
			defer teardown()

			data, err := engine.DataPass(cmd.Context(), signx.DataPassOptions{Data: raw, DataType: dataType})
			if err != nil {
				return err
			}
			if err := printDeeplink(cmd, data); err != nil {
				return err
			}

			return await(cmd, signx.EventDataError, func(ev signx.Event) bool {
				if ev.Name == signx.EventDataSuccess {
					var answer json.RawMessage
					if err := ev.Payload.(signx.DataResult).Decrypt(data.Key, &answer); err != nil {
						logger.Warn().Err(err).Msg("response is not encrypted with the exchange key")
						return true
					}
					fmt.Fprintln(cmd.OutOrStdout(), string(answer))
				}
				return ev.Name == signx.EventDataSuccess || ev.Name == signx.EventDataError
			})
		},
	}
	cmd.Flags().StringVar(&dataType, "type", "", "data type understood by the wallet")
	cmd.Flags().StringVar(&payload, "data", "", "JSON payload, or @file")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func readPayload(arg string) (json.RawMessage, error) {
	b := []byte(arg)
	if strings.HasPrefix(arg, "@") {
		var err error
		if b, err = os.ReadFile(arg[1:]); err != nil {
			return nil, err
		}
	}
	if !json.Valid(b) {
		return nil, fmt.Errorf("--data is not valid JSON")
	}
	return json.RawMessage(b), nil
}
