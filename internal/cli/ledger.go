package cli

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"wagerescrow/internal/address"
	"wagerescrow/internal/amount"
)

func ledgerCmd(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Player token balances",
		Args:  cobra.MinimumNArgs(1),
	}

	balance := &cobra.Command{
		Use:   "balance [address]",
		Short: "Show a balance and its entries (defaults to the --key address)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := o.addressArg(args)
			if err != nil {
				return err
			}
			return o.public(http.MethodGet, "/api/v1/ledger/"+addr.String(), nil)
		},
	}

	var to, tokens, ref string
	fund := &cobra.Command{
		Use:   "fund",
		Short: "Credit an address (operator token required)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if to == "" {
				return errors.New("--address is required")
			}
			addr, err := address.Parse(to)
			if err != nil {
				return err
			}
			lamports, err := amount.ParseToken(tokens)
			if err != nil {
				return err
			}
			body := map[string]any{"address": addr.String(), "amount": lamports}
			if ref != "" {
				body["ref"] = ref
			}
			return o.authed(http.MethodPost, "/api/v1/ledger/fund", body)
		},
	}
	fund.Flags().StringVar(&to, "address", "", "address to credit")
	fund.Flags().StringVar(&tokens, "amount", "", "amount in tokens")
	fund.Flags().StringVar(&ref, "ref", "", "external reference, e.g. a deposit tx")

	cmd.AddCommand(balance, fund)
	return cmd
}
