package cli

import (
	"net/http"

	"github.com/spf13/cobra"

	"wagerescrow/internal/address"
	"wagerescrow/internal/amount"
)

func sessionCmd(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage the prepaid session vault",
		Args:  cobra.MinimumNArgs(1),
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Open a session vault",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.authed(http.MethodPost, "/api/v1/sessions", nil)
		},
	}

	move := func(use, short, path string) *cobra.Command {
		var tokens string
		c := &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				lamports, err := amount.ParseToken(tokens)
				if err != nil {
					return err
				}
				return o.authed(http.MethodPost, path, map[string]any{"amount": lamports})
			},
		}
		c.Flags().StringVar(&tokens, "amount", "", "amount in tokens")
		return c
	}

	get := &cobra.Command{
		Use:   "get [owner]",
		Short: "Show a session vault (defaults to the --key address)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := o.addressArg(args)
			if err != nil {
				return err
			}
			return o.public(http.MethodGet, "/api/v1/sessions/"+owner.String(), nil)
		},
	}

	cmd.AddCommand(
		create,
		move("deposit", "Move funds from your balance into the vault", "/api/v1/sessions/deposit"),
		move("withdraw", "Move funds from the vault back to your balance", "/api/v1/sessions/withdraw"),
		get,
	)
	return cmd
}

// addressArg returns the first positional argument as an address, or the
// address of the configured key when none was given.
func (o *Options) addressArg(args []string) (address.Address, error) {
	if len(args) > 0 {
		return address.Parse(args[0])
	}
	_, addr, err := loadKey(o.KeyFile)
	return addr, err
}
