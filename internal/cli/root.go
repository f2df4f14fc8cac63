// Package cli implements wagerctl, the command line client for escrowd.
package cli

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"wagerescrow/internal/apiclient"
	"wagerescrow/internal/cli/clicfg"
	"wagerescrow/internal/output"
)

// Options are the global flags shared by every command.
type Options struct {
	APIBase string
	Token   string
	Output  string
	KeyFile string
	Timeout time.Duration

	Out io.Writer
	// Now is overridable so token expiry checks are deterministic in tests.
	Now func() time.Time
}

func (o *Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *Options) ctx() (context.Context, context.CancelFunc) {
	t := o.Timeout
	if t <= 0 {
		t = 15 * time.Second
	}
	return context.WithTimeout(context.Background(), t)
}

func (o *Options) client(token string) *apiclient.Client {
	return &apiclient.Client{BaseURL: strings.TrimRight(o.APIBase, "/"), Token: token}
}

func (o *Options) write(v any) error {
	f, err := output.ParseFormat(o.Output)
	if err != nil {
		return err
	}
	return output.Write(o.Out, f, v)
}

// NewRootCmd builds the wagerctl command tree. Flags left empty fall back to
// WAGERCTL_* environment variables, then ~/.wagerctl/config.json.
func NewRootCmd(out io.Writer) *cobra.Command {
	if out == nil {
		out = os.Stdout
	}
	o := &Options{Out: out}

	root := &cobra.Command{
		Use:           "wagerctl",
		Short:         "Client for the wager escrow engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := clicfg.LoadConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(o.APIBase) == "" {
				o.APIBase = cfg.APIBase
			}
			if strings.TrimSpace(o.KeyFile) == "" {
				o.KeyFile = cfg.KeyFile
			}
			if strings.TrimSpace(o.Token) == "" {
				o.Token = strings.TrimSpace(os.Getenv("WAGERCTL_TOKEN"))
			}
			return nil
		},
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVar(&o.APIBase, "api-base", "", "escrowd base URL (env: WAGERCTL_API_BASE)")
	pf.StringVar(&o.Token, "token", "", "bearer token (env: WAGERCTL_TOKEN)")
	pf.StringVarP(&o.Output, "output", "o", "json", "output format: json|text")
	pf.StringVarP(&o.KeyFile, "key", "k", "", "ed25519 key file (env: WAGERCTL_KEY)")
	pf.DurationVar(&o.Timeout, "timeout", 15*time.Second, "request timeout")

	root.AddCommand(
		keygenCmd(o),
		authCmd(o),
		matchCmd(o),
		sessionCmd(o),
		oracleCmd(o),
		adminCmd(o),
		ledgerCmd(o),
		statsCmd(o),
		platformCmd(o),
		leaderboardCmd(o),
		eventsCmd(o),
		apiCmd(o),
	)
	return root
}

// Execute runs wagerctl with os.Args.
func Execute() error {
	return NewRootCmd(os.Stdout).Execute()
}
