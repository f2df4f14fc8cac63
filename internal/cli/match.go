package cli

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"wagerescrow/internal/address"
	"wagerescrow/internal/amount"
)

func matchCmd(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Create, join, inspect and refund matches",
		Args:  cobra.MinimumNArgs(1),
	}
	cmd.AddCommand(
		matchCreateCmd(o),
		matchJoinCmd(o),
		matchGetCmd(o),
		matchListCmd(o),
		matchRefundCmd(o),
	)
	return cmd
}

func matchCreateCmd(o *Options) *cobra.Command {
	var (
		game      string
		wager     string
		expiresIn time.Duration
		funding   string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open a match and stake the wager",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(game) == "" {
				return errors.New("--game required")
			}
			lamports, err := amount.ParseToken(wager)
			if err != nil {
				return err
			}
			if expiresIn <= 0 {
				return errors.New("--expires-in must be positive")
			}
			return o.authed(http.MethodPost, "/api/v1/matches", map[string]any{
				"game_id":            game,
				"wager_amount":       lamports,
				"expires_in_seconds": int64(expiresIn / time.Second),
				"funding":            funding,
			})
		},
	}
	cmd.Flags().StringVar(&game, "game", "", "game identifier")
	cmd.Flags().StringVar(&wager, "wager", "", "wager in tokens, e.g. 1.5")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", time.Hour, "time until the match can be refunded")
	cmd.Flags().StringVar(&funding, "funding", "direct", "direct|session")
	return cmd
}

func matchJoinCmd(o *Options) *cobra.Command {
	var funding string
	cmd := &cobra.Command{
		Use:   "join <match-id>",
		Short: "Join a waiting match and stake the matching wager",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := address.Parse(args[0])
			if err != nil {
				return err
			}
			return o.authed(http.MethodPost, "/api/v1/matches/"+id.String()+"/join", map[string]any{"funding": funding})
		},
	}
	cmd.Flags().StringVar(&funding, "funding", "direct", "direct|session")
	return cmd
}

func matchGetCmd(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "get <match-id>",
		Short: "Show a match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := address.Parse(args[0])
			if err != nil {
				return err
			}
			return o.public(http.MethodGet, "/api/v1/matches/"+id.String(), nil)
		},
	}
}

func matchListCmd(o *Options) *cobra.Command {
	var status, creator, player, game string
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List matches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			setIf(q, "status", status)
			setIf(q, "creator", creator)
			setIf(q, "player", player)
			setIf(q, "game_id", game)
			q.Set("limit", strconv.Itoa(limit))
			q.Set("offset", strconv.Itoa(offset))
			return o.public(http.MethodGet, "/api/v1/matches?"+q.Encode(), nil)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "waiting_for_player|in_progress|completed|refunded")
	cmd.Flags().StringVar(&creator, "creator", "", "creator address")
	cmd.Flags().StringVar(&player, "player", "", "creator or joiner address")
	cmd.Flags().StringVar(&game, "game", "", "game identifier")
	cmd.Flags().IntVar(&limit, "limit", 20, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "page offset")
	return cmd
}

func matchRefundCmd(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "refund <match-id>",
		Short: "Refund an expired match (anyone may call)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := address.Parse(args[0])
			if err != nil {
				return err
			}
			return o.public(http.MethodPost, "/api/v1/matches/"+id.String()+"/refund", nil)
		},
	}
}

func setIf(q url.Values, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		q.Set(key, v)
	}
}

// public calls an endpoint without a token and writes the response data.
func (o *Options) public(method, path string, body any) error {
	return o.call("", method, path, body)
}

// authed calls an endpoint with the caller's bearer token.
func (o *Options) authed(method, path string, body any) error {
	tok, err := o.bearer()
	if err != nil {
		return err
	}
	return o.call(tok, method, path, body)
}

func (o *Options) call(token, method, path string, body any) error {
	ctx, cancel := o.ctx()
	defer cancel()
	var data any
	env, err := o.client(token).Call(ctx, method, path, body, &data)
	if err != nil {
		return err
	}
	if len(env.Meta) > 0 && o.Output != "text" {
		return o.write(map[string]any{"data": data, "meta": env.Meta})
	}
	return o.write(data)
}
