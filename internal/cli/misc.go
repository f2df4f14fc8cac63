package cli

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"wagerescrow/internal/address"
)

func statsCmd(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Platform totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.public(http.MethodGet, "/api/v1/stats", nil)
		},
	}
}

func platformCmd(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "platform",
		Short: "Platform configuration: fees, treasury, admins, pause flag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.public(http.MethodGet, "/api/v1/platform", nil)
		},
	}
}

func leaderboardCmd(o *Options) *cobra.Command {
	var by string
	var limit int
	cmd := &cobra.Command{
		Use:   "leaderboard [address]",
		Short: "Top players, or one player's standing",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				addr, err := address.Parse(args[0])
				if err != nil {
					return err
				}
				return o.public(http.MethodGet, "/api/v1/leaderboard/"+addr.String(), nil)
			}
			q := url.Values{}
			setIf(q, "by", by)
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			path := "/api/v1/leaderboard"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}
			return o.public(http.MethodGet, path, nil)
		},
	}
	cmd.Flags().StringVar(&by, "by", "", "wins|winnings")
	cmd.Flags().IntVar(&limit, "limit", 0, "number of rows")
	return cmd
}

func eventsCmd(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Committed engine events",
		Args:  cobra.MinimumNArgs(1),
	}

	var name, ref string
	list := &cobra.Command{
		Use:   "list",
		Short: "List persisted events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			setIf(q, "event", name)
			setIf(q, "ref", ref)
			path := "/api/v1/events"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}
			return o.public(http.MethodGet, path, nil)
		},
	}
	list.Flags().StringVar(&name, "event", "", "event name")
	list.Flags().StringVar(&ref, "ref", "", "match id or address")

	var filter string
	watch := &cobra.Command{
		Use:   "watch",
		Short: "Stream live events until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			return o.watch(ctx, filter)
		},
	}
	watch.Flags().StringVar(&filter, "event", "", "comma separated event names")

	cmd.AddCommand(list, watch)
	return cmd
}

// streamURL turns the http(s) API base into the ws(s) stream endpoint.
func streamURL(base, filter string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/") + "/api/v1/events/stream")
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", errors.New("api base must be an http(s) URL")
	}
	if filter = strings.TrimSpace(filter); filter != "" {
		u.RawQuery = url.Values{"event": {filter}}.Encode()
	}
	return u.String(), nil
}

// watch writes one event per message until ctx ends or the server closes.
func (o *Options) watch(ctx context.Context, filter string) error {
	target, err := streamURL(o.APIBase, filter)
	if err != nil {
		return err
	}
	conn, _, err := websocket.Dial(ctx, target, nil)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	for {
		var ev map[string]any
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			if ctx.Err() != nil || websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return err
		}
		if err := o.write(ev); err != nil {
			return err
		}
	}
}
