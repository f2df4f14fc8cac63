package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func apiCmd(o *Options) *cobra.Command {
	var method, path, body string
	var auth bool
	cmd := &cobra.Command{
		Use:   "api",
		Short: "Call any escrowd endpoint and print the response data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !strings.HasPrefix(path, "/") {
				return fmt.Errorf("--path must start with /: %q", path)
			}
			var payload any
			if strings.TrimSpace(body) != "" {
				if err := json.Unmarshal([]byte(body), &payload); err != nil {
					return fmt.Errorf("--body: %w", err)
				}
			}
			m := strings.ToUpper(strings.TrimSpace(method))
			if auth {
				return o.authed(m, path, payload)
			}
			return o.public(m, path, payload)
		},
	}
	cmd.Flags().StringVar(&method, "method", "GET", "HTTP method")
	cmd.Flags().StringVar(&path, "path", "", "request path, e.g. /api/v1/stats")
	cmd.Flags().StringVar(&body, "body", "", "JSON request body")
	cmd.Flags().BoolVar(&auth, "auth", false, "send the bearer token")
	return cmd
}
