package cli

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"wagerescrow/internal/auth"
	"wagerescrow/internal/cli/clicfg"
)

const refreshSkew = 2 * time.Minute

type challengeResponse struct {
	Address   string    `json:"address"`
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

func authCmd(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Challenge login and stored credentials",
		Args:  cobra.MinimumNArgs(1),
	}

	var role string
	login := &cobra.Command{
		Use:   "login",
		Short: "Sign a login challenge with --key and store the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := o.login(role)
			if err != nil {
				return err
			}
			return o.write(tok)
		},
	}
	login.Flags().StringVar(&role, "role", auth.RolePlayer, "player|oracle|operator")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cred, err := clicfg.LoadCredentials()
			if err != nil {
				return errors.New("not logged in; run: wagerctl auth login --key <file>")
			}
			return o.write(map[string]any{
				"address":    cred.Address,
				"role":       cred.Role,
				"expires_at": cred.ExpiresAt,
				"expired":    cred.Expired(o.now()),
			})
		},
	}

	cmd.AddCommand(login, status)
	return cmd
}

func (o *Options) login(role string) (tokenResponse, error) {
	priv, addr, err := loadKey(o.KeyFile)
	if err != nil {
		return tokenResponse{}, err
	}
	ctx, cancel := o.ctx()
	defer cancel()

	c := o.client("")
	var ch challengeResponse
	if _, err := c.Call(ctx, http.MethodPost, "/api/v1/auth/challenge", map[string]string{"address": addr.String()}, &ch); err != nil {
		return tokenResponse{}, err
	}
	if ch.Message != auth.ChallengeMessage(addr, ch.Nonce) {
		return tokenResponse{}, errors.New("server returned an unexpected challenge message")
	}
	sig := ed25519.Sign(priv, []byte(ch.Message))

	var tok tokenResponse
	if _, err := c.Call(ctx, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"address":   addr.String(),
		"signature": hex.EncodeToString(sig),
		"role":      role,
	}, &tok); err != nil {
		return tokenResponse{}, err
	}
	if err := clicfg.SaveCredentials(clicfg.Credentials{
		Token:     tok.Token,
		Role:      tok.Role,
		Address:   addr.String(),
		ExpiresAt: tok.ExpiresAt.UTC().Format(time.RFC3339),
	}); err != nil {
		return tokenResponse{}, err
	}
	return tok, nil
}

// bearer returns the token for an authenticated call. An explicit --token
// wins; otherwise the stored token is used, and renewed through a fresh
// challenge login when it is close to expiry and a key is available.
func (o *Options) bearer() (string, error) {
	if t := strings.TrimSpace(o.Token); t != "" {
		return t, nil
	}
	cred, err := clicfg.LoadCredentials()
	if err == nil && strings.TrimSpace(cred.Token) != "" {
		exp, hasExp := cred.ExpiresAtTime()
		if !hasExp || exp.Sub(o.now()) > refreshSkew {
			return strings.TrimSpace(cred.Token), nil
		}
	}
	if strings.TrimSpace(o.KeyFile) == "" {
		return "", errors.New("token missing or expired; run: wagerctl auth login --key <file>")
	}
	role := cred.Role
	if role == "" {
		role = auth.RolePlayer
	}
	tok, err := o.login(role)
	if err != nil {
		return "", err
	}
	return tok.Token, nil
}
