// Package clicfg stores wagerctl settings and the last login token under
// ~/.wagerctl (or WAGERCTL_DIR).
package clicfg

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Config struct {
	APIBase string `json:"api_base"`
	// KeyFile is the default signing key for commands that need one.
	KeyFile string `json:"key_file"`
}

type Credentials struct {
	Token     string `json:"token"`
	Role      string `json:"role"`
	Address   string `json:"address"`
	ExpiresAt string `json:"expires_at"`
}

func DefaultConfig() Config {
	return Config{
		APIBase: "http://localhost:8080",
	}
}

func Dir() (string, error) {
	if v := strings.TrimSpace(os.Getenv("WAGERCTL_DIR")); v != "" {
		return v, nil
	}
	h, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(h, ".wagerctl"), nil
}

func ConfigPath() (string, error) {
	d, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config.json"), nil
}

func CredentialsPath() (string, error) {
	d, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "credentials.json"), nil
}

func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	p, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	if b, err := os.ReadFile(p); err == nil {
		var onDisk Config
		if err := json.Unmarshal(b, &onDisk); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", p, err)
		}
		if strings.TrimSpace(onDisk.APIBase) != "" {
			cfg.APIBase = strings.TrimRight(strings.TrimSpace(onDisk.APIBase), "/")
		}
		cfg.KeyFile = strings.TrimSpace(onDisk.KeyFile)
	}

	if v := strings.TrimSpace(os.Getenv("WAGERCTL_API_BASE")); v != "" {
		cfg.APIBase = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(os.Getenv("WAGERCTL_KEY")); v != "" {
		cfg.KeyFile = v
	}

	if cfg.APIBase == "" {
		return Config{}, errors.New("api_base is empty")
	}
	return cfg, nil
}

func LoadCredentials() (Credentials, error) {
	p, err := CredentialsPath()
	if err != nil {
		return Credentials{}, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return Credentials{}, err
	}
	var c Credentials
	if err := json.Unmarshal(b, &c); err != nil {
		return Credentials{}, fmt.Errorf("parse %s: %w", p, err)
	}
	return c, nil
}

func SaveCredentials(c Credentials) error {
	d, err := Dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(d, 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(d, "credentials.json"), b, 0o600)
}

func (c Credentials) ExpiresAtTime() (time.Time, bool) {
	v := strings.TrimSpace(c.ExpiresAt)
	if v == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Expired reports whether the stored token is past its expiry.
func (c Credentials) Expired(now time.Time) bool {
	t, ok := c.ExpiresAtTime()
	return ok && !now.Before(t)
}
