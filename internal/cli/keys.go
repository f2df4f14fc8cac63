package cli

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"wagerescrow/internal/address"
)

// KeyFile is the on-disk form of a signing key.
type KeyFile struct {
	Address    string `json:"address"`
	PrivateKey string `json:"private_key"`
}

func loadKey(path string) (ed25519.PrivateKey, address.Address, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, address.Address{}, errors.New("signing key required: pass --key or set WAGERCTL_KEY")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, address.Address{}, err
	}
	var kf KeyFile
	if err := json.Unmarshal(b, &kf); err != nil {
		return nil, address.Address{}, fmt.Errorf("parse %s: %w", path, err)
	}
	raw, err := hex.DecodeString(strings.TrimSpace(kf.PrivateKey))
	if err != nil || len(raw) != ed25519.PrivateKeySize {
		return nil, address.Address{}, fmt.Errorf("%s: private_key must be %d hex-encoded bytes", path, ed25519.PrivateKeySize)
	}
	priv := ed25519.PrivateKey(raw)
	addr := address.FromPublicKey(priv.Public().(ed25519.PublicKey))
	if kf.Address != "" && kf.Address != addr.String() {
		return nil, address.Address{}, fmt.Errorf("%s: address does not match private key", path)
	}
	return priv, addr, nil
}

func writeKey(path string, priv ed25519.PrivateKey) (KeyFile, error) {
	kf := KeyFile{
		Address:    address.FromPublicKey(priv.Public().(ed25519.PublicKey)).String(),
		PrivateKey: hex.EncodeToString(priv),
	}
	if path == "" {
		return kf, nil
	}
	b, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return KeyFile{}, err
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return KeyFile{}, err
	}
	return kf, nil
}

func keygenCmd(o *Options) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an ed25519 key; its public key is the account address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outPath != "" {
				if _, err := os.Stat(outPath); err == nil {
					return fmt.Errorf("%s already exists", outPath)
				}
			}
			_, priv, err := ed25519.GenerateKey(rand.Reader)
			if err != nil {
				return err
			}
			kf, err := writeKey(outPath, priv)
			if err != nil {
				return err
			}
			if outPath != "" {
				return o.write(map[string]string{"address": kf.Address, "file": outPath})
			}
			return o.write(kf)
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "write the key to this file instead of stdout")
	return cmd
}
