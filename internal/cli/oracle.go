package cli

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"wagerescrow/internal/address"
	"wagerescrow/internal/oracle"
)

type attestation struct {
	MatchID    string `json:"match_id"`
	Winner     string `json:"winner"`
	ResultHash string `json:"result_hash"`
	Verifier   string `json:"verifier"`
	Signature  string `json:"signature"`
	Envelope   string `json:"envelope"`
}

type attestFlags struct {
	match, winner, resultHash, resultData string
}

func (f *attestFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.match, "match", "", "match id")
	cmd.Flags().StringVar(&f.winner, "winner", "", "winning player address")
	cmd.Flags().StringVar(&f.resultHash, "result-hash", "", "32-byte result hash, hex")
	cmd.Flags().StringVar(&f.resultData, "result-data", "", "raw game result; hashed with keccak256 when --result-hash is not set")
}

// attest signs the result with the configured oracle key.
func (o *Options) attest(f attestFlags) (attestation, error) {
	priv, verifier, err := loadKey(o.KeyFile)
	if err != nil {
		return attestation{}, err
	}
	matchID, err := address.Parse(f.match)
	if err != nil {
		return attestation{}, fmt.Errorf("--match: %w", err)
	}
	winner, err := address.Parse(f.winner)
	if err != nil {
		return attestation{}, fmt.Errorf("--winner: %w", err)
	}
	hash, err := resultHash(f.resultHash, f.resultData)
	if err != nil {
		return attestation{}, err
	}
	att := oracle.Attest(priv, matchID, winner, hash)
	return attestation{
		MatchID:    matchID.String(),
		Winner:     winner.String(),
		ResultHash: hex.EncodeToString(hash[:]),
		Verifier:   verifier.String(),
		Signature:  hex.EncodeToString(att.Signature),
		Envelope:   hex.EncodeToString(att.Envelope),
	}, nil
}

func resultHash(hexHash, data string) ([32]byte, error) {
	var out [32]byte
	switch {
	case strings.TrimSpace(hexHash) != "":
		b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(hexHash), "0x"))
		if err != nil || len(b) != len(out) {
			return out, errors.New("--result-hash must be 32 hex-encoded bytes")
		}
		copy(out[:], b)
	case data != "":
		copy(out[:], crypto.Keccak256([]byte(data)))
	default:
		return out, errors.New("--result-hash or --result-data required")
	}
	return out, nil
}

func oracleCmd(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oracle",
		Short: "Sign and submit match results",
		Args:  cobra.MinimumNArgs(1),
	}

	var af attestFlags
	attest := &cobra.Command{
		Use:   "attest",
		Short: "Sign a result offline and print the signature and envelope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			att, err := o.attest(af)
			if err != nil {
				return err
			}
			return o.write(att)
		},
	}
	af.bind(attest)

	var sf attestFlags
	var signature, envelope string
	submit := &cobra.Command{
		Use:   "submit",
		Short: "Submit a signed result; signs it with --key when no signature is given",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var att attestation
			if signature == "" && envelope == "" {
				a, err := o.attest(sf)
				if err != nil {
					return err
				}
				att = a
			} else {
				if signature == "" || envelope == "" {
					return errors.New("--signature and --envelope go together")
				}
				hash, err := resultHash(sf.resultHash, sf.resultData)
				if err != nil {
					return err
				}
				att = attestation{
					MatchID:    sf.match,
					Winner:     sf.winner,
					ResultHash: hex.EncodeToString(hash[:]),
					Signature:  signature,
					Envelope:   envelope,
				}
			}
			id, err := address.Parse(att.MatchID)
			if err != nil {
				return fmt.Errorf("--match: %w", err)
			}
			return o.authed(http.MethodPost, "/api/v1/matches/"+id.String()+"/result", map[string]string{
				"winner":      att.Winner,
				"result_hash": att.ResultHash,
				"signature":   att.Signature,
				"envelope":    att.Envelope,
			})
		},
	}
	sf.bind(submit)
	submit.Flags().StringVar(&signature, "signature", "", "result signature, hex")
	submit.Flags().StringVar(&envelope, "envelope", "", "signature envelope, hex")

	cmd.AddCommand(attest, submit)
	return cmd
}
