package cli

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"wagerescrow/internal/address"
	"wagerescrow/internal/governance"
)

type approval struct {
	Signer    string `json:"signer"`
	Signature string `json:"signature"`
}

// String is the signer:signature form accepted by --approval.
func (a approval) String() string {
	return a.Signer + ":" + a.Signature
}

func parseApproval(s string) (approval, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return approval{}, fmt.Errorf("approval %q: want <signer>:<signature-hex>", s)
	}
	if _, err := address.Parse(parts[0]); err != nil {
		return approval{}, fmt.Errorf("approval signer: %w", err)
	}
	if _, err := hex.DecodeString(parts[1]); err != nil {
		return approval{}, fmt.Errorf("approval signature: %w", err)
	}
	return approval{Signer: parts[0], Signature: parts[1]}, nil
}

type govParams struct {
	platformBps, treasuryBps, referralBps int64
	owner, destination                    string
	thresholdHours                        int64
}

func (p *govParams) bindFees(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&p.platformBps, "platform-bps", 0, "platform fee in basis points")
	cmd.Flags().Int64Var(&p.treasuryBps, "treasury-bps", 0, "treasury share in basis points")
	cmd.Flags().Int64Var(&p.referralBps, "referral-bps", 0, "referral share in basis points")
}

func (p *govParams) bindRecover(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.owner, "owner", "", "vault owner address")
	cmd.Flags().StringVar(&p.destination, "destination", "", "owner or treasury address")
	cmd.Flags().Int64Var(&p.thresholdHours, "threshold-hours", 48, "minimum inactivity in hours")
}

func (p govParams) query(op governance.Operation) string {
	q := url.Values{}
	q.Set("operation", string(op))
	switch op {
	case governance.OpUpdateFees:
		q.Set("platform_fee_bps", strconv.FormatInt(p.platformBps, 10))
		q.Set("treasury_fee_bps", strconv.FormatInt(p.treasuryBps, 10))
		q.Set("referral_fee_bps", strconv.FormatInt(p.referralBps, 10))
	case governance.OpRecoverVault:
		q.Set("owner", p.owner)
		q.Set("destination", p.destination)
		q.Set("threshold_hours", strconv.FormatInt(p.thresholdHours, 10))
	}
	return q.Encode()
}

type digestResponse struct {
	Operation     string `json:"operation"`
	Digest        string `json:"digest"`
	ConfigVersion int64  `json:"config_version"`
}

func (o *Options) fetchDigest(op governance.Operation, p govParams) (digestResponse, error) {
	ctx, cancel := o.ctx()
	defer cancel()
	var d digestResponse
	_, err := o.client("").Call(ctx, http.MethodGet, "/api/v1/admin/digest?"+p.query(op), nil, &d)
	return d, err
}

// collectApprovals merges --approval values with signatures produced locally
// from --sign-with key files over the current digest.
func (o *Options) collectApprovals(op governance.Operation, p govParams, given, keyFiles []string) ([]approval, error) {
	out := make([]approval, 0, len(given)+len(keyFiles))
	for _, s := range given {
		a, err := parseApproval(s)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if len(keyFiles) > 0 {
		d, err := o.fetchDigest(op, p)
		if err != nil {
			return nil, err
		}
		digest, err := hex.DecodeString(d.Digest)
		if err != nil {
			return nil, err
		}
		for _, f := range keyFiles {
			priv, _, err := loadKey(f)
			if err != nil {
				return nil, err
			}
			a := governance.Sign(priv, digest)
			out = append(out, approval{Signer: a.Signer.String(), Signature: hex.EncodeToString(a.Signature)})
		}
	}
	if len(out) == 0 {
		return nil, errors.New("no approvals: pass --approval <signer>:<sig> or --sign-with <keyfile>")
	}
	return out, nil
}

func adminCmd(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Multisig governance: 2 of 3 admin approvals per operation",
		Args:  cobra.MinimumNArgs(1),
	}

	var dp govParams
	var opName string
	digest := &cobra.Command{
		Use:   "digest",
		Short: "Fetch the digest admins must sign",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := governance.ParseOperation(opName)
			if err != nil {
				return err
			}
			d, err := o.fetchDigest(op, dp)
			if err != nil {
				return err
			}
			return o.write(d)
		},
	}
	digest.Flags().StringVar(&opName, "op", "", "emergency_pause|emergency_unpause|update_fees|recover_inactive_vault")
	dp.bindFees(digest)
	dp.bindRecover(digest)

	var digestHex string
	approve := &cobra.Command{
		Use:   "approve",
		Short: "Sign a governance digest offline with --key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			priv, _, err := loadKey(o.KeyFile)
			if err != nil {
				return err
			}
			d, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(digestHex), "0x"))
			if err != nil || len(d) != 32 {
				return errors.New("--digest must be 32 hex-encoded bytes")
			}
			a := governance.Sign(priv, d)
			ap := approval{Signer: a.Signer.String(), Signature: hex.EncodeToString(a.Signature)}
			return o.write(map[string]string{
				"signer":    ap.Signer,
				"signature": ap.Signature,
				"approval":  ap.String(),
			})
		},
	}
	approve.Flags().StringVar(&digestHex, "digest", "", "digest from 'admin digest'")

	cmd.AddCommand(
		digest,
		approve,
		o.governanceOp("pause", "Emergency pause", governance.OpEmergencyPause, "/api/v1/admin/pause", nil),
		o.governanceOp("unpause", "Lift the emergency pause", governance.OpEmergencyUnpause, "/api/v1/admin/unpause", nil),
		o.governanceOp("fees", "Update the fee schedule", governance.OpUpdateFees, "/api/v1/admin/fees", (*govParams).bindFees),
		o.governanceOp("recover", "Recover an inactive session vault", governance.OpRecoverVault, "/api/v1/admin/recover", (*govParams).bindRecover),
	)
	return cmd
}

func (o *Options) governanceOp(use, short string, op governance.Operation, path string, bind func(*govParams, *cobra.Command)) *cobra.Command {
	var (
		p         govParams
		approvals []string
		signWith  []string
	)
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			aps, err := o.collectApprovals(op, p, approvals, signWith)
			if err != nil {
				return err
			}
			body := map[string]any{"approvals": aps}
			switch op {
			case governance.OpUpdateFees:
				body["platform_fee_bps"] = p.platformBps
				body["treasury_fee_bps"] = p.treasuryBps
				body["referral_fee_bps"] = p.referralBps
			case governance.OpRecoverVault:
				body["owner"] = p.owner
				body["destination"] = p.destination
				body["threshold_hours"] = p.thresholdHours
			}
			return o.public(http.MethodPost, path, body)
		},
	}
	if bind != nil {
		bind(&p, cmd)
	}
	cmd.Flags().StringArrayVar(&approvals, "approval", nil, "admin approval <signer>:<signature-hex>, repeatable")
	cmd.Flags().StringArrayVar(&signWith, "sign-with", nil, "admin key file to sign with locally, repeatable")
	return cmd
}
