// Threshold key setup CLI, replacing the teacher's bls-zk-setup command:
// generates a t-of-n threshold signature key share set for a validator
// group and writes one share file per signer, hex-encoded, instead of
// Solidity verification keys.
package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lamassu-labs/trustwrapper/internal/model"
	"github.com/lamassu-labs/trustwrapper/internal/threshold"
)

type shareFile struct {
	GroupID          string `json:"group_id"`
	Scheme           string `json:"scheme"`
	ShareID          int    `json:"share_id"`
	Threshold        int    `json:"threshold"`
	Total            int    `json:"total"`
	ShareValueHex    string `json:"share_value_hex"`
	PublicCommitment string `json:"public_commitment_hex"`
	GroupPublicKey   string `json:"group_public_key_hex"`
}

func main() {
	groupID := flag.String("group", "", "validator group id")
	scheme := flag.String("scheme", string(model.SchemeBLS), "signature scheme: bls, schnorr, or ecdsa")
	threshold_ := flag.Int("threshold", 0, "minimum number of signers required (t)")
	total := flag.Int("total", 0, "total number of signers in the group (n)")
	outDir := flag.String("out", "./keyshares", "directory to write one share file per signer")
	flag.Parse()

	if err := run(*groupID, *scheme, *threshold_, *total, *outDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(groupID, scheme string, t, n int, outDir string) error {
	if groupID == "" {
		return fmt.Errorf("-group is required")
	}
	if t <= 0 || n <= 0 || t > n {
		return fmt.Errorf("invalid threshold configuration: t=%d, n=%d", t, n)
	}

	mgr := threshold.New()
	shares, err := mgr.Setup(groupID, model.SignatureScheme(scheme), t, n)
	if err != nil {
		return fmt.Errorf("setup group %q: %w", groupID, err)
	}

	if err := os.MkdirAll(outDir, 0700); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	for _, share := range shares {
		out := shareFile{
			GroupID:          groupID,
			Scheme:           string(share.Scheme),
			ShareID:          share.ShareID,
			Threshold:        share.Threshold,
			Total:            share.Total,
			ShareValueHex:    hex.EncodeToString(share.ShareValue),
			PublicCommitment: hex.EncodeToString(share.PublicCommitment),
			GroupPublicKey:   hex.EncodeToString(share.GroupPublicKey),
		}
		buf, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("encode share %d: %w", share.ShareID, err)
		}

		path := filepath.Join(outDir, fmt.Sprintf("%s-signer-%d.json", groupID, share.ShareID))
		if err := os.WriteFile(path, buf, 0600); err != nil {
			return fmt.Errorf("write share %d: %w", share.ShareID, err)
		}
		fmt.Printf("wrote %s\n", path)
	}

	fmt.Printf("group %q ready: %d-of-%d (%s)\n", groupID, t, n, scheme)
	return nil
}
