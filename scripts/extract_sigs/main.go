// extract_sigs prints the compact signatures found in a transaction status
// response, one hex line per signing receipt.
//
// Usage:
//
//	go run ./scripts/extract_sigs outcome.json
//
// Or with stdin:
//
//	curl -s $RPC -d @tx_status.json | go run ./scripts/extract_sigs
//
// Receipts that do not carry big_r and s are skipped, so the whole receipt
// list of a signing transaction can be passed as is.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/complex-gh/chainsig"
)

func main() {
	var in io.Reader = os.Stdin
	if len(os.Args) > 1 {
		f, err := os.Open(os.Args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer f.Close() //nolint:errcheck
		in = f
	}

	var envelope struct {
		Result *chainsig.TxResponse `json:"result"`
	}
	bts, err := io.ReadAll(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := json.Unmarshal(bts, &envelope); err != nil || envelope.Result == nil || envelope.Result.Outcome == nil {
		fmt.Fprintln(os.Stderr, "Usage: extract_sigs <tx status JSON-RPC response>")
		os.Exit(1)
	}

	components, err := chainsig.ExtractAll(envelope.Result.Outcome)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	sigs, err := chainsig.AssembleAll(components)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	for _, sig := range sigs {
		fmt.Println(sig.Hex())
	}
}
