package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	rpcURLEnv   = "GIG_RPC_URL"
	rpcTokenEnv = "GIG_RPC_TOKEN"
	keyPassEnv  = "GIG_KEY_PASS"
)

type cliOptions struct {
	endpoint string
	token    string
	output   string
}

var opts = cliOptions{output: outputJSON}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts.endpoint = defaultRPCEndpoint()
	opts.token = strings.TrimSpace(os.Getenv(rpcTokenEnv))
	args, err := applyGlobalFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage())
		return 1
	}
	switch args[0] {
	case "gig":
		return runGigCommand(args[1:], stdout, stderr)
	case "bank":
		return runBankCommand(args[1:], stdout, stderr)
	case "key":
		return runKeyCommand(args[1:], stdout, stderr)
	case "auth":
		return runAuthCommand(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage())
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		fmt.Fprintln(stderr, usage())
		return 1
	}
}

func defaultRPCEndpoint() string {
	if v := strings.TrimSpace(os.Getenv(rpcURLEnv)); v != "" {
		return v
	}
	return "http://localhost:8547"
}

// applyGlobalFlags strips --rpc and --output from anywhere in args.
func applyGlobalFlags(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, value, hasValue := strings.Cut(arg, "=")
		if name != "--rpc" && name != "--output" {
			out = append(out, arg)
			continue
		}
		if !hasValue {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for %s", name)
			}
			value = args[i+1]
			i++
		}
		switch name {
		case "--rpc":
			opts.endpoint = strings.TrimSpace(value)
		case "--output":
			format := strings.ToLower(strings.TrimSpace(value))
			if format != outputJSON && format != outputYAML {
				return nil, fmt.Errorf("--output must be %s or %s", outputJSON, outputYAML)
			}
			opts.output = format
		}
	}
	return out, nil
}

func usage() string {
	return strings.TrimSpace(`Usage:
  gig-cli [--rpc URL] [--output json|yaml] <command> [args]

Commands:
  gig   Operate the gig escrow (init, deposit, withdraw, state, ...)
  bank  Inspect and move token balances
  key   Create and inspect account keystores
  auth  Issue RPC bearer tokens

Environment:
  GIG_RPC_URL    RPC endpoint (default http://localhost:8547)
  GIG_RPC_TOKEN  bearer token for mutating calls
  GIG_KEY_PASS   keystore passphrase`)
}
