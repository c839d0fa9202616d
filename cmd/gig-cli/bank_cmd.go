package main

import (
	"fmt"
	"io"
	"strings"
)

func runBankCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, bankUsage())
		return 1
	}
	switch args[0] {
	case "balance":
		return runBankBalance(args[1:], stdout, stderr)
	case "mint":
		return runBankMint(args[1:], stdout, stderr)
	case "transfer":
		return runBankTransfer(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown bank subcommand: %s\n", args[0])
		fmt.Fprintln(stderr, bankUsage())
		return 1
	}
}

func runBankBalance(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("bank balance", stderr, bankUsage)
	var token, account string
	fs.StringVar(&token, "token", "", "token symbol")
	fs.StringVar(&account, "account", "", "account bech32 address")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	if strings.TrimSpace(token) == "" {
		return printError(stderr, "--token is required")
	}
	if err := validateAccount("--account", account); err != nil {
		return printError(stderr, err.Error())
	}
	params := map[string]interface{}{"token": strings.TrimSpace(token), "account": strings.TrimSpace(account)}
	return invoke("bank_balance", params, false, stdout, stderr)
}

func runBankMint(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("bank mint", stderr, bankUsage)
	var token, account, amount string
	fs.StringVar(&token, "token", "", "token symbol")
	fs.StringVar(&account, "account", "", "recipient bech32 address")
	fs.StringVar(&amount, "amount", "", "amount in base units")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	if strings.TrimSpace(token) == "" {
		return printError(stderr, "--token is required")
	}
	if err := validateAccount("--account", account); err != nil {
		return printError(stderr, err.Error())
	}
	normalized, err := normalizeAmount(amount)
	if err != nil {
		return printError(stderr, err.Error())
	}
	params := map[string]interface{}{
		"token":   strings.TrimSpace(token),
		"account": strings.TrimSpace(account),
		"amount":  normalized,
	}
	return invoke("bank_mint", params, true, stdout, stderr)
}

func runBankTransfer(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("bank transfer", stderr, bankUsage)
	var token, from, to, amount string
	fs.StringVar(&token, "token", "", "token symbol")
	fs.StringVar(&from, "from", "", "sender bech32 address")
	fs.StringVar(&to, "to", "", "recipient bech32 address")
	fs.StringVar(&amount, "amount", "", "amount in base units")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	if strings.TrimSpace(token) == "" {
		return printError(stderr, "--token is required")
	}
	if err := validateAccount("--from", from); err != nil {
		return printError(stderr, err.Error())
	}
	if err := validateAccount("--to", to); err != nil {
		return printError(stderr, err.Error())
	}
	normalized, err := normalizeAmount(amount)
	if err != nil {
		return printError(stderr, err.Error())
	}
	params := map[string]interface{}{
		"token":  strings.TrimSpace(token),
		"from":   strings.TrimSpace(from),
		"to":     strings.TrimSpace(to),
		"amount": normalized,
	}
	return invoke("bank_transfer", params, true, stdout, stderr)
}

func bankUsage() string {
	return strings.TrimSpace(`Usage:
  gig-cli bank <command> [flags]

Commands:
  balance   Token balance of an account (--token --account)
  mint      Credit new units to an account (--token --account --amount)
  transfer  Move units between accounts (--token --from --to --amount)`)
}
