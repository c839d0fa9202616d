package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gigescrow/cmd/internal/passphrase"
	"gigescrow/config"
	"gigescrow/crypto"
	"gigescrow/rpc"
)

var (
	passphraseSource = func() *passphrase.Source { return passphrase.NewSource(keyPassEnv) }
	authNow          = time.Now
)

func runKeyCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, keyUsage())
		return 1
	}
	switch args[0] {
	case "new":
		return runKeyNew(args[1:], stdout, stderr)
	case "show":
		return runKeyShow(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown key subcommand: %s\n", args[0])
		fmt.Fprintln(stderr, keyUsage())
		return 1
	}
}

func runKeyNew(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("key new", stderr, keyUsage)
	var path string
	var force bool
	fs.StringVar(&path, "keystore", "", "path of the keystore file to write")
	fs.BoolVar(&force, "force", false, "overwrite an existing keystore")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	if strings.TrimSpace(path) == "" {
		return printError(stderr, "--keystore is required")
	}
	if _, err := os.Stat(path); err == nil && !force {
		return printError(stderr, fmt.Sprintf("%s already exists; pass --force to overwrite", path))
	}
	pass, err := passphraseSource().Get()
	if err != nil {
		return printError(stderr, err.Error())
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return printError(stderr, err.Error())
	}
	addr, err := crypto.SaveToKeystore(path, key, pass)
	if err != nil {
		return printError(stderr, err.Error())
	}
	fmt.Fprintln(stdout, addr.String())
	return 0
}

func runKeyShow(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("key show", stderr, keyUsage)
	var path string
	fs.StringVar(&path, "keystore", "", "path of the keystore file")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	if strings.TrimSpace(path) == "" {
		return printError(stderr, "--keystore is required")
	}
	pass, err := passphraseSource().Get()
	if err != nil {
		return printError(stderr, err.Error())
	}
	key, err := crypto.LoadFromKeystore(path, pass)
	if err != nil {
		return printError(stderr, err.Error())
	}
	fmt.Fprintln(stdout, key.PubKey().Address().String())
	return 0
}

func runAuthCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] != "token" {
		fmt.Fprintln(stderr, authUsage())
		return 1
	}
	fs := newFlagSet("auth token", stderr, authUsage)
	var secretEnv, issuer, audience, subject string
	var ttl time.Duration
	fs.StringVar(&secretEnv, "secret-env", config.DefaultSecretEnv, "environment variable holding the HMAC secret")
	fs.StringVar(&issuer, "issuer", "gig-operator", "token issuer")
	fs.StringVar(&audience, "audience", "gigd", "token audience")
	fs.StringVar(&subject, "subject", "operator", "token subject")
	fs.DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	if !parseFlags(fs, args[1:], stderr) {
		return 1
	}
	if ttl <= 0 {
		return printError(stderr, "--ttl must be positive")
	}
	secret, err := config.Auth{HMACSecretEnv: secretEnv}.Secret()
	if err != nil {
		return printError(stderr, err.Error())
	}
	token, err := rpc.SignToken(secret, issuer, audience, subject, ttl, authNow())
	if err != nil {
		return printError(stderr, err.Error())
	}
	fmt.Fprintln(stdout, token)
	return 0
}

func keyUsage() string {
	return strings.TrimSpace(`Usage:
  gig-cli key <command> --keystore PATH

Commands:
  new   Generate a key, encrypt it to PATH and print its address
  show  Decrypt PATH and print its address`)
}

func authUsage() string {
	return strings.TrimSpace(`Usage:
  gig-cli auth token [--secret-env NAME] [--issuer ISS] [--audience AUD] [--subject SUB] [--ttl 1h]`)
}
