package main

import (
	"flag"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
	"time"

	"gigescrow/crypto"
)

var gigNow = time.Now

// nullary maps subcommands that take no flags onto their RPC method.
var nullary = map[string]string{
	"state":      "gig_state",
	"provider":   "gig_provider",
	"deadline":   "gig_deadline",
	"token":      "gig_token",
	"started-at": "gig_startedAt",
	"rating":     "gig_rating",
	"skills":     "gig_skills",
	"address":    "gig_address",
}

func runGigCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, gigUsage())
		return 1
	}
	if method, ok := nullary[args[0]]; ok {
		if len(args) > 1 {
			return printError(stderr, "unexpected positional arguments")
		}
		return invoke(method, nil, false, stdout, stderr)
	}
	switch args[0] {
	case "init":
		return runGigInit(args[1:], stdout, stderr)
	case "deposit":
		return runGigDeposit(args[1:], stdout, stderr)
	case "withdraw":
		return runGigWithdraw(args[1:], stdout, stderr)
	case "balance":
		return runGigUserQuery("gig balance", "gig_balance", args[1:], stdout, stderr)
	case "snapshot":
		return runGigUserQuery("gig snapshot", "gig_snapshot", args[1:], stdout, stderr)
	case "set-rating":
		return runGigSetRating(args[1:], stdout, stderr)
	case "set-skills":
		return runGigSetSkills(args[1:], stdout, stderr)
	case "events":
		return runGigEvents(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown gig subcommand: %s\n", args[0])
		fmt.Fprintln(stderr, gigUsage())
		return 1
	}
}

func runGigInit(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("gig init", stderr, gigUsage)
	var provider, deadline, token string
	var rating uint64
	fs.StringVar(&provider, "provider", "", "provider bech32 address")
	fs.StringVar(&deadline, "deadline", "", "deadline as +duration, RFC3339 or unix seconds")
	fs.StringVar(&token, "token", "", "token symbol held in escrow")
	fs.Uint64Var(&rating, "rating", 0, "initial provider rating")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	if err := validateAccount("--provider", provider); err != nil {
		return printError(stderr, err.Error())
	}
	if strings.TrimSpace(token) == "" {
		return printError(stderr, "--token is required")
	}
	deadlineUnix, err := parseDeadline(deadline, gigNow())
	if err != nil {
		return printError(stderr, err.Error())
	}
	params := map[string]interface{}{
		"provider": strings.TrimSpace(provider),
		"deadline": deadlineUnix,
		"token":    strings.ToUpper(strings.TrimSpace(token)),
		"rating":   rating,
	}
	return invoke("gig_initialize", params, true, stdout, stderr)
}

func runGigDeposit(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("gig deposit", stderr, gigUsage)
	var user, amount string
	fs.StringVar(&user, "user", "", "depositor bech32 address")
	fs.StringVar(&amount, "amount", "", "amount in base units (supports 100e18 shorthand)")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	if err := validateAccount("--user", user); err != nil {
		return printError(stderr, err.Error())
	}
	normalized, err := normalizeAmount(amount)
	if err != nil {
		return printError(stderr, err.Error())
	}
	params := map[string]interface{}{"user": strings.TrimSpace(user), "amount": normalized}
	return invoke("gig_deposit", params, true, stdout, stderr)
}

func runGigWithdraw(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("gig withdraw", stderr, gigUsage)
	var to string
	fs.StringVar(&to, "to", "", "recipient bech32 address")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	if err := validateAccount("--to", to); err != nil {
		return printError(stderr, err.Error())
	}
	return invoke("gig_withdraw", map[string]interface{}{"to": strings.TrimSpace(to)}, true, stdout, stderr)
}

func runGigUserQuery(name, method string, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet(name, stderr, gigUsage)
	var user string
	fs.StringVar(&user, "user", "", "account bech32 address")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	if err := validateAccount("--user", user); err != nil {
		return printError(stderr, err.Error())
	}
	return invoke(method, map[string]interface{}{"user": strings.TrimSpace(user)}, false, stdout, stderr)
}

func runGigSetRating(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("gig set-rating", stderr, gigUsage)
	var rating string
	fs.StringVar(&rating, "rating", "", "new rating")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	if strings.TrimSpace(rating) == "" {
		return printError(stderr, "--rating is required")
	}
	value, err := strconv.ParseUint(strings.TrimSpace(rating), 10, 64)
	if err != nil {
		return printError(stderr, "--rating must be a non-negative integer")
	}
	return invoke("gig_setRating", map[string]interface{}{"rating": value}, true, stdout, stderr)
}

func runGigSetSkills(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("gig set-skills", stderr, gigUsage)
	var skills string
	fs.StringVar(&skills, "skills", "", "comma-separated skill list")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	list := []string{}
	for _, skill := range strings.Split(skills, ",") {
		if trimmed := strings.TrimSpace(skill); trimmed != "" {
			list = append(list, trimmed)
		}
	}
	return invoke("gig_setSkills", map[string]interface{}{"skills": list}, true, stdout, stderr)
}

func runGigEvents(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("gig events", stderr, gigUsage)
	var eventType string
	var after int64
	var limit int
	fs.StringVar(&eventType, "type", "", "only events of this type")
	fs.Int64Var(&after, "after", 0, "only events with a larger id")
	fs.IntVar(&limit, "limit", 0, "maximum number of events")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	if after < 0 || limit < 0 {
		return printError(stderr, "--after and --limit must not be negative")
	}
	params := map[string]interface{}{}
	if eventType = strings.TrimSpace(eventType); eventType != "" {
		params["type"] = eventType
	}
	if after > 0 {
		params["after"] = after
	}
	if limit > 0 {
		params["limit"] = limit
	}
	return invoke("gig_listEvents", params, false, stdout, stderr)
}

func newFlagSet(name string, stderr io.Writer, usage func() string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, usage())
	}
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string, stderr io.Writer) bool {
	if err := fs.Parse(args); err != nil {
		return false
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(stderr, "Error: unexpected positional arguments")
		return false
	}
	return true
}

func validateAccount(flagName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", flagName)
	}
	if _, err := crypto.ParseAccount(value); err != nil {
		return fmt.Errorf("%s: %v", flagName, err)
	}
	return nil
}

// normalizeAmount accepts a base-10 integer or NeM shorthand and returns the
// integer in base units.
func normalizeAmount(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("--amount is required")
	}
	mantissa, exponent, scientific := strings.Cut(strings.ToLower(trimmed), "e")
	base, ok := new(big.Int).SetString(mantissa, 10)
	if !ok {
		return "", fmt.Errorf("invalid amount %q", value)
	}
	if scientific {
		exp, err := strconv.ParseUint(exponent, 10, 8)
		if err != nil {
			return "", fmt.Errorf("invalid amount exponent in %q", value)
		}
		base.Mul(base, new(big.Int).Exp(big.NewInt(10), new(big.Int).SetUint64(exp), nil))
	}
	if base.Sign() <= 0 {
		return "", fmt.Errorf("amount must be positive")
	}
	return base.String(), nil
}

func parseDeadline(value string, now time.Time) (uint64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("--deadline is required")
	}
	if strings.HasPrefix(trimmed, "+") {
		dur, err := parseDeadlineDuration(strings.TrimSpace(trimmed[1:]))
		if err != nil {
			return 0, err
		}
		if dur <= 0 {
			return 0, fmt.Errorf("deadline duration must be positive")
		}
		return uint64(now.Add(dur).Unix()), nil
	}
	if unix, err := strconv.ParseUint(trimmed, 10, 64); err == nil {
		return unix, nil
	}
	ts, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid deadline: use +duration, RFC3339 or unix seconds")
	}
	if ts.Unix() < 0 {
		return 0, fmt.Errorf("deadline predates the unix epoch")
	}
	return uint64(ts.Unix()), nil
}

func parseDeadlineDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, fmt.Errorf("invalid deadline duration")
	}
	if strings.HasSuffix(value, "d") || strings.HasSuffix(value, "D") {
		days, err := strconv.ParseUint(value[:len(value)-1], 10, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid deadline duration")
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	dur, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid deadline duration")
	}
	return dur, nil
}

func gigUsage() string {
	return strings.TrimSpace(`Usage:
  gig-cli gig <command> [flags]

Commands:
  init        Configure the escrow (--provider --deadline --token [--rating])
  deposit     Move tokens into escrow (--user --amount)
  withdraw    Claim or refund (--to)
  balance     Expected payout for an account (--user)
  snapshot    Configuration, phase and ledger entry (--user)
  set-rating  Replace the provider rating (--rating)
  set-skills  Replace the provider skills (--skills a,b)
  events      List persisted events (--type --after --limit)
  state | provider | deadline | token | started-at | rating | skills | address`)
}
