package gig

import (
	"fmt"
	"math/big"
	"strings"
)

// Phase is the derived lifecycle stage of the escrow. It is never persisted.
type Phase string

const (
	PhaseInProgress Phase = "in_progress"
	PhaseSuccess    Phase = "success"
	PhaseOver       Phase = "over"
)

// Ordinal returns the wire encoding of the phase: 0 in progress, 1 success,
// 2 over.
func (p Phase) Ordinal() uint32 {
	switch p {
	case PhaseInProgress:
		return 0
	case PhaseSuccess:
		return 1
	case PhaseOver:
		return 2
	default:
		panic(fmt.Sprintf("gig: unknown phase %q", string(p)))
	}
}

func (p Phase) String() string { return string(p) }

// MaxRating is the highest rating accepted by SetRating.
const MaxRating uint64 = 5

// Config is the escrow's singleton configuration. Everything except Claimed
// is fixed at initialization.
type Config struct {
	Provider  [20]byte
	StartedAt uint64
	Deadline  uint64
	Token     string
	Rating    uint64
	Claimed   bool
}

// RatingError reports a rating outside [0, MaxRating]. It matches
// ErrInvalidRating under errors.Is.
type RatingError struct {
	Rating uint64
}

func (e *RatingError) Error() string {
	return fmt.Sprintf("%s: got %d", ErrInvalidRating.Error(), e.Rating)
}

func (e *RatingError) Unwrap() error { return ErrInvalidRating }

// ValidateRating returns a *RatingError when rating exceeds MaxRating.
func ValidateRating(rating uint64) error {
	if rating > MaxRating {
		return &RatingError{Rating: rating}
	}
	return nil
}

// Snapshot is a single-read view of the escrow for one account.
type Snapshot struct {
	Config          Config
	Phase           Phase
	Deposited       *big.Int
	ContractBalance *big.Int
	Skills          []string
}

// NormalizeToken trims and upper-cases a token symbol.
func NormalizeToken(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func normalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	for _, skill := range skills {
		if trimmed := strings.TrimSpace(skill); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
