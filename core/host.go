package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"gigescrow/core/events"
	"gigescrow/core/state"
	"gigescrow/native/bank"
	"gigescrow/native/gig"
	"gigescrow/observability"
	gigotel "gigescrow/observability/otel"
	"gigescrow/storage"
)

var (
	errNilDatabase = errors.New("host: database not configured")
	errNilCall     = errors.New("host: nil call")
)

var genesisMarker = []byte("host/genesis/applied")

// HostConfig wires the collaborators of a Host.
type HostConfig struct {
	DB      storage.Database
	Clock   gig.Clock
	Tokens  []string
	Emitter events.Emitter
	Logger  *slog.Logger
	Metrics *observability.ContractMetrics
	Tracer  trace.Tracer
}

// Tx is the per-call view handed to an operation. Both handles share the same
// uncommitted writes and event buffer.
type Tx struct {
	Contract *gig.Contract
	Bank     *bank.Ledger

	kv *state.Manager
}

// GenesisBalance is a balance credited when the store is first opened.
type GenesisBalance struct {
	Token   string
	Account [20]byte
	Amount  *big.Int
}

// Host executes contract operations one at a time. Each call runs against a
// journal over the database; the journal is committed and buffered events
// are published only when the call returns without error.
type Host struct {
	mu      sync.Mutex
	db      storage.Database
	clock   gig.Clock
	tokens  []string
	emitter events.Emitter
	logger  *slog.Logger
	metrics *observability.ContractMetrics
	tracer  trace.Tracer
}

// NewHost validates cfg and returns a ready host.
func NewHost(cfg HostConfig) (*Host, error) {
	if cfg.DB == nil {
		return nil, errNilDatabase
	}
	if len(cfg.Tokens) == 0 {
		return nil, fmt.Errorf("host: at least one token required")
	}
	h := &Host{
		db:      cfg.DB,
		clock:   cfg.Clock,
		tokens:  append([]string(nil), cfg.Tokens...),
		emitter: cfg.Emitter,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		tracer:  cfg.Tracer,
	}
	if h.emitter == nil {
		h.emitter = events.NoopEmitter{}
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.tracer == nil {
		h.tracer = gigotel.Tracer()
	}
	return h, nil
}

// Vault returns the account holding escrowed funds.
func (h *Host) Vault() [20]byte { return gig.VaultAddress }

// Tokens returns the supported token symbols.
func (h *Host) Tokens() []string {
	return bank.NewLedger(nil, h.tokens).Tokens()
}

type tokenRegistry struct {
	ledger *bank.Ledger
}

func (r tokenRegistry) Token(symbol string) (gig.TokenGateway, error) {
	client, err := r.ledger.Client(symbol)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Execute runs fn as a single unit of work labelled op.
func (h *Host) Execute(ctx context.Context, op string, fn func(*Tx) error) error {
	if fn == nil {
		return errNilCall
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, span := h.tracer.Start(ctx, "gig."+op, trace.WithAttributes(attribute.String("gig.op", op)))
	defer span.End()

	start := time.Now()
	h.mu.Lock()
	err := h.run(ctx, fn)
	h.mu.Unlock()
	elapsed := time.Since(start)

	h.metrics.ObserveCall(op, err, elapsed)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.logger.WarnContext(ctx, "contract call failed", "op", op, "duration", elapsed, "error", err)
		return err
	}
	h.logger.DebugContext(ctx, "contract call", "op", op, "duration", elapsed)
	return nil
}

// Call is Execute for operations that only need the contract.
func (h *Host) Call(ctx context.Context, op string, fn func(*gig.Contract) error) error {
	if fn == nil {
		return errNilCall
	}
	return h.Execute(ctx, op, func(tx *Tx) error { return fn(tx.Contract) })
}

func (h *Host) run(ctx context.Context, fn func(*Tx) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	journal := storage.NewJournal(h.db)
	buffer := events.NewBuffer()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("host: call panicked: %v", r)
		}
		if err != nil {
			journal.Discard()
			buffer.Reset()
		}
	}()

	kv := state.NewManager(journal)
	ledger := bank.NewLedger(kv, h.tokens)
	ledger.SetEmitter(buffer)
	tx := &Tx{
		kv:   kv,
		Bank: ledger,
		Contract: gig.New(gig.Env{
			Store:   kv,
			Clock:   h.clock,
			Tokens:  tokenRegistry{ledger: ledger},
			Emitter: buffer,
		}),
	}
	if err = fn(tx); err != nil {
		return err
	}
	if err = journal.Commit(); err != nil {
		return fmt.Errorf("host: commit: %w", err)
	}
	buffer.Flush(h.emitter)
	return nil
}

// SeedGenesis mints the supplied balances the first time it runs against a
// database and reports whether it did. Later calls are no-ops.
func (h *Host) SeedGenesis(ctx context.Context, balances []GenesisBalance) (bool, error) {
	applied := false
	err := h.Execute(ctx, "genesis", func(tx *Tx) error {
		done, err := tx.kv.KVHas(genesisMarker)
		if err != nil || done {
			return err
		}
		for _, bal := range balances {
			if err := tx.Bank.Mint(bal.Token, bal.Account, bal.Amount); err != nil {
				return fmt.Errorf("host: genesis %s: %w", bal.Token, err)
			}
		}
		applied = true
		return tx.kv.KVPut(genesisMarker, true)
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}
