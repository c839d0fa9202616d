package rpc

import (
	"net/http"

	"gigescrow/core"
	"gigescrow/native/gig"
	"gigescrow/storage/eventlog"
)

type gigInitializeParams struct {
	Provider string `json:"provider"`
	Deadline uint64 `json:"deadline"`
	Token    string `json:"token"`
	Rating   uint64 `json:"rating"`
}

type gigUserParams struct {
	User string `json:"user"`
}

type gigDepositParams struct {
	User   string `json:"user"`
	Amount string `json:"amount"`
}

type gigWithdrawParams struct {
	To string `json:"to"`
}

type gigRatingParams struct {
	Rating uint64 `json:"rating"`
}

type gigSkillsParams struct {
	Skills []string `json:"skills"`
}

type gigListEventsParams struct {
	Type  string `json:"type,omitempty"`
	After int64  `json:"after,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

type gigConfigJSON struct {
	Provider  string `json:"provider"`
	StartedAt uint64 `json:"startedAt"`
	Deadline  uint64 `json:"deadline"`
	Token     string `json:"token"`
	Rating    uint64 `json:"rating"`
	Claimed   bool   `json:"claimed"`
}

type gigSnapshotJSON struct {
	gigConfigJSON
	State           uint32   `json:"state"`
	Phase           string   `json:"phase"`
	User            string   `json:"user"`
	Deposited       string   `json:"deposited"`
	ContractBalance string   `json:"contractBalance"`
	Skills          []string `json:"skills"`
	Vault           string   `json:"vault"`
}

type gigMovementResult struct {
	Account         string `json:"account"`
	Deposited       string `json:"deposited"`
	ContractBalance string `json:"contractBalance"`
	State           uint32 `json:"state"`
}

func formatConfig(cfg gig.Config) gigConfigJSON {
	return gigConfigJSON{
		Provider:  formatAccount(cfg.Provider),
		StartedAt: cfg.StartedAt,
		Deadline:  cfg.Deadline,
		Token:     cfg.Token,
		Rating:    cfg.Rating,
		Claimed:   cfg.Claimed,
	}
}

// call runs fn on the host and writes either its result or the mapped error.
func (s *Server) call(w http.ResponseWriter, r *http.Request, req *RPCRequest, fn func(*core.Tx) (interface{}, error)) {
	var result interface{}
	err := s.host.Execute(r.Context(), req.Method, func(tx *core.Tx) error {
		var err error
		result, err = fn(tx)
		return err
	})
	if err != nil {
		s.writeCallError(w, req.ID, req.Method, err)
		return
	}
	writeResult(w, req.ID, result)
}

func movementResult(c *gig.Contract, account [20]byte) (interface{}, error) {
	deposited, err := c.Deposited(account)
	if err != nil {
		return nil, err
	}
	balance, err := c.ContractBalance()
	if err != nil {
		return nil, err
	}
	phase, err := c.State()
	if err != nil {
		return nil, err
	}
	return gigMovementResult{
		Account:         formatAccount(account),
		Deposited:       formatAmount(deposited),
		ContractBalance: formatAmount(balance),
		State:           phase.Ordinal(),
	}, nil
}

func (s *Server) handleGigInitialize(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params gigInitializeParams
	if !decodeParams(w, req, &params) {
		return
	}
	provider, err := parseAccount("provider", params.Provider)
	if err != nil {
		invalidParams(w, req, err)
		return
	}
	s.call(w, r, req, func(tx *core.Tx) (interface{}, error) {
		if err := tx.Contract.Initialize(provider, params.Deadline, params.Token, params.Rating); err != nil {
			return nil, err
		}
		cfg, err := tx.Contract.Config()
		if err != nil {
			return nil, err
		}
		return formatConfig(cfg), nil
	})
}

func (s *Server) handleGigProvider(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if !requireNoParams(w, req) {
		return
	}
	s.call(w, r, req, func(tx *core.Tx) (interface{}, error) {
		provider, err := tx.Contract.Provider()
		if err != nil {
			return nil, err
		}
		return formatAccount(provider), nil
	})
}

func (s *Server) handleGigDeadline(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if !requireNoParams(w, req) {
		return
	}
	s.call(w, r, req, func(tx *core.Tx) (interface{}, error) {
		return tx.Contract.Deadline()
	})
}

func (s *Server) handleGigState(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if !requireNoParams(w, req) {
		return
	}
	s.call(w, r, req, func(tx *core.Tx) (interface{}, error) {
		phase, err := tx.Contract.State()
		if err != nil {
			return nil, err
		}
		return phase.Ordinal(), nil
	})
}

func (s *Server) handleGigToken(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if !requireNoParams(w, req) {
		return
	}
	s.call(w, r, req, func(tx *core.Tx) (interface{}, error) {
		return tx.Contract.Token()
	})
}

func (s *Server) handleGigBalance(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params gigUserParams
	if !decodeParams(w, req, &params) {
		return
	}
	user, err := parseAccount("user", params.User)
	if err != nil {
		invalidParams(w, req, err)
		return
	}
	s.call(w, r, req, func(tx *core.Tx) (interface{}, error) {
		balance, err := tx.Contract.Balance(user)
		if err != nil {
			return nil, err
		}
		return formatAmount(balance), nil
	})
}

func (s *Server) handleGigDeposit(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params gigDepositParams
	if !decodeParams(w, req, &params) {
		return
	}
	user, err := parseAccount("user", params.User)
	if err != nil {
		invalidParams(w, req, err)
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		invalidParams(w, req, err)
		return
	}
	s.call(w, r, req, func(tx *core.Tx) (interface{}, error) {
		if err := tx.Contract.Deposit(user, amount); err != nil {
			return nil, err
		}
		return movementResult(tx.Contract, user)
	})
}

func (s *Server) handleGigWithdraw(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params gigWithdrawParams
	if !decodeParams(w, req, &params) {
		return
	}
	to, err := parseAccount("to", params.To)
	if err != nil {
		invalidParams(w, req, err)
		return
	}
	s.call(w, r, req, func(tx *core.Tx) (interface{}, error) {
		if err := tx.Contract.Withdraw(to); err != nil {
			return nil, err
		}
		return movementResult(tx.Contract, to)
	})
}

func (s *Server) handleGigStartedAt(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if !requireNoParams(w, req) {
		return
	}
	s.call(w, r, req, func(tx *core.Tx) (interface{}, error) {
		return tx.Contract.StartedAt()
	})
}

func (s *Server) handleGigRating(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if !requireNoParams(w, req) {
		return
	}
	s.call(w, r, req, func(tx *core.Tx) (interface{}, error) {
		return tx.Contract.Rating()
	})
}

func (s *Server) handleGigSetRating(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params gigRatingParams
	if !decodeParams(w, req, &params) {
		return
	}
	s.call(w, r, req, func(tx *core.Tx) (interface{}, error) {
		if err := tx.Contract.SetRating(params.Rating); err != nil {
			return nil, err
		}
		return tx.Contract.Rating()
	})
}

func (s *Server) handleGigSkills(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if !requireNoParams(w, req) {
		return
	}
	s.call(w, r, req, func(tx *core.Tx) (interface{}, error) {
		return tx.Contract.Skills()
	})
}

func (s *Server) handleGigSetSkills(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params gigSkillsParams
	if !decodeParams(w, req, &params) {
		return
	}
	s.call(w, r, req, func(tx *core.Tx) (interface{}, error) {
		if err := tx.Contract.SetSkills(params.Skills); err != nil {
			return nil, err
		}
		return tx.Contract.Skills()
	})
}

func (s *Server) handleGigSnapshot(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params gigUserParams
	if !decodeParams(w, req, &params) {
		return
	}
	user, err := parseAccount("user", params.User)
	if err != nil {
		invalidParams(w, req, err)
		return
	}
	s.call(w, r, req, func(tx *core.Tx) (interface{}, error) {
		snap, err := tx.Contract.Snapshot(user)
		if err != nil {
			return nil, err
		}
		return gigSnapshotJSON{
			gigConfigJSON:   formatConfig(snap.Config),
			State:           snap.Phase.Ordinal(),
			Phase:           snap.Phase.String(),
			User:            formatAccount(user),
			Deposited:       formatAmount(snap.Deposited),
			ContractBalance: formatAmount(snap.ContractBalance),
			Skills:          snap.Skills,
			Vault:           formatAccount(tx.Contract.Address()),
		}, nil
	})
}

func (s *Server) handleGigAddress(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if !requireNoParams(w, req) {
		return
	}
	writeResult(w, req.ID, formatAccount(s.host.Vault()))
}

func (s *Server) handleGigListEvents(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if s.journal == nil {
		writeError(w, http.StatusServiceUnavailable, req.ID, codeServerError, "event log disabled", nil)
		return
	}
	var params gigListEventsParams
	if len(req.Params) > 0 && !decodeParams(w, req, &params) {
		return
	}
	records, err := s.journal.List(r.Context(), eventlog.Query{Type: params.Type, AfterID: params.After, Limit: params.Limit})
	if err != nil {
		s.writeCallError(w, req.ID, req.Method, err)
		return
	}
	writeResult(w, req.ID, records)
}
