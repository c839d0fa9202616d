package rpc

import (
	"context"
	"errors"
	"net/http"

	"gigescrow/native/bank"
	"gigescrow/native/gig"
)

const (
	codeGigNotInitialized     = -32030
	codeGigAlreadyInitialized = -32031
	codeGigInvalidAmount      = -32032
	codeGigEscrowClosed       = -32033
	codeGigEscrowOpen         = -32034
	codeGigNotAuthorized      = -32035
	codeGigAlreadyClaimed     = -32036
	codeGigOver               = -32037
	codeGigInvalidRating      = -32038
	codeGigDivisionByZero     = -32039
	codeGigVaultAccount       = -32040

	codeBankInsufficientBalance = -32041
	codeBankUnsupportedToken    = -32042
	codeBankInvalidAmount       = -32043
)

type errorMapping struct {
	target error
	status int
	code   int
}

var callErrorMappings = []errorMapping{
	{gig.ErrNotInitialized, http.StatusNotFound, codeGigNotInitialized},
	{gig.ErrAlreadyInitialized, http.StatusConflict, codeGigAlreadyInitialized},
	{gig.ErrInvalidAmount, http.StatusBadRequest, codeGigInvalidAmount},
	{gig.ErrEscrowClosed, http.StatusConflict, codeGigEscrowClosed},
	{gig.ErrEscrowOpen, http.StatusConflict, codeGigEscrowOpen},
	{gig.ErrNotAuthorized, http.StatusForbidden, codeGigNotAuthorized},
	{gig.ErrAlreadyClaimed, http.StatusConflict, codeGigAlreadyClaimed},
	{gig.ErrGigOver, http.StatusConflict, codeGigOver},
	{gig.ErrInvalidRating, http.StatusBadRequest, codeGigInvalidRating},
	{gig.ErrDivisionByZero, http.StatusConflict, codeGigDivisionByZero},
	{gig.ErrVaultAccount, http.StatusForbidden, codeGigVaultAccount},
	{gig.ErrInvalidToken, http.StatusBadRequest, codeInvalidParams},
	{bank.ErrInsufficientBalance, http.StatusConflict, codeBankInsufficientBalance},
	{bank.ErrUnsupportedToken, http.StatusBadRequest, codeBankUnsupportedToken},
	{bank.ErrInvalidAmount, http.StatusBadRequest, codeBankInvalidAmount},
}

// classifyError maps a host error to an HTTP status and JSON-RPC code.
func classifyError(err error) (int, int) {
	for _, m := range callErrorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable, codeServerError
	}
	return http.StatusInternalServerError, codeServerError
}

func (s *Server) writeCallError(w http.ResponseWriter, id interface{}, method string, err error) {
	status, code := classifyError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("rpc call failed", "method", method, "error", err)
	}
	writeError(w, status, id, code, err.Error(), nil)
}
