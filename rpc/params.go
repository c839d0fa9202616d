package rpc

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"gigescrow/crypto"
)

// decodeParams expects exactly one parameter object.
func decodeParams(w http.ResponseWriter, req *RPCRequest, out interface{}) bool {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", "exactly one parameter object expected")
		return false
	}
	dec := json.NewDecoder(strings.NewReader(string(req.Params[0])))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return false
	}
	return true
}

// requireNoParams rejects any parameters on nullary methods.
func requireNoParams(w http.ResponseWriter, req *RPCRequest) bool {
	if len(req.Params) != 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", "method takes no parameters")
		return false
	}
	return true
}

func invalidParams(w http.ResponseWriter, req *RPCRequest, err error) {
	writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
}

func parseAccount(field, value string) ([20]byte, error) {
	account, err := crypto.ParseAccount(value)
	if err != nil {
		return [20]byte{}, fmt.Errorf("%s: %w", field, err)
	}
	return account, nil
}

// parseAmount parses a base-10 integer. The sign is left to the callee.
func parseAmount(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	return amount, nil
}

func formatAccount(addr [20]byte) string {
	return crypto.FromArray(addr).String()
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
