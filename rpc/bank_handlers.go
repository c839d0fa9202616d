package rpc

import (
	"net/http"

	"gigescrow/core"
)

type bankBalanceParams struct {
	Token   string `json:"token"`
	Account string `json:"account"`
}

type bankMintParams struct {
	Token   string `json:"token"`
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

type bankTransferParams struct {
	Token  string `json:"token"`
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type bankBalanceResult struct {
	Token   string `json:"token"`
	Account string `json:"account"`
	Balance string `json:"balance"`
}

func (s *Server) handleBankBalance(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params bankBalanceParams
	if !decodeParams(w, req, &params) {
		return
	}
	account, err := parseAccount("account", params.Account)
	if err != nil {
		invalidParams(w, req, err)
		return
	}
	s.call(w, r, req, func(tx *core.Tx) (interface{}, error) {
		return balanceResult(tx, params.Token, account)
	})
}

func (s *Server) handleBankMint(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params bankMintParams
	if !decodeParams(w, req, &params) {
		return
	}
	account, err := parseAccount("account", params.Account)
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
		if err := tx.Bank.Mint(params.Token, account, amount); err != nil {
			return nil, err
		}
		return balanceResult(tx, params.Token, account)
	})
}

func (s *Server) handleBankTransfer(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params bankTransferParams
	if !decodeParams(w, req, &params) {
		return
	}
	from, err := parseAccount("from", params.From)
	if err != nil {
		invalidParams(w, req, err)
		return
	}
	to, err := parseAccount("to", params.To)
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
		if err := tx.Bank.Transfer(params.Token, from, to, amount); err != nil {
			return nil, err
		}
		return balanceResult(tx, params.Token, to)
	})
}

func balanceResult(tx *core.Tx, token string, account [20]byte) (interface{}, error) {
	symbol, err := tx.Bank.Supported(token)
	if err != nil {
		return nil, err
	}
	balance, err := tx.Bank.Balance(symbol, account)
	if err != nil {
		return nil, err
	}
	return bankBalanceResult{Token: symbol, Account: formatAccount(account), Balance: formatAmount(balance)}, nil
}
