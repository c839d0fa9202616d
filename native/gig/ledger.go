package gig

import "math/big"

// Deposited returns the amount the contract owes user, zero when absent.
func (c *Contract) Deposited(user [20]byte) (*big.Int, error) {
	amount := new(big.Int)
	ok, err := c.get(UserKey(user), amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return amount, nil
}

// setDeposited overwrites the ledger entry of user.
func (c *Contract) setDeposited(user [20]byte, amount *big.Int) error {
	return c.put(UserKey(user), cloneBigInt(amount))
}

// ContractBalance returns the escrowed token balance held by the vault.
func (c *Contract) ContractBalance() (*big.Int, error) {
	gateway, _, err := c.gateway()
	if err != nil {
		return nil, err
	}
	return gateway.Balance(c.self)
}
