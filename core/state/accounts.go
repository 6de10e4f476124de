package state

import (
	"fmt"

	"escrowmarket/core/types"
)

var accountPrefix = []byte("account:")

func accountKey(addr [20]byte) []byte {
	return hashKey(accountPrefix, addr[:])
}

// Account returns the ledger record for addr. Unknown accounts are returned
// zero-valued.
func (m *Manager) Account(addr [20]byte) (*types.Account, error) {
	account := new(types.Account)
	if _, err := m.getRLP(accountKey(addr), account); err != nil {
		return nil, err
	}
	return account, nil
}

// PutAccount stores the ledger record for addr.
func (m *Manager) PutAccount(addr [20]byte, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("state: nil account")
	}
	return m.putRLP(accountKey(addr), account)
}

// IncrementNonce checks that nonce is the next expected value for addr and
// advances it.
func (m *Manager) IncrementNonce(addr [20]byte, nonce uint64) error {
	account, err := m.Account(addr)
	if err != nil {
		return err
	}
	if account.Nonce != nonce {
		return fmt.Errorf("%w: expected %d, got %d", ErrNonceMismatch, account.Nonce, nonce)
	}
	account.Nonce++
	return m.PutAccount(addr, account)
}

// Credit adds amount to the balance of addr. It is used for genesis
// allocations; transitions move funds with Transfer.
func (m *Manager) Credit(addr [20]byte, amount uint64) error {
	account, err := m.Account(addr)
	if err != nil {
		return err
	}
	if account.Balance+amount < account.Balance {
		return ErrBalanceOverflow
	}
	account.Balance += amount
	return m.PutAccount(addr, account)
}

// Transfer moves amount of native currency from one account to another. Only
// the unreserved part of the sender's balance may move.
func (m *Manager) Transfer(from, to [20]byte, amount uint64) error {
	sender, err := m.Account(from)
	if err != nil {
		return err
	}
	if sender.Available() < amount {
		return fmt.Errorf("%w: available %d, need %d", ErrInsufficientBalance, sender.Available(), amount)
	}
	if from == to || amount == 0 {
		return nil
	}
	recipient, err := m.Account(to)
	if err != nil {
		return err
	}
	if recipient.Balance+amount < recipient.Balance {
		return ErrBalanceOverflow
	}
	sender.Balance -= amount
	recipient.Balance += amount
	if err := m.PutAccount(from, sender); err != nil {
		return err
	}
	return m.PutAccount(to, recipient)
}

// Reserve locks amount of the account's available balance.
func (m *Manager) Reserve(addr [20]byte, amount uint64) error {
	account, err := m.Account(addr)
	if err != nil {
		return err
	}
	if account.Available() < amount {
		return fmt.Errorf("%w: cannot reserve %d of %d", ErrInsufficientBalance, amount, account.Available())
	}
	account.Reserved += amount
	return m.PutAccount(addr, account)
}

// Release unlocks amount of previously reserved balance.
func (m *Manager) Release(addr [20]byte, amount uint64) error {
	account, err := m.Account(addr)
	if err != nil {
		return err
	}
	if account.Reserved < amount {
		return fmt.Errorf("%w: reserved %d, release %d", ErrReleaseExceeded, account.Reserved, amount)
	}
	account.Reserved -= amount
	return m.PutAccount(addr, account)
}
