package domain

import "time"

// Escrow holds the staked value for one topic. It is addressed
// deterministically from the topic, owned exclusively by the core, and only
// ever mutated inside an instruction transaction: deposits during the
// commit phase, withdrawals during settlement. Reserve is the
// platform-mandated minimum that stays in the account after settlement.
type Escrow struct {
	Address   Address   `json:"address"`
	TopicID   uint64    `json:"topic_id"`
	Balance   uint64    `json:"balance"`
	Reserve   uint64    `json:"reserve"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Deposit credits the escrow balance, failing on overflow.
func (e *Escrow) Deposit(amount uint64) error {
	next := e.Balance + amount
	if next < e.Balance {
		return ErrArithmeticOverflow
	}
	e.Balance = next
	return nil
}

// Withdraw debits the escrow balance, failing if the balance is
// insufficient. Settlement must never draw the account below zero.
func (e *Escrow) Withdraw(amount uint64) error {
	if amount > e.Balance {
		return ErrArithmeticOverflow
	}
	e.Balance -= amount
	return nil
}
