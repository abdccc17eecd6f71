// Sentinel errors shared by every feature module. Handlers match on these
// to decide what the user sees; anything that is not one of them is treated
// as an infrastructure failure.
package common

import (
	"errors"
	"fmt"
	"time"
)

// Economy errors (balances, transfers, gated actions)
var (
	// ErrInsufficientFunds: the requested debit exceeds the available balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrSelfTransfer: attempt to give money to or rob funds from oneself.
	ErrSelfTransfer = errors.New("cannot target yourself")
	// ErrInvalidAmount: amount is zero, negative or unparseable.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrCooldownActive: the action was attempted before its cooldown expired.
	ErrCooldownActive = errors.New("action is on cooldown")
	// ErrTargetIneligible: the rob target holds less cash than the minimum threshold.
	ErrTargetIneligible = errors.New("target does not have enough cash to rob")
)

// Configuration errors
var (
	// ErrUnknownSetting: the override key is not a recognized setting.
	ErrUnknownSetting = errors.New("unknown setting")
	// ErrSettingOutOfRange: rate outside [0,1] or min greater than max.
	ErrSettingOutOfRange = errors.New("setting value out of range")
)

// Admin errors
var (
	// ErrNotAdmin: the caller is not a guild administrator.
	ErrNotAdmin = errors.New("administrator permissions required")
)

// CooldownError carries how long the caller still has to wait. It matches
// ErrCooldownActive under errors.Is so handlers can switch on the sentinel
// and still format the remaining time.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("on cooldown for another %s", e.Remaining)
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldownActive
}
