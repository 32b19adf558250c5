package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Class groups errors by how the caller should react to them.
type Class string

const (
	ClassValidation Class = "validation"
	ClassConflict   Class = "conflict"
	ClassFunds      Class = "funds"
	ClassNotFound   Class = "not_found"
	ClassExternal   Class = "external"
	ClassInternal   Class = "internal"
)

type classified struct {
	msg   string
	class Class
}

func (e *classified) Error() string { return e.msg }

func newError(class Class, msg string) error {
	return &classified{msg: msg, class: class}
}

var (
	ErrInvalidAmount       = newError(ClassValidation, "amount must be positive")
	ErrNoPositions         = newError(ClassValidation, "at least one position is required")
	ErrInvalidTeamLabel    = newError(ClassValidation, "team labels must not contain '-'")
	ErrMissingPlayerName   = newError(ClassValidation, "missing player names")
	ErrBelowMinimum        = newError(ClassValidation, "amount is below the minimum withdrawal")
	ErrDestinationRequired = newError(ClassValidation, "withdrawal destination is required")
	ErrReasonRequired      = newError(ClassValidation, "rejection reason is required")
	ErrInvalidReferralCode = newError(ClassValidation, "invalid referral code")
	ErrInvalidPayload      = newError(ClassValidation, "invalid payment payload")
	ErrInvalidSlot         = newError(ClassValidation, "invalid slot data")
	ErrInvalidWinner       = newError(ClassValidation, "invalid winner data")

	ErrPositionConflict       = newError(ClassConflict, "positions already booked")
	ErrAmountMismatch         = newError(ClassValidation, "amount mismatch")
	ErrSlotFull               = newError(ClassConflict, "slot is full")
	ErrSlotClosed             = newError(ClassConflict, "slot is not open for booking")
	ErrFreeMatchLimitExceeded = newError(ClassConflict, "free match allows one position per user")
	ErrDuplicateReference     = newError(ClassConflict, "external reference already recorded")

	ErrInsufficientFunds      = newError(ClassFunds, "insufficient balance")
	ErrInsufficientWinBalance = newError(ClassFunds, "insufficient win balance")

	ErrNotFound           = newError(ClassNotFound, "not found")
	ErrAccountNotFound    = newError(ClassNotFound, "account not found")
	ErrSlotNotFound       = newError(ClassNotFound, "slot not found")
	ErrWithdrawalNotFound = newError(ClassNotFound, "withdrawal request not found or already processed")

	ErrGatewayUnavailable = newError(ClassExternal, "payment gateway unavailable")
	ErrInvalidSignature   = newError(ClassExternal, "invalid payment signature")
)

// Is lets every not-found flavour match ErrNotFound.
func (e *classified) Is(target error) bool {
	t, ok := target.(*classified)
	if !ok {
		return false
	}
	if e == t {
		return true
	}
	return t == ErrNotFound && e.class == ClassNotFound
}

// ClassOf reports the class of err, or ClassInternal when err is not one of ours.
func ClassOf(err error) Class {
	var c *classified
	if errors.As(err, &c) {
		return c.class
	}
	var pc *PositionConflictError
	if errors.As(err, &pc) {
		return ClassConflict
	}
	var mn *MissingPlayerNamesError
	if errors.As(err, &mn) {
		return ClassValidation
	}
	var am *AmountMismatchError
	if errors.As(err, &am) {
		return ClassValidation
	}
	return ClassInternal
}

// PositionConflictError lists the team-position pairs another booking already holds.
type PositionConflictError struct {
	Pairs []string
}

func (e *PositionConflictError) Error() string {
	return "some positions are already booked: " + strings.Join(e.Pairs, ", ")
}

func (e *PositionConflictError) Is(target error) bool { return target == ErrPositionConflict }

type MissingPlayerNamesError struct {
	Keys []string
}

func (e *MissingPlayerNamesError) Error() string {
	return "missing player names for positions: " + strings.Join(e.Keys, ", ")
}

func (e *MissingPlayerNamesError) Is(target error) bool { return target == ErrMissingPlayerName }

type AmountMismatchError struct {
	Expected decimal.Decimal
	Declared decimal.Decimal
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("amount mismatch: expected %s, received %s", e.Expected.StringFixed(2), e.Declared.StringFixed(2))
}

func (e *AmountMismatchError) Is(target error) bool { return target == ErrAmountMismatch }

// Details returns the machine-readable part of a detail-carrying error.
func Details(err error) interface{} {
	var pc *PositionConflictError
	if errors.As(err, &pc) {
		return fields{"positions": pc.Pairs}
	}
	var mn *MissingPlayerNamesError
	if errors.As(err, &mn) {
		return fields{"positions": mn.Keys}
	}
	var am *AmountMismatchError
	if errors.As(err, &am) {
		return fields{"expected": am.Expected, "received": am.Declared}
	}
	return nil
}

type fields = map[string]interface{}
