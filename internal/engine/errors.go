package engine

import (
	"errors"
	"fmt"
)

// Kind classifies engine errors by how the caller should surface them.
type Kind string

const (
	// KindValidation rejects operator input. Nothing was mutated.
	KindValidation Kind = "validation"
	// KindState rejects an operation that is not valid in the current phase.
	KindState Kind = "state"
	// KindPersistence reports a durability failure after a transition.
	KindPersistence Kind = "persistence"
)

// Error is the concrete type behind every sentinel in this package.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

// NewError builds a sentinel. Other packages use it for their own codes
// (the store declares its persistence errors this way).
func NewError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Validation errors
var (
	ErrTeamFull             = NewError(KindValidation, "TeamFull", "team is full")
	ErrBelowBasePrice       = NewError(KindValidation, "BelowBasePrice", "price is below base price")
	ErrInsufficientBudget   = NewError(KindValidation, "InsufficientBudget", "insufficient credits")
	ErrReserveViolated      = NewError(KindValidation, "ReserveViolated", "bid leaves too little for remaining slots")
	ErrDuplicatePlayer      = NewError(KindValidation, "DuplicatePlayer", "player already exists")
	ErrCapacityFull         = NewError(KindValidation, "CapacityFull", "roster is at capacity")
	ErrDistributionMismatch = NewError(KindValidation, "DistributionMismatch", "group sizes do not match team count")
	ErrUnassignedTeam       = NewError(KindValidation, "UnassignedTeam", "team has no group")
	ErrInvalidGroupCount    = NewError(KindValidation, "InvalidGroupCount", "invalid number of groups")
	ErrUnknownTeam          = NewError(KindValidation, "UnknownTeam", "unknown team")
	ErrUnknownPlayer        = NewError(KindValidation, "UnknownPlayer", "unknown player")
	ErrPlayerSold           = NewError(KindValidation, "PlayerSold", "player already sold")
	ErrInvalidSetup         = NewError(KindValidation, "InvalidSetup", "invalid tournament setup")
	ErrUnsupportedCommand   = NewError(KindValidation, "UnsupportedCommand", "unsupported command")
)

// State errors
var (
	ErrNothingToUndo     = NewError(KindState, "NothingToUndo", "nothing to undo")
	ErrNoCandidates      = NewError(KindState, "NoCandidates", "no players left for another round")
	ErrInvalidTransition = NewError(KindState, "InvalidTransition", "invalid transition")
	ErrAuctionComplete   = NewError(KindState, "AuctionComplete", "auction is complete")
	ErrRoundLimit        = NewError(KindState, "RoundLimit", "round limit reached")
)

// Specific invalid transitions; each matches ErrInvalidTransition with errors.Is.
var (
	ErrSpotlightHeld   = fmt.Errorf("%w: a player is already in the spotlight", ErrInvalidTransition)
	ErrNoSpotlight     = fmt.Errorf("%w: no player in the spotlight", ErrInvalidTransition)
	ErrRoundInProgress = fmt.Errorf("%w: round still has players to show", ErrInvalidTransition)
)

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// CodeOf reports the code of the first *Error in err's chain.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
