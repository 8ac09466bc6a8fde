package guild

import "errors"

// Validation errors. Recoverable; returned to the caller for user-facing
// messaging and never logged as failures.
var (
	ErrNotFound        = errors.New("guild: not found")
	ErrDuplicateName   = errors.New("guild: name already taken")
	ErrDuplicateTag    = errors.New("guild: tag already taken")
	ErrInvalidName     = errors.New("guild: invalid name")
	ErrInvalidTag      = errors.New("guild: invalid tag")
	ErrAlreadyInGuild  = errors.New("guild: player already belongs to a guild")
	ErrNotMember       = errors.New("guild: player is not a member")
	ErrLastOwner       = errors.New("guild: guild must keep exactly one owner")
	ErrInvalidRole     = errors.New("guild: invalid role")
	ErrInvalidAmount   = errors.New("guild: amount must be positive")
	ErrBankFull        = errors.New("guild: bank capacity exceeded")
	ErrInsufficientGold = errors.New("guild: insufficient bank balance")
	ErrRequestNotFound = errors.New("guild: join request not found")
	ErrRequestResolved = errors.New("guild: join request already resolved")
)
