package relation

import "errors"

// Validation errors. Recoverable; never logged as failures.
var (
	ErrGuildNotFound    = errors.New("relation: guild not found")
	ErrSelfRelation     = errors.New("relation: a guild cannot target itself")
	ErrDuplicateRequest = errors.New("relation: a pending request already exists")
	ErrAlreadyAllied    = errors.New("relation: guilds are already allied")
	ErrNotAllied        = errors.New("relation: guilds are not allied")
	ErrActiveWar        = errors.New("relation: an active war already exists")
	ErrAlliedGuilds     = errors.New("relation: guilds are allied")
	ErrNotParticipant   = errors.New("relation: guild is not a war participant")
	ErrRequestNotFound  = errors.New("relation: request not found")
	ErrRequestResolved  = errors.New("relation: request already resolved")
	ErrWarNotFound      = errors.New("relation: war not found")
	ErrWarEnded         = errors.New("relation: war already ended")
)
