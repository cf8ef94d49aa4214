package debate

import "github.com/lorenzotomasdiez/agora/internal/apperr"

// Forbidden actions. All match apperr.ErrForbidden.
var (
	ErrAlreadyOnOtherSide = apperr.New(apperr.Forbidden, "", "already joined the other side; sides cannot be switched")
	ErrDebateClosed       = apperr.New(apperr.Forbidden, "", "debate is closed")
	ErrDebateOpen         = apperr.New(apperr.Forbidden, "", "debate is still open")
	ErrEditWindowExpired  = apperr.New(apperr.Forbidden, "", "edit window has expired")
	ErrNotAuthor          = apperr.New(apperr.Forbidden, "", "only the author may change this argument")
	ErrOwnArgument        = apperr.New(apperr.Forbidden, "", "cannot vote on your own argument")
	ErrNoSide             = apperr.New(apperr.Forbidden, "", "join a side before posting")
	ErrTie                = apperr.New(apperr.Forbidden, "", "debate ended in a tie")
)
