package attendance

import "errors"

// ErrSequence is returned for a check-out with no prior check-in on the
// same attendance date. User-correctable; state is left unchanged.
var ErrSequence = errors.New("must check in before checking out")
