package match

import "errors"

// ErrCancelled reports a caller-initiated cancellation mid-pass. It is
// distinct from an empty result: a cancelled pass never returns a
// partial set as if it were complete.
var ErrCancelled = errors.New("match: pass cancelled")
