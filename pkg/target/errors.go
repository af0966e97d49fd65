package target

import "errors"

// Error kinds surfaced by parsing and resolution. Callers branch with
// errors.Is; wrapped messages carry the offending letter, name or token
// position.
var (
	ErrSyntax           = errors.New("target: syntax error")
	ErrUnknownMatcher   = errors.New("target: unknown matcher type")
	ErrUnknownNodegroup = errors.New("target: unknown nodegroup")
)
