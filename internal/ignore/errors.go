package ignore

import "fmt"

// InvalidPatternError is returned by Compile. The caller's previous matcher
// stays in effect.
type InvalidPatternError struct {
	Pattern string
	Reason  string
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid ignore pattern %q: %s", e.Pattern, e.Reason)
}
