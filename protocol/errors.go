package protocol

import "fmt"

// UnknownOptionError is raised when a vote references a choice that was
// never added to the item's options (§7 UnknownOption).
type UnknownOptionError struct {
	Item   string
	Choice string
	Valid  []string
}

func (e *UnknownOptionError) Error() string {
	return fmt.Sprintf("protocol: choice %q is not a valid option for item %q (valid: %v)", e.Choice, e.Item, e.Valid)
}

// InvariantViolationError marks a state transition that would break one of
// the invariants in spec §3.4. Callers are expected to skip the offending
// mutation and keep the entity otherwise intact.
type InvariantViolationError struct {
	Invariant string
	Detail    string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("protocol: invariant %s violated: %s", e.Invariant, e.Detail)
}
