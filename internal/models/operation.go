package models

import "fmt"

// Operation is the kind of change captured in a queue entry.
type Operation string

const (
	OpUpsert Operation = "upsert"
	OpDelete Operation = "delete"
)

// ParseOperation validates a stored operation value.
func ParseOperation(s string) (Operation, error) {
	switch Operation(s) {
	case OpUpsert:
		return OpUpsert, nil
	case OpDelete:
		return OpDelete, nil
	default:
		return "", fmt.Errorf("unknown operation %q", s)
	}
}

func (o Operation) String() string { return string(o) }
