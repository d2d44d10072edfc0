package common

import (
	"errors"
	"fmt"
)

// StoreErrType classifies store failures so callers can react to them
// without parsing messages.
type StoreErrType uint32

const (
	// KeyNotFound is returned when nothing is stored under a key.
	KeyNotFound StoreErrType = iota
	// PassedIndex is returned when appending a header at an index that is
	// already occupied in a chain.
	PassedIndex
	// SkippedIndex is returned when appending a header would leave a gap in a
	// chain.
	SkippedIndex
	// UnknownParticipant is returned for agents whose chain is not known.
	UnknownParticipant
	// Empty is returned by lookups on an empty chain.
	Empty
	// KeyAlreadyExists is returned when a key may only be written once.
	KeyAlreadyExists
	// Immutable is returned when a content address is reused for different
	// bytes.
	Immutable
)

var storeErrNames = map[StoreErrType]string{
	KeyNotFound:        "Not Found",
	PassedIndex:        "Passed Index",
	SkippedIndex:       "Skipped Index",
	UnknownParticipant: "Unknown Participant",
	Empty:              "Empty",
	KeyAlreadyExists:   "Key Already Exists",
	Immutable:          "Immutable",
}

func (t StoreErrType) String() string {
	if name, ok := storeErrNames[t]; ok {
		return name
	}
	return fmt.Sprintf("StoreErrType(%d)", uint32(t))
}

// StoreErr is a failure of a store on one key of one collection.
type StoreErr struct {
	dataType string
	errType  StoreErrType
	key      string
}

// NewStoreErr builds a StoreErr. dataType names the collection, e.g.
// "EntryCache" or "Chain".
func NewStoreErr(dataType string, errType StoreErrType, key string) StoreErr {
	return StoreErr{
		dataType: dataType,
		errType:  errType,
		key:      key,
	}
}

// Type returns the class of the failure.
func (e StoreErr) Type() StoreErrType {
	return e.errType
}

// Key returns the key that failed.
func (e StoreErr) Key() string {
	return e.key
}

func (e StoreErr) Error() string {
	return fmt.Sprintf("%s, %s, %s", e.dataType, e.key, e.errType)
}

// IsStore reports whether err, or an error it wraps, is a StoreErr of type t.
func IsStore(err error, t StoreErrType) bool {
	var storeErr StoreErr
	return errors.As(err, &storeErr) && storeErr.errType == t
}
