package validation

import (
	"errors"
	"fmt"
)

// ErrType classifies validation failures.
type ErrType uint32

const (
	// SelfClaim: an agent vouches for itself.
	SelfClaim ErrType = iota
	// MissingAgentIdentity: the package does not hold exactly one AgentID.
	MissingAgentIdentity
	// MissingCountersignature: a claim on the recipient's chain lacks a
	// signature from the recipient or the issuer.
	MissingCountersignature
	// IssuerNotCredentialed: the issuer does not hold the credential it
	// vouches for.
	IssuerNotCredentialed
	// UnauthorizedWriter: the chain is not allowed to carry the entry.
	UnauthorizedWriter
	// BadgeClassNotInChain: the referenced class is not in the package.
	BadgeClassNotInChain
	// InsufficientClaims: the quorum of the class is not reached.
	InsufficientClaims
	// ImmutableEntryViolation: an update or delete of an immutable entry.
	ImmutableEntryViolation
	// LinkDeletionForbidden: links are never removed.
	LinkDeletionForbidden
	// ReferenceNotFound: a referenced address cannot be resolved.
	ReferenceNotFound
	// MissingCreatorSignature: a class is committed without its creator's
	// signature while the policy requires it.
	MissingCreatorSignature
	// UnknownLinkType: the link type is not part of the graph.
	UnknownLinkType
	// LinkMismatch: the link base does not match the referenced entry.
	LinkMismatch
	// NonEmptyInitialBadge: a legacy badge is created with issuers or
	// evidences.
	NonEmptyInitialBadge
	// ImmutableBadgeField: a legacy badge update changes its recipient or
	// class.
	ImmutableBadgeField
	// IssuerListTampered: the recipient of a legacy badge changes its issuers.
	IssuerListTampered
	// InvalidIssuerAppend: a legacy badge update does not append exactly one
	// issuer.
	InvalidIssuerAppend
	// MalformedEntry: the entry breaks a structural rule of its kind.
	MalformedEntry
)

var errCodes = map[ErrType]string{
	SelfClaim:               "SelfClaimError",
	MissingAgentIdentity:    "MissingAgentIdentity",
	MissingCountersignature: "MissingCountersignature",
	IssuerNotCredentialed:   "IssuerNotCredentialed",
	UnauthorizedWriter:      "UnauthorizedWriter",
	BadgeClassNotInChain:    "BadgeClassNotInChain",
	InsufficientClaims:      "InsufficientClaims",
	ImmutableEntryViolation: "ImmutableEntryViolation",
	LinkDeletionForbidden:   "LinkDeletionForbidden",
	ReferenceNotFound:       "ReferenceNotFound",
	MissingCreatorSignature: "MissingCreatorSignature",
	UnknownLinkType:         "UnknownLinkType",
	LinkMismatch:            "LinkMismatch",
	NonEmptyInitialBadge:    "NonEmptyInitialBadge",
	ImmutableBadgeField:     "ImmutableBadgeField",
	IssuerListTampered:      "IssuerListTampered",
	InvalidIssuerAppend:     "InvalidIssuerAppend",
	MalformedEntry:          "MalformedEntry",
}

// String returns the stable code of the error type.
func (t ErrType) String() string {
	if c, ok := errCodes[t]; ok {
		return c
	}
	return fmt.Sprintf("ValidationError(%d)", uint32(t))
}

// Err is a terminal validation failure.
type Err struct {
	errType  ErrType
	msg      string
	required int
	actual   int
}

func newErr(t ErrType, format string, args ...interface{}) Err {
	return Err{errType: t, msg: fmt.Sprintf(format, args...)}
}

func insufficientClaims(required, actual int) Err {
	return Err{
		errType:  InsufficientClaims,
		msg:      fmt.Sprintf("%d matching claims required, %d found", required, actual),
		required: required,
		actual:   actual,
	}
}

// Error implements the error interface.
func (e Err) Error() string {
	return fmt.Sprintf("%s: %s", e.errType, e.msg)
}

// Type returns the class of the failure.
func (e Err) Type() ErrType {
	return e.errType
}

// Code returns the stable code of the failure.
func (e Err) Code() string {
	return e.errType.String()
}

// Message returns the detail of the failure, without its code.
func (e Err) Message() string {
	return e.msg
}

// Required is the quorum of an InsufficientClaims failure.
func (e Err) Required() int {
	return e.required
}

// Actual is the number of matching claims of an InsufficientClaims failure.
func (e Err) Actual() int {
	return e.actual
}

// Is checks that err is, or wraps, a validation Err of type t.
func Is(err error, t ErrType) bool {
	var verr Err
	return errors.As(err, &verr) && verr.errType == t
}

// As returns the validation Err wrapped in err, if any.
func As(err error) (Err, bool) {
	var verr Err
	ok := errors.As(err, &verr)
	return verr, ok
}
