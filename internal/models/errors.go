package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies domain errors so callers can map them to responses.
type ErrorKind int

const (
	KindMalformedInput ErrorKind = iota + 1
	KindDuplicate
	KindConsistency
	KindNotFound
	KindValidation
)

func (k ErrorKind) String() string {
	switch k {
	case KindMalformedInput:
		return "malformed input"
	case KindDuplicate:
		return "duplicate"
	case KindConsistency:
		return "consistency"
	case KindNotFound:
		return "not found"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error is an expected, caller-recoverable domain error. Message is suitable
// for showing to an end user.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors with the same code, so a sentinel still matches after
// being re-created with extra detail through Wrap or Detail.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Detail returns a copy of e with a more specific message.
func (e *Error) Detail(format string, args ...any) *Error {
	cp := *e
	cp.Message = fmt.Sprintf("%s: %s", e.Message, fmt.Sprintf(format, args...))
	return &cp
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

func newError(kind ErrorKind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// IsKind reports whether any error in err's chain is a domain error of kind.
func IsKind(err error, kind ErrorKind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}

// Not found.
var (
	ErrTreeNotFound         = newError(KindNotFound, "tree_not_found", "tree was not found")
	ErrPersonNotFound       = newError(KindNotFound, "person_not_found", "person was not found")
	ErrFamilyNotFound       = newError(KindNotFound, "family_not_found", "family was not found")
	ErrEventNotFound        = newError(KindNotFound, "event_not_found", "event was not found")
	ErrRelationshipNotFound = newError(KindNotFound, "relationship_not_found", "relationship was not found")
)

// Duplicate singletons.
var (
	ErrDuplicateBirth       = newError(KindDuplicate, "duplicate_birth", "this person already has a birth event")
	ErrDuplicateDeath       = newError(KindDuplicate, "duplicate_death", "this person already has a death event")
	ErrDuplicateFamilyEvent = newError(KindDuplicate, "duplicate_family_event", "this family already has an event of that type")
	ErrDuplicateTreeName    = newError(KindDuplicate, "duplicate_tree_name", "a tree with that name already exists")
)

// Graph consistency violations.
var (
	ErrCrossTreeFamily         = newError(KindConsistency, "cross_tree_family", "family members must belong to the same tree as the family")
	ErrSelfRelation            = newError(KindConsistency, "self_relation", "a person cannot be related to themselves")
	ErrFatherAlreadySet        = newError(KindConsistency, "father_already_set", "this person already has a father")
	ErrMotherAlreadySet        = newError(KindConsistency, "mother_already_set", "this person already has a mother")
	ErrAlreadyParent           = newError(KindConsistency, "already_parent", "this person is already a parent of the selected child")
	ErrAlreadyPartners         = newError(KindConsistency, "already_partners", "the selected people already have a family")
	ErrChildHasParents         = newError(KindConsistency, "child_has_parents", "the selected person already has parents")
	ErrMultipleParentFamilies  = newError(KindConsistency, "multiple_parent_families", "person is linked as a child to more than one family")
	ErrLifespansDoNotOverlap   = newError(KindConsistency, "lifespans_do_not_overlap", "the selected people were not alive at the same time")
	ErrChronology              = newError(KindConsistency, "chronology", "dates are out of order")
	ErrPartnerHasChildren      = newError(KindConsistency, "partner_has_children", "cannot remove partner since they have children together")
	ErrNotFamilyMember         = newError(KindConsistency, "not_family_member", "selected family does not belong to this person")
	ErrFamilyNotReusable       = newError(KindConsistency, "family_not_reusable", "selected family already has two parents")
	ErrChildNotInFamily        = newError(KindConsistency, "child_not_in_family", "selected child does not belong to the single-parent family")
	ErrInvalidRelationshipKind = newError(KindValidation, "invalid_relationship_kind", "invalid relationship type")
)

// Input validation.
var (
	ErrInvalidPerson     = newError(KindValidation, "invalid_person", "invalid person")
	ErrInvalidTree       = newError(KindValidation, "invalid_tree", "invalid tree")
	ErrInvalidEventType  = newError(KindValidation, "invalid_event_type", "invalid event type")
	ErrInvalidEvent      = newError(KindValidation, "invalid_event", "invalid event")
	ErrEmptyEvent        = newError(KindValidation, "empty_event", "you must fill out at least one of the fields")
	ErrUnresolvedXref    = newError(KindMalformedInput, "unresolved_xref", "GEDCOM cross-reference points to an undefined record")
	ErrMalformedDocument = newError(KindMalformedInput, "malformed_document", "GEDCOM document could not be parsed")
)
