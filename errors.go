package classflow

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors for common operations.
var (
	// ErrNotFound is returned when a requested node or relationship does
	// not exist in the diagram.
	ErrNotFound = errors.New("classflow: not found")

	// ErrInvalidEndpoint is returned when a relationship references a node
	// id that does not exist in the diagram.
	ErrInvalidEndpoint = errors.New("classflow: invalid endpoint")

	// ErrSelfConnection is returned when a connection attempt targets its
	// own source node and the active policy disallows self-loops.
	ErrSelfConnection = errors.New("classflow: self connection")

	// ErrDuplicateRelationship is returned when an undirected node pair
	// already carries a non-note relationship.
	ErrDuplicateRelationship = errors.New("classflow: duplicate relationship")

	// ErrParse is returned when an interchange document is not well-formed.
	ErrParse = errors.New("classflow: parse error")

	// ErrEmptyDiagram is returned when an interchange document contains
	// no classes.
	ErrEmptyDiagram = errors.New("classflow: empty diagram")

	// ErrMalformedMember is returned when an attribute or method string
	// does not match the member grammar.
	ErrMalformedMember = errors.New("classflow: malformed member")

	// ErrSyncPushFailed is returned when pushing local state to the shared
	// document store fails. Local state is retained.
	ErrSyncPushFailed = errors.New("classflow: sync push failed")

	// ErrOracleUnavailable is returned when the advisory oracle cannot
	// be reached.
	ErrOracleUnavailable = errors.New("classflow: oracle unavailable")

	// ErrOracleMalformedResponse is returned when the advisory oracle
	// replies with a payload that does not match the expected schema.
	ErrOracleMalformedResponse = errors.New("classflow: oracle malformed response")
)

// NotFoundError represents an error when a node or relationship is not found.
type NotFoundError struct {
	label string
	id    string
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.id != "" {
		return fmt.Sprintf("classflow: %s not found (id=%s)", e.label, e.id)
	}
	return fmt.Sprintf("classflow: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the entity label, e.g. "node" or "relationship".
func (e *NotFoundError) Label() string {
	return e.label
}

// ID returns the id that was searched for, if available.
func (e *NotFoundError) ID() string {
	return e.id
}

// NewNotFoundError returns a new NotFoundError for the given entity label.
func NewNotFoundError(label, id string) *NotFoundError {
	return &NotFoundError{label: label, id: id}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// ConnectionError represents a rejected connection attempt between two nodes.
type ConnectionError struct {
	Source string // source node id
	Target string // target node id
	Reason error  // one of ErrInvalidEndpoint, ErrSelfConnection, ErrDuplicateRelationship
	msg    string
}

// Error returns the error string.
func (e *ConnectionError) Error() string {
	var b strings.Builder
	b.WriteString("classflow: cannot connect ")
	b.WriteString(e.Source)
	b.WriteString(" -> ")
	b.WriteString(e.Target)
	if e.msg != "" {
		b.WriteString(": ")
		b.WriteString(e.msg)
	}
	return b.String()
}

// Unwrap returns the underlying sentinel.
func (e *ConnectionError) Unwrap() error {
	return e.Reason
}

// NewConnectionError returns a new ConnectionError carrying the given sentinel.
func NewConnectionError(source, target string, reason error, msg string) *ConnectionError {
	return &ConnectionError{Source: source, Target: target, Reason: reason, msg: msg}
}

// IsInvalidEndpoint returns true if the error reports an unknown endpoint id.
func IsInvalidEndpoint(err error) bool {
	return errors.Is(err, ErrInvalidEndpoint)
}

// IsSelfConnection returns true if the error reports a rejected self-loop.
func IsSelfConnection(err error) bool {
	return errors.Is(err, ErrSelfConnection)
}

// IsDuplicateRelationship returns true if the error reports an already
// connected node pair.
func IsDuplicateRelationship(err error) bool {
	return errors.Is(err, ErrDuplicateRelationship)
}

// ParseError represents a failure to parse an interchange document.
type ParseError struct {
	Reason string // human-readable reason
	Cause  error  // underlying decoder error, if any
}

// Error returns the error string.
func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("classflow: parse error: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("classflow: parse error: %s", e.Reason)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches the parse sentinel.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// NewParseError returns a new ParseError with the given reason.
func NewParseError(reason string, cause error) *ParseError {
	return &ParseError{Reason: reason, Cause: cause}
}

// IsParseError returns true if the error is a ParseError.
func IsParseError(err error) bool {
	if err == nil {
		return false
	}
	var e *ParseError
	return errors.As(err, &e) || errors.Is(err, ErrParse)
}

// EmptyDiagramError represents an interchange document with zero classes.
type EmptyDiagramError struct {
	Source string // document description, e.g. a file name
}

// Error returns the error string.
func (e *EmptyDiagramError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("classflow: no classes found in %s", e.Source)
	}
	return "classflow: no classes found in document"
}

// Is reports whether the target matches the empty-diagram sentinel.
func (e *EmptyDiagramError) Is(target error) bool {
	return target == ErrEmptyDiagram
}

// NewEmptyDiagramError returns a new EmptyDiagramError.
func NewEmptyDiagramError(source string) *EmptyDiagramError {
	return &EmptyDiagramError{Source: source}
}

// IsEmptyDiagram returns true if the error reports a class-less document.
func IsEmptyDiagram(err error) bool {
	if err == nil {
		return false
	}
	var e *EmptyDiagramError
	return errors.As(err, &e) || errors.Is(err, ErrEmptyDiagram)
}

// MemberError represents an attribute or method string that does not match
// the member grammar. Generation skips the member and records the error as
// a warning; it is never fatal.
type MemberError struct {
	Class  string // owning class name
	Member string // offending member text
	Reason string
}

// Error returns the error string.
func (e *MemberError) Error() string {
	return fmt.Sprintf("classflow: malformed member %q on class %s: %s", e.Member, e.Class, e.Reason)
}

// Is reports whether the target matches the malformed-member sentinel.
func (e *MemberError) Is(target error) bool {
	return target == ErrMalformedMember
}

// NewMemberError returns a new MemberError.
func NewMemberError(class, member, reason string) *MemberError {
	return &MemberError{Class: class, Member: member, Reason: reason}
}

// IsMalformedMember returns true if the error is a MemberError.
func IsMalformedMember(err error) bool {
	if err == nil {
		return false
	}
	var e *MemberError
	return errors.As(err, &e) || errors.Is(err, ErrMalformedMember)
}

// PushError represents a failed push of a local field to the shared store.
// Local state is kept as-is and the next mutation retries implicitly.
type PushError struct {
	Board string // board id
	Field string // top-level field that failed to replicate
	Err   error  // underlying store error
}

// Error returns the error string.
func (e *PushError) Error() string {
	return fmt.Sprintf("classflow: push %s on board %s: %v", e.Field, e.Board, e.Err)
}

// Unwrap returns the underlying error.
func (e *PushError) Unwrap() error {
	return e.Err
}

// Is reports whether the target matches the push sentinel.
func (e *PushError) Is(target error) bool {
	return target == ErrSyncPushFailed
}

// NewPushError returns a new PushError.
func NewPushError(board, field string, err error) *PushError {
	return &PushError{Board: board, Field: field, Err: err}
}

// IsSyncPushFailed returns true if the error is a PushError.
func IsSyncPushFailed(err error) bool {
	if err == nil {
		return false
	}
	var e *PushError
	return errors.As(err, &e) || errors.Is(err, ErrSyncPushFailed)
}

// OracleError represents a failed advisory oracle exchange. Callers receive
// a degraded "could not verify" report instead of this error propagating.
type OracleError struct {
	Reason   error // ErrOracleUnavailable or ErrOracleMalformedResponse
	Detail   string
	Cause    error
	Endpoint string
}

// Error returns the error string.
func (e *OracleError) Error() string {
	var b strings.Builder
	b.WriteString("classflow: oracle")
	if e.Endpoint != "" {
		b.WriteString(" ")
		b.WriteString(e.Endpoint)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying sentinel.
func (e *OracleError) Unwrap() error {
	return e.Reason
}

// NewOracleError returns a new OracleError carrying the given sentinel.
func NewOracleError(reason error, endpoint, detail string, cause error) *OracleError {
	return &OracleError{Reason: reason, Endpoint: endpoint, Detail: detail, Cause: cause}
}

// IsOracleUnavailable returns true if the error reports an unreachable oracle.
func IsOracleUnavailable(err error) bool {
	return errors.Is(err, ErrOracleUnavailable)
}

// IsOracleMalformedResponse returns true if the error reports an oracle
// payload that failed schema validation.
func IsOracleMalformedResponse(err error) bool {
	return errors.Is(err, ErrOracleMalformedResponse)
}

// BrokenReferenceError reports a relationship whose endpoint id does not
// resolve to a node. Broken references are reported, never silently dropped.
type BrokenReferenceError struct {
	Relationship string // relationship id
	Endpoint     string // missing node id
}

// Error returns the error string.
func (e *BrokenReferenceError) Error() string {
	return fmt.Sprintf("classflow: relationship %s references missing node %s", e.Relationship, e.Endpoint)
}

// Is reports whether the target matches the invalid-endpoint sentinel.
func (e *BrokenReferenceError) Is(target error) bool {
	return target == ErrInvalidEndpoint
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "classflow: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("classflow: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}
