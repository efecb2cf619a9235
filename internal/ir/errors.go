package ir

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes configuration errors.
type ErrorCode string

const (
	// ErrCodeMalformedCoordinate: coordinate text does not split into group:name:version.
	ErrCodeMalformedCoordinate ErrorCode = "MALFORMED_COORDINATE"

	// ErrCodeDuplicatePlugin: a plugin id was registered twice in one registry.
	ErrCodeDuplicatePlugin ErrorCode = "DUPLICATE_PLUGIN"

	// ErrCodeUnknownPlugin: a plugin id was applied but never registered.
	ErrCodeUnknownPlugin ErrorCode = "UNKNOWN_PLUGIN"

	// ErrCodeConflictingTaskDefinition: two plugins contribute one task name with different types.
	ErrCodeConflictingTaskDefinition ErrorCode = "CONFLICTING_TASK_DEFINITION"

	// ErrCodeDescriptorFinalized: a mutation call arrived after finalization.
	ErrCodeDescriptorFinalized ErrorCode = "DESCRIPTOR_FINALIZED"

	// ErrCodeResolutionFailure: the external resolver could not resolve a coordinate.
	ErrCodeResolutionFailure ErrorCode = "RESOLUTION_FAILURE"

	// ErrCodeUnknownScope: a dependency names a scope no applied plugin binds.
	ErrCodeUnknownScope ErrorCode = "UNKNOWN_SCOPE"

	// ErrCodeMissingVersion: a managed dependency has no platform in its scope.
	ErrCodeMissingVersion ErrorCode = "MISSING_VERSION"

	// ErrCodeVersionConflict: two versions of one module under the fail-on-conflict policy.
	ErrCodeVersionConflict ErrorCode = "VERSION_CONFLICT"

	// ErrCodeIdentityReassigned: an identity field was rewritten under the reject policy.
	ErrCodeIdentityReassigned ErrorCode = "IDENTITY_REASSIGNED"

	// ErrCodeUnknownPlatform: the test platform selector does not know the id.
	ErrCodeUnknownPlatform ErrorCode = "UNKNOWN_PLATFORM"

	// ErrCodeInvalidEffect: a declarative effect cannot be built.
	ErrCodeInvalidEffect ErrorCode = "INVALID_EFFECT"

	// ErrCodeMutationFailed: an effect returned an error while running against a task.
	ErrCodeMutationFailed ErrorCode = "MUTATION_FAILED"

	// ErrCodeInvalidDeclaration: a declaration is missing required arguments.
	ErrCodeInvalidDeclaration ErrorCode = "INVALID_DECLARATION"
)

// Error is the single error type raised by the configuration core.
//
// Subject names the offending identifier: the coordinate text, plugin
// id, task name, scope or operation. Origin is the source position of
// the declaration that caused it, when known.
type Error struct {
	Code    ErrorCode
	Message string
	Subject string
	Origin  string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Subject != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Subject)
	}
	if e.Origin != "" {
		msg = fmt.Sprintf("%s: %s", e.Origin, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithOrigin returns a copy of the error located at origin.
// An origin already set is kept.
func (e *Error) WithOrigin(origin string) *Error {
	if e.Origin != "" || origin == "" {
		return e
	}
	cp := *e
	cp.Origin = origin
	return &cp
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// Locate attaches origin to err if it is an *Error without one.
// Other errors are returned unchanged.
func Locate(err error, origin string) error {
	var e *Error
	if origin == "" || !errors.As(err, &e) {
		return err
	}
	if e.Origin != "" {
		return err
	}
	return e.WithOrigin(origin)
}

func IsMalformedCoordinate(err error) bool { return IsCode(err, ErrCodeMalformedCoordinate) }
func IsDuplicatePlugin(err error) bool     { return IsCode(err, ErrCodeDuplicatePlugin) }
func IsUnknownPlugin(err error) bool       { return IsCode(err, ErrCodeUnknownPlugin) }
func IsConflictingTask(err error) bool     { return IsCode(err, ErrCodeConflictingTaskDefinition) }
func IsDescriptorFinalized(err error) bool { return IsCode(err, ErrCodeDescriptorFinalized) }
func IsResolutionFailure(err error) bool   { return IsCode(err, ErrCodeResolutionFailure) }

// NewMalformedCoordinate reports coordinate text that cannot be parsed.
func NewMalformedCoordinate(text, reason string) *Error {
	return &Error{
		Code:    ErrCodeMalformedCoordinate,
		Message: reason,
		Subject: text,
	}
}

// NewDuplicatePlugin reports a second registration of id.
func NewDuplicatePlugin(id string) *Error {
	return &Error{
		Code:    ErrCodeDuplicatePlugin,
		Message: "plugin already registered",
		Subject: id,
	}
}

// NewUnknownPlugin reports an application of an unregistered id.
func NewUnknownPlugin(id string) *Error {
	return &Error{
		Code:    ErrCodeUnknownPlugin,
		Message: "plugin is not registered",
		Subject: id,
	}
}

// NewConflictingTask reports one task name contributed with two types.
func NewConflictingTask(task, firstType, firstPlugin, secondType, secondPlugin string) *Error {
	return &Error{
		Code: ErrCodeConflictingTaskDefinition,
		Message: fmt.Sprintf("task type %q from plugin %q conflicts with type %q from plugin %q",
			firstType, firstPlugin, secondType, secondPlugin),
		Subject: task,
	}
}

// NewDescriptorFinalized reports a mutation call after finalization.
func NewDescriptorFinalized(op string) *Error {
	return &Error{
		Code:    ErrCodeDescriptorFinalized,
		Message: "configuration is finalized and read-only",
		Subject: op,
	}
}

// NewResolutionFailure wraps a resolver failure for coordinate.
func NewResolutionFailure(coordinate string, cause error) *Error {
	return &Error{
		Code:    ErrCodeResolutionFailure,
		Message: "could not resolve dependency",
		Subject: coordinate,
		Err:     cause,
	}
}

// NewUnknownScope reports a dependency declared in an unbound scope.
func NewUnknownScope(scope Scope, coordinate string) *Error {
	return &Error{
		Code:    ErrCodeUnknownScope,
		Message: fmt.Sprintf("no applied plugin declares scope %q", scope),
		Subject: coordinate,
	}
}

// NewMissingVersion reports a managed dependency without a platform.
func NewMissingVersion(scope Scope, coordinate string) *Error {
	return &Error{
		Code:    ErrCodeMissingVersion,
		Message: fmt.Sprintf("managed dependency has no platform in scope %q", scope),
		Subject: coordinate,
	}
}

// NewVersionConflict reports two versions of one module in a scope.
func NewVersionConflict(scope Scope, existing, incoming string) *Error {
	return &Error{
		Code:    ErrCodeVersionConflict,
		Message: fmt.Sprintf("scope %q already declares %s", scope, existing),
		Subject: incoming,
	}
}

// NewIdentityReassigned reports a rewrite of an identity field.
func NewIdentityReassigned(field, existing, incoming string) *Error {
	return &Error{
		Code:    ErrCodeIdentityReassigned,
		Message: fmt.Sprintf("%s already set to %q, refusing %q", field, existing, incoming),
		Subject: field,
	}
}

// NewUnknownPlatform reports a test platform id the selector does not know.
func NewUnknownPlatform(id string) *Error {
	return &Error{
		Code:    ErrCodeUnknownPlatform,
		Message: "test platform is not available",
		Subject: id,
	}
}

// NewInvalidEffect reports a declarative effect that cannot be built.
func NewInvalidEffect(op, reason string) *Error {
	return &Error{
		Code:    ErrCodeInvalidEffect,
		Message: reason,
		Subject: op,
	}
}

// NewMutationFailed wraps an effect failure on task.
func NewMutationFailed(mutation, task string, cause error) *Error {
	return &Error{
		Code:    ErrCodeMutationFailed,
		Message: fmt.Sprintf("mutation %q failed", mutation),
		Subject: task,
		Err:     cause,
	}
}

// NewInvalidDeclaration reports a declaration missing required arguments.
func NewInvalidDeclaration(kind DeclKind, reason string) *Error {
	return &Error{
		Code:    ErrCodeInvalidDeclaration,
		Message: reason,
		Subject: string(kind),
	}
}
