// Package diag defines the errors reported by the compiler and the virtual
// machine. Every error carries a Kind so callers can tell contract
// violations in upstream collaborators from failures of the program itself.
package diag

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sarchlab/tacvm/value"
)

// Kind classifies an error.
type Kind string

const (
	FrontEndContractViolation       Kind = "FrontEndContractViolation"
	OptimizerConstantDivisionByZero Kind = "OptimizerConstantDivisionByZero"
	CodeGenUnsupportedOpcode        Kind = "CodeGenUnsupportedOpcode"
	MalformedProgram                Kind = "MalformedProgram"
	RuntimeTypeMismatch             Kind = "RuntimeTypeMismatch"
	RuntimeDivisionByZero           Kind = "RuntimeDivisionByZero"
	ExecutionLimit                  Kind = "ExecutionLimit"
	InputFailure                    Kind = "InputFailure"
	OutputFailure                   Kind = "OutputFailure"
)

// Sentinels usable with errors.Is.
var (
	ErrFrontEndContractViolation       = &Error{Kind: FrontEndContractViolation}
	ErrOptimizerConstantDivisionByZero = &Error{Kind: OptimizerConstantDivisionByZero}
	ErrCodeGenUnsupportedOpcode        = &Error{Kind: CodeGenUnsupportedOpcode}
	ErrMalformedProgram                = &Error{Kind: MalformedProgram}
	ErrRuntimeTypeMismatch             = &Error{Kind: RuntimeTypeMismatch}
	ErrRuntimeDivisionByZero           = &Error{Kind: RuntimeDivisionByZero}
	ErrExecutionLimit                  = &Error{Kind: ExecutionLimit}
	ErrInputFailure                    = &Error{Kind: InputFailure}
	ErrOutputFailure                   = &Error{Kind: OutputFailure}
)

// IsRuntime tells if the kind is raised while executing a program.
func (k Kind) IsRuntime() bool {
	switch k {
	case MalformedProgram, RuntimeTypeMismatch, RuntimeDivisionByZero,
		ExecutionLimit, InputFailure, OutputFailure:
		return true
	default:
		return false
	}
}

// Error is the error type of every stage.
type Error struct {
	Kind    Kind
	Message string

	// Inst is the listing of the offending IR or target instruction.
	Inst string

	// PC is the failing instruction index. It is -1 for compile-time errors.
	PC int

	// Snapshot is a copy of the current frame's variable store at the time
	// of a runtime failure.
	Snapshot map[string]value.Value

	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] %s", e.Kind, e.Message)

	if e.PC >= 0 && e.Kind.IsRuntime() {
		fmt.Fprintf(&b, " at pc %d", e.PC)
	}

	if e.Inst != "" {
		fmt.Fprintf(&b, " (%s)", e.Inst)
	}

	if len(e.Snapshot) > 0 {
		b.WriteString(" store: ")
		b.WriteString(FormatStore(e.Snapshot))
	}

	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by kind, so the package sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind
}

// New creates a compile-time error of the given kind.
func New(kind Kind, inst string, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Inst:    inst,
		PC:      -1,
	}
}

// NewRuntime creates a runtime error that records the failing pc and a copy
// of the current store.
func NewRuntime(
	kind Kind,
	pc int,
	inst string,
	store map[string]value.Value,
	cause error,
	format string,
	args ...any,
) *Error {
	snapshot := make(map[string]value.Value, len(store))
	for k, v := range store {
		snapshot[k] = v
	}

	return &Error{
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Inst:     inst,
		PC:       pc,
		Snapshot: snapshot,
		Cause:    cause,
	}
}

// KindOf extracts the kind of err, or "" if err is not a diag error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return ""
}

// FormatStore renders a store as {a:5, b:10} with sorted names.
func FormatStore(store map[string]value.Value) string {
	names := make([]string, 0, len(store))
	for name := range store {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+":"+store[name].Literal())
	}

	return "{" + strings.Join(parts, ", ") + "}"
}
