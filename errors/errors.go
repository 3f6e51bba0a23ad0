package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseLayout   Phase = "layout"   // descriptor compilation
	PhaseEncode   Phase = "encode"   // Go to native
	PhaseDecode   Phase = "decode"   // native to Go
	PhaseCall     Phase = "call"     // foreign calls
	PhaseCallback Phase = "callback" // trampoline install/dispatch
	PhaseHandle   Phase = "handle"   // handle registry
	PhaseResource Phase = "resource" // resource wrappers
	PhaseProperty Phase = "property" // property bags
	PhaseCatalog  Phase = "catalog"  // catalog loading and binding
	PhaseLoad     Phase = "load"     // library loading
)

// Kind categorizes the error
type Kind string

const (
	KindLayoutMismatch    Kind = "layout_mismatch"
	KindTypeMismatch      Kind = "type_mismatch"
	KindIndexOutOfRange   Kind = "index_out_of_range"
	KindUseAfterDestroy   Kind = "use_after_destroy"
	KindNativeCallFailed  Kind = "native_call_failed"
	KindSymbolUnavailable Kind = "symbol_unavailable"
	KindInvalidData       Kind = "invalid_data"
	KindUnsupported       Kind = "unsupported"
	KindAllocation        Kind = "allocation"
	KindFieldMissing      Kind = "field_missing"
	KindFieldUnknown      Kind = "field_unknown"
	KindOverflow          Kind = "overflow"
	KindNilPointer        Kind = "nil_pointer"
	KindInvalidEnum       Kind = "invalid_enum"
	KindInvalidVariant    Kind = "invalid_variant"
	KindNotFound          Kind = "not_found"
	KindNotInitialized    Kind = "not_initialized"
	KindInvalidInput      Kind = "invalid_input"
	KindClosed            Kind = "closed"
)

// Error is the structured error type used throughout the interop core
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	GoType string
	CType  string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.CType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.CType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", C type ")
			b.WriteString(e.CType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("C type ")
			b.WriteString(e.CType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.CType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// HasKind reports whether any *Error in err's chain has the given kind,
// regardless of phase.
func HasKind(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Cause
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// CType sets the C type name
func (b *Builder) CType(t string) *Builder {
	b.err.CType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for the interop taxonomy

// LayoutMismatch creates an error for a buffer that cannot hold a layout
func LayoutMismatch(phase Phase, layout string, need, have uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindLayoutMismatch,
		CType:  layout,
		Detail: fmt.Sprintf("buffer holds %d bytes, layout needs %d", have, need),
		Value:  have,
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, goType, cType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Path:   path,
		GoType: goType,
		CType:  cType,
	}
}

// IndexOutOfRange creates an error for a structural index outside [−1, length]
func IndexOutOfRange(phase Phase, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindIndexOutOfRange,
		Detail: fmt.Sprintf("index %d out of range (length %d)", index, length),
		Value:  index,
	}
}

// UseAfterDestroy creates an error for an operation on a torn-down resource
func UseAfterDestroy(phase Phase, resource string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUseAfterDestroy,
		Detail: fmt.Sprintf("%s already destroyed", resource),
	}
}

// NativeCallFailed creates an error for a native function that signaled failure.
// msg is the library's last-error string and may be empty.
func NativeCallFailed(symbol, msg string) *Error {
	detail := symbol + " failed"
	if msg != "" {
		detail += ": " + msg
	}
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindNativeCallFailed,
		Detail: detail,
		Value:  symbol,
	}
}

// SymbolUnavailable creates an error for a symbol absent from the loaded library
func SymbolUnavailable(symbol string) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindSymbolUnavailable,
		Detail: fmt.Sprintf("symbol %q not available on this platform", symbol),
		Value:  symbol,
	}
}

// Closed creates an error for a call made after the library was shut down
func Closed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s is closed", what),
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
	}
}

// FieldMissing creates a missing field error
func FieldMissing(phase Phase, path []string, fieldName string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindFieldMissing,
		Path:   path,
		Detail: fmt.Sprintf("required field %q not found", fieldName),
	}
}

// FieldUnknown creates an unknown field error
func FieldUnknown(phase Phase, path []string, fieldName string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindFieldUnknown,
		Path:   path,
		Detail: fmt.Sprintf("unknown field %q", fieldName),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, targetType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Path:   path,
		CType:  targetType,
		Detail: fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:  value,
	}
}

// InvalidEnum creates an invalid enum value error
func InvalidEnum(phase Phase, value any, enumType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidEnum,
		CType:  enumType,
		Detail: fmt.Sprintf("invalid enum value %v for %s", value, enumType),
		Value:  value,
	}
}

// InvalidVariant creates an error for a union whose active arm is unknown
func InvalidVariant(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidVariant,
		Path:   path,
		Detail: detail,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Load creates a library loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// MissingSymbol represents a single required symbol the library lacks
type MissingSymbol struct {
	Group  string // e.g., "tray"
	Symbol string // e.g., "SDL_CreateTray"
}

// MissingSymbolsError is returned when binding a catalog fails because the
// library lacks required (non-optional) symbols
type MissingSymbolsError struct {
	Symbols []MissingSymbol
}

// NewMissingSymbolsError creates an error from a list of "group#symbol" keys
func NewMissingSymbolsError(keys []string) *MissingSymbolsError {
	result := &MissingSymbolsError{
		Symbols: make([]MissingSymbol, 0, len(keys)),
	}
	for _, k := range keys {
		group, sym := parseSymbolKey(k)
		result.Symbols = append(result.Symbols, MissingSymbol{
			Group:  group,
			Symbol: sym,
		})
	}
	return result
}

func parseSymbolKey(key string) (group, symbol string) {
	g, s, found := strings.Cut(key, "#")
	if found {
		return g, s
	}
	return "", key
}

func (e *MissingSymbolsError) Error() string {
	if len(e.Symbols) == 0 {
		return "[catalog] symbol_unavailable: no symbols specified"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("missing %d required symbol(s):\n", len(e.Symbols)))

	byGroup := make(map[string][]string)
	var groups []string
	for _, s := range e.Symbols {
		g := s.Group
		if g == "" {
			g = "(ungrouped)"
		}
		if _, exists := byGroup[g]; !exists {
			groups = append(groups, g)
		}
		byGroup[g] = append(byGroup[g], s.Symbol)
	}
	sort.Strings(groups)

	for _, g := range groups {
		b.WriteString("\n  ")
		b.WriteString(g)
		b.WriteString(":\n")
		for _, sym := range byGroup[g] {
			b.WriteString("    - ")
			b.WriteString(sym)
			b.WriteByte('\n')
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target matches this error type
func (e *MissingSymbolsError) Is(target error) bool {
	_, ok := target.(*MissingSymbolsError)
	return ok
}
