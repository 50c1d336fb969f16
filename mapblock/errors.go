package mapblock

import "fmt"

// Kind is the closed set of codec failure modes a decode/encode can
// produce. It deliberately mirrors the four-way taxonomy the on-disk
// format's idiosyncrasies force: truncated/malformed bytes, an
// unsupported block version, an unsupported fixed-width field, and an
// unsupported sub-structure version.
type Kind int

const (
	// BadData covers truncated input, declared lengths exceeding the
	// remaining buffer, trailing compressed bytes after a substructure,
	// and an inventory stream missing its terminator.
	BadData Kind = iota
	// InvalidBlockVersion is returned when the version byte falls
	// outside the supported set {25,26,27,28,29}.
	InvalidBlockVersion
	// InvalidFeature is returned when a fixed-width field takes an
	// unsupported value: content/param width != 2, timer record length
	// != 10, or an unsupported LuaEntity object type.
	InvalidFeature
	// InvalidSubVersion is returned when a substructure's own version
	// byte (metadata, static objects, name-ID map, LuaEntity payload)
	// is out of its supported range.
	InvalidSubVersion
)

func (k Kind) String() string {
	switch k {
	case BadData:
		return "bad data"
	case InvalidBlockVersion:
		return "invalid block version"
	case InvalidFeature:
		return "invalid feature"
	case InvalidSubVersion:
		return "invalid sub-version"
	default:
		return "unknown mapblock error"
	}
}

// Error is the codec's error type. It carries a Kind (for
// errors.As-based dispatch) plus a human-readable detail message.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// newErr builds an *Error with a formatted detail message.
func newErr(k Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is a codec *Error of kind k. It inspects
// err itself only; an *Error wrapped inside another error does not
// match.
func IsKind(err error, k Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == k
}
