package instance

import (
	"bytes"
	"fmt"

	"github.com/grailbio/mapeditr/spatial"
)

// ArgVerdict classifies a validated InstArgs per spec.md §7's operator
// error taxonomy.
type ArgVerdict int

const (
	ArgOk ArgVerdict = iota
	ArgWarning
	ArgError
)

// InstArgs is the declarative, command-agnostic argument record every
// subcommand's flags are parsed into. Fields irrelevant to a given
// Command are simply left at their zero value.
type InstArgs struct {
	Command string

	P1, P2 *spatial.Vec3
	Invert bool
	Offset spatial.Vec3

	Node    []byte
	NewNode []byte
	Obj     []byte
	Items   [][]byte
	Item    []byte
	NewItem []byte

	Key        string
	Value      []byte
	Delete     bool
	DeleteMeta bool
	Param2     uint8

	SecondaryDBPath string
	SkipConfirm     bool
}

// Area derives the command's spatial.Area from P1/P2, or nil when
// either corner was not supplied (an unbounded command).
func (a InstArgs) Area() *spatial.Area {
	if a.P1 == nil || a.P2 == nil {
		return nil
	}
	area := spatial.FromUnsorted(*a.P1, *a.P2)
	return &area
}

// Validate runs the command's registered validator, if any, returning
// ArgOk when the command needs no validation beyond what dispatch
// itself enforces (an unrecognized command is always ArgError).
func (a InstArgs) Validate() (ArgVerdict, string) {
	entry, ok := catalogue[a.Command]
	if !ok {
		return ArgError, fmt.Sprintf("unknown command %q", a.Command)
	}
	if entry.validate == nil {
		return ArgOk, ""
	}
	return entry.validate(a)
}

func validateOffsetBounds(a InstArgs) (ArgVerdict, string) {
	area := a.Area()
	if area == nil {
		return ArgOk, ""
	}
	dst := area.Add(a.Offset)
	if !dst.Min.IsValidNodePos() || !dst.Max.IsValidNodePos() {
		return ArgError, "destination area falls outside the legal map bounds"
	}
	return ArgOk, ""
}

func validateClone(a InstArgs) (ArgVerdict, string) {
	if a.P1 == nil || a.P2 == nil {
		return ArgError, "clone requires --p1 and --p2"
	}
	return validateOffsetBounds(a)
}

func validateOverlay(a InstArgs) (ArgVerdict, string) {
	if a.Invert && (a.Offset != spatial.Vec3{}) {
		return ArgError, "overlay does not support --invert together with a nonzero --offset"
	}
	if a.SecondaryDBPath == "" {
		return ArgError, "overlay requires a secondary map path"
	}
	if v, msg := validateOffsetBounds(a); v == ArgError {
		return v, msg
	}
	return ArgOk, ""
}

func validateFill(a InstArgs) (ArgVerdict, string) {
	if a.P1 == nil || a.P2 == nil {
		return ArgError, "fill requires --p1 and --p2"
	}
	if len(a.NewNode) == 0 {
		return ArgError, "fill requires --newnode"
	}
	return ArgOk, ""
}

func validateReplaceNodes(a InstArgs) (ArgVerdict, string) {
	if len(a.Node) == 0 || len(a.NewNode) == 0 {
		return ArgError, "replacenodes requires --node and --newnode"
	}
	if bytes.Equal(a.Node, a.NewNode) {
		return ArgError, "replacenodes: --node and --newnode must differ"
	}
	return ArgOk, ""
}

func validateSetParam2(a InstArgs) (ArgVerdict, string) {
	if len(a.Node) == 0 {
		return ArgWarning, "setparam2 without --node applies to every node in the area"
	}
	return ArgOk, ""
}

func validateDeleteObjects(a InstArgs) (ArgVerdict, string) {
	if len(a.Obj) > 0 && len(a.Items) > 0 {
		return ArgError, "deleteobjects: --obj and --items are mutually exclusive"
	}
	if a.Area() == nil && len(a.Obj) == 0 && len(a.Items) == 0 {
		return ArgWarning, "deleteobjects with no area, --obj, or --items deletes every object in the map"
	}
	return ArgOk, ""
}

func validateSetMetaVar(a InstArgs) (ArgVerdict, string) {
	if a.Key == "" {
		return ArgError, "setmetavar requires --key"
	}
	if !a.Delete && a.Value == nil {
		return ArgError, "setmetavar requires --value unless --delete is set"
	}
	return ArgOk, ""
}

func validateReplaceInInv(a InstArgs) (ArgVerdict, string) {
	if len(a.Item) == 0 || len(a.NewItem) == 0 {
		return ArgError, "replaceininv requires --item and --newitem"
	}
	if bytes.Equal(a.Item, a.NewItem) {
		return ArgError, "replaceininv: --item and --newitem must differ"
	}
	return ArgOk, ""
}

func validateDeleteBlocksLike(a InstArgs) (ArgVerdict, string) {
	if a.Area() == nil {
		return ArgWarning, "no --p1/--p2 given, this command applies to the whole map"
	}
	return ArgOk, ""
}
