// Package command holds undoable edits of a prim's transform ops.
package command

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/mogaika/xformedit/manip"
	"github.com/mogaika/xformedit/sdf"
	"github.com/mogaika/xformedit/usd"
	"github.com/mogaika/xformedit/xform"
)

var (
	ErrNotBound = errors.New("command has no bound op")
	ErrUndone   = errors.New("command is undone")
)

// Command is what an undo manager drives. Failures are logged, never raised.
type Command interface {
	Undo()
	Redo()
}

// TranslateCommand is a Command fed by interactive input.
type TranslateCommand interface {
	Command
	Translate(x, y, z float64, space manip.Space) bool
	Apply(target mgl64.Vec3, space manip.Space) error
	State() State
}

type State int

const (
	StateUnbound State = iota
	StateBound
	StateCreated
	StateEdited
	StateUndone
	StateFailed
)

var stateNames = [...]string{
	StateUnbound: "unbound",
	StateBound:   "bound",
	StateCreated: "created",
	StateEdited:  "edited",
	StateUndone:  "undone",
	StateFailed:  "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "invalid"
	}
	return stateNames[s]
}

// Kind picks the quantity a translate command edits.
type Kind int

const (
	KindTranslate Kind = iota
	KindRotatePivot
	KindScalePivot
)

func (k Kind) String() string {
	switch k {
	case KindRotatePivot:
		return xform.RotatePivot
	case KindScalePivot:
		return xform.ScalePivot
	default:
		return "translate"
	}
}

func ParseKind(name string) (Kind, error) {
	for _, k := range []Kind{KindTranslate, KindRotatePivot, KindScalePivot} {
		if k.String() == name {
			return k, nil
		}
	}
	return KindTranslate, errors.Errorf("Unknown command kind %q", name)
}

// Item names the prim a command works on.
type Item struct {
	Stage *usd.Stage
	Path  sdf.Path
}

func (i Item) Prim() usd.Prim {
	return i.Stage.GetPrimAtPath(i.Path)
}

func (i Item) String() string {
	return string(i.Path)
}
