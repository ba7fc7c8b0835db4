package editscript

import (
	"log"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mogaika/xformedit/command"
	"github.com/mogaika/xformedit/config"
	"github.com/mogaika/xformedit/manip"
	"github.com/mogaika/xformedit/usd"
)

// Runner executes statements against a stage, recording every edit in
// History so a script can undo its own steps.
type Runner struct {
	Stage   *usd.Stage
	History *command.History
	Time    usd.TimeCode
	Space   manip.Space

	// OnEdit, when set, is called after each successful edit.
	OnEdit func(c *command.Translate)
}

func NewRunner(stage *usd.Stage, history *command.History) *Runner {
	space, err := manip.ParseSpace(config.DefaultSpace())
	if err != nil {
		space = manip.Transform
	}
	return &Runner{Stage: stage, History: history, Time: usd.DefaultTime(), Space: space}
}

// Run executes statements in order and stops at the first failure.
// Statements already run stay applied.
func (r *Runner) Run(statements []*Statement) (int, error) {
	for i, st := range statements {
		if err := r.Exec(st); err != nil {
			return i, err
		}
	}
	return len(statements), nil
}

func (r *Runner) Exec(st *Statement) error {
	if config.DebugManipulators() {
		log.Printf("[script] %d: %v", st.Line, st)
	}
	switch st.Verb {
	case "time":
		w, err := st.word(0)
		if err != nil {
			return err
		}
		t, err := usd.ParseTimeCode(w)
		if err != nil {
			return st.errorf("%v", err)
		}
		r.Time = t
	case "space":
		w, err := st.word(0)
		if err != nil {
			return err
		}
		space, err := manip.ParseSpace(w)
		if err != nil {
			return st.errorf("%v", err)
		}
		r.Space = space
	case "target":
		w, err := st.word(0)
		if err != nil {
			return err
		}
		return r.setTarget(st, w)
	case "undo":
		if !r.History.Undo() {
			return st.errorf("nothing to undo")
		}
	case "redo":
		if !r.History.Redo() {
			return st.errorf("nothing to redo")
		}
	default:
		kind, err := command.ParseKind(st.Verb)
		if err != nil {
			return st.errorf("unknown verb")
		}
		return r.translate(st, kind)
	}
	return nil
}

func (r *Runner) setTarget(st *Statement, name string) error {
	l := r.Stage.LayerByName(name)
	if l == nil {
		return st.errorf("layer %q not found", name)
	}
	return r.Stage.SetEditTarget(usd.NewEditTarget(l))
}

// translate handles "<kind> <path> x y z [space]".
func (r *Runner) translate(st *Statement, kind command.Kind) error {
	path, err := st.path(0)
	if err != nil {
		return err
	}
	var v mgl64.Vec3
	for i := range v {
		if v[i], err = st.number(i + 1); err != nil {
			return err
		}
	}
	space := r.Space
	if len(st.Args) > 4 {
		w, err := st.word(4)
		if err != nil {
			return err
		}
		if space, err = manip.ParseSpace(w); err != nil {
			return st.errorf("%v", err)
		}
	}

	c := command.New(command.Item{Stage: r.Stage, Path: path}, kind, r.Time)
	if c.State() == command.StateFailed {
		return st.errorf("%v", c.Err())
	}
	if err := c.Apply(v, space); err != nil {
		c.Undo()
		return st.errorf("%v", err)
	}
	r.History.Push(c)
	if r.OnEdit != nil {
		r.OnEdit(c)
	}
	return nil
}
