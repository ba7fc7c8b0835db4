// Package editscript reads and runs line based edit scripts:
//
//	target session
//	time 24
//	translate /World/Cube 1 0 0 world // nudge
//	rotatePivot /World/Cube 0 1 0
//	undo
package editscript

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/mogaika/xformedit/sdf"
)

// Statement is one script line: a verb and its arguments. Arguments are
// float64 numbers, sdf.Path values or plain strings.
type Statement struct {
	Verb    string
	Args    []interface{}
	Comment string
	Line    int
}

func (st *Statement) String() string {
	s := st.Verb
	for _, a := range st.Args {
		switch v := a.(type) {
		case float64:
			s += " " + strconv.FormatFloat(v, 'g', -1, 64)
		case sdf.Path:
			s += " " + v.String()
		case string:
			if sdf.IsValidIdentifier(v) {
				s += " " + v
			} else {
				s += " " + strconv.Quote(v)
			}
		default:
			s += fmt.Sprint(" ", v)
		}
	}
	return s
}

func (st *Statement) AddArgs(args ...interface{}) {
	st.Args = append(st.Args, args...)
}

func (st *Statement) path(i int) (sdf.Path, error) {
	if i >= len(st.Args) {
		return "", st.errorf("missing path argument %d", i+1)
	}
	if p, ok := st.Args[i].(sdf.Path); ok {
		return p, nil
	}
	return "", st.errorf("argument %d is not a path", i+1)
}

func (st *Statement) number(i int) (float64, error) {
	if i >= len(st.Args) {
		return 0, st.errorf("missing number argument %d", i+1)
	}
	if f, ok := st.Args[i].(float64); ok {
		return f, nil
	}
	return 0, st.errorf("argument %d is not a number", i+1)
}

func (st *Statement) word(i int) (string, error) {
	if i >= len(st.Args) {
		return "", st.errorf("missing argument %d", i+1)
	}
	switch v := st.Args[i].(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	}
	return "", st.errorf("argument %d is not a word", i+1)
}

func (st *Statement) errorf(format string, a ...interface{}) error {
	return errors.Errorf("line %d %q: %s", st.Line, st.Verb, fmt.Sprintf(format, a...))
}

func RenderScriptLines(statements []*Statement) []string {
	result := make([]string, 0, len(statements))
	for _, st := range statements {
		if st.Comment == "" {
			result = append(result, st.String())
		} else {
			result = append(result, fmt.Sprintf("%-40s // %s", st.String(), st.Comment))
		}
	}
	return result
}

func RenderScript(statements []*Statement) string {
	return strings.Join(RenderScriptLines(statements), "\n")
}
