package manip

import (
	"strings"

	"github.com/pkg/errors"
)

// Space says how a target position relates to the op being edited.
type Space int

const (
	PreTransform Space = iota
	PostTransform
	World
	Transform
)

var spaceNames = [...]string{
	PreTransform:  "preTransform",
	PostTransform: "postTransform",
	World:         "world",
	Transform:     "transform",
}

func (s Space) String() string {
	if s < 0 || int(s) >= len(spaceNames) {
		return "invalid"
	}
	return spaceNames[s]
}

func (s Space) IsValid() bool {
	return s >= PreTransform && s <= Transform
}

func ParseSpace(name string) (Space, error) {
	for i, n := range spaceNames {
		if strings.EqualFold(n, name) {
			return Space(i), nil
		}
	}
	return -1, errors.Errorf("Unknown space %q", name)
}
