// Package sdf holds authored scene description: layers of prim specs whose
// attribute specs carry typed default values and time samples.
package sdf

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type Layer struct {
	id         uuid.UUID
	identifier string
	prims      map[Path]*PrimSpec
}

func NewLayer(identifier string) *Layer {
	return &Layer{
		id:         uuid.New(),
		identifier: identifier,
		prims:      make(map[Path]*PrimSpec),
	}
}

func (l *Layer) ID() uuid.UUID      { return l.id }
func (l *Layer) Identifier() string { return l.identifier }

func (l *Layer) PrimSpec(path Path) *PrimSpec {
	return l.prims[path]
}

// CreatePrimSpec returns the spec at path, authoring it (and "over" specs for
// missing ancestors) when absent.
func (l *Layer) CreatePrimSpec(path Path, specifier Specifier, typeName string) (*PrimSpec, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}
	if path.IsRoot() {
		return nil, errors.New("cannot author a spec for the pseudo root")
	}
	if spec := l.prims[path]; spec != nil {
		return spec, nil
	}
	for _, anc := range path.Ancestors() {
		if l.prims[anc] == nil {
			l.prims[anc] = &PrimSpec{path: anc, specifier: SpecifierOver}
		}
	}
	spec := &PrimSpec{path: path, specifier: specifier, typeName: typeName}
	l.prims[path] = spec
	return spec, nil
}

// RemovePrimSpec drops the spec at path. Specs with child specs are kept.
func (l *Layer) RemovePrimSpec(path Path) bool {
	if l.prims[path] == nil || l.HasChildSpecs(path) {
		return false
	}
	delete(l.prims, path)
	return true
}

func (l *Layer) HasChildSpecs(path Path) bool {
	prefix := string(path) + "/"
	for p := range l.prims {
		if strings.HasPrefix(string(p), prefix) {
			return true
		}
	}
	return false
}

// PrimPaths lists every authored prim path in lexical order.
func (l *Layer) PrimPaths() []Path {
	paths := make([]Path, 0, len(l.prims))
	for p := range l.prims {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })
	return paths
}

func (l *Layer) IsEmpty() bool {
	return len(l.prims) == 0
}
