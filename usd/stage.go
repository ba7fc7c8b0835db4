// Package usd composes sdf layers into a stage and exposes prims and
// attributes whose values resolve strongest layer first.
package usd

import (
	"os"
	"sort"

	"github.com/pkg/errors"

	"github.com/mogaika/xformedit/sdf"
)

var ErrInvalidPrim = errors.New("invalid prim")

// EditTarget is the layer new opinions are authored into. It is a plain
// reference and stays valid after the stage switches to another target.
type EditTarget struct {
	layer *sdf.Layer
}

func NewEditTarget(layer *sdf.Layer) EditTarget {
	return EditTarget{layer: layer}
}

func (e EditTarget) Layer() *sdf.Layer { return e.layer }
func (e EditTarget) IsValid() bool     { return e.layer != nil }

func (e EditTarget) GetPrimSpecForScenePath(path sdf.Path) *sdf.PrimSpec {
	if e.layer == nil {
		return nil
	}
	return e.layer.PrimSpec(path)
}

type Stage struct {
	session    *sdf.Layer
	root       *sdf.Layer
	sublayers  []*sdf.Layer
	editTarget EditTarget
}

func New(root *sdf.Layer) *Stage {
	return &Stage{
		session:    sdf.NewLayer("session"),
		root:       root,
		editTarget: NewEditTarget(root),
	}
}

func NewInMemory() *Stage {
	return New(sdf.NewLayer("anon"))
}

// Open loads a YAML root layer from path.
func Open(path string) (*Stage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open stage")
	}
	defer f.Close()

	root, err := sdf.ImportLayer(f)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to load %q", path)
	}
	return New(root), nil
}

// Save writes the root layer to path. Session opinions are not persisted.
func (s *Stage) Save(path string) error {
	data, err := s.root.ExportToString()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(data), 0666); err != nil {
		return errors.Wrapf(err, "Failed to write %q", path)
	}
	return nil
}

func (s *Stage) SessionLayer() *sdf.Layer { return s.session }
func (s *Stage) RootLayer() *sdf.Layer    { return s.root }

// LayerStack lists the layers strongest first.
func (s *Stage) LayerStack() []*sdf.Layer {
	stack := []*sdf.Layer{s.session, s.root}
	return append(stack, s.sublayers...)
}

// InsertSubLayer adds a layer weaker than every layer already in the stack.
func (s *Stage) InsertSubLayer(l *sdf.Layer) {
	s.sublayers = append(s.sublayers, l)
}

// LayerName is "session" or "root" for those layers and the identifier of
// any sublayer.
func (s *Stage) LayerName(l *sdf.Layer) string {
	switch l {
	case s.session:
		return "session"
	case s.root:
		return "root"
	}
	return l.Identifier()
}

// LayerByName finds a layer by LayerName or identifier, nil when absent.
func (s *Stage) LayerByName(name string) *sdf.Layer {
	for _, l := range s.LayerStack() {
		if s.LayerName(l) == name || l.Identifier() == name {
			return l
		}
	}
	return nil
}

func (s *Stage) HasLayer(l *sdf.Layer) bool {
	for _, sl := range s.LayerStack() {
		if sl == l {
			return true
		}
	}
	return false
}

func (s *Stage) EditTarget() EditTarget {
	return s.editTarget
}

func (s *Stage) SetEditTarget(t EditTarget) error {
	if !t.IsValid() || !s.HasLayer(t.layer) {
		return errors.New("edit target layer is not in the layer stack")
	}
	s.editTarget = t
	return nil
}

// WithEditTarget runs fn with t as the edit target and restores the previous
// target afterwards.
func (s *Stage) WithEditTarget(t EditTarget, fn func() error) error {
	prev := s.editTarget
	if err := s.SetEditTarget(t); err != nil {
		return err
	}
	defer func() { s.editTarget = prev }()
	return fn()
}

func (s *Stage) DefinePrim(path sdf.Path, typeName string) (Prim, error) {
	spec, err := s.editTarget.layer.CreatePrimSpec(path, sdf.SpecifierDef, typeName)
	if err != nil {
		return Prim{}, errors.Wrapf(err, "Failed to define %v", path)
	}
	spec.SetSpecifier(sdf.SpecifierDef)
	if typeName != "" {
		spec.SetTypeName(typeName)
	}
	return Prim{stage: s, path: path}, nil
}

// GetPrimAtPath always returns a Prim handle; check IsValid.
func (s *Stage) GetPrimAtPath(path sdf.Path) Prim {
	return Prim{stage: s, path: path}
}

func (s *Stage) primSpecs(path sdf.Path) []*sdf.PrimSpec {
	var specs []*sdf.PrimSpec
	for _, l := range s.LayerStack() {
		if spec := l.PrimSpec(path); spec != nil {
			specs = append(specs, spec)
		}
	}
	return specs
}

func (s *Stage) isDefined(path sdf.Path) bool {
	for _, spec := range s.primSpecs(path) {
		if spec.Specifier() == sdf.SpecifierDef {
			return true
		}
	}
	return false
}

// Prims lists every defined prim in path order.
func (s *Stage) Prims() []Prim {
	seen := make(map[sdf.Path]struct{})
	var paths []sdf.Path
	for _, l := range s.LayerStack() {
		for _, p := range l.PrimPaths() {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			if prim := s.GetPrimAtPath(p); prim.IsValid() {
				paths = append(paths, p)
			}
		}
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })

	prims := make([]Prim, len(paths))
	for i, p := range paths {
		prims[i] = Prim{stage: s, path: p}
	}
	return prims
}
