package usd

import (
	"regexp"
	"strconv"

	"github.com/pkg/errors"

	"github.com/mogaika/xformedit/sdf"
)

type Prim struct {
	stage *Stage
	path  sdf.Path
}

// IsValid reports whether the prim and all its ancestors are defined.
func (p Prim) IsValid() bool {
	if p.stage == nil || !p.path.IsValid() || p.path.IsRoot() {
		return false
	}
	if !p.stage.isDefined(p.path) {
		return false
	}
	for _, anc := range p.path.Ancestors() {
		if len(p.stage.primSpecs(anc)) == 0 {
			return false
		}
	}
	return true
}

func (p Prim) Stage() *Stage  { return p.stage }
func (p Prim) Path() sdf.Path { return p.path }
func (p Prim) Name() string   { return p.path.Name() }
func (p Prim) String() string { return string(p.path) }
func (p Prim) Parent() Prim   { return Prim{stage: p.stage, path: p.path.Parent()} }

func (p Prim) TypeName() string {
	for _, spec := range p.stage.primSpecs(p.path) {
		if spec.TypeName() != "" {
			return spec.TypeName()
		}
	}
	return ""
}

// Children lists the defined direct children in name order.
func (p Prim) Children() []Prim {
	var result []Prim
	for _, c := range p.stage.Prims() {
		if c.path.Parent() == p.path {
			result = append(result, c)
		}
	}
	return result
}

func (p Prim) GetAttribute(name string) Attribute {
	return Attribute{prim: p, name: name}
}

func (p Prim) HasAttribute(name string) bool {
	return p.GetAttribute(name).IsValid()
}

// AttributeNames lists the attributes authored in any layer, strongest
// layer order first.
func (p Prim) AttributeNames() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, spec := range p.stage.primSpecs(p.path) {
		for _, a := range spec.Attributes() {
			if _, ok := seen[a.Name()]; !ok {
				seen[a.Name()] = struct{}{}
				names = append(names, a.Name())
			}
		}
	}
	return names
}

// CreateAttribute authors an attribute spec without a value on the current
// edit target.
func (p Prim) CreateAttribute(name string, typeName sdf.ValueType, variability sdf.Variability) (Attribute, error) {
	if !p.IsValid() {
		return Attribute{}, errors.Wrapf(ErrInvalidPrim, "%v", p.path)
	}
	attr := p.GetAttribute(name)
	if declared := attr.TypeName(); declared != "" && declared != typeName {
		return Attribute{}, errors.Wrapf(sdf.ErrTypeMismatch, "%v.%v declared as %v", p.path, name, declared)
	}
	spec, err := p.ensureSpec()
	if err != nil {
		return Attribute{}, err
	}
	if _, err := spec.CreateAttribute(name, typeName, variability); err != nil {
		return Attribute{}, errors.Wrapf(err, "%v", p.path)
	}
	return attr, nil
}

func (p Prim) ensureSpec() (*sdf.PrimSpec, error) {
	layer := p.stage.editTarget.layer
	if spec := layer.PrimSpec(p.path); spec != nil {
		return spec, nil
	}
	return layer.CreatePrimSpec(p.path, sdf.SpecifierOver, "")
}

var numericSuffix = regexp.MustCompile(`^(.*[^0-9])([0-9]+)$`)

// UniqueName returns src with a numeric suffix bumped until it is not in
// existing. "Cube" becomes "Cube1", "Cube7" becomes "Cube8".
func UniqueName(existing map[string]struct{}, src string) string {
	base, suffix := src, 1
	if m := numericSuffix.FindStringSubmatch(src); m != nil {
		base = m[1]
		n, _ := strconv.Atoi(m[2])
		suffix = n + 1
	}
	name := base + strconv.Itoa(suffix)
	for {
		if _, taken := existing[name]; !taken {
			return name
		}
		suffix++
		name = base + strconv.Itoa(suffix)
	}
}

// UniqueChildName returns name when no child of p uses it yet.
func (p Prim) UniqueChildName(name string) string {
	existing := make(map[string]struct{})
	for _, l := range p.stage.LayerStack() {
		for _, path := range l.PrimPaths() {
			if path.Parent() == p.path {
				existing[path.Name()] = struct{}{}
			}
		}
	}
	if _, taken := existing[name]; !taken {
		return name
	}
	return UniqueName(existing, name)
}
