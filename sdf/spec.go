package sdf

import (
	"sort"

	"github.com/pkg/errors"
)

type Specifier int

const (
	SpecifierDef Specifier = iota
	SpecifierOver
)

func (s Specifier) String() string {
	if s == SpecifierOver {
		return "over"
	}
	return "def"
}

type Variability int

const (
	VariabilityVarying Variability = iota
	VariabilityUniform
)

type TimeSample struct {
	Time  float64
	Value any
}

// AttributeSpec is one authored attribute opinion inside a prim spec.
type AttributeSpec struct {
	name        string
	typeName    ValueType
	variability Variability
	def         any
	samples     []TimeSample
}

func (a *AttributeSpec) Name() string             { return a.name }
func (a *AttributeSpec) TypeName() ValueType      { return a.typeName }
func (a *AttributeSpec) Variability() Variability { return a.variability }

func (a *AttributeSpec) HasDefault() bool {
	return a.def != nil
}

func (a *AttributeSpec) Default() any {
	return CloneValue(a.def)
}

func (a *AttributeSpec) HasAuthoredValue() bool {
	return a.def != nil || len(a.samples) != 0
}

func (a *AttributeSpec) NumTimeSamples() int {
	return len(a.samples)
}

func (a *AttributeSpec) TimeSamples() []TimeSample {
	result := make([]TimeSample, len(a.samples))
	for i, s := range a.samples {
		result[i] = TimeSample{Time: s.Time, Value: CloneValue(s.Value)}
	}
	return result
}

func (a *AttributeSpec) checkType(v any) error {
	vt, err := ValueTypeOf(v)
	if err != nil {
		return err
	}
	if vt != a.typeName {
		return errors.Wrapf(ErrTypeMismatch, "attribute %q is %v, got %v", a.name, a.typeName, vt)
	}
	return nil
}

func (a *AttributeSpec) SetDefault(v any) error {
	if err := a.checkType(v); err != nil {
		return err
	}
	a.def = CloneValue(v)
	return nil
}

func (a *AttributeSpec) ClearDefault() {
	a.def = nil
}

func (a *AttributeSpec) SetTimeSample(t float64, v any) error {
	if a.variability == VariabilityUniform {
		return errors.Errorf("attribute %q is uniform and cannot be time sampled", a.name)
	}
	if err := a.checkType(v); err != nil {
		return err
	}
	i := sort.Search(len(a.samples), func(i int) bool { return a.samples[i].Time >= t })
	if i < len(a.samples) && a.samples[i].Time == t {
		a.samples[i].Value = CloneValue(v)
		return nil
	}
	a.samples = append(a.samples, TimeSample{})
	copy(a.samples[i+1:], a.samples[i:])
	a.samples[i] = TimeSample{Time: t, Value: CloneValue(v)}
	return nil
}

func (a *AttributeSpec) EraseTimeSample(t float64) bool {
	for i, s := range a.samples {
		if s.Time == t {
			a.samples = append(a.samples[:i], a.samples[i+1:]...)
			return true
		}
	}
	return false
}

// Sample resolves the time samples at t: held before the first and after the
// last sample, interpolated in between.
func (a *AttributeSpec) Sample(t float64) (any, bool) {
	n := len(a.samples)
	if n == 0 {
		return nil, false
	}
	i := sort.Search(n, func(i int) bool { return a.samples[i].Time >= t })
	switch {
	case i == 0:
		return CloneValue(a.samples[0].Value), true
	case i == n:
		return CloneValue(a.samples[n-1].Value), true
	case a.samples[i].Time == t:
		return CloneValue(a.samples[i].Value), true
	}
	lo, hi := a.samples[i-1], a.samples[i]
	alpha := (t - lo.Time) / (hi.Time - lo.Time)
	return Interpolate(lo.Value, hi.Value, alpha), true
}

// PrimSpec holds the opinions one layer authors for one prim.
type PrimSpec struct {
	path       Path
	specifier  Specifier
	typeName   string
	attributes []*AttributeSpec
}

func (p *PrimSpec) Path() Path           { return p.path }
func (p *PrimSpec) Specifier() Specifier { return p.specifier }
func (p *PrimSpec) TypeName() string     { return p.typeName }

func (p *PrimSpec) SetSpecifier(s Specifier) { p.specifier = s }
func (p *PrimSpec) SetTypeName(t string)     { p.typeName = t }

// Attributes returns a snapshot of the attribute specs in authored order.
func (p *PrimSpec) Attributes() []*AttributeSpec {
	return append([]*AttributeSpec(nil), p.attributes...)
}

func (p *PrimSpec) Attribute(name string) *AttributeSpec {
	for _, a := range p.attributes {
		if a.name == name {
			return a
		}
	}
	return nil
}

func (p *PrimSpec) CreateAttribute(name string, typeName ValueType, variability Variability) (*AttributeSpec, error) {
	if !typeName.IsValid() {
		return nil, errors.Errorf("unknown value type %q for %q", typeName, name)
	}
	if existing := p.Attribute(name); existing != nil {
		if existing.typeName != typeName {
			return nil, errors.Wrapf(ErrTypeMismatch, "attribute %q already declared as %v", name, existing.typeName)
		}
		return existing, nil
	}
	a := &AttributeSpec{name: name, typeName: typeName, variability: variability}
	p.attributes = append(p.attributes, a)
	return a, nil
}

// RemoveProperty drops spec from p. Reports false when it was not present.
func (p *PrimSpec) RemoveProperty(spec *AttributeSpec) bool {
	for i, a := range p.attributes {
		if a == spec {
			p.attributes = append(p.attributes[:i], p.attributes[i+1:]...)
			return true
		}
	}
	return false
}

// IsEmpty reports whether the spec carries nothing but its specifier.
func (p *PrimSpec) IsEmpty() bool {
	return len(p.attributes) == 0 && p.typeName == "" && p.specifier == SpecifierOver
}
