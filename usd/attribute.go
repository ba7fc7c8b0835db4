package usd

import (
	"github.com/pkg/errors"

	"github.com/mogaika/xformedit/sdf"
)

type Attribute struct {
	prim Prim
	name string
}

func (a Attribute) Prim() Prim   { return a.prim }
func (a Attribute) Name() string { return a.name }

// specs returns every authored opinion for the attribute, strongest first.
func (a Attribute) specs() []*sdf.AttributeSpec {
	if a.prim.stage == nil {
		return nil
	}
	var result []*sdf.AttributeSpec
	for _, ps := range a.prim.stage.primSpecs(a.prim.path) {
		if spec := ps.Attribute(a.name); spec != nil {
			result = append(result, spec)
		}
	}
	return result
}

func (a Attribute) IsValid() bool {
	return len(a.specs()) != 0
}

func (a Attribute) TypeName() sdf.ValueType {
	if specs := a.specs(); len(specs) != 0 {
		return specs[0].TypeName()
	}
	return ""
}

func (a Attribute) IsUniform() bool {
	if specs := a.specs(); len(specs) != 0 {
		return specs[0].Variability() == sdf.VariabilityUniform
	}
	return false
}

func (a Attribute) HasAuthoredValue() bool {
	for _, spec := range a.specs() {
		if spec.HasAuthoredValue() {
			return true
		}
	}
	return false
}

// valueSpec is the strongest opinion that carries a value.
func (a Attribute) valueSpec() *sdf.AttributeSpec {
	for _, spec := range a.specs() {
		if spec.HasAuthoredValue() {
			return spec
		}
	}
	return nil
}

func (a Attribute) NumTimeSamples() int {
	if spec := a.valueSpec(); spec != nil {
		return spec.NumTimeSamples()
	}
	return 0
}

func (a Attribute) TimeSamples() []float64 {
	spec := a.valueSpec()
	if spec == nil {
		return nil
	}
	var times []float64
	for _, s := range spec.TimeSamples() {
		times = append(times, s.Time)
	}
	return times
}

// Get resolves the value at t. Default time reads the strongest default;
// sampled time reads the strongest layer with any value, preferring its
// samples over its default.
func (a Attribute) Get(t TimeCode) (any, bool) {
	for _, spec := range a.specs() {
		if t.IsDefault() {
			if spec.HasDefault() {
				return spec.Default(), true
			}
			continue
		}
		if !spec.HasAuthoredValue() {
			continue
		}
		if v, ok := spec.Sample(t.value); ok {
			return v, true
		}
		return spec.Default(), true
	}
	return nil, false
}

// Set authors v at t on the stage's current edit target.
func (a Attribute) Set(v any, t TimeCode) error {
	if !a.prim.IsValid() {
		return errors.Wrapf(ErrInvalidPrim, "%v", a.prim.path)
	}
	vt, err := sdf.ValueTypeOf(v)
	if err != nil {
		return err
	}
	if declared := a.TypeName(); declared != "" && declared != vt {
		return errors.Wrapf(sdf.ErrTypeMismatch, "%v.%v is %v, got %v", a.prim.path, a.name, declared, vt)
	}
	variability := sdf.VariabilityVarying
	if a.IsUniform() {
		variability = sdf.VariabilityUniform
	}

	ps, err := a.prim.ensureSpec()
	if err != nil {
		return err
	}
	spec, err := ps.CreateAttribute(a.name, vt, variability)
	if err != nil {
		return err
	}
	if t.IsDefault() {
		return spec.SetDefault(v)
	}
	return spec.SetTimeSample(t.value, v)
}

// Spec returns the attribute spec authored on layer, if any.
func (a Attribute) Spec(layer *sdf.Layer) *sdf.AttributeSpec {
	ps := layer.PrimSpec(a.prim.path)
	if ps == nil {
		return nil
	}
	return ps.Attribute(a.name)
}
