// Package xform reads and writes a prim's ordered stack of transform ops.
package xform

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/mogaika/xformedit/sdf"
	"github.com/mogaika/xformedit/usd"
)

type Xformable struct {
	prim usd.Prim
}

func New(prim usd.Prim) Xformable {
	return Xformable{prim: prim}
}

func (x Xformable) Prim() usd.Prim { return x.prim }

func (x Xformable) OrderAttr() usd.Attribute {
	return x.prim.GetAttribute(OrderAttrName)
}

// OrderTokens returns the composed xformOpOrder value, nil when unauthored.
func (x Xformable) OrderTokens() ([]string, error) {
	v, ok := x.OrderAttr().Get(usd.DefaultTime())
	if !ok {
		return nil, nil
	}
	tokens, ok := v.([]string)
	if !ok {
		return nil, errors.Wrapf(ErrMalformedStack, "%v.%v is %T", x.prim.Path(), OrderAttrName, v)
	}
	return tokens, nil
}

// GetOrderedXformOps resolves xformOpOrder into ops. The second result is
// the resetsXformStack flag.
func (x Xformable) GetOrderedXformOps() ([]Op, bool, error) {
	if !x.prim.IsValid() {
		return nil, false, errors.Wrapf(usd.ErrInvalidPrim, "%v", x.prim.Path())
	}
	tokens, err := x.OrderTokens()
	if err != nil {
		return nil, false, err
	}

	var ops []Op
	reset := false
	for i, token := range tokens {
		if token == ResetXformStack {
			if i != 0 {
				return nil, false, errors.Wrapf(ErrMalformedStack, "%v: %s must come first", x.prim.Path(), ResetXformStack)
			}
			reset = true
			continue
		}
		attrName, _, _, inverse, err := ParseOpName(token)
		if err != nil {
			return nil, false, errors.Wrapf(err, "%v", x.prim.Path())
		}
		op, err := MakeOp(x.prim.GetAttribute(attrName), inverse)
		if err != nil {
			return nil, false, err
		}
		ops = append(ops, op)
	}
	return ops, reset, nil
}

// SetXformOpOrder authors xformOpOrder on the current edit target.
func (x Xformable) SetXformOpOrder(ops []Op, reset bool) error {
	tokens := make([]string, 0, len(ops)+1)
	if reset {
		tokens = append(tokens, ResetXformStack)
	}
	seen := make(map[string]struct{})
	for _, op := range ops {
		if op.attr.Prim().Path() != x.prim.Path() {
			return errors.Errorf("op %v belongs to %v, not %v", op.Name(), op.attr.Prim().Path(), x.prim.Path())
		}
		if _, dup := seen[op.Name()]; dup {
			return errors.Wrapf(ErrOpExists, "%v listed twice", op.Name())
		}
		seen[op.Name()] = struct{}{}
		tokens = append(tokens, op.Name())
	}
	return x.SetOrderTokens(tokens)
}

// SetOrderTokens authors raw xformOpOrder tokens on the current edit target.
// Tokens are not checked against the prim's attributes.
func (x Xformable) SetOrderTokens(tokens []string) error {
	attr, err := x.prim.CreateAttribute(OrderAttrName, sdf.TypeTokenArray, sdf.VariabilityUniform)
	if err != nil {
		return errors.Wrapf(err, "Failed to author %v", OrderAttrName)
	}
	return attr.Set(tokens, usd.DefaultTime())
}

// AddXformOp authors the attribute backing a new op on the current edit
// target. It does not touch xformOpOrder; callers place the op themselves.
// Inverse ops reuse an attribute that must already exist.
func (x Xformable) AddXformOp(t OpType, p Precision, suffix string, inverse bool) (Op, error) {
	vt, err := ValueTypeFor(t, p)
	if err != nil {
		return Op{}, err
	}
	name := OpAttrName(t, suffix)
	attr := x.prim.GetAttribute(name)

	if inverse {
		if !attr.IsValid() {
			return Op{}, errors.Wrapf(ErrMalformedStack, "inverse of missing op %v", name)
		}
		return MakeOp(attr, true)
	}

	tokens, err := x.OrderTokens()
	if err != nil {
		return Op{}, err
	}
	for _, token := range tokens {
		if token == name {
			return Op{}, errors.Wrapf(ErrOpExists, "%v on %v", name, x.prim.Path())
		}
	}

	if _, err := x.prim.CreateAttribute(name, vt, sdf.VariabilityVarying); err != nil {
		return Op{}, err
	}
	return Op{attr: attr, opType: t, precision: p, suffix: suffix}, nil
}

func (x Xformable) AddTranslateOp(p Precision, suffix string) (Op, error) {
	return x.AddXformOp(OpTranslate, p, suffix, false)
}

// GetLocalTransformation composes the op stack at t, first op outermost.
func (x Xformable) GetLocalTransformation(t usd.TimeCode) (mgl64.Mat4, bool, error) {
	ops, reset, err := x.GetOrderedXformOps()
	if err != nil {
		return mgl64.Ident4(), false, err
	}
	m, err := composeOps(ops, len(ops), t)
	return m, reset, err
}

// composeOps multiplies the first n op matrices together.
func composeOps(ops []Op, n int, t usd.TimeCode) (mgl64.Mat4, error) {
	m := mgl64.Ident4()
	for _, op := range ops[:n] {
		om, err := op.GetOpTransform(t)
		if err != nil {
			return mgl64.Ident4(), err
		}
		m = m.Mul4(om)
	}
	return m, nil
}
