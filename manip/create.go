package manip

import (
	"log"

	"github.com/pkg/errors"

	"github.com/mogaika/xformedit/config"
	"github.com/mogaika/xformedit/sdf"
	"github.com/mogaika/xformedit/usd"
	"github.com/mogaika/xformedit/xform"
)

// CreationRecord lists what creating an op authored on the edit target, so
// that exactly that can be taken away again.
type CreationRecord struct {
	AttrName  string
	OrderAttr bool     // xformOpOrder had no opinion on the target before
	AttrSpec  bool     // the op attribute had no spec on the target before
	OpNames   []string // order entries creation inserted
	Specs     []sdf.Path

	// previous default of a pre-existing attribute spec
	hadDefault  bool
	prevDefault any
}

// Binding is the outcome of BindOrCreate.
type Binding struct {
	*Manipulator
	HadSamples bool
	Created    bool
	Record     CreationRecord
	Scope      usd.EditTarget
}

// BindOrCreate binds the translate op with suffix, creating one at the head
// of the stack when none exists. A bound op without time samples is edited
// at the default time.
func BindOrCreate(prim usd.Prim, suffix string, t usd.TimeCode) (*Binding, error) {
	if prim.Stage() == nil {
		return nil, errors.Wrapf(usd.ErrInvalidPrim, "%v has no stage", prim.Path())
	}
	scope := prim.Stage().EditTarget()
	m, err := Bind(prim, suffix, t)
	if err == nil {
		b := &Binding{Manipulator: m, HadSamples: m.Op().NumTimeSamples() != 0, Scope: scope}
		if !b.HadSamples {
			m.SetTime(usd.DefaultTime())
		}
		return b, nil
	}
	if config.DebugManipulators() {
		log.Printf("[manip] %v, creating", err)
	}

	op, rec, err := CreateTranslateOp(prim, suffix)
	if err != nil {
		return nil, err
	}
	m, err = BindOp(prim, op.Name(), usd.DefaultTime())
	if err != nil {
		return nil, err
	}
	return &Binding{Manipulator: m, Created: true, Record: rec, Scope: scope}, nil
}

// CreateTranslateOp authors a double translate op at the head of the stack,
// the one users most likely mean to drag.
func CreateTranslateOp(prim usd.Prim, suffix string) (xform.Op, CreationRecord, error) {
	return createOp(prim, xform.PrecisionDouble, suffix, func(ops []xform.Op, op xform.Op) []xform.Op {
		return append([]xform.Op{op}, ops...)
	})
}

func recordFor(layer *sdf.Layer, path sdf.Path, attrName string) CreationRecord {
	rec := CreationRecord{AttrName: attrName, OrderAttr: true, AttrSpec: true}
	for _, p := range append([]sdf.Path{path}, path.Ancestors()...) {
		if layer.PrimSpec(p) == nil {
			rec.Specs = append(rec.Specs, p)
		}
	}
	if ps := layer.PrimSpec(path); ps != nil {
		if order := ps.Attribute(xform.OrderAttrName); order != nil && order.HasAuthoredValue() {
			rec.OrderAttr = false
		}
		if spec := ps.Attribute(attrName); spec != nil {
			rec.AttrSpec = false
			rec.hadDefault = spec.HasDefault()
			if rec.hadDefault {
				rec.prevDefault = sdf.CloneValue(spec.Default())
			}
		}
	}
	return rec
}

func createOp(prim usd.Prim, p xform.Precision, suffix string, place func([]xform.Op, xform.Op) []xform.Op) (xform.Op, CreationRecord, error) {
	xf := xform.New(prim)
	ops, reset, err := xf.GetOrderedXformOps()
	if err != nil {
		return xform.Op{}, CreationRecord{}, err
	}
	scope := prim.Stage().EditTarget()
	name := xform.OpAttrName(xform.OpTranslate, suffix)
	rec := recordFor(scope.Layer(), prim.Path(), name)

	var op xform.Op
	if attr := prim.GetAttribute(name); attr.IsValid() {
		// keep whatever precision the stray attribute was authored in
		op, err = xform.MakeOp(attr, false)
	} else {
		op, err = xf.AddTranslateOp(p, suffix)
	}
	if err != nil {
		return xform.Op{}, rec, errors.Wrapf(err, "Failed to create %v on %v", name, prim.Path())
	}

	placed := place(ops, op)
	existing := make(map[string]struct{}, len(ops))
	for _, o := range ops {
		existing[o.Name()] = struct{}{}
	}
	for _, o := range placed {
		if _, ok := existing[o.Name()]; !ok {
			rec.OpNames = append(rec.OpNames, o.Name())
		}
	}

	if err := xf.SetXformOpOrder(placed, reset); err != nil {
		RemoveCreatedOperation(scope, prim, rec)
		return xform.Op{}, rec, errors.Wrapf(err, "Failed to create %v on %v", name, prim.Path())
	}
	log.Printf("[manip] created %v on %v in %v", name, prim.Path(), scope.Layer().Identifier())
	return op, rec, nil
}

// pivotRank is the canonical position of an op among the common pivot stack
// translate, rotatePivotTranslate, rotatePivot, rotate*, !invert!rotatePivot,
// scalePivotTranslate, scalePivot, scale, !invert!scalePivot.
// Ops outside that stack rank -1.
func pivotRank(op xform.Op) int {
	switch op.OpType() {
	case xform.OpTranslate:
		switch op.Suffix() {
		case "":
			return 0
		case xform.RotatePivotTranslate:
			return 1
		case xform.RotatePivot:
			if op.IsInverse() {
				return 4
			}
			return 2
		case xform.ScalePivotTranslate:
			return 5
		case xform.ScalePivot:
			if op.IsInverse() {
				return 8
			}
			return 6
		}
	case xform.OpScale:
		return 7
	default:
		if op.OpType().IsRotate() {
			return 3
		}
	}
	return -1
}

// insertRanked puts op right after the last op that ranks below it.
func insertRanked(ops []xform.Op, op xform.Op) []xform.Op {
	rank := pivotRank(op)
	at := 0
	for i, o := range ops {
		if r := pivotRank(o); r >= 0 && r < rank {
			at = i + 1
		}
	}
	result := make([]xform.Op, 0, len(ops)+1)
	result = append(result, ops[:at]...)
	result = append(result, op)
	return append(result, ops[at:]...)
}

// BindOrCreatePivot binds the rotatePivot or scalePivot translate. When it
// is missing a float pivot and its inverse twin are authored at their
// canonical positions.
func BindOrCreatePivot(prim usd.Prim, pivot string, t usd.TimeCode) (*Binding, error) {
	if pivot != xform.RotatePivot && pivot != xform.ScalePivot {
		return nil, errors.Errorf("%q is not a pivot", pivot)
	}
	if prim.Stage() == nil {
		return nil, errors.Wrapf(usd.ErrInvalidPrim, "%v has no stage", prim.Path())
	}
	scope := prim.Stage().EditTarget()
	if m, err := Bind(prim, pivot, t); err == nil {
		b := &Binding{Manipulator: m, HadSamples: m.Op().NumTimeSamples() != 0, Scope: scope}
		if !b.HadSamples {
			m.SetTime(usd.DefaultTime())
		}
		return b, nil
	}

	xf := xform.New(prim)
	op, rec, err := createOp(prim, xform.PrecisionFloat, pivot, func(ops []xform.Op, op xform.Op) []xform.Op {
		ops = insertRanked(ops, op)
		inv, err := xf.AddXformOp(xform.OpTranslate, op.Precision(), pivot, true)
		if err != nil {
			return ops
		}
		return insertRanked(ops, inv)
	})
	if err != nil {
		return nil, err
	}
	m, err := BindOp(prim, op.Name(), usd.DefaultTime())
	if err != nil {
		return nil, err
	}
	return &Binding{Manipulator: m, Created: true, Record: rec, Scope: scope}, nil
}

// RemoveCreatedOperation takes back what rec says creation authored on
// scope. Specs that are already gone are logged and skipped.
func RemoveCreatedOperation(scope usd.EditTarget, prim usd.Prim, rec CreationRecord) {
	layer := scope.Layer()
	spec := scope.GetPrimSpecForScenePath(prim.Path())
	if spec == nil {
		log.Printf("[manip] %v has no spec on %v, nothing to remove", prim.Path(), layer.Identifier())
		return
	}

	if attr := spec.Attribute(rec.AttrName); attr == nil {
		log.Printf("[manip] %v.%v missing on %v", prim.Path(), rec.AttrName, layer.Identifier())
	} else if rec.AttrSpec {
		spec.RemoveProperty(attr)
	} else if rec.hadDefault {
		if err := attr.SetDefault(rec.prevDefault); err != nil {
			log.Printf("[manip] Failed to restore %v.%v: %v", prim.Path(), rec.AttrName, err)
		}
	} else {
		attr.ClearDefault()
	}

	if rec.OrderAttr {
		if order := spec.Attribute(xform.OrderAttrName); order != nil {
			spec.RemoveProperty(order)
		} else {
			log.Printf("[manip] %v.%v missing on %v", prim.Path(), xform.OrderAttrName, layer.Identifier())
		}
	} else {
		removeOrderEntries(scope, prim, rec.OpNames)
	}

	for _, p := range rec.Specs {
		if ps := layer.PrimSpec(p); ps != nil && ps.IsEmpty() && !layer.HasChildSpecs(p) {
			layer.RemovePrimSpec(p)
		}
	}
	if config.DebugManipulators() {
		log.Printf("[manip] removed %v from %v", rec.AttrName, prim.Path())
	}
}

// removeOrderEntries drops exactly names from the raw xformOpOrder tokens,
// so entries whose attribute is already gone are removed too.
func removeOrderEntries(scope usd.EditTarget, prim usd.Prim, names []string) {
	xf := xform.New(prim)
	tokens, err := xf.OrderTokens()
	if err != nil {
		log.Printf("[manip] Failed to read op order of %v: %v", prim.Path(), err)
		return
	}
	drop := make(map[string]struct{}, len(names))
	for _, name := range names {
		drop[name] = struct{}{}
	}
	kept := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, ok := drop[token]; !ok {
			kept = append(kept, token)
		}
	}
	if len(kept) == len(tokens) {
		return
	}
	err = prim.Stage().WithEditTarget(scope, func() error {
		return xf.SetOrderTokens(kept)
	})
	if err != nil {
		log.Printf("[manip] Failed to restore op order of %v: %v", prim.Path(), err)
	}
}
