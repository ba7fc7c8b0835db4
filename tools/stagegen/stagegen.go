package main

import (
	"flag"
	"log"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/x448/float16"

	"github.com/mogaika/xformedit/sdf"
	"github.com/mogaika/xformedit/usd"
	"github.com/mogaika/xformedit/utils"
	"github.com/mogaika/xformedit/xform"
)

var precisions = []xform.Precision{xform.PrecisionHalf, xform.PrecisionFloat, xform.PrecisionDouble}

func vec(r *rand.Rand, scale float64) mgl64.Vec3 {
	return mgl64.Vec3{
		(r.Float64()*2 - 1) * scale,
		(r.Float64()*2 - 1) * scale,
		(r.Float64()*2 - 1) * scale,
	}
}

func scalar(v float64, p xform.Precision) any {
	switch p {
	case xform.PrecisionHalf:
		return float16.Fromfloat32(float32(v))
	case xform.PrecisionFloat:
		return float32(v)
	}
	return v
}

func addOp(x xform.Xformable, t xform.OpType, p xform.Precision, suffix string, v any, tc usd.TimeCode) xform.Op {
	op, err := x.AddXformOp(t, p, suffix, false)
	if err != nil {
		log.Fatal(err)
	}
	if err := op.Set(v, tc); err != nil {
		log.Fatal(err)
	}
	return op
}

// randomStack authors one of a handful of op stacks seen in real scenes.
func randomStack(r *rand.Rand, x xform.Xformable) {
	p := precisions[r.Intn(len(precisions))]
	var ops []xform.Op
	reset := false

	switch r.Intn(6) {
	case 0:
		// empty stack
	case 1:
		ops = append(ops, addOp(x, xform.OpTranslate, p, "", xform.Vec3InPrecision(vec(r, 10), p), usd.DefaultTime()))
	case 2:
		ops = append(ops,
			addOp(x, xform.OpTranslate, p, "", xform.Vec3InPrecision(vec(r, 10), p), usd.DefaultTime()),
			addOp(x, xform.OpRotateXYZ, xform.PrecisionFloat, "", mgl32.Vec3{float32(r.Intn(360)), float32(r.Intn(360)), 0}, usd.DefaultTime()),
			addOp(x, xform.OpScale, xform.PrecisionFloat, "", mgl32.Vec3{1, 2, 1}, usd.DefaultTime()))
	case 3:
		// sampled translate under a rotate
		rz := addOp(x, xform.OpRotateZ, p, "", scalar(float64(r.Intn(360)), p), usd.DefaultTime())
		tr := addOp(x, xform.OpTranslate, xform.PrecisionDouble, "", vec(r, 5), usd.At(0))
		if err := tr.Set(vec(r, 5), usd.At(24)); err != nil {
			log.Fatal(err)
		}
		ops = append(ops, rz, tr)
	case 4:
		m := mgl64.Translate3D(vec(r, 10).Elem()).Mul4(mgl64.HomogRotate3DY(r.Float64() * 3))
		ops = append(ops, addOp(x, xform.OpTransform, xform.PrecisionDouble, "", m, usd.DefaultTime()))
	case 5:
		pivot := addOp(x, xform.OpTranslate, xform.PrecisionFloat, xform.RotatePivot, mgl32.Vec3{1, 0, 0}, usd.DefaultTime())
		inv, err := x.AddXformOp(xform.OpTranslate, xform.PrecisionFloat, xform.RotatePivot, true)
		if err != nil {
			log.Fatal(err)
		}
		ops = append(ops,
			addOp(x, xform.OpTranslate, p, "", xform.Vec3InPrecision(vec(r, 10), p), usd.DefaultTime()),
			pivot,
			addOp(x, xform.OpRotateY, xform.PrecisionFloat, "", float32(90), usd.DefaultTime()),
			inv)
		reset = r.Intn(2) == 0
	}

	if len(ops) != 0 || reset {
		if err := x.SetXformOpOrder(ops, reset); err != nil {
			log.Fatal(err)
		}
	}
}

func main() {
	var count int
	var seed int64
	var out string
	flag.IntVar(&count, "n", 16, "Number of prims to generate")
	flag.Int64Var(&seed, "seed", 1, "Random seed")
	flag.StringVar(&out, "o", "stage.yaml", "Output stage file")
	flag.Parse()

	r := rand.New(rand.NewSource(seed))
	names := utils.NewRandomNameGenerator(seed)

	stage := usd.New(sdf.NewLayer(out))
	world, err := stage.DefinePrim("/World", "Xform")
	if err != nil {
		log.Fatal(err)
	}

	parents := []usd.Prim{world}
	for i := 0; i < count; i++ {
		parent := parents[r.Intn(len(parents))]
		name := parent.UniqueChildName(names.RandomName())
		prim, err := stage.DefinePrim(parent.Path().AppendChild(name), "Xform")
		if err != nil {
			log.Fatal(err)
		}
		randomStack(r, xform.New(prim))
		parents = append(parents, prim)
	}

	if err := stage.Save(out); err != nil {
		log.Fatal(err)
	}
	log.Printf("Written %d prims to %q", count+1, out)
}
