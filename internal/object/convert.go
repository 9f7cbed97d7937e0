package object

import (
	"fmt"

	"github.com/perf-analysis/pkg/model"
)

// FromModelObject converts a wire-format task or solution object into the
// engine's geometry-aware Object. Obstacles and deposits must carry
// Width/Height; mines, conveyors and combiners must carry Subtype, while a
// deposit or factory without one gets subtype 0. Both are validated since
// a hand-edited task/solution file is an
// untrusted boundary (spec.md §7).
func FromModelObject(m model.Object) (Object, error) {
	x, y := int(m.X), int(m.Y)
	switch m.Kind {
	case model.KindObstacle:
		if m.Width == nil || m.Height == nil {
			return Object{}, fmt.Errorf("object: obstacle at (%d,%d) missing width/height", x, y)
		}
		return NewObstacle(x, y, *m.Width, *m.Height), nil
	case model.KindDeposit:
		if m.Width == nil || m.Height == nil {
			return Object{}, fmt.Errorf("object: deposit at (%d,%d) missing width/height", x, y)
		}
		subtype := uint8(0)
		if m.Subtype != nil {
			subtype = *m.Subtype
		}
		return NewDeposit(x, y, *m.Width, *m.Height, subtype), nil
	case model.KindMine:
		if m.Subtype == nil {
			return Object{}, fmt.Errorf("object: mine at (%d,%d) missing subtype", x, y)
		}
		return Object{Kind: KindMine, Subtype: *m.Subtype, X: x, Y: y}, nil
	case model.KindConveyor:
		if m.Subtype == nil {
			return Object{}, fmt.Errorf("object: conveyor at (%d,%d) missing subtype", x, y)
		}
		return Object{Kind: KindConveyor, Subtype: *m.Subtype, X: x, Y: y}, nil
	case model.KindCombiner:
		if m.Subtype == nil {
			return Object{}, fmt.Errorf("object: combiner at (%d,%d) missing subtype", x, y)
		}
		return Object{Kind: KindCombiner, Subtype: *m.Subtype, X: x, Y: y}, nil
	case model.KindFactory:
		subtype := uint8(0)
		if m.Subtype != nil {
			subtype = *m.Subtype
		}
		return NewFactory(x, y, subtype), nil
	default:
		return Object{}, fmt.Errorf("object: unknown kind %q", m.Kind)
	}
}

// ToModelObject converts an engine Object back into wire format for
// solution output.
func (o Object) ToModelObject() model.Object {
	x, y := int8(o.X), int8(o.Y)
	switch o.Kind {
	case KindObstacle:
		w, h := o.Width, o.Height
		return model.Object{Kind: model.KindObstacle, X: x, Y: y, Width: &w, Height: &h}
	case KindDeposit:
		w, h, st := o.Width, o.Height, o.Subtype
		return model.Object{Kind: model.KindDeposit, X: x, Y: y, Width: &w, Height: &h, Subtype: &st}
	case KindMine:
		st := o.Subtype
		return model.Object{Kind: model.KindMine, X: x, Y: y, Subtype: &st}
	case KindConveyor:
		st := o.Subtype
		return model.Object{Kind: model.KindConveyor, X: x, Y: y, Subtype: &st}
	case KindCombiner:
		st := o.Subtype
		return model.Object{Kind: model.KindCombiner, X: x, Y: y, Subtype: &st}
	case KindFactory:
		st := o.Subtype
		return model.Object{Kind: model.KindFactory, X: x, Y: y, Subtype: &st}
	default:
		panic(fmt.Sprintf("object: unknown kind %d", o.Kind))
	}
}
