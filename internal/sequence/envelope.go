package sequence

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func easeApply(kind string, x float64) float64 {
	switch kind {
	case "smooth":
		return x * x * (3 - 2*x)
	case "cubic":
		// 6x^5 - 15x^4 + 10x^3
		return x * x * x * (x*(x*6-15) + 10)
	default:
		return x
	}
}

// Eval returns the envelope value at t, holding the first and last values
// outside the keyed range. An empty envelope is 0.
func (e Envelope) Eval(t float64) float64 {
	n := len(e.Keys)
	switch {
	case n == 0:
		return 0
	case t <= e.Keys[0].T:
		return e.Keys[0].V
	case t >= e.Keys[n-1].T:
		return e.Keys[n-1].V
	}
	// first key strictly after t; t is inside (Keys[0].T, Keys[n-1].T)
	i := sort.Search(n, func(i int) bool { return e.Keys[i].T > t })
	a, b := e.Keys[i-1], e.Keys[i]
	den := b.T - a.T
	if den <= 0 {
		return b.V
	}
	u := easeApply(a.Ease, clamp01((t-a.T)/den))
	return a.V + (b.V-a.V)*u
}

// Normalize sorts the keys and rejects non-finite or unknown values.
func (e *Envelope) Normalize() error {
	sort.SliceStable(e.Keys, func(i, j int) bool { return e.Keys[i].T < e.Keys[j].T })
	for _, k := range e.Keys {
		if math.IsNaN(k.T) || math.IsInf(k.T, 0) || math.IsNaN(k.V) || math.IsInf(k.V, 0) {
			return fmt.Errorf("keyframe t=%v v=%v is not finite", k.T, k.V)
		}
		switch k.Ease {
		case "", "linear", "smooth", "cubic":
		default:
			return fmt.Errorf("unknown ease %q", k.Ease)
		}
	}
	return nil
}

// Validate normalizes every envelope in p and checks clip durations and
// input names.
func (p *Program) Validate() error {
	if len(p.Clips) == 0 {
		return errors.New("program has no clips")
	}
	for i := range p.Clips {
		c := &p.Clips[i]
		if !(c.DurationS > 0) || math.IsInf(c.DurationS, 0) {
			return fmt.Errorf("clip %d (%s): duration must be positive, got %v", i, c.Name, c.DurationS)
		}
		for name, env := range c.Inputs {
			switch name {
			case InputPointerX, InputPointerY, InputScroll:
			default:
				return fmt.Errorf("clip %d (%s): unknown input %q", i, c.Name, name)
			}
			if err := env.Normalize(); err != nil {
				return fmt.Errorf("clip %d (%s) input %s: %w", i, c.Name, name, err)
			}
			c.Inputs[name] = env
		}
	}
	return nil
}
