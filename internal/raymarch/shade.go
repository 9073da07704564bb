package raymarch

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/coreman2200/lensfield/internal/params"
	"github.com/coreman2200/lensfield/internal/sdf"
)

var lumaSat = mgl64.Vec3{0.2125, 0.7154, 0.0721}

func (tr *Tracer) shadeSurface(ro, sp, rd mgl64.Vec3) mgl64.Vec3 {
	m := tr.prog.Bundle.Material
	sn := sdf.Normal(tr.field, sp)

	bg := tr.refracted(sp, sn, rd)
	if m.BgIntensity != 1 {
		bg = bg.Mul(m.BgIntensity)
	}
	if m.BgSaturation != 1 {
		bg = saturate(bg, m.BgSaturation)
	}
	return clampVec(tr.phong(bg, ro, sp, sn))
}

// refracted is what the lens shows through itself: the ray bends in at sp,
// bends out at the far surface and lands on the background plane.
func (tr *Tracer) refracted(sp, sn, rd mgl64.Vec3) mgl64.Vec3 {
	eta := tr.prog.Bundle.Material.RefractionIndex

	rr, _ := Refract(rd, sn, eta)
	inside := sp.Add(rr.Mul(insideNudge))
	t := tr.trace(inside, rr, insideBound)
	if t >= insideBound {
		return mgl64.Vec3{}
	}
	sp2 := inside.Add(rr.Mul(t))
	sn2 := sdf.Normal(tr.field, sp2).Mul(-1)
	rr2, _ := Refract(rr, sn2, eta)

	bgPos, ok := intersectPlane(sp2, rr2, BgDist)
	if !ok {
		return mgl64.Vec3{}
	}

	var bg mgl64.Vec3
	if tr.prog.Features.RefractBg {
		bg = tr.background(mgl64.Vec2{bgPos[0], bgPos[1]}, true)
	} else {
		bg = tr.sceneColor
	}
	if tr.prog.Features.Caustics {
		i := tr.causticIntensity(bgPos)
		bg = bg.Add(clampVec(tr.lightColor.Mul(i)))
	}
	return bg
}

// causticIntensity looks for a path from the background point back through
// a lens toward the light and scores how close it lands to the light box.
func (tr *Tracer) causticIntensity(bgSp mgl64.Vec3) float64 {
	m := tr.prog.Bundle.Material
	lp := tr.light

	rdb := normalize(lp.Sub(bgSp))
	t := tr.trace(bgSp, rdb, causticBound)
	if t >= causticBound {
		return 0
	}
	sp := bgSp.Add(rdb.Mul(t))
	sn := sdf.Normal(tr.field, sp)
	rr, _ := Refract(rdb, sn, m.RefractionIndex)
	inside := sp.Add(rr.Mul(insideNudge))
	t = tr.trace(inside, rr, causticInside)
	if t >= causticInside {
		return 0
	}
	sp2 := inside.Add(rr.Mul(t))
	sn2 := sdf.Normal(tr.field, sp2).Mul(-1)
	rr2, _ := Refract(rr, sn2, m.RefractionIndex)

	sp3, ok := intersectPlane(sp2, rr2, lp[2])
	if !ok {
		return 0
	}
	d := m.CausticIntensity / math.Max(tr.lightBox(sp3, lp), causticFloor)
	if dist := bgSp.Sub(lp).Len(); dist > 0 {
		d /= dist
	}
	return d
}

func (tr *Tracer) lightBox(p, lp mgl64.Vec3) float64 {
	return sdf.LightBox(
		mgl64.Vec2{p[0] - lp[0], p[1] - lp[1]},
		tr.lightDims, tr.prog.Bundle.Light.MatchAspectRatio, tr.aspect,
	)
}

func (tr *Tracer) phong(ambient, ro, sp, sn mgl64.Vec3) mgl64.Vec3 {
	m := tr.prog.Bundle.Material
	lp := tr.light

	// Follow the normal to the light plane; the closer that lands to the
	// light box the brighter the highlight.
	var lightPower float64
	if math.Abs(sn[2]) > 1e-12 {
		tlp := (lp[2] - sp[2]) / sn[2]
		ilp := sp.Add(sn.Mul(tlp))
		lightPower = m.ReflectIntensity / math.Sqrt(math.Max(tr.lightBox(ilp, lp), specularFloor))
	}

	l := normalize(lp)
	h := normalize(ro.Add(l))
	ndotl := sn.Dot(l)
	ndoth := sn.Dot(h)

	col := ambient.
		Add(tr.lightColor.Mul(math.Max(0, ndotl) * m.Diffuseness)).
		Add(tr.lightColor.Mul(math.Pow(lightPower, ndoth*ndoth) / 10))
	col = clampVec(mix(col, tr.matColor, m.LightMix))
	return ContrastBrightness(col, m.Contrast, m.Brightness)
}

// background is the flat scene colour, optionally patterned, blended with
// the background blob layer.
func (tr *Tracer) background(uv mgl64.Vec2, pattern bool) mgl64.Vec3 {
	s := tr.prog.Bundle.Scene
	c := 1.0
	if pattern {
		switch s.Pattern {
		case params.PatternDots:
			m := fract2(uv.Mul(s.PatternScale))
			c = 1 - clamp(smoothstep(0.29, 0.3, m.Len()), 0, 1)*s.PatternIntensity
		case params.PatternCheckers:
			m := fract2(uv.Mul(s.PatternScale))
			on := 0.0
			if m[0]*m[1] <= 0 {
				on = 1
			}
			c = 1 - clamp(math.Max(on, 0.1), 0, 1)*s.PatternIntensity
		}
	}
	col := clampVec(tr.sceneColor.Mul(c))
	if tr.prog.Features.BgBlobs {
		blobs := Layer(uv.Mul(0.5), tr.prog.BgBlobs, tr.bgFade).Mul(2)
		col = mix(col, blobs, 0.4)
	}
	return col
}

// ContrastBrightness scales v around mid grey, offsets it and clamps.
func ContrastBrightness(v mgl64.Vec3, contrast, brightness float64) mgl64.Vec3 {
	f := func(x float64) float64 { return clamp((x-0.5)*contrast+0.5+brightness, 0, 1) }
	return mgl64.Vec3{f(v[0]), f(v[1]), f(v[2])}
}

func saturate(c mgl64.Vec3, k float64) mgl64.Vec3 {
	g := c.Dot(lumaSat) / 4
	return mix(mgl64.Vec3{g, g, g}, c, k)
}

// fract2 wraps each component into [-0.5,0.5).
func fract2(v mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{v[0] - math.Floor(v[0]) - 0.5, v[1] - math.Floor(v[1]) - 0.5}
}
