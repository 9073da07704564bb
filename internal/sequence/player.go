package sequence

import (
	"math"
	"sync"
)

func NewPlayer(h Hooks) *Player {
	return &Player{State: Idle, hooks: h}
}

// Load replaces the current program and rewinds to Idle.
func (p *Player) Load(prog Program) error {
	if err := prog.Validate(); err != nil {
		return err
	}
	p.prog = prog
	p.nowS = 0
	p.idx = 0
	p.State = Idle
	return nil
}

// Start moves to Running and applies the first clip's preset.
func (p *Player) Start() {
	if p.State == Running || len(p.prog.Clips) == 0 {
		return
	}
	if p.State == Idle {
		p.enterClip()
	}
	p.State = Running
}

func (p *Player) Pause() {
	if p.State == Running {
		p.State = Paused
	}
}

func (p *Player) Resume() {
	if p.State == Paused {
		p.State = Running
	}
}

// Stop rewinds to the start.
func (p *Player) Stop() {
	p.State = Idle
	p.nowS = 0
	p.idx = 0
}

// Now is the position within the program in seconds.
func (p *Player) Now() float64 { return p.nowS }

// Seek jumps to absolute program time t, clamped into [0, total).
func (p *Player) Seek(t float64) {
	if len(p.prog.Clips) == 0 {
		return
	}
	if t < 0 {
		t = 0
	}
	if total := p.totalDuration(); t >= total {
		t = math.Nextafter(total, -1)
	}
	acc := 0.0
	for i, c := range p.prog.Clips {
		if t < acc+c.DurationS {
			p.idx = i
			break
		}
		acc += c.DurationS
	}
	p.nowS = t
	p.enterClip()
	p.emitInputs()
}

// Tick advances by dt seconds and pushes the automated inputs.
func (p *Player) Tick(dt float64) {
	if p.State != Running || len(p.prog.Clips) == 0 || dt <= 0 {
		return
	}
	p.nowS += dt
	p.emitInputs()

	clip, localT := p.currentClipAndLocalT()
	if localT >= clip.DurationS {
		p.advanceClip()
	}
}

func (p *Player) emitInputs() {
	clip, localT := p.currentClipAndLocalT()
	ex, hasX := clip.Inputs[InputPointerX]
	ey, hasY := clip.Inputs[InputPointerY]
	if (hasX || hasY) && p.hooks.SetPointer != nil {
		p.hooks.SetPointer(ex.Eval(localT), ey.Eval(localT))
	}
	if es, ok := clip.Inputs[InputScroll]; ok && p.hooks.SetScroll != nil {
		p.hooks.SetScroll(es.Eval(localT))
	}
}

func (p *Player) enterClip() {
	clip := p.prog.Clips[p.idx]
	if clip.Preset != "" && p.hooks.SetPreset != nil {
		p.hooks.SetPreset(clip.Preset)
	}
}

func (p *Player) currentClipAndLocalT() (Clip, float64) {
	acc := 0.0
	for i := 0; i < p.idx; i++ {
		acc += p.prog.Clips[i].DurationS
	}
	return p.prog.Clips[p.idx], p.nowS - acc
}

func (p *Player) totalDuration() float64 {
	total := 0.0
	for _, c := range p.prog.Clips {
		total += c.DurationS
	}
	return total
}

func (p *Player) advanceClip() {
	next := p.idx + 1
	if next >= len(p.prog.Clips) {
		if !p.prog.Loop {
			p.State = Idle
			return
		}
		next = 0
		p.nowS -= p.totalDuration()
	}
	p.idx = next
	p.enterClip()
}

// SafePlayer serializes access from the frame loop and control handlers.
type SafePlayer struct {
	mu sync.Mutex
	P  *Player
}

func NewSafePlayer(h Hooks) *SafePlayer {
	return &SafePlayer{P: NewPlayer(h)}
}

func (s *SafePlayer) With(f func(p *Player)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(s.P)
}
