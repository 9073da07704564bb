package sequence

// Keyframe is a value at time T (seconds). Ease shapes the segment that
// starts at this keyframe.
type Keyframe struct {
	T    float64 `yaml:"t" json:"t"`
	V    float64 `yaml:"v" json:"v"`
	Ease string  `yaml:"ease,omitempty" json:"ease,omitempty"` // "linear","smooth","cubic"
}

// Envelope is a list of keyframes sorted by T.
type Envelope struct {
	Keys []Keyframe `yaml:"keys" json:"keys"`
}

// Input names a clip may automate.
const (
	InputPointerX = "pointer_x"
	InputPointerY = "pointer_y"
	InputScroll   = "scroll"
)

// Clip holds one preset for DurationS seconds while its envelopes drive the
// pointer and scroll inputs.
type Clip struct {
	Name      string              `yaml:"name" json:"name"`
	Preset    string              `yaml:"preset,omitempty" json:"preset,omitempty"`
	DurationS float64             `yaml:"duration_s" json:"durationS"`
	Inputs    map[string]Envelope `yaml:"inputs,omitempty" json:"inputs,omitempty"`
}

// Program is a full timeline of clips.
type Program struct {
	Version string `yaml:"version" json:"version"` // "seq.v1"
	Loop    bool   `yaml:"loop,omitempty" json:"loop,omitempty"`
	Clips   []Clip `yaml:"clips" json:"clips"`
}

type PlayerState string

const (
	Idle    PlayerState = "idle"
	Running PlayerState = "running"
	Paused  PlayerState = "paused"
)

// Hooks are the engine entry points the player drives.
type Hooks struct {
	SetPreset  func(name string)
	SetPointer func(x, y float64)
	SetScroll  func(s float64)
}

// Player owns a Program timeline and replays it through Hooks.
type Player struct {
	State PlayerState

	prog Program
	nowS float64 // position within program
	idx  int     // current clip index

	hooks Hooks
}
