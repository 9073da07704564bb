// Package diagnostics describes recoverable problems the renderer ran into
// so hosts can surface them without parsing log lines.
package diagnostics

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

const (
	CodeCompileFailed  = "PROGRAM.COMPILE_FAILED"
	CodeQualityDegrade = "QUALITY.DEGRADED"
	CodeTargetRetry    = "TARGET.RETRY"
	CodeTargetFailed   = "TARGET.FAILED"
	CodeFallback       = "OUTPUT.FALLBACK"
	CodeSurfaceWrite   = "SURFACE.WRITE_FAILED"
)

type Diagnostic struct {
	Time           time.Time      `json:"time"`
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

// Sink receives diagnostics as they are raised.
type Sink func(Diagnostic)

// Log writes d to l at the level matching its severity.
func Log(l zerolog.Logger, d Diagnostic) {
	var ev *zerolog.Event
	switch d.Severity {
	case Err:
		ev = l.Error()
	case Warn:
		ev = l.Warn()
	default:
		ev = l.Info()
	}
	ev = ev.Str("code", d.Code)
	if d.Detail != "" {
		ev = ev.Str("detail", d.Detail)
	}
	if len(d.Evidence) > 0 {
		ev = ev.Fields(d.Evidence)
	}
	ev.Msg(d.Summary)
}

// Ring keeps the most recent diagnostics for late subscribers.
type Ring struct {
	mu   sync.Mutex
	buf  []Diagnostic
	size int
}

func NewRing(size int) *Ring {
	if size <= 0 {
		size = 32
	}
	return &Ring{size: size}
}

func (r *Ring) Add(d Diagnostic) {
	if d.Time.IsZero() {
		d.Time = time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf = append(r.buf, d)
	if len(r.buf) > r.size {
		r.buf = r.buf[len(r.buf)-r.size:]
	}
}

// Snapshot returns the held diagnostics, oldest first.
func (r *Ring) Snapshot() []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Diagnostic, len(r.buf))
	copy(out, r.buf)
	return out
}
