// Package ws streams rendered frames to browsers and feeds their pointer,
// scroll, resize and preset messages back into the engine.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/lensfield/internal/config"
	diag "github.com/coreman2200/lensfield/internal/diagnostics"
	"github.com/coreman2200/lensfield/internal/params"
	"github.com/coreman2200/lensfield/internal/render"
	"github.com/coreman2200/lensfield/internal/sequence"
)

// Controller is the engine surface the control socket drives.
type Controller interface {
	SetPointer(x, y float64)
	SetScroll(s float64)
	Resize(w, h int, dpr float64) error
	Degrade()
	Reconfigure(b params.Bundle) error
}

// Control is one message on /control. Absent fields are left alone.
type Control struct {
	Pointer *struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	} `json:"pointer,omitempty"`
	Scroll *float64 `json:"scroll,omitempty"`
	Resize *struct {
		W   int     `json:"w"`
		H   int     `json:"h"`
		DPR float64 `json:"dpr"`
	} `json:"resize,omitempty"`
	Degrade  bool   `json:"degrade,omitempty"`
	Preset   string `json:"preset,omitempty"`
	Sequence string `json:"sequence,omitempty"` // "play" | "pause" | "stop"
}

// Status is sent on connect and after every control message.
type Status struct {
	Preset  string   `json:"preset"`
	Presets []string `json:"presets"`
	W       int      `json:"w"`
	H       int      `json:"h"`
	FPS     int      `json:"fps"`
	FrameID uint64   `json:"frame_id"`
	Error   string   `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

const writeWait = 200 * time.Millisecond

// State is a render.Surface that fans frames out to websocket clients.
type State struct {
	mu  sync.RWMutex
	wmu sync.Mutex // serializes writes to client sockets

	FPS    int
	Ctl    Controller
	Player *sequence.SafePlayer

	// ConfigPath, when set, receives the config with the latest preset.
	ConfigPath string
	Config     *config.Config

	preset    string
	w, h      int
	rgb       []byte
	frameID   uint64
	startTime time.Time

	clients     map[*websocket.Conn]bool
	diagClients map[*websocket.Conn]bool
	diags       *diag.Ring
}

func NewState(ctl Controller, fps int, preset string) *State {
	return &State{
		FPS:         fps,
		Ctl:         ctl,
		preset:      preset,
		startTime:   time.Now(),
		clients:     map[*websocket.Conn]bool{},
		diagClients: map[*websocket.Conn]bool{},
		diags:       diag.NewRing(64),
	}
}

// RunRenderLoop calls tick at FPS until ctx is done. dt is wall time since
// the previous call.
func (s *State) RunRenderLoop(ctx context.Context, tick func(dt float64) error) {
	ticker := time.NewTicker(time.Second / time.Duration(max(1, s.FPS)))
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			if s.Player != nil {
				s.Player.With(func(p *sequence.Player) { p.Tick(dt) })
			}
			if err := tick(dt); err != nil {
				log.Debug().Err(err).Msg("tick")
			}
		}
	}
}

// Write implements render.Surface.
func (s *State) Write(f render.Frame) error {
	s.mu.Lock()
	s.rgb = render.ToRGB8(s.rgb, f.Pix)
	s.w, s.h = f.W, f.H
	s.frameID = f.ID
	s.mu.Unlock()
	s.broadcastFrame()
	return nil
}

func (s *State) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()
	s.sendStatus(conn, nil)

	go s.drain(conn, s.clients)
}

func (s *State) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.diagClients[conn] = true
	s.mu.Unlock()
	for _, d := range s.diags.Snapshot() {
		s.writeJSON(conn, d)
	}

	go s.drain(conn, s.diagClients)
}

// drain reads until the client goes away, then forgets it.
func (s *State) drain(conn *websocket.Conn, set map[*websocket.Conn]bool) {
	defer func() {
		s.mu.Lock()
		delete(set, conn)
		s.mu.Unlock()
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *State) HandleControlWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	s.sendStatus(conn, nil)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Control
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendStatus(conn, fmt.Errorf("bad control message: %w", err))
			continue
		}
		s.sendStatus(conn, s.ApplyControl(msg))
	}
}

func (s *State) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	resp := map[string]any{
		"frame_id": s.frameID,
		"uptime_s": time.Since(s.startTime).Seconds(),
		"fps":      s.FPS,
		"w":        s.w,
		"h":        s.h,
		"preset":   s.preset,
		"clients":  len(s.clients),
	}
	s.mu.RUnlock()
	resp["diagnostics"] = len(s.diags.Snapshot())
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// ApplyControl forwards msg to the controller. The first error stops the
// remaining fields.
func (s *State) ApplyControl(msg Control) error {
	if msg.Pointer != nil {
		s.Ctl.SetPointer(msg.Pointer.X, msg.Pointer.Y)
	}
	if msg.Scroll != nil {
		s.Ctl.SetScroll(*msg.Scroll)
	}
	if r := msg.Resize; r != nil {
		if err := s.Ctl.Resize(r.W, r.H, r.DPR); err != nil {
			return err
		}
	}
	if msg.Degrade {
		s.Ctl.Degrade()
	}
	if msg.Preset != "" {
		if err := s.SetPreset(msg.Preset); err != nil {
			return err
		}
	}
	if msg.Sequence != "" {
		if s.Player == nil {
			return fmt.Errorf("no sequence loaded")
		}
		switch msg.Sequence {
		case "play":
			s.Player.With(func(p *sequence.Player) {
				p.Start()
				p.Resume()
			})
		case "pause":
			s.Player.With(func(p *sequence.Player) { p.Pause() })
		case "stop":
			s.Player.With(func(p *sequence.Player) { p.Stop() })
		default:
			return fmt.Errorf("unknown sequence command %q", msg.Sequence)
		}
	}
	return nil
}

// SetPreset reconfigures the engine with a named preset plus the config's
// overrides, and persists the choice.
func (s *State) SetPreset(name string) error {
	cfg := config.Default()
	s.mu.RLock()
	if s.Config != nil {
		cp := *s.Config
		cfg = &cp
	}
	s.mu.RUnlock()
	cfg.Preset = name
	b, err := cfg.Bundle()
	if err != nil {
		return err
	}
	if err := s.Ctl.Reconfigure(b); err != nil {
		return err
	}
	s.mu.Lock()
	s.preset = name
	s.mu.Unlock()
	s.saveConfig(cfg)
	return nil
}

func (s *State) saveConfig(cfg *config.Config) {
	if s.ConfigPath == "" {
		return
	}
	if err := config.Save(s.ConfigPath, cfg); err != nil {
		log.Warn().Err(err).Str("path", s.ConfigPath).Msg("save config")
		return
	}
	s.mu.Lock()
	s.Config = cfg
	s.mu.Unlock()
}

func (s *State) sendStatus(conn *websocket.Conn, err error) {
	s.mu.RLock()
	st := Status{
		Preset:  s.preset,
		Presets: params.Presets(),
		W:       s.w,
		H:       s.h,
		FPS:     s.FPS,
		FrameID: s.frameID,
	}
	s.mu.RUnlock()
	if err != nil {
		st.Error = err.Error()
	}
	s.writeJSON(conn, st)
}

type frameMsg struct {
	T       int64  `json:"t"`
	FrameID uint64 `json:"frame_id"`
	W       int    `json:"w"`
	H       int    `json:"h"`
	RGB     []byte `json:"rgb"`
}

func (s *State) broadcastFrame() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.clients) == 0 {
		return
	}
	b, _ := json.Marshal(frameMsg{T: time.Now().UnixNano(), FrameID: s.frameID, W: s.w, H: s.h, RGB: s.rgb})
	for c := range s.clients {
		s.writeRaw(c, b)
	}
}

// PushDiag records d and sends it to /diag subscribers. It is a
// diagnostics.Sink.
func (s *State) PushDiag(d diag.Diagnostic) {
	s.diags.Add(d)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.diagClients {
		s.writeJSON(c, d)
	}
}

func (s *State) writeJSON(c *websocket.Conn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Debug().Err(err).Msg("marshal")
		return
	}
	s.writeRaw(c, b)
}

func (s *State) writeRaw(c *websocket.Conn, b []byte) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	c.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
		log.Debug().Err(err).Msg("write")
	}
}

// Mux wires the handlers under their paths.
func (s *State) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleFramesWS)
	mux.HandleFunc("/diag", s.HandleDiagWS)
	mux.HandleFunc("/control", s.HandleControlWS)
	mux.HandleFunc("/health", s.HandleHealth)
	return mux
}
