// Package ws exposes the shop-floor status surface: a WebSocket stream
// of axis state, a control socket for brightness and effects, and the
// plain HTTP health and metrics endpoints.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/intelliservenz/firecnc/internal/axis"
	"github.com/intelliservenz/firecnc/internal/core"
	"github.com/intelliservenz/firecnc/internal/logging"
)

const broadcastPeriod = 500 * time.Millisecond

// State bridges the controller to HTTP clients. It only reads from the
// controller through its concurrency-safe accessors.
type State struct {
	mu      sync.RWMutex
	ctl     *core.Controller
	ring    *logging.Ring
	log     zerolog.Logger
	clients map[*websocket.Conn]bool
	start   time.Time
}

func NewState(ctl *core.Controller, ring *logging.Ring, log zerolog.Logger) *State {
	return &State{
		ctl:     ctl,
		ring:    ring,
		log:     log,
		clients: map[*websocket.Conn]bool{},
		start:   time.Now(),
	}
}

// Routes registers all handlers on mux.
func (s *State) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/state", s.HandleStateWS)
	mux.HandleFunc("/ws/control", s.HandleControlWS)
	mux.HandleFunc("/health", s.HandleHealth)
	mux.HandleFunc("/logz", s.HandleLogz)
	mux.Handle("/metrics", promhttp.Handler())
}

type axisStatus struct {
	PositionMM int32  `json:"position_mm"`
	MinLimit   bool   `json:"min_limit"`
	MaxLimit   bool   `json:"max_limit"`
	Outcome    string `json:"outcome"`
	Brightness uint8  `json:"brightness"`
}

type statusFrame struct {
	T    int64                 `json:"t"`
	Mode string                `json:"mode"`
	Axes map[string]axisStatus `json:"axes"`
}

func (s *State) status() statusFrame {
	snap := s.ctl.Snapshot()
	f := statusFrame{
		T:    time.Now().UnixNano(),
		Mode: s.ctl.Mode().String(),
		Axes: map[string]axisStatus{},
	}
	for _, a := range axis.All {
		st := snap[a]
		f.Axes[a.String()] = axisStatus{
			PositionMM: st.PositionMM,
			MinLimit:   st.MinLimit,
			MaxLimit:   st.MaxLimit,
			Outcome:    st.LastOutcome.String(),
			Brightness: s.ctl.Brightness(a),
		}
	}
	return f
}

// RunBroadcastLoop pushes the axis status to all state clients until
// ctx is cancelled.
func (s *State) RunBroadcastLoop(ctx context.Context) {
	ticker := time.NewTicker(broadcastPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		b, err := json.Marshal(s.status())
		if err != nil {
			continue
		}
		s.mu.RLock()
		for c := range s.clients {
			c.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
			if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
				s.log.Debug().Err(err).Msg("write state")
			}
		}
		s.mu.RUnlock()
	}
}

func (s *State) HandleStateWS(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.clients, conn)
			s.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *State) HandleControlWS(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg map[string]any
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		s.applyControl(msg)
		b, err := json.Marshal(s.status())
		if err == nil {
			_ = conn.WriteMessage(websocket.TextMessage, b)
		}
	}
}

func (s *State) applyControl(msg map[string]any) {
	if v, ok := msg["brightness"].(map[string]any); ok {
		for _, a := range axis.All {
			if bv, ok2 := v[a.String()].(float64); ok2 {
				s.ctl.SetBrightness(a, clampByte(bv))
			}
		}
	}
	if v, ok := msg["chase"].(bool); ok {
		if v {
			s.ctl.StartChase()
		} else {
			s.ctl.StopChase()
		}
	}
	if v, ok := msg["sdError"].(bool); ok {
		if v {
			s.ctl.RaiseSdError()
		} else {
			s.ctl.ClearSdError()
		}
	}
}

func (s *State) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"uptime_s": time.Since(s.start).Seconds(),
		"mode":     s.ctl.Mode().String(),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// HandleLogz dumps the in-memory log ring, newest last.
func (s *State) HandleLogz(w http.ResponseWriter, r *http.Request) {
	if s.ring == nil {
		http.Error(w, "log ring disabled", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	for _, line := range s.ring.Snapshot() {
		_, _ = w.Write([]byte(line))
	}
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
