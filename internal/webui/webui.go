// Copyright (C) 2025 Josh Simonot
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package webui

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"radvalve/v2/internal/config"
	"radvalve/v2/internal/events"
	"radvalve/v2/pkg/logger"
)

//go:embed www
var assets embed.FS

// Commander is the control surface offered to the user.
type Commander interface {
	SetWarmMode(warm bool)
	StartBake()
	CancelBake()
	MarkOccupied()
	SetHolidayMode()
	Wiggle()
	SetDial(pot uint8) error
	SetWarmTargetC(t uint8) error
	SetFrostTargetC(t uint8) error
	SetSchedule(slot int, start string) error
	Status() (events.ValveUpdate, error)
}

// Request is a command from the page, over the websocket or POSTed.
type Request struct {
	Command string `json:"command"`
	Value   int    `json:"value,omitempty"`
	Slot    int    `json:"slot,omitempty"`
	Start   string `json:"start,omitempty"`
}

type reply struct {
	Error string `json:"error"`
}

var errUnknownCommand = errors.New("unknown command")

type clientSet struct {
	clients map[*websocket.Conn]bool
	mutex   sync.Mutex
}

func (c *clientSet) broadcast(pm *websocket.PreparedMessage, log *logger.Logger) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for ws := range c.clients {
		if err := ws.WritePreparedMessage(pm); err != nil {
			log.Error("failed to write message: %v", err)
			ws.Close()
			delete(c.clients, ws)
		}
	}
}

// send writes to one client, serialised with broadcasts.
func (c *clientSet) send(ws *websocket.Conn, v any) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return ws.WriteJSON(v)
}

func (c *clientSet) add(ws *websocket.Conn) {
	c.mutex.Lock()
	c.clients[ws] = true
	c.mutex.Unlock()
}

func (c *clientSet) remove(ws *websocket.Conn) {
	c.mutex.Lock()
	delete(c.clients, ws)
	c.mutex.Unlock()
}

func (c *clientSet) closeAll() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for ws := range c.clients {
		ws.Close()
		delete(c.clients, ws)
	}
}

// Service shows live valve state and takes user commands.
type Service struct {
	conf    *config.Config
	ctl     Commander
	clients *clientSet
	log     *logger.Logger
}

func New(conf *config.Config, ctl Commander) *Service {
	return &Service{
		conf:    conf,
		ctl:     ctl,
		clients: &clientSet{clients: make(map[*websocket.Conn]bool)},
		log:     logger.New("WebUI"),
	}
}

// Run pushes every valve update to connected pages.
func (s *Service) Run(ctx context.Context) {
	s.log.Info("Running...")
	defer s.log.Info("Stopped")
	defer s.clients.closeAll()

	updates, _ := s.conf.EventBus.Subscribe(ctx, events.TopicValve, true)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-updates:
			if ok {
				s.broadcast(ev.(events.ValveUpdate))
			}
		}
	}
}

func (s *Service) broadcast(up events.ValveUpdate) {
	data, err := json.Marshal(up)
	if err != nil {
		s.log.Error("failed to marshal broadcast: %v", err)
		return
	}
	pm, err := websocket.NewPreparedMessage(websocket.TextMessage, data)
	if err != nil {
		s.log.Error("failed to prepare message: %v", err)
		return
	}
	s.clients.broadcast(pm, s.log)
}

// Handler serves the page, the websocket and a small JSON API.
func (s *Service) Handler() http.Handler {
	www, _ := fs.Sub(assets, "www")
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.FS(www)))
	mux.HandleFunc("/ws", s.serveWebSockets())
	mux.HandleFunc("/api/status", s.serveStatus)
	mux.HandleFunc("/api/command", s.serveCommand)
	return mux
}

func (s *Service) serveStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.ctl.Status()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(st)
}

func (s *Service) serveCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.apply(req); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// apply runs one user command.
func (s *Service) apply(req Request) error {
	s.log.Debug("command %+v", req)
	switch req.Command {
	case "warm":
		s.ctl.SetWarmMode(true)
	case "frost":
		s.ctl.SetWarmMode(false)
	case "bake":
		s.ctl.StartBake()
	case "cancel_bake":
		s.ctl.CancelBake()
	case "occupied":
		s.ctl.MarkOccupied()
	case "holiday":
		s.ctl.SetHolidayMode()
	case "wiggle":
		s.ctl.Wiggle()
	case "dial":
		v, err := byteValue(req.Value)
		if err != nil {
			return err
		}
		return s.ctl.SetDial(v)
	case "warm_target":
		v, err := byteValue(req.Value)
		if err != nil {
			return err
		}
		return s.ctl.SetWarmTargetC(v)
	case "frost_target":
		v, err := byteValue(req.Value)
		if err != nil {
			return err
		}
		return s.ctl.SetFrostTargetC(v)
	case "schedule":
		return s.ctl.SetSchedule(req.Slot, req.Start)
	default:
		return fmt.Errorf("%w %q", errUnknownCommand, req.Command)
	}
	return nil
}

func byteValue(v int) (uint8, error) {
	if v < 0 || v > 255 {
		return 0, fmt.Errorf("value %d out of range", v)
	}
	return uint8(v), nil
}

func (s *Service) serveWebSockets() http.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			s.log.Debug("checking origin: %s", origin)
			if origin == "" {
				return false
			}
			if strings.Contains(origin, "localhost") {
				return true
			}
			return strings.Contains(origin, r.Host)
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.log.Error("failed to upgrade websocket: %v", err)
			return
		}
		s.clients.add(ws)
		defer func() {
			s.clients.remove(ws)
			ws.Close()
		}()

		// new pages get the current state straight away
		if st, err := s.ctl.Status(); err == nil {
			if err := s.clients.send(ws, st); err != nil {
				return
			}
		}

		for {
			var req Request
			if err := ws.ReadJSON(&req); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.log.Error("failed ws ReadJSON: %v", err)
				}
				return
			}
			if err := s.apply(req); err != nil {
				if err := s.clients.send(ws, reply{Error: err.Error()}); err != nil {
					return
				}
			}
		}
	}
}
