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

package rootserv

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html"
	"net/http"
	"radvalve/v2/pkg/logger"
	"sort"
	"strings"
	"sync"
	"time"
)

//go:embed favicon.svg
var favicon []byte

const shutdownTimeout = 5 * time.Second

// RootServer holds a mux and the list of attached sub-handlers.
type RootServer struct {
	log        *logger.Logger
	addr       string
	mux        *http.ServeMux
	mu         sync.Mutex
	subservers map[string]string // path -> description
	mainPage   http.Handler      // optional subserver for '/'
}

// New creates a RootServer bound to addr, with /index, /favicon.ico and
// a root fallback already routed.
func New(addr string) *RootServer {
	ms := &RootServer{
		addr:       addr,
		mux:        http.NewServeMux(),
		subservers: make(map[string]string),
		log:        logger.New("HTTPServer"),
	}
	ms.mux.HandleFunc("/index", ms.handleIndex)
	ms.mux.HandleFunc("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Write(favicon)
	})
	ms.mux.HandleFunc("/", ms.handleRoot)
	return ms
}

// Attach registers a subserver under a path, which sees URLs with the
// prefix stripped. Path "/" sets the main page instead.
func (ms *RootServer) Attach(path, desc string, handler http.Handler) {
	ms.log.Info("Attach: %s", path)

	if path == "/" {
		ms.mu.Lock()
		ms.mainPage = handler
		ms.mu.Unlock()
		return
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	path = strings.TrimRight(path, "/")

	ms.mu.Lock()
	ms.subservers[path] = desc
	ms.mu.Unlock()

	ms.mux.Handle(path+"/", http.StripPrefix(path, handler))
}

// Handler exposes the routed mux.
func (ms *RootServer) Handler() http.Handler {
	return ms.mux
}

func (ms *RootServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	ms.mu.Lock()
	main := ms.mainPage
	ms.mu.Unlock()

	if main != nil {
		main.ServeHTTP(w, r)
		return
	}
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/index", http.StatusTemporaryRedirect)
}

// handleIndex lists all subservers.
func (ms *RootServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	ms.mu.Lock()
	paths := make([]string, 0, len(ms.subservers))
	for path := range ms.subservers {
		paths = append(paths, path)
	}
	descs := make(map[string]string, len(paths))
	for _, p := range paths {
		descs[p] = ms.subservers[p]
	}
	ms.mu.Unlock()
	sort.Strings(paths)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintln(w, "<!DOCTYPE html><html><head><title>radvalve</title></head><body>")
	fmt.Fprintln(w, `<h1>radvalve</h1><p><a href="/">Valve</a></p><ul>`)
	for _, path := range paths {
		fmt.Fprintf(w, `<li><a href="%s/">%s</a> - %s</li>`, path, path, html.EscapeString(descs[path]))
	}
	fmt.Fprintln(w, "</ul></body></html>")
}

// Run serves until the context is canceled.
func (ms *RootServer) Run(ctx context.Context) {
	ms.log.Info("Running on %s", ms.addr)

	srv := &http.Server{
		Addr:              ms.addr,
		Handler:           ms.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		ms.log.Info("Stopped")
	case err := <-errCh:
		ms.log.Error("Stopped: %T %+v", err, err)
	}
}
