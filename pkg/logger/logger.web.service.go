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

package logger

import (
	"bufio"
	"html/template"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
)

const (
	defaultTailLines = 250
	maxTailLines     = 5000
)

var page = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>radvalve log</title>
  <style>
    body { font-family: Arial, sans-serif; margin: 2em; background: #f9f9f9; color: #333; }
    .btn { padding:0.5em 1em; margin:0.2em; background:#007bff; color:white; border:none; border-radius:4px; cursor:pointer; }
    .btn-danger { background:#dc3545; }
    pre.log { background:#222; color:#eee; padding:1em; border-radius:6px; max-height:500px; overflow:auto; }
  </style>
</head>
<body>
  <h1>Logger</h1>
  <p><b>Debug:</b> {{if .Debug}}<span style="color:green;">ON</span>{{else}}<span style="color:red;">OFF</span>{{end}}</p>
  <form method="POST" action="/logger/toggle" style="display:inline;">
    <button class="btn" type="submit">Toggle Debug</button>
  </form>
  <form method="POST" action="/logger/clear" style="display:inline;">
    <button class="btn btn-danger" type="submit">Clear Log</button>
  </form>
  <a href="/logger/raw?lines={{.Lines}}">plain text</a>
  <h2>Last {{.Lines}} log lines</h2>
  <pre class="log">{{.Log}}</pre>
</body>
</html>
`))

// Service is the /logger page: log tail, debug toggle and clear.
type Service struct{}

func WebService() *Service {
	return &Service{}
}

func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/toggle":
		if !requirePost(w, r) {
			return
		}
		EnableDebug(!IsDebug())
		http.Redirect(w, r, "/logger", http.StatusSeeOther)

	case "/clear":
		if !requirePost(w, r) {
			return
		}
		if err := clearLog(); err != nil {
			http.Error(w, "failed to clear log: "+err.Error(), http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, "/logger", http.StatusSeeOther)

	case "/raw":
		lines, err := tail(linesParam(r))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, strings.Join(lines, "\n"))

	default:
		n := linesParam(r)
		lines, _ := tail(n)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		page.Execute(w, map[string]any{
			"Debug": IsDebug(),
			"Log":   strings.Join(lines, "\n"),
			"Lines": n,
		})
	}
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func linesParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("lines"))
	if err != nil || n <= 0 {
		return defaultTailLines
	}
	return min(n, maxTailLines)
}

// clearLog truncates the log file in place. Writers are held off so no
// line lands half in the old and half in the new file.
func clearLog() error {
	if logFile == nil {
		return nil
	}
	out.mu.Lock()
	defer out.mu.Unlock()
	if err := logFile.Truncate(0); err != nil {
		return err
	}
	_, err := logFile.Seek(0, io.SeekStart)
	return err
}

// tail returns the last n lines of the log file, oldest first.
func tail(n int) ([]string, error) {
	if logPath == "" {
		return nil, nil
	}
	f, err := os.Open(logPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ring := make([]string, n)
	count := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		ring[count%n] = sc.Text()
		count++
	}
	if count <= n {
		return ring[:count], sc.Err()
	}
	start := count % n
	return append(ring[start:], ring[:start]...), sc.Err()
}
