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
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.viam.com/test"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestAttachStripsPrefix(t *testing.T) {
	ms := New(":0")
	ms.Attach("monitor", "system monitor", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "path="+r.URL.Path)
	}))

	rec := get(t, ms.Handler(), "/monitor/healthz")
	test.That(t, rec.Body.String(), test.ShouldEqual, "path=/healthz")

	rec = get(t, ms.Handler(), "/index")
	test.That(t, rec.Body.String(), test.ShouldContainSubstring, "system monitor")
}

func TestRootFallsBackToIndex(t *testing.T) {
	ms := New(":0")
	rec := get(t, ms.Handler(), "/")
	test.That(t, rec.Code, test.ShouldEqual, http.StatusTemporaryRedirect)
	test.That(t, get(t, ms.Handler(), "/nope").Code, test.ShouldEqual, http.StatusNotFound)

	ms.Attach("/", "main", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "main "+r.URL.Path)
	}))
	test.That(t, get(t, ms.Handler(), "/ws").Body.String(), test.ShouldEqual, "main /ws")
}

func TestFavicon(t *testing.T) {
	rec := get(t, New(":0").Handler(), "/favicon.ico")
	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)
	test.That(t, rec.Header().Get("Content-Type"), test.ShouldEqual, "image/svg+xml")
}
