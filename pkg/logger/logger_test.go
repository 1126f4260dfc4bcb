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
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"
)

func TestLoggerFollowsFileAndClear(t *testing.T) {
	early := New("Early")
	path := filepath.Join(t.TempDir(), "logs", "radvalve.log")
	test.That(t, Init(path), test.ShouldBeNil)
	t.Cleanup(Close)

	early.Info("hello %d", 1)
	New("Late").Error("boom")

	data, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldContainSubstring, "[Early] INFO: hello 1")
	test.That(t, string(data), test.ShouldContainSubstring, "[Late] ERROR: (logger_test.go:")

	svc := WebService()
	rec := httptest.NewRecorder()
	svc.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/clear", nil))
	test.That(t, rec.Code, test.ShouldEqual, http.StatusSeeOther)

	early.Info("after clear")
	data, err = os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, strings.Count(string(data), "\n"), test.ShouldEqual, 1)
	test.That(t, string(data), test.ShouldContainSubstring, "after clear")

	rec = httptest.NewRecorder()
	svc.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)
	test.That(t, rec.Body.String(), test.ShouldContainSubstring, "after clear")
}

func TestDebugToggle(t *testing.T) {
	EnableDebug(false)
	svc := WebService()

	rec := httptest.NewRecorder()
	svc.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/toggle", nil))
	test.That(t, rec.Code, test.ShouldEqual, http.StatusMethodNotAllowed)
	test.That(t, IsDebug(), test.ShouldBeFalse)

	rec = httptest.NewRecorder()
	svc.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/toggle", nil))
	test.That(t, rec.Code, test.ShouldEqual, http.StatusSeeOther)
	test.That(t, IsDebug(), test.ShouldBeTrue)
	EnableDebug(false)
}

func TestTailKeepsLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tail.log")
	var b strings.Builder
	for i := 1; i <= 10; i++ {
		b.WriteString("line " + string(rune('0'+i%10)) + "\n")
	}
	test.That(t, os.WriteFile(path, []byte(b.String()), 0644), test.ShouldBeNil)

	old := logPath
	logPath = path
	defer func() { logPath = old }()

	lines, err := tail(3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, lines, test.ShouldResemble, []string{"line 8", "line 9", "line 0"})

	lines, err = tail(20)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(lines), test.ShouldEqual, 10)

	rec := httptest.NewRecorder()
	WebService().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/raw?lines=2", nil))
	test.That(t, rec.Body.String(), test.ShouldEqual, "line 9\nline 0")
}
