// Package testutil holds fixtures shared by package tests: ASCII arenas
// and small HTTP helpers.
package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/banshee-data/gridbot/internal/arena"
)

// GridFromRows builds a fully explored reference grid from an ASCII
// picture. The first string is the top row. '#' or '1' marks an obstacle;
// any other character is free.
func GridFromRows(t testing.TB, rows ...string) *arena.Grid {
	t.Helper()
	if len(rows) == 0 {
		t.Fatal("GridFromRows: no rows")
	}
	g, err := arena.New(len(rows), len(rows[0]))
	if err != nil {
		t.Fatalf("GridFromRows: %v", err)
	}
	g.SetAllExplored(true)
	for i, line := range rows {
		if len(line) != g.Cols() {
			t.Fatalf("GridFromRows: row %d has %d columns, want %d", i, len(line), g.Cols())
		}
		row := g.Rows() - 1 - i
		for col, ch := range line {
			if ch == '#' || ch == '1' {
				g.MarkObstacle(row, col, true)
			}
		}
	}
	return g
}

// OpenGrid is a fully explored reference grid with no obstacles.
func OpenGrid(t testing.TB, rows, cols int) *arena.Grid {
	t.Helper()
	return GridFromRows(t, repeatRow(strings.Repeat(".", cols), rows)...)
}

func repeatRow(row string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = row
	}
	return out
}

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t testing.TB, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// Serve runs one request through h and returns the recorder.
func Serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
