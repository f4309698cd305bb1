// Package api serves the robot's status and accepts driver commands over
// HTTP.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/banshee-data/gridbot/internal/explore"
	"github.com/banshee-data/gridbot/internal/httputil"
	"github.com/banshee-data/gridbot/internal/mapfile"
	"github.com/banshee-data/gridbot/internal/monitoring"
	"github.com/banshee-data/gridbot/internal/protocol"
	"github.com/banshee-data/gridbot/internal/version"
)

// ANSI escape codes for the request log
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	session *explore.Session

	mu      sync.Mutex
	summary *explore.RunSummary
}

func NewServer(session *explore.Session) *Server {
	return &Server{session: session}
}

// SetSummary records the outcome of the latest autonomous run.
func (s *Server) SetSummary(sum explore.RunSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = &sum
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Unwrap lets http.ResponseController and the websocket upgrader reach
// the underlying writer.
func (lrw *loggingResponseWriter) Unwrap() http.ResponseWriter {
	return lrw.ResponseWriter
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/state", s.showState)
	mux.HandleFunc("/api/map", s.showMap)
	mux.HandleFunc("/api/command", s.sendCommand)
	mux.HandleFunc("/api/summary", s.showSummary)
	mux.HandleFunc("/api/version", s.showVersion)
	return mux
}

func (s *Server) showState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.session.Snapshot())
}

// showMap returns the working grid as text, or as descriptors with
// ?format=descriptor.
func (s *Server) showMap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	g := s.session.Grid()
	var body []byte
	switch r.URL.Query().Get("format") {
	case "", "text":
		body = mapfile.Encode(g)
	case "descriptor":
		body = mapfile.EncodeDescriptors(g)
	default:
		httputil.BadRequest(w, "format must be text or descriptor")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write(body)
}

// CommandRequest carries a driver token run such as "W2|D|U".
type CommandRequest struct {
	Tokens string `json:"tokens"`
}

// TokenResult reports one executed token.
type TokenResult struct {
	Token    string `json:"token"`
	Executed bool   `json:"executed"`
}

// CommandResponse lists per-token outcomes and the status afterwards.
type CommandResponse struct {
	Results []TokenResult          `json:"results"`
	State   protocol.StatusMessage `json:"state"`
}

func (s *Server) sendCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	var req CommandRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	tokens, err := protocol.ParseTokens(req.Tokens)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if len(tokens) == 0 {
		httputil.BadRequest(w, "no command tokens")
		return
	}

	resp := CommandResponse{Results: make([]TokenResult, 0, len(tokens))}
	for _, tok := range tokens {
		ok, err := s.session.Execute(r.Context(), tok)
		if err != nil {
			status := http.StatusServiceUnavailable
			if errors.Is(err, protocol.ErrBadToken) {
				status = http.StatusBadRequest
			}
			httputil.WriteJSONError(w, status, err.Error())
			return
		}
		resp.Results = append(resp.Results, TokenResult{Token: tok.String(), Executed: ok})
	}
	resp.State = s.session.Snapshot()
	httputil.WriteJSONOK(w, resp)
}

func (s *Server) showSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	s.mu.Lock()
	sum := s.summary
	s.mu.Unlock()
	if sum == nil {
		httputil.NotFound(w, "no run has finished")
		return
	}
	httputil.WriteJSONOK(w, sum)
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, version.Info())
}
