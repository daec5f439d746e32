// Package apitest runs an in-memory todo backend for tests. It follows the
// reference backend: integer ids, create defaults, PUT merges the body,
// PUT and DELETE answer {"success": true}.
package apitest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
)

// Record is a stored todo as loose JSON, so merges keep unknown fields.
type Record map[string]any

// Request is one call observed by the server.
type Request struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
}

// Server is an httptest.Server plus inspection helpers.
type Server struct {
	*httptest.Server

	prefix string

	mu          sync.Mutex
	todos       []Record
	nextID      int
	requests    []Request
	failures    map[string]int
	omitCreate  bool
	inflight    int
	maxInflight int
	delay       time.Duration
}

// New starts a server serving the collection at prefix (e.g. "/api/todos").
func New(prefix string) *Server {
	s := &Server{prefix: prefix, nextID: 1, failures: map[string]int{}}
	s.Server = httptest.NewServer(s.router())
	return s
}

func (s *Server) router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.track)
	r.HandleFunc(s.prefix, s.list).Methods(http.MethodGet)
	r.HandleFunc(s.prefix, s.create).Methods(http.MethodPost)
	r.HandleFunc(s.prefix+"/{id}", s.update).Methods(http.MethodPut)
	r.HandleFunc(s.prefix+"/{id}", s.remove).Methods(http.MethodDelete)
	return r
}

// -------------- inspection & fault injection --------------

// Seed stores a record and returns its assigned id.
func (s *Server) Seed(rec Record) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(rec)
}

// Records returns a snapshot of the stored todos.
func (s *Server) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, 0, len(s.todos))
	for _, t := range s.todos {
		cp := Record{}
		for k, v := range t {
			cp[k] = v
		}
		out = append(out, cp)
	}
	return out
}

// Requests returns every request seen so far, in arrival order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// ResetRequests forgets the request log.
func (s *Server) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

// FailNext makes the next request matching method and path answer status.
func (s *Server) FailNext(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = status
}

// OmitCreateBody makes POST answer 201 with an empty body.
func (s *Server) OmitCreateBody(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.omitCreate = v
}

// SetDelay slows every handler down, to observe overlapping requests.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// MaxInFlight is the highest number of concurrently served requests.
func (s *Server) MaxInFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxInflight
}

// -------------- handlers --------------

func (s *Server) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if r.Body != nil && (r.Method == http.MethodPost || r.Method == http.MethodPut) {
			dec := json.NewDecoder(r.Body)
			if err := dec.Decode(&body); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
		}

		s.mu.Lock()
		s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: body})
		key := r.Method + " " + r.URL.Path
		status, fail := s.failures[key]
		delete(s.failures, key)
		s.inflight++
		if s.inflight > s.maxInflight {
			s.maxInflight = s.inflight
		}
		delay := s.delay
		s.mu.Unlock()

		defer func() {
			s.mu.Lock()
			s.inflight--
			s.mu.Unlock()
		}()

		if delay > 0 {
			time.Sleep(delay)
		}
		if fail {
			http.Error(w, http.StatusText(status), status)
			return
		}
		next.ServeHTTP(w, r.WithContext(withBody(r.Context(), body)))
	})
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	s.mu.Lock()
	out := make([]Record, 0, len(s.todos))
	for _, t := range s.todos {
		if user != "" {
			if owner, _ := t["user"].(string); owner != user {
				continue
			}
		}
		out = append(out, t)
	}
	response, _ := json.Marshal(out)
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	w.Write(response)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	body := bodyFrom(r.Context())
	text, _ := body["text"].(string)
	if text == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}
	rec := Record{
		"text":       text,
		"completed":  false,
		"priority":   stringOr(body["priority"], "medium"),
		"category":   stringOr(body["category"], "general"),
		"created_at": time.Now().Format("2006-01-02T15:04:05.000000"),
		"due_date":   body["due_date"],
	}
	if u, ok := body["user"].(string); ok {
		rec["user"] = u
	}

	s.mu.Lock()
	s.insertLocked(rec)
	omit := s.omitCreate
	response, _ := json.Marshal(rec)
	s.mu.Unlock()

	if omit {
		w.WriteHeader(http.StatusCreated)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(response)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	body := bodyFrom(r.Context())
	s.mu.Lock()
	for _, t := range s.todos {
		if idString(t) == id {
			for k, v := range body {
				if k == "id" {
					continue
				}
				t[k] = v
			}
			break
		}
	}
	s.mu.Unlock()
	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	kept := s.todos[:0]
	for _, t := range s.todos {
		if idString(t) != id {
			kept = append(kept, t)
		}
	}
	s.todos = kept
	s.mu.Unlock()
	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// -------------- helpers --------------

func (s *Server) insertLocked(rec Record) string {
	if _, ok := rec["id"]; !ok {
		rec["id"] = s.nextID
		s.nextID++
	}
	s.todos = append(s.todos, rec)
	return idString(rec)
}

func idString(rec Record) string {
	switch v := rec["id"].(type) {
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return v
	}
	return ""
}

func stringOr(v any, def string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

type bodyKey struct{}

func withBody(ctx context.Context, body map[string]any) context.Context {
	return context.WithValue(ctx, bodyKey{}, body)
}

func bodyFrom(ctx context.Context) map[string]any {
	body, _ := ctx.Value(bodyKey{}).(map[string]any)
	return body
}
