// Package apitest provides an in-memory PMS REST API for tests.
//
// It follows the server conventions the client relies on: collections at
// /api/<resource>/, entities at /api/<resource>/<id>/, sub-actions below
// either, bearer authentication with a refresh endpoint, and optional
// {"count","next","results"} pagination.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Request is a recorded call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   map[string]interface{}
}

// ActionFunc handles a sub-action. entity is nil for collection-level actions.
type ActionFunc func(entity map[string]interface{}, body map[string]interface{}) (int, interface{})

type failure struct {
	status int
	body   string
}

// Server is a fake PMS API backed by maps.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	data     map[string][]map[string]interface{}
	nextID   map[string]int
	actions  map[string]ActionFunc
	failures map[string]failure
	requests []Request

	// PageSize > 0 forces paginated envelopes even without ?page_size.
	PageSize int

	access   string
	refresh  string
	users    map[string]string
	rotation int
}

// NewServer starts a fake API. Close it with Server.Close.
func NewServer() *Server {
	s := &Server{
		data:     make(map[string][]map[string]interface{}),
		nextID:   make(map[string]int),
		actions:  make(map[string]ActionFunc),
		failures: make(map[string]failure),
		users:    make(map[string]string),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)
	r.Post("/api/auth/token/", s.handleToken)
	r.Post("/api/auth/token/refresh/", s.handleRefresh)
	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.HandleFunc("/api/*", s.handleResource)
	})

	s.Server = httptest.NewServer(r)
	return s
}

// Seed stores entities under a resource. Entities without an id get one.
func (s *Server) Seed(resource string, entities ...map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resource = strings.Trim(resource, "/")
	if _, ok := s.data[resource]; !ok {
		s.data[resource] = []map[string]interface{}{}
	}
	for _, e := range entities {
		copied := cloneMap(e)
		if id, ok := copied["id"]; ok {
			if n, err := strconv.Atoi(fmt.Sprint(id)); err == nil && n > s.nextID[resource] {
				s.nextID[resource] = n
			}
		} else {
			s.nextID[resource]++
			copied["id"] = s.nextID[resource]
		}
		s.data[resource] = append(s.data[resource], copied)
	}
}

// Entities returns a copy of the stored entities for a resource.
func (s *Server) Entities(resource string) []map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]interface{}, 0, len(s.data[resource]))
	for _, e := range s.data[strings.Trim(resource, "/")] {
		out = append(out, cloneMap(e))
	}
	return out
}

// HandleAction registers a sub-action. Use an empty id scope by passing
// itemLevel=false for collection actions such as "mark-all-read".
func (s *Server) HandleAction(resource, action string, itemLevel bool, fn ActionFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resource = strings.Trim(resource, "/")
	if _, ok := s.data[resource]; !ok {
		s.data[resource] = []map[string]interface{}{}
	}
	s.actions[actionKey(resource, action, itemLevel)] = fn
}

// Fail makes every request matching method and path answer with status
// and body until ClearFailures is called.
func (s *Server) Fail(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = failure{status: status, body: body}
}

// ClearFailures removes all injected failures.
func (s *Server) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[string]failure)
}

// RequireAuth turns on bearer authentication with the given token pair and
// registers a user for the token endpoint.
func (s *Server) RequireAuth(user, password, access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user] = password
	s.access = access
	s.refresh = refresh
}

// ExpireAccess rotates the access token so the current one is rejected
// until the client refreshes.
func (s *Server) ExpireAccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rotation++
	s.access = fmt.Sprintf("access-%d", s.rotation)
}

// AccessToken returns the token currently accepted by the server.
func (s *Server) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access
}

// Requests returns a copy of the recorded requests.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// CountRequests counts recorded requests by method and exact path.
func (s *Server) CountRequests(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		if r.Body != nil && (r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut) {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Body:   body,
		})
		f, failing := s.failures[r.Method+" "+r.URL.Path]
		s.mu.Unlock()

		if failing {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(f.body))
			return
		}

		ctx := withBody(r.Context(), body)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		want := s.access
		s.mu.Unlock()
		if want != "" && r.Header.Get("Authorization") != "Bearer "+want {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	body := bodyFrom(r.Context())
	user, _ := body["username"].(string)
	password, _ := body["password"].(string)

	s.mu.Lock()
	expected, ok := s.users[user]
	access, refresh := s.access, s.refresh
	s.mu.Unlock()

	if !ok || expected != password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": access, "refresh": refresh})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	body := bodyFrom(r.Context())
	token, _ := body["refresh"].(string)

	s.mu.Lock()
	valid := token != "" && token == s.refresh
	access := s.access
	s.mu.Unlock()

	if !valid {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": access})
}

func (s *Server) handleResource(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(chi.URLParam(r, "*"), "/")
	body := bodyFrom(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()

	resource, remaining := s.splitPath(rest)
	if resource == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}

	switch len(remaining) {
	case 0:
		switch r.Method {
		case http.MethodGet:
			s.list(w, r, resource)
		case http.MethodPost:
			s.create(w, resource, body)
		default:
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"detail": "Method not allowed."})
		}
	case 1:
		if fn, ok := s.actions[actionKey(resource, remaining[0], false)]; ok {
			status, payload := fn(nil, body)
			writeJSON(w, status, payload)
			return
		}
		s.item(w, r, resource, remaining[0], body)
	case 2:
		fn, ok := s.actions[actionKey(resource, remaining[1], true)]
		idx := s.indexOf(resource, remaining[0])
		if !ok || idx < 0 {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
			return
		}
		status, payload := fn(s.data[resource][idx], body)
		writeJSON(w, status, payload)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
	}
}

// splitPath finds the longest known resource prefix of the path.
func (s *Server) splitPath(rest string) (string, []string) {
	parts := strings.Split(rest, "/")
	for i := len(parts); i > 0; i-- {
		candidate := strings.Join(parts[:i], "/")
		if _, ok := s.data[candidate]; ok {
			return candidate, parts[i:]
		}
	}
	return "", nil
}

func (s *Server) list(w http.ResponseWriter, r *http.Request, resource string) {
	q := r.URL.Query()
	matched := make([]map[string]interface{}, 0)
	for _, e := range s.data[resource] {
		if matches(e, q) {
			matched = append(matched, e)
		}
	}

	pageSize := s.PageSize
	if v, err := strconv.Atoi(q.Get("page_size")); err == nil && v > 0 {
		pageSize = v
	}
	if pageSize <= 0 {
		writeJSON(w, http.StatusOK, matched)
		return
	}

	page := 1
	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		page = v
	}
	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}

	var next interface{}
	if end < len(matched) {
		nq := url.Values{}
		for k, v := range q {
			nq[k] = v
		}
		nq.Set("page", strconv.Itoa(page+1))
		nq.Set("page_size", strconv.Itoa(pageSize))
		next = fmt.Sprintf("%s%s?%s", s.URL, r.URL.Path, nq.Encode())
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(matched),
		"next":     next,
		"previous": nil,
		"results":  matched[start:end],
	})
}

func (s *Server) create(w http.ResponseWriter, resource string, body map[string]interface{}) {
	entity := cloneMap(body)
	if entity == nil {
		entity = map[string]interface{}{}
	}
	s.nextID[resource]++
	entity["id"] = s.nextID[resource]
	s.data[resource] = append(s.data[resource], entity)
	writeJSON(w, http.StatusCreated, entity)
}

func (s *Server) item(w http.ResponseWriter, r *http.Request, resource, id string, body map[string]interface{}) {
	idx := s.indexOf(resource, id)
	if idx < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.data[resource][idx])
	case http.MethodPatch, http.MethodPut:
		for k, v := range body {
			if k == "id" {
				continue
			}
			s.data[resource][idx][k] = v
		}
		writeJSON(w, http.StatusOK, s.data[resource][idx])
	case http.MethodDelete:
		s.data[resource] = append(s.data[resource][:idx], s.data[resource][idx+1:]...)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"detail": "Method not allowed."})
	}
}

func (s *Server) indexOf(resource, id string) int {
	for i, e := range s.data[resource] {
		if fmt.Sprint(e["id"]) == id {
			return i
		}
	}
	return -1
}

var reservedParams = map[string]bool{"page": true, "page_size": true, "ordering": true, "search": true}

func matches(e map[string]interface{}, q url.Values) bool {
	if search := strings.ToLower(q.Get("search")); search != "" {
		found := false
		keys := make([]string, 0, len(e))
		for k := range e {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if strings.Contains(strings.ToLower(fmt.Sprint(e[k])), search) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for key, values := range q {
		if reservedParams[key] || len(values) == 0 {
			continue
		}
		if fmt.Sprint(e[key]) != values[0] {
			return false
		}
	}
	return true
}

func actionKey(resource, action string, itemLevel bool) string {
	if itemLevel {
		return resource + "/{id}/" + action
	}
	return resource + "/" + action
}

func cloneMap(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
