// Package resttest provides an in-process fake of a handle server's REST API
// and reverse lookup servlet, backed by the memory record store.
package resttest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/marmos91/dittohandle/pkg/handle"
	"github.com/marmos91/dittohandle/pkg/store"
	"github.com/marmos91/dittohandle/pkg/store/memory"
)

const (
	apiPath  = "/api/handles"
	hrlsPath = "/hrls/handles"
)

// Server is a fake handle server.
type Server struct {
	*httptest.Server

	// Store holds the served records
	Store *memory.MemoryRecordStore

	// Username and Password, when set, are required for PUT and DELETE
	Username string
	Password string

	// SearchUsername and SearchPassword, when set, are required for reverse lookups
	SearchUsername string
	SearchPassword string

	mu       sync.Mutex
	requests []string
}

// NewServer starts a plain HTTP fake server. Close it when done.
func NewServer() *Server {
	s := &Server{Store: memory.NewMemoryRecordStoreWithDefaults()}
	s.Server = httptest.NewServer(s)
	return s
}

// NewTLSServer starts a fake server with a self-signed certificate.
// Use its Client() to talk to it.
func NewTLSServer() *Server {
	s := &Server{Store: memory.NewMemoryRecordStoreWithDefaults()}
	s.Server = httptest.NewTLSServer(s)
	return s
}

// Requests returns "METHOD path?query" for every request received so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r.Method+" "+r.URL.RequestURI())
	s.mu.Unlock()

	path := strings.TrimRight(r.URL.Path, "/")
	switch {
	case path == hrlsPath:
		s.serveSearch(w, r)
	case path == apiPath && r.Method == http.MethodGet:
		s.serveList(w, r)
	case strings.HasPrefix(path, apiPath+"/"):
		s.serveHandle(w, r, strings.TrimPrefix(path, apiPath+"/"))
	default:
		http.NotFound(w, r)
	}
}

type response struct {
	ResponseCode int            `json:"responseCode"`
	Handle       string         `json:"handle,omitempty"`
	Prefix       string         `json:"prefix,omitempty"`
	Message      string         `json:"message,omitempty"`
	Values       []handle.Entry `json:"values,omitempty"`
	Handles      []string       `json:"handles,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps a store error to the handle server's status and response code.
func writeError(w http.ResponseWriter, name string, err error) {
	var herr *handle.HandleError
	if !errors.As(err, &herr) {
		writeJSON(w, http.StatusInternalServerError, response{ResponseCode: 2, Handle: name, Message: err.Error()})
		return
	}
	switch herr.Code {
	case handle.ErrNotFound:
		writeJSON(w, http.StatusNotFound, response{ResponseCode: 100, Handle: name})
	case handle.ErrAlreadyExists:
		writeJSON(w, http.StatusConflict, response{ResponseCode: 101, Handle: name, Message: herr.Message})
	default:
		writeJSON(w, http.StatusBadRequest, response{ResponseCode: 2, Handle: name, Message: herr.Message})
	}
}

func (s *Server) authorized(r *http.Request) bool {
	if s.Username == "" {
		return true
	}
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	user, err := url.QueryUnescape(user)
	return err == nil && user == s.Username && pass == s.Password
}

func queryIndices(q url.Values) ([]int, error) {
	raw, ok := q["index"]
	if !ok {
		return nil, nil
	}
	out := make([]int, 0, len(raw))
	for _, v := range raw {
		i, err := strconv.Atoi(v)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, nil
}

func (s *Server) serveHandle(w http.ResponseWriter, r *http.Request, name string) {
	ctx := r.Context()
	q := r.URL.Query()
	indices, err := queryIndices(q)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, response{ResponseCode: 2, Handle: name, Message: "invalid index"})
		return
	}

	if r.Method != http.MethodGet && !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, response{ResponseCode: 402, Handle: name})
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.serveGet(ctx, w, name, indices)
	case http.MethodPut:
		var body struct {
			Values []handle.Entry `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, response{ResponseCode: 2, Handle: name, Message: err.Error()})
			return
		}
		req := store.WriteRequest{
			Handle:    name,
			Entries:   body.Values,
			Indices:   indices,
			Overwrite: q.Get("overwrite") == "true",
		}
		if err := s.Store.Write(ctx, req); err != nil {
			writeError(w, name, err)
			return
		}
		status := http.StatusOK
		if !req.Partial() {
			status = http.StatusCreated
		}
		writeJSON(w, status, response{ResponseCode: 1, Handle: name})
	case http.MethodDelete:
		if indices != nil {
			err = s.Store.DeleteIndices(ctx, name, indices)
		} else {
			err = s.Store.Delete(ctx, name)
		}
		if err != nil {
			writeError(w, name, err)
			return
		}
		writeJSON(w, http.StatusOK, response{ResponseCode: 1, Handle: name})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) serveGet(ctx context.Context, w http.ResponseWriter, name string, indices []int) {
	rec, err := s.Store.Fetch(ctx, name)
	if err != nil {
		writeError(w, name, err)
		return
	}
	values := rec.Values
	if indices != nil {
		values = slices.DeleteFunc(values, func(e handle.Entry) bool { return !slices.Contains(indices, e.Index) })
		if len(values) == 0 {
			writeJSON(w, http.StatusOK, response{ResponseCode: 200, Handle: name})
			return
		}
	}
	writeJSON(w, http.StatusOK, response{ResponseCode: 1, Handle: name, Values: values})
}

func (s *Server) serveList(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, response{ResponseCode: 402})
		return
	}
	prefix := r.URL.Query().Get("prefix")
	names, err := s.Store.ListHandles(r.Context(), prefix)
	if err != nil {
		writeError(w, "", err)
		return
	}
	writeJSON(w, http.StatusOK, response{ResponseCode: 1, Prefix: prefix, Handles: names})
}

func (s *Server) serveSearch(w http.ResponseWriter, r *http.Request) {
	if s.SearchUsername != "" {
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.SearchUsername || pass != s.SearchPassword {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
	}

	q := r.URL.Query()
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var pairs handle.Changes
	for _, k := range keys {
		pairs = pairs.Set(k, q.Get(k))
	}
	names, err := s.Store.Search(r.Context(), store.SearchQuery{Pairs: pairs})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, names)
}
