package rest

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/marmos91/dittohandle/internal/logger"
	"github.com/marmos91/dittohandle/internal/ratelimiter"
	"github.com/marmos91/dittohandle/pkg/handle"
	"github.com/marmos91/dittohandle/pkg/store"
)

const (
	// DefaultAPIPath is where handle servers expose the REST API
	DefaultAPIPath = "/api/handles/"

	// DefaultReverseLookupPath is where the reverse lookup servlet lives
	DefaultReverseLookupPath = "/hrls/handles/"

	// DefaultTimeout bounds every request
	DefaultTimeout = 30 * time.Second
)

// RESTRecordStore implements store.RecordStore against a handle server's
// JSON REST API.
//
// Reads are anonymous. Writes and deletes authenticate either with HTTP Basic
// auth (user "index:handle" of the owner, URL-escaped) or with a client
// certificate. Search goes through the reverse lookup servlet, which has its
// own credentials.
//
// The server owns timestamps and validation; this store only maps requests
// and response codes.
type RESTRecordStore struct {
	client   *http.Client
	cfg      RESTRecordStoreConfig
	apiBase  string
	hrlsBase string
	limiter  *ratelimiter.Limiter
}

// RESTRecordStoreConfig contains configuration for the REST store.
type RESTRecordStoreConfig struct {
	// ServerURL is the handle server base URL (e.g. https://hdl.example.org:8000)
	ServerURL string

	// APIPath overrides DefaultAPIPath
	APIPath string

	// Username is the owner "index:handle" used for Basic auth (e.g. 300:21.T1/USER)
	Username string

	// Password is the Basic auth secret
	Password string

	// CertificateFile and PrivateKeyFile select client certificate auth
	CertificateFile string
	PrivateKeyFile  string

	// HTTPSVerify checks the server certificate (default: true)
	HTTPSVerify *bool

	// CABundle is an optional PEM file with extra trusted roots
	CABundle string

	// Authoritative asks the server to bypass its cache on reads (auth=true)
	Authoritative bool

	// ReverseLookupPath overrides DefaultReverseLookupPath
	ReverseLookupPath string

	// ReverseLookupUsername and ReverseLookupPassword authenticate searches
	ReverseLookupUsername string
	ReverseLookupPassword string

	// Timeout bounds every request (default: 30s)
	Timeout time.Duration

	// RequestsPerSecond throttles requests to the server (0 = unlimited)
	RequestsPerSecond float64

	// Burst is the number of requests allowed above the sustained rate
	Burst int

	// HTTPClient replaces the client built from the TLS settings
	HTTPClient *http.Client
}

// NewRESTRecordStore creates a REST-backed record store.
//
// Parameters:
//   - cfg: Server location and credentials
//
// Returns:
//   - *RESTRecordStore: The store
//   - error: Error if the server URL or TLS material is invalid
func NewRESTRecordStore(cfg RESTRecordStoreConfig) (*RESTRecordStore, error) {
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("rest record store: server_url is required")
	}
	if _, err := url.Parse(cfg.ServerURL); err != nil {
		return nil, fmt.Errorf("rest record store: invalid server_url: %w", err)
	}
	if cfg.APIPath == "" {
		cfg.APIPath = DefaultAPIPath
	}
	if cfg.ReverseLookupPath == "" {
		cfg.ReverseLookupPath = DefaultReverseLookupPath
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	client := cfg.HTTPClient
	if client == nil {
		tlsConfig, err := buildTLSConfig(cfg)
		if err != nil {
			return nil, err
		}
		client = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &http.Transport{TLSClientConfig: tlsConfig, Proxy: http.ProxyFromEnvironment},
			// Handle servers answer 302/307 when a request hits the wrong
			// site; surface those instead of following them.
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		}
	}

	base := strings.TrimRight(cfg.ServerURL, "/")
	return &RESTRecordStore{
		client:   client,
		cfg:      cfg,
		apiBase:  base + "/" + strings.Trim(cfg.APIPath, "/") + "/",
		hrlsBase: base + "/" + strings.Trim(cfg.ReverseLookupPath, "/") + "/",
		limiter:  ratelimiter.New(cfg.RequestsPerSecond, cfg.Burst),
	}, nil
}

func buildTLSConfig(cfg RESTRecordStoreConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if cfg.HTTPSVerify != nil && !*cfg.HTTPSVerify {
		logger.Warn("rest: server certificate verification is disabled")
		tlsConfig.InsecureSkipVerify = true
	}

	if cfg.CABundle != "" {
		pem, err := os.ReadFile(cfg.CABundle)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA bundle: %w", err)
		}
		pool, err := x509.SystemCertPool()
		if err != nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", cfg.CABundle)
		}
		tlsConfig.RootCAs = pool
	}

	if cfg.CertificateFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertificateFile, cfg.PrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	return tlsConfig, nil
}

// handleURL builds the API URL for name with the given query.
func (s *RESTRecordStore) handleURL(name string, query url.Values) string {
	prefix, suffix, found := strings.Cut(name, "/")
	u := s.apiBase + url.PathEscape(prefix)
	if found {
		u += "/" + url.PathEscape(suffix)
	}
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func indexQuery(q url.Values, indices []int) {
	for _, i := range indices {
		q.Add("index", strconv.Itoa(i))
	}
}

// authenticate adds owner credentials to a mutating request.
func (s *RESTRecordStore) authenticate(req *http.Request) {
	switch {
	case s.cfg.CertificateFile != "":
		req.Header.Set("Authorization", `Handle clientCert="true"`)
	case s.cfg.Username != "":
		req.SetBasicAuth(url.QueryEscape(s.cfg.Username), s.cfg.Password)
	}
}

// authenticateReverseLookup adds the reverse lookup servlet credentials.
func (s *RESTRecordStore) authenticateReverseLookup(req *http.Request) {
	if s.cfg.ReverseLookupUsername != "" {
		req.SetBasicAuth(s.cfg.ReverseLookupUsername, s.cfg.ReverseLookupPassword)
	}
}

// do waits for the limiter, sends a request and reads the whole body.
// auth adds credentials; nil sends the request anonymously.
func (s *RESTRecordStore) do(ctx context.Context, method, target string, body []byte, auth func(*http.Request)) (int, http.Header, []byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, nil, nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, nil, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != nil {
		auth(req)
	}

	logger.Debug("rest: %s %s", method, target)
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, err
	}
	logger.Debug("rest: %s %s -> HTTP %d", method, target, resp.StatusCode)
	return resp.StatusCode, resp.Header, raw, nil
}

func succeeded(status int, resp Response) bool {
	return (status == http.StatusOK || status == http.StatusCreated) && resp.ResponseCode == CodeSuccess
}

// Fetch implements store.RecordStore.
func (s *RESTRecordStore) Fetch(ctx context.Context, name string) (*handle.Record, error) {
	const op = "retrieving handle record"

	q := url.Values{}
	if s.cfg.Authoritative {
		q.Set("auth", "true")
	}
	status, header, body, err := s.do(ctx, http.MethodGet, s.handleURL(name, q), nil, nil)
	if err != nil {
		return nil, handle.NewTransportError(op, name, err)
	}

	resp := decodeResponse(body)
	switch {
	case succeeded(status, resp):
		values := resp.Values
		if values == nil {
			values = []handle.Entry{}
		}
		return &handle.Record{Handle: name, Values: values}, nil
	case status == http.StatusOK && resp.ResponseCode == CodeValuesNotFound:
		return &handle.Record{Handle: name, Values: []handle.Entry{}}, nil
	default:
		return nil, responseError(op, name, status, header, body, "")
	}
}

// Write implements store.RecordStore.
func (s *RESTRecordStore) Write(ctx context.Context, req store.WriteRequest) error {
	op := "registering handle"
	if req.Partial() {
		op = "modifying handle values"
	}

	payload, err := json.Marshal(WriteRequestBody{Values: req.Entries})
	if err != nil {
		return fmt.Errorf("failed to encode entries: %w", err)
	}

	q := url.Values{}
	q.Set("overwrite", strconv.FormatBool(req.Overwrite))
	indexQuery(q, req.Indices)

	status, header, body, err := s.do(ctx, http.MethodPut, s.handleURL(req.Handle, q), payload, s.authenticate)
	if err != nil {
		return handle.NewTransportError(op, req.Handle, err)
	}
	if succeeded(status, decodeResponse(body)) {
		return nil
	}
	return responseError(op, req.Handle, status, header, body, string(payload))
}

// Delete implements store.RecordStore.
func (s *RESTRecordStore) Delete(ctx context.Context, name string) error {
	const op = "deleting handle"

	status, header, body, err := s.do(ctx, http.MethodDelete, s.handleURL(name, nil), nil, s.authenticate)
	if err != nil {
		return handle.NewTransportError(op, name, err)
	}
	if succeeded(status, decodeResponse(body)) {
		return nil
	}
	return responseError(op, name, status, header, body, "")
}

// DeleteIndices implements store.RecordStore.
//
// An empty index list would delete the whole handle on the server, so it is
// turned into an existence check instead.
func (s *RESTRecordStore) DeleteIndices(ctx context.Context, name string, indices []int) error {
	const op = "deleting handle values"

	if len(indices) == 0 {
		_, err := s.Fetch(ctx, name)
		return err
	}

	q := url.Values{}
	indexQuery(q, indices)
	status, header, body, err := s.do(ctx, http.MethodDelete, s.handleURL(name, q), nil, s.authenticate)
	if err != nil {
		return handle.NewTransportError(op, name, err)
	}

	resp := decodeResponse(body)
	if succeeded(status, resp) || (status == http.StatusOK && resp.ResponseCode == CodeValuesNotFound) {
		return nil
	}
	return responseError(op, name, status, header, body, "")
}

// ListHandles implements store.Lister using GET <api>?prefix=.
func (s *RESTRecordStore) ListHandles(ctx context.Context, prefix string) ([]string, error) {
	const op = "listing handles"

	target := strings.TrimRight(s.apiBase, "/")
	if prefix != "" {
		target += "?" + url.Values{"prefix": {prefix}}.Encode()
	}
	status, header, body, err := s.do(ctx, http.MethodGet, target, nil, s.authenticate)
	if err != nil {
		return nil, handle.NewTransportError(op, prefix, err)
	}

	resp := decodeResponse(body)
	if !succeeded(status, resp) {
		return nil, responseError(op, prefix, status, header, body, "")
	}
	names := resp.Handles
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// Search implements store.Searcher through the reverse lookup servlet.
//
// Pairs are passed as query parameters; wildcards are interpreted by the
// servlet. The prefix restriction is applied to the returned names.
func (s *RESTRecordStore) Search(ctx context.Context, query store.SearchQuery) ([]string, error) {
	const op = "searching handles"

	q := url.Values{}
	for _, pair := range query.Pairs {
		q.Set(pair.Type, pair.Value.String())
	}
	target := s.hrlsBase
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	status, _, body, err := s.do(ctx, http.MethodGet, target, nil, s.authenticateReverseLookup)
	if err != nil {
		return nil, &handle.HandleError{Code: handle.ErrReverseLookup, Op: op, Err: err}
	}

	switch status {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, &handle.HandleError{Code: handle.ErrAuthentication, Op: op, Response: string(body),
			Message: "reverse lookup credentials were refused"}
	default:
		return nil, &handle.HandleError{Code: handle.ErrReverseLookup, Op: op, Response: string(body),
			Message: fmt.Sprintf("HTTP %d", status)}
	}

	var found []string
	if err := json.Unmarshal(body, &found); err != nil {
		return nil, &handle.HandleError{Code: handle.ErrReverseLookup, Op: op, Response: string(body),
			Message: "unexpected reverse lookup response", Err: err}
	}

	names := make([]string, 0, len(found))
	for _, name := range found {
		if store.HasPrefix(name, query.Prefix) {
			names = append(names, name)
		}
	}
	return names, nil
}

// Close implements store.RecordStore.
func (s *RESTRecordStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
