package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/marmos91/dittohandle/pkg/handle"
	"github.com/marmos91/dittohandle/pkg/store"
	"github.com/marmos91/dittohandle/pkg/store/rest/resttest"
	storetesting "github.com/marmos91/dittohandle/pkg/store/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testOwner    = "300:21.T12345/USER01"
	testPassword = "secret"
)

func newFakeServer(t *testing.T) *resttest.Server {
	t.Helper()
	srv := resttest.NewServer()
	srv.Username = testOwner
	srv.Password = testPassword
	srv.SearchUsername = "searcher"
	srv.SearchPassword = "lookup"
	t.Cleanup(srv.Close)
	return srv
}

func newTestStore(t *testing.T, srv *resttest.Server) *RESTRecordStore {
	t.Helper()
	s, err := NewRESTRecordStore(RESTRecordStoreConfig{
		ServerURL:             srv.URL,
		Username:              testOwner,
		Password:              testPassword,
		ReverseLookupUsername: "searcher",
		ReverseLookupPassword: "lookup",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// TestRESTRecordStore runs the RecordStore suite through the fake handle server.
func TestRESTRecordStore(t *testing.T) {
	suite := &storetesting.StoreTestSuite{
		NewStore: func(t *testing.T) store.RecordStore {
			return newTestStore(t, newFakeServer(t))
		},
	}
	suite.Run(t)
}

func TestRESTRecordStore_RequestShapes(t *testing.T) {
	srv := newFakeServer(t)
	s := newTestStore(t, srv)
	s.cfg.Authoritative = true
	ctx := context.Background()

	storetesting.MustRegister(t, s, storetesting.TestHandle, storetesting.DefaultRecordEntries())
	require.NoError(t, s.Write(ctx, store.WriteRequest{
		Handle:    storetesting.TestHandle,
		Entries:   []handle.Entry{{Index: 2, Type: handle.TypeChecksum, Data: handle.StringData("abc")}},
		Indices:   []int{2},
		Overwrite: true,
	}))
	require.NoError(t, s.DeleteIndices(ctx, storetesting.TestHandle, []int{2, 3}))
	_, err := s.Fetch(ctx, storetesting.TestHandle)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"PUT /api/handles/21.T12345/suite-0001?overwrite=false",
		"PUT /api/handles/21.T12345/suite-0001?index=2&overwrite=true",
		"DELETE /api/handles/21.T12345/suite-0001?index=2&index=3",
		"GET /api/handles/21.T12345/suite-0001?auth=true",
	}, srv.Requests())
}

func TestRESTRecordStore_WrongCredentials(t *testing.T) {
	srv := newFakeServer(t)
	s, err := NewRESTRecordStore(RESTRecordStoreConfig{ServerURL: srv.URL, Username: testOwner, Password: "wrong"})
	require.NoError(t, err)

	err = s.Write(context.Background(), store.WriteRequest{
		Handle:  storetesting.TestHandle,
		Entries: storetesting.DefaultRecordEntries(),
	})
	storetesting.AssertCode(t, err, handle.ErrAuthentication)

	var herr *handle.HandleError
	require.ErrorAs(t, err, &herr)
	assert.Contains(t, herr.Payload, `"values"`)
	assert.Contains(t, herr.Response, "402")

	_, err = s.Search(context.Background(), store.SearchQuery{Pairs: handle.Changes{}.Set(handle.TypeURL, "*")})
	storetesting.AssertCode(t, err, handle.ErrAuthentication)
}

func TestRESTRecordStore_EmptyDeleteIndicesKeepsHandle(t *testing.T) {
	srv := newFakeServer(t)
	s := newTestStore(t, srv)
	storetesting.MustRegister(t, s, storetesting.TestHandle, storetesting.DefaultRecordEntries())

	require.NoError(t, s.DeleteIndices(context.Background(), storetesting.TestHandle, []int{}))

	storetesting.AssertEntries(t, storetesting.DefaultRecordEntries(), storetesting.MustFetch(t, s, storetesting.TestHandle).Values)
	for _, r := range srv.Requests() {
		assert.False(t, strings.HasPrefix(r, "DELETE"), r)
	}
}

func TestRESTRecordStore_Redirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "https://elsewhere.example.org"+r.URL.Path, http.StatusTemporaryRedirect)
	}))
	defer srv.Close()

	s, err := NewRESTRecordStore(RESTRecordStoreConfig{ServerURL: srv.URL})
	require.NoError(t, err)

	err = s.Write(context.Background(), store.WriteRequest{Handle: "21.T1/x", Entries: storetesting.DefaultRecordEntries()})
	storetesting.AssertCode(t, err, handle.ErrTransport)
	assert.Contains(t, err.Error(), "elsewhere.example.org")
}

func TestRESTRecordStore_Throttled(t *testing.T) {
	srv := newFakeServer(t)
	s, err := NewRESTRecordStore(RESTRecordStoreConfig{ServerURL: srv.URL, RequestsPerSecond: 1, Burst: 1})
	require.NoError(t, err)

	_, err = s.Fetch(context.Background(), "21.T12345/missing")
	storetesting.AssertCode(t, err, handle.ErrNotFound)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.Fetch(ctx, "21.T12345/missing")
	storetesting.AssertCode(t, err, handle.ErrTransport)
	assert.Len(t, srv.Requests(), 1)
}

func TestRESTRecordStore_ThrottledSearch(t *testing.T) {
	srv := newFakeServer(t)
	s, err := NewRESTRecordStore(RESTRecordStoreConfig{
		ServerURL:             srv.URL,
		ReverseLookupUsername: "searcher",
		ReverseLookupPassword: "lookup",
		RequestsPerSecond:     1,
		Burst:                 1,
	})
	require.NoError(t, err)

	_, err = s.Fetch(context.Background(), "21.T12345/missing")
	storetesting.AssertCode(t, err, handle.ErrNotFound)

	query := store.SearchQuery{Pairs: handle.ChangesFromPairs(handle.TypeURL, "*")}
	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		_, err = s.Search(ctx, query)
		cancel()
		storetesting.AssertCode(t, err, handle.ErrReverseLookup)
	}
	assert.Len(t, srv.Requests(), 1)
}

func TestRESTRecordStore_TLS(t *testing.T) {
	srv := resttest.NewTLSServer()
	defer srv.Close()

	s, err := NewRESTRecordStore(RESTRecordStoreConfig{ServerURL: srv.URL, HTTPClient: srv.Client()})
	require.NoError(t, err)

	storetesting.MustRegister(t, s, storetesting.TestHandle, storetesting.DefaultRecordEntries())
	storetesting.AssertEntries(t, storetesting.DefaultRecordEntries(), storetesting.MustFetch(t, s, storetesting.TestHandle).Values)
}

func TestNewRESTRecordStore_Validation(t *testing.T) {
	_, err := NewRESTRecordStore(RESTRecordStoreConfig{})
	assert.Error(t, err)

	_, err = NewRESTRecordStore(RESTRecordStoreConfig{ServerURL: "https://hdl.example.org", CABundle: "/does/not/exist.pem"})
	assert.Error(t, err)
}

func TestHandleURL(t *testing.T) {
	s, err := NewRESTRecordStore(RESTRecordStoreConfig{ServerURL: "https://hdl.example.org:8000/"})
	require.NoError(t, err)

	assert.Equal(t, "https://hdl.example.org:8000/api/handles/21.T1/abc", s.handleURL("21.T1/abc", nil))
	assert.Equal(t, "https://hdl.example.org:8000/api/handles/21.T1/a%20b", s.handleURL("21.T1/a b", nil))
}

func TestResponseError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   handle.ErrorCode
	}{
		{"not_found", http.StatusNotFound, `{"responseCode":100}`, handle.ErrNotFound},
		{"exists", http.StatusConflict, `{"responseCode":101}`, handle.ErrAlreadyExists},
		{"values_not_found", http.StatusOK, `{"responseCode":200}`, handle.ErrNotFound},
		{"auth_code", http.StatusUnauthorized, `{"responseCode":402}`, handle.ErrAuthentication},
		{"forbidden", http.StatusForbidden, ``, handle.ErrAuthentication},
		{"server_error", http.StatusInternalServerError, `oops`, handle.ErrTransport},
		{"redirect", http.StatusFound, ``, handle.ErrTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := responseError("op", "21.T1/x", tt.status, http.Header{}, []byte(tt.body), "")
			storetesting.AssertCode(t, err, tt.code)
		})
	}
}
