package testing

import (
	"context"
	"testing"

	"github.com/marmos91/dittohandle/pkg/handle"
	"github.com/marmos91/dittohandle/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *StoreTestSuite) RunListTests(test *testing.T) {
	test.Run("ListHandles_All", suite.TestListHandles_All)
	test.Run("ListHandles_Prefix", suite.TestListHandles_Prefix)
}

func (suite *StoreTestSuite) RunSearchTests(test *testing.T) {
	test.Run("Search_Exact", suite.TestSearch_Exact)
	test.Run("Search_Wildcard", suite.TestSearch_Wildcard)
	test.Run("Search_AllPairsMustMatch", suite.TestSearch_AllPairsMustMatch)
	test.Run("Search_Prefix", suite.TestSearch_Prefix)
}

// seedSearchData registers three handles across two prefixes.
func seedSearchData(test *testing.T, s store.RecordStore) {
	records := map[string][2]string{
		"21.T1/a":  {"https://example.org/a", "aaa"},
		"21.T1/b":  {"https://example.org/b", "bbb"},
		"21.T10/c": {"https://other.org/a", "aaa"},
	}
	for name, v := range records {
		MustRegister(test, s, name, []handle.Entry{
			{Index: 1, Type: handle.TypeURL, Data: handle.StringData(v[0])},
			{Index: 2, Type: handle.TypeChecksum, Data: handle.StringData(v[1])},
		})
	}
}

func lister(test *testing.T, s store.RecordStore) store.Lister {
	l, ok := s.(store.Lister)
	if !ok {
		test.Skip("store does not implement store.Lister")
	}
	return l
}

func searcher(test *testing.T, s store.RecordStore) store.Searcher {
	q, ok := s.(store.Searcher)
	if !ok {
		test.Skip("store does not implement store.Searcher")
	}
	return q
}

func (suite *StoreTestSuite) TestListHandles_All(test *testing.T) {
	s := suite.NewStore(test)
	l := lister(test, s)
	seedSearchData(test, s)

	names, err := l.ListHandles(context.Background(), "")
	require.NoError(test, err)
	assert.Equal(test, []string{"21.T1/a", "21.T1/b", "21.T10/c"}, names)
}

func (suite *StoreTestSuite) TestListHandles_Prefix(test *testing.T) {
	s := suite.NewStore(test)
	l := lister(test, s)
	seedSearchData(test, s)

	names, err := l.ListHandles(context.Background(), "21.T1")
	require.NoError(test, err)
	assert.Equal(test, []string{"21.T1/a", "21.T1/b"}, names)

	names, err = l.ListHandles(context.Background(), "99.NONE")
	require.NoError(test, err)
	assert.Empty(test, names)
}

func (suite *StoreTestSuite) TestSearch_Exact(test *testing.T) {
	s := suite.NewStore(test)
	q := searcher(test, s)
	seedSearchData(test, s)

	names, err := q.Search(context.Background(), store.SearchQuery{
		Pairs: handle.Changes{}.Set(handle.TypeURL, "https://example.org/b"),
	})
	require.NoError(test, err)
	assert.Equal(test, []string{"21.T1/b"}, names)
}

func (suite *StoreTestSuite) TestSearch_Wildcard(test *testing.T) {
	s := suite.NewStore(test)
	q := searcher(test, s)
	seedSearchData(test, s)

	names, err := q.Search(context.Background(), store.SearchQuery{
		Pairs: handle.Changes{}.Set(handle.TypeURL, "*example.org*"),
	})
	require.NoError(test, err)
	assert.ElementsMatch(test, []string{"21.T1/a", "21.T1/b"}, names)
}

func (suite *StoreTestSuite) TestSearch_AllPairsMustMatch(test *testing.T) {
	s := suite.NewStore(test)
	q := searcher(test, s)
	seedSearchData(test, s)

	names, err := q.Search(context.Background(), store.SearchQuery{
		Pairs: handle.Changes{}.Set(handle.TypeURL, "*/a").Set(handle.TypeChecksum, "aaa"),
	})
	require.NoError(test, err)
	assert.ElementsMatch(test, []string{"21.T1/a", "21.T10/c"}, names)

	names, err = q.Search(context.Background(), store.SearchQuery{
		Pairs: handle.Changes{}.Set(handle.TypeURL, "*/b").Set(handle.TypeChecksum, "aaa"),
	})
	require.NoError(test, err)
	assert.Empty(test, names)
}

func (suite *StoreTestSuite) TestSearch_Prefix(test *testing.T) {
	s := suite.NewStore(test)
	q := searcher(test, s)
	seedSearchData(test, s)

	names, err := q.Search(context.Background(), store.SearchQuery{
		Prefix: "21.T10",
		Pairs:  handle.Changes{}.Set(handle.TypeChecksum, "aaa"),
	})
	require.NoError(test, err)
	assert.Equal(test, []string{"21.T10/c"}, names)
}
