package testing

import (
	"context"
	"testing"

	"github.com/marmos91/dittohandle/pkg/handle"
	"github.com/marmos91/dittohandle/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *StoreTestSuite) RunFetchTests(test *testing.T) {
	test.Run("Fetch_NotFound", suite.TestFetch_NotFound)
	test.Run("Fetch_ReturnsCopy", suite.TestFetch_ReturnsCopy)
}

func (suite *StoreTestSuite) RunWriteTests(test *testing.T) {
	test.Run("Write_WholeRecord", suite.TestWrite_WholeRecord)
	test.Run("Write_WholeRecord_Exists", suite.TestWrite_WholeRecord_Exists)
	test.Run("Write_WholeRecord_Overwrite", suite.TestWrite_WholeRecord_Overwrite)
	test.Run("Write_Partial_Add", suite.TestWrite_Partial_Add)
	test.Run("Write_Partial_Replace", suite.TestWrite_Partial_Replace)
	test.Run("Write_Partial_Conflict", suite.TestWrite_Partial_Conflict)
	test.Run("Write_Partial_NotFound", suite.TestWrite_Partial_NotFound)
}

func (suite *StoreTestSuite) RunDeleteTests(test *testing.T) {
	test.Run("Delete_Success", suite.TestDelete_Success)
	test.Run("Delete_NotFound", suite.TestDelete_NotFound)
	test.Run("DeleteIndices_Success", suite.TestDeleteIndices_Success)
	test.Run("DeleteIndices_Unknown", suite.TestDeleteIndices_Unknown)
	test.Run("DeleteIndices_NotFound", suite.TestDeleteIndices_NotFound)
}

// TestFetch_NotFound verifies a missing handle is reported as ErrNotFound, not an empty record.
func (suite *StoreTestSuite) TestFetch_NotFound(test *testing.T) {
	s := suite.NewStore(test)

	rec, err := s.Fetch(context.Background(), "21.T12345/does-not-exist")
	assert.Nil(test, rec)
	AssertCode(test, err, handle.ErrNotFound)
}

// TestFetch_ReturnsCopy verifies callers cannot change stored data through a fetched record.
func (suite *StoreTestSuite) TestFetch_ReturnsCopy(test *testing.T) {
	s := suite.NewStore(test)
	MustRegister(test, s, TestHandle, DefaultRecordEntries())

	rec := MustFetch(test, s, TestHandle)
	for i := range rec.Values {
		rec.Values[i].Data = handle.StringData("mutated")
	}

	AssertEntries(test, DefaultRecordEntries(), MustFetch(test, s, TestHandle).Values)
}

func (suite *StoreTestSuite) TestWrite_WholeRecord(test *testing.T) {
	s := suite.NewStore(test)
	MustRegister(test, s, TestHandle, DefaultRecordEntries())

	rec := MustFetch(test, s, TestHandle)
	assert.Equal(test, TestHandle, rec.Handle)
	AssertEntries(test, DefaultRecordEntries(), rec.Values)
}

func (suite *StoreTestSuite) TestWrite_WholeRecord_Exists(test *testing.T) {
	s := suite.NewStore(test)
	MustRegister(test, s, TestHandle, DefaultRecordEntries())

	err := s.Write(context.Background(), store.WriteRequest{
		Handle:  TestHandle,
		Entries: []handle.Entry{{Index: 1, Type: handle.TypeURL, Data: handle.StringData("https://other")}},
	})
	AssertCode(test, err, handle.ErrAlreadyExists)

	AssertEntries(test, DefaultRecordEntries(), MustFetch(test, s, TestHandle).Values)
}

func (suite *StoreTestSuite) TestWrite_WholeRecord_Overwrite(test *testing.T) {
	s := suite.NewStore(test)
	MustRegister(test, s, TestHandle, DefaultRecordEntries())

	replacement := []handle.Entry{
		DefaultRecordEntries()[0],
		{Index: 1, Type: handle.TypeURL, Data: handle.StringData("https://other")},
	}
	err := s.Write(context.Background(), store.WriteRequest{Handle: TestHandle, Entries: replacement, Overwrite: true})
	require.NoError(test, err)

	AssertEntries(test, replacement, MustFetch(test, s, TestHandle).Values)
}

func (suite *StoreTestSuite) TestWrite_Partial_Add(test *testing.T) {
	s := suite.NewStore(test)
	MustRegister(test, s, TestHandle, DefaultRecordEntries())

	ttl := 60
	added := handle.Entry{Index: 3, Type: "EMAIL", Data: handle.StringData("owner@example.org"), TTL: &ttl}
	err := s.Write(context.Background(), store.WriteRequest{
		Handle:  TestHandle,
		Entries: []handle.Entry{added},
		Indices: []int{3},
	})
	require.NoError(test, err)

	AssertEntries(test, append(DefaultRecordEntries(), added), MustFetch(test, s, TestHandle).Values)
}

func (suite *StoreTestSuite) TestWrite_Partial_Replace(test *testing.T) {
	s := suite.NewStore(test)
	MustRegister(test, s, TestHandle, DefaultRecordEntries())

	changed := handle.Entry{Index: 2, Type: handle.TypeChecksum, Data: handle.StringData("new-checksum")}
	err := s.Write(context.Background(), store.WriteRequest{
		Handle:    TestHandle,
		Entries:   []handle.Entry{changed},
		Indices:   []int{2},
		Overwrite: true,
	})
	require.NoError(test, err)

	want := DefaultRecordEntries()
	want[2] = changed
	AssertEntries(test, want, MustFetch(test, s, TestHandle).Values)
}

func (suite *StoreTestSuite) TestWrite_Partial_Conflict(test *testing.T) {
	s := suite.NewStore(test)
	MustRegister(test, s, TestHandle, DefaultRecordEntries())

	err := s.Write(context.Background(), store.WriteRequest{
		Handle:  TestHandle,
		Entries: []handle.Entry{{Index: 2, Type: "OTHER", Data: handle.StringData("x")}},
		Indices: []int{2},
	})
	AssertCode(test, err, handle.ErrAlreadyExists)

	AssertEntries(test, DefaultRecordEntries(), MustFetch(test, s, TestHandle).Values)
}

func (suite *StoreTestSuite) TestWrite_Partial_NotFound(test *testing.T) {
	s := suite.NewStore(test)

	err := s.Write(context.Background(), store.WriteRequest{
		Handle:    TestHandle,
		Entries:   []handle.Entry{{Index: 2, Type: "OTHER", Data: handle.StringData("x")}},
		Indices:   []int{2},
		Overwrite: true,
	})
	AssertCode(test, err, handle.ErrNotFound)
}

func (suite *StoreTestSuite) TestDelete_Success(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()
	MustRegister(test, s, TestHandle, DefaultRecordEntries())

	require.NoError(test, s.Delete(ctx, TestHandle))

	_, err := s.Fetch(ctx, TestHandle)
	AssertCode(test, err, handle.ErrNotFound)
}

func (suite *StoreTestSuite) TestDelete_NotFound(test *testing.T) {
	s := suite.NewStore(test)

	err := s.Delete(context.Background(), TestHandle)
	AssertCode(test, err, handle.ErrNotFound)
}

func (suite *StoreTestSuite) TestDeleteIndices_Success(test *testing.T) {
	s := suite.NewStore(test)
	MustRegister(test, s, TestHandle, DefaultRecordEntries())

	require.NoError(test, s.DeleteIndices(context.Background(), TestHandle, []int{2}))

	AssertEntries(test, DefaultRecordEntries()[:2], MustFetch(test, s, TestHandle).Values)
}

func (suite *StoreTestSuite) TestDeleteIndices_Unknown(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()
	MustRegister(test, s, TestHandle, DefaultRecordEntries())

	require.NoError(test, s.DeleteIndices(ctx, TestHandle, []int{42}))
	require.NoError(test, s.DeleteIndices(ctx, TestHandle, nil))

	AssertEntries(test, DefaultRecordEntries(), MustFetch(test, s, TestHandle).Values)
}

func (suite *StoreTestSuite) TestDeleteIndices_NotFound(test *testing.T) {
	s := suite.NewStore(test)

	err := s.DeleteIndices(context.Background(), TestHandle, []int{1})
	AssertCode(test, err, handle.ErrNotFound)
}
