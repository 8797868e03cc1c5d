package testing

import (
	"testing"

	"github.com/marmos91/dittohandle/pkg/store"
)

// StoreTestSuite is a test suite for RecordStore implementations.
// It tests the interface contract, not implementation details, so every
// backend (memory, badger, sqlite, rest, s3) runs the same cases.
type StoreTestSuite struct {
	// NewStore creates a fresh, empty RecordStore for each test.
	// Backends that need cleanup should register it with t.Cleanup.
	NewStore func(t *testing.T) store.RecordStore
}

// Run executes all tests in the suite. Listing and search tests only run
// when the store implements store.Lister / store.Searcher.
func (suite *StoreTestSuite) Run(test *testing.T) {
	test.Run("Fetch", suite.RunFetchTests)
	test.Run("Write", suite.RunWriteTests)
	test.Run("Delete", suite.RunDeleteTests)
	test.Run("List", suite.RunListTests)
	test.Run("Search", suite.RunSearchTests)
}
