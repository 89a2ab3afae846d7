package testing

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/christophercampbell/skunkr/lib/db"
	"golang.org/x/sync/errgroup"
)

// DBFactory opens a KVDB implementation in the given directory
type DBFactory func(dir string, opts *db.Options) (db.KVDB, error)

// RunKVDBTests runs a comprehensive test suite for a KVDB implementation.
func RunKVDBTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, open(t, factory, nil))
		})

		t.Run("Absence", func(t *testing.T) {
			testAbsence(t, open(t, factory, nil))
		})

		t.Run("EmptyValue", func(t *testing.T) {
			testEmptyValue(t, open(t, factory, nil))
		})

		t.Run("DefaultTable", func(t *testing.T) {
			testDefaultTable(t, open(t, factory, nil))
		})

		t.Run("TableIsolation", func(t *testing.T) {
			testTableIsolation(t, open(t, factory, nil))
		})

		t.Run("ScanOrder", func(t *testing.T) {
			testScanOrder(t, open(t, factory, nil))
		})

		t.Run("ScanFrom", func(t *testing.T) {
			testScanFrom(t, open(t, factory, nil))
		})

		t.Run("ScanMissingTable", func(t *testing.T) {
			testScanMissingTable(t, open(t, factory, nil))
		})

		t.Run("ScanStop", func(t *testing.T) {
			testScanStop(t, open(t, factory, nil))
		})

		t.Run("TableLimit", func(t *testing.T) {
			testTableLimit(t, open(t, factory, &db.Options{MaxTables: 3}))
		})

		t.Run("DefaultTableLimit", func(t *testing.T) {
			testDefaultTableLimit(t, open(t, factory, nil))
		})

		t.Run("BinaryKeys", func(t *testing.T) {
			testBinaryKeys(t, open(t, factory, nil))
		})

		t.Run("ConcurrentReadWrite", func(t *testing.T) {
			testConcurrentReadWrite(t, open(t, factory, nil))
		})

		t.Run("Persistence", func(t *testing.T) {
			testPersistence(t, factory)
		})

		t.Run("NoSync", func(t *testing.T) {
			testSetGet(t, open(t, factory, &db.Options{NoSync: true}))
		})

		t.Run("Closed", func(t *testing.T) {
			testClosed(t, factory)
		})

		t.Run("CloseDuringScan", func(t *testing.T) {
			testCloseDuringScan(t, factory)
		})

		t.Run("Info", func(t *testing.T) {
			testInfo(t, open(t, factory, nil))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// open creates a database in a fresh temporary directory that is closed after the test
func open(t testing.TB, factory DBFactory, opts *db.Options) db.KVDB {
	t.Helper()
	database, err := factory(t.TempDir(), opts)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})
	return database
}

// Checks if the database supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, database db.KVDB, feature db.Feature) {
	if !database.SupportsFeature(feature) {
		t.Skip()
	}
}

func mustSet(t testing.TB, database db.KVDB, table, key, value string) {
	t.Helper()
	if err := database.Set(table, []byte(key), []byte(value)); err != nil {
		t.Fatalf("Unexpected error setting %s/%s: %v", table, key, err)
	}
}

func scanAll(t testing.TB, database db.KVDB, table string, from []byte) (keys []string, values []string) {
	t.Helper()
	err := database.Scan(table, from, func(key, value []byte) error {
		keys = append(keys, string(key))
		values = append(values, string(value))
		return nil
	})
	if err != nil {
		t.Fatalf("Unexpected error scanning %s: %v", table, err)
	}
	return keys, values
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, database db.KVDB) {
	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	table := "t"
	testKey := []byte("test-key")
	testValue1 := []byte("test-value1")
	testValue2 := []byte("test-value2")

	if err := database.Set(table, testKey, testValue1); err != nil {
		t.Fatalf("Unexpected error during Set: %v", err)
	}

	result, exists, err := database.Get(table, testKey)
	if err != nil || !exists {
		t.Fatalf("Expected key %s to exist after Set (err: %v)", testKey, err)
	}
	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	if err := database.Set(table, testKey, testValue2); err != nil {
		t.Fatalf("Unexpected error during Set: %v", err)
	}
	result, _, _ = database.Get(table, testKey)
	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s, got %s", testValue2, result)
	}

	retrievedValue, _, _ := database.Get(table, testKey)
	retrievedValue[0] = 'X'
	originalValue, _, _ := database.Get(table, testKey)
	if bytes.Equal(retrievedValue, originalValue) {
		t.Errorf("Get should return a copy, not a reference to the stored value")
	}

	// the engine must not keep a reference to the caller's buffer
	buf := []byte("buffer-value")
	if err := database.Set(table, []byte("buf"), buf); err != nil {
		t.Fatalf("Unexpected error during Set: %v", err)
	}
	buf[0] = 'X'
	result, _, _ = database.Get(table, []byte("buf"))
	if string(result) != "buffer-value" {
		t.Errorf("Set should copy the value, got %s", result)
	}
}

func testAbsence(t *testing.T, database db.KVDB) {
	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	value, exists, err := database.Get("missing-table", []byte("key"))
	if err != nil {
		t.Errorf("Get on a missing table must not fail: %v", err)
	}
	if exists || value != nil {
		t.Errorf("Expected missing table to return exists=false, got %v / %s", exists, value)
	}

	mustSet(t, database, "t", "a", "1")
	_, exists, err = database.Get("t", []byte("nonexistent-key"))
	if err != nil || exists {
		t.Errorf("Expected nonexistent key to return exists=false (err: %v)", err)
	}

	// a prefix of an existing key is a different key
	mustSet(t, database, "t", "abc", "1")
	_, exists, _ = database.Get("t", []byte("ab"))
	if exists {
		t.Errorf("Get must match keys exactly")
	}

	if ok, _ := database.HasTable("missing-table"); ok {
		t.Errorf("Get must not create tables")
	}
}

func testEmptyValue(t *testing.T, database db.KVDB) {
	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	if err := database.Set("t", []byte("empty"), []byte{}); err != nil {
		t.Fatalf("Unexpected error during Set: %v", err)
	}
	value, exists, err := database.Get("t", []byte("empty"))
	if err != nil || !exists {
		t.Fatalf("Expected empty value to exist (err: %v)", err)
	}
	if len(value) != 0 {
		t.Errorf("Expected empty value, got %s", value)
	}
}

func testDefaultTable(t *testing.T, database db.KVDB) {
	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	mustSet(t, database, "", "k", "default")
	mustSet(t, database, "t", "k", "named")

	value, exists, err := database.Get("", []byte("k"))
	if err != nil || !exists || string(value) != "default" {
		t.Errorf("Expected default table value, got %s (exists: %v, err: %v)", value, exists, err)
	}

	tables, err := database.Tables()
	if err != nil {
		t.Fatalf("Unexpected error listing tables: %v", err)
	}
	if len(tables) != 2 || tables[0] != "" || tables[1] != "t" {
		t.Errorf("Expected tables [\"\" \"t\"], got %q", tables)
	}
}

func testTableIsolation(t *testing.T, database db.KVDB) {
	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureScan)

	mustSet(t, database, "A", "key", "in-a")
	mustSet(t, database, "B", "other", "in-b")

	if _, exists, _ := database.Get("B", []byte("key")); exists {
		t.Errorf("Key set in table A must be absent in table B")
	}
	if _, exists, _ := database.Get("A", []byte("other")); exists {
		t.Errorf("Key set in table B must be absent in table A")
	}

	// adjacent table names must not leak into each other's scans
	mustSet(t, database, "AB", "x", "in-ab")
	keys, _ := scanAll(t, database, "A", nil)
	if len(keys) != 1 || keys[0] != "key" {
		t.Errorf("Expected scan of A to yield [key], got %v", keys)
	}
}

func testScanOrder(t *testing.T, database db.KVDB) {
	requireFeature(t, database, db.FeatureSet|db.FeatureScan)

	rnd := rand.New(rand.NewSource(42))
	expected := make([]string, 0, 200)
	for _, i := range rnd.Perm(200) {
		key := fmt.Sprintf("key-%03d", i)
		mustSet(t, database, "t", key, "v-"+key)
		expected = append(expected, key)
	}
	sort.Strings(expected)

	keys, values := scanAll(t, database, "t", nil)
	if len(keys) != len(expected) {
		t.Fatalf("Expected %d keys, got %d", len(expected), len(keys))
	}
	for i := range keys {
		if keys[i] != expected[i] {
			t.Fatalf("Expected key %s at position %d, got %s", expected[i], i, keys[i])
		}
		if values[i] != "v-"+keys[i] {
			t.Errorf("Expected value v-%s, got %s", keys[i], values[i])
		}
	}

	// an empty start key is a full scan
	keys, _ = scanAll(t, database, "t", []byte{})
	if len(keys) != len(expected) {
		t.Errorf("Expected empty start key to scan all %d keys, got %d", len(expected), len(keys))
	}
}

func testScanFrom(t *testing.T, database db.KVDB) {
	requireFeature(t, database, db.FeatureSet|db.FeatureScan)

	mustSet(t, database, "t", "a", "1")
	mustSet(t, database, "t", "b", "2")
	mustSet(t, database, "t", "c", "3")

	keys, values := scanAll(t, database, "t", []byte("b"))
	if fmt.Sprint(keys) != "[b c]" || fmt.Sprint(values) != "[2 3]" {
		t.Errorf("Expected [(b,2) (c,3)], got keys %v values %v", keys, values)
	}

	// a start key between entries begins at the next entry
	keys, _ = scanAll(t, database, "t", []byte("bb"))
	if fmt.Sprint(keys) != "[c]" {
		t.Errorf("Expected [c], got %v", keys)
	}

	// a start key after the last entry yields nothing
	keys, _ = scanAll(t, database, "t", []byte("d"))
	if len(keys) != 0 {
		t.Errorf("Expected no keys, got %v", keys)
	}
}

func testScanMissingTable(t *testing.T, database db.KVDB) {
	requireFeature(t, database, db.FeatureScan)

	called := false
	err := database.Scan("missing", nil, func(_, _ []byte) error {
		called = true
		return nil
	})
	if !errors.Is(err, db.ErrTableNotFound) {
		t.Errorf("Expected ErrTableNotFound, got %v", err)
	}
	if called {
		t.Errorf("Scan of a missing table must not call fn")
	}
}

func testScanStop(t *testing.T, database db.KVDB) {
	requireFeature(t, database, db.FeatureSet|db.FeatureScan)

	for i := 0; i < 10; i++ {
		mustSet(t, database, "t", fmt.Sprintf("k%d", i), "v")
	}

	stop := errors.New("stop")
	count := 0
	err := database.Scan("t", nil, func(_, _ []byte) error {
		count++
		if count == 3 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Errorf("Expected Scan to return the error of fn, got %v", err)
	}
	if count != 3 {
		t.Errorf("Expected Scan to stop after 3 items, got %d", count)
	}

	// the read transaction must be released, writes still work
	mustSet(t, database, "t", "after", "v")
}

func testTableLimit(t *testing.T, database db.KVDB) {
	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	for i := 0; i < 3; i++ {
		mustSet(t, database, fmt.Sprintf("table-%d", i), "k", "v")
	}

	err := database.Set("table-3", []byte("k"), []byte("v"))
	if !errors.Is(err, db.ErrTableLimit) {
		t.Fatalf("Expected ErrTableLimit, got %v", err)
	}
	if ok, _ := database.HasTable("table-3"); ok {
		t.Errorf("Table must not exist after a failed creation")
	}

	// existing tables still accept writes
	mustSet(t, database, "table-0", "k2", "v2")
	if value, exists, _ := database.Get("table-0", []byte("k2")); !exists || string(value) != "v2" {
		t.Errorf("Expected write to an existing table to succeed at the limit")
	}
}

func testDefaultTableLimit(t *testing.T, database db.KVDB) {
	requireFeature(t, database, db.FeatureSet)

	for i := 0; i < db.DefaultMaxTables; i++ {
		mustSet(t, database, fmt.Sprintf("table-%d", i), "k", "v")
	}
	if err := database.Set("one-too-many", []byte("k"), []byte("v")); !errors.Is(err, db.ErrTableLimit) {
		t.Errorf("Expected ErrTableLimit after %d tables, got %v", db.DefaultMaxTables, err)
	}
}

func testBinaryKeys(t *testing.T, database db.KVDB) {
	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureScan)

	keys := [][]byte{{0x00}, {0x00, 0x00}, {0x01}, {0x7F}, {0xFF}, {0xFF, 0xFF, 0xFF}}
	for i := len(keys) - 1; i >= 0; i-- {
		if err := database.Set("bin", keys[i], keys[i]); err != nil {
			t.Fatalf("Unexpected error setting %x: %v", keys[i], err)
		}
	}

	for _, k := range keys {
		value, exists, err := database.Get("bin", k)
		if err != nil || !exists || !bytes.Equal(value, k) {
			t.Errorf("Expected %x to round-trip, got %x (exists: %v, err: %v)", k, value, exists, err)
		}
	}

	var scanned [][]byte
	err := database.Scan("bin", nil, func(key, _ []byte) error {
		scanned = append(scanned, key)
		return nil
	})
	if err != nil {
		t.Fatalf("Unexpected error during Scan: %v", err)
	}
	if len(scanned) != len(keys) {
		t.Fatalf("Expected %d keys, got %d", len(keys), len(scanned))
	}
	for i := range keys {
		if !bytes.Equal(scanned[i], keys[i]) {
			t.Errorf("Expected %x at position %d, got %x", keys[i], i, scanned[i])
		}
	}
}

func testConcurrentReadWrite(t *testing.T, database db.KVDB) {
	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureScan)

	const writers = 4
	const keysPerWriter = 100

	var g errgroup.Group
	for w := 0; w < writers; w++ {
		w := w
		g.Go(func() error {
			table := fmt.Sprintf("w%d", w%2)
			for i := 0; i < keysPerWriter; i++ {
				key := []byte(fmt.Sprintf("%d-%03d", w, i))
				if err := database.Set(table, key, key); err != nil {
					return err
				}
			}
			return nil
		})
		g.Go(func() error {
			for i := 0; i < keysPerWriter; i++ {
				var prev []byte
				err := database.Scan(fmt.Sprintf("w%d", w%2), nil, func(key, value []byte) error {
					if prev != nil && bytes.Compare(prev, key) >= 0 {
						return fmt.Errorf("scan out of order: %s after %s", key, prev)
					}
					if !bytes.Equal(key, value) {
						return fmt.Errorf("torn entry %s=%s", key, value)
					}
					prev = key
					return nil
				})
				if err != nil && !errors.Is(err, db.ErrTableNotFound) {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("Concurrent access failed: %v", err)
	}

	for w := 0; w < writers; w++ {
		table := fmt.Sprintf("w%d", w%2)
		for i := 0; i < keysPerWriter; i++ {
			key := []byte(fmt.Sprintf("%d-%03d", w, i))
			if _, exists, _ := database.Get(table, key); !exists {
				t.Fatalf("Expected key %s in table %s", key, table)
			}
		}
	}
}

func testPersistence(t *testing.T, factory DBFactory) {
	dir := t.TempDir()

	database, err := factory(dir, nil)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if !database.SupportsFeature(db.FeaturePersistence) {
		_ = database.Close()
		t.Skip()
	}

	mustSet(t, database, "t", "persisted", "value")
	mustSet(t, database, "", "default", "value")
	if err := database.Close(); err != nil {
		t.Fatalf("Unexpected error during Close: %v", err)
	}

	database, err = factory(dir, nil)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer database.Close()

	value, exists, err := database.Get("t", []byte("persisted"))
	if err != nil || !exists || string(value) != "value" {
		t.Errorf("Expected value to survive reopen, got %s (exists: %v, err: %v)", value, exists, err)
	}

	tables, _ := database.Tables()
	if len(tables) != 2 {
		t.Errorf("Expected 2 tables after reopen, got %q", tables)
	}
}

func testClosed(t *testing.T, factory DBFactory) {
	database, err := factory(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := database.Close(); err != nil {
		t.Fatalf("Unexpected error during Close: %v", err)
	}
	if err := database.Close(); err != nil {
		t.Errorf("Closing twice must not fail: %v", err)
	}

	if err := database.Set("t", []byte("k"), []byte("v")); !errors.Is(err, db.ErrClosed) {
		t.Errorf("Expected ErrClosed from Set, got %v", err)
	}
	if _, _, err := database.Get("t", []byte("k")); !errors.Is(err, db.ErrClosed) {
		t.Errorf("Expected ErrClosed from Get, got %v", err)
	}
	if err := database.Scan("t", nil, func(_, _ []byte) error { return nil }); !errors.Is(err, db.ErrClosed) {
		t.Errorf("Expected ErrClosed from Scan, got %v", err)
	}
}

// testCloseDuringScan closes the database while a scan is blocked in its callback.
// Close must not release the engine under the running scan, and the scan stops with
// ErrClosed at its next item.
func testCloseDuringScan(t *testing.T, factory DBFactory) {
	database, err := factory(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	for i := 0; i < 10; i++ {
		mustSet(t, database, "t", fmt.Sprintf("k%d", i), "v")
	}

	started := make(chan struct{})
	release := make(chan struct{})
	scanErr := make(chan error, 1)
	visited := 0
	go func() {
		scanErr <- database.Scan("t", nil, func(_, _ []byte) error {
			visited++
			if visited == 1 {
				close(started)
				<-release
			}
			return nil
		})
	}()
	<-started

	closeErr := make(chan error, 1)
	go func() {
		closeErr <- database.Close()
	}()

	// wait until Close marked the database as closed
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, _, err := database.Get("t", []byte("k0")); errors.Is(err, db.ErrClosed) {
			break
		}
		if time.Now().After(deadline) {
			close(release)
			t.Fatal("Database was not marked as closed")
		}
		time.Sleep(time.Millisecond)
	}
	close(release)

	select {
	case err := <-scanErr:
		if !errors.Is(err, db.ErrClosed) {
			t.Errorf("Expected ErrClosed from the interrupted scan, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Scan did not stop after Close")
	}
	if visited != 1 {
		t.Errorf("Expected the scan to stop after 1 item, visited %d", visited)
	}

	select {
	case err := <-closeErr:
		if err != nil {
			t.Errorf("Unexpected error during Close: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return after the scan stopped")
	}
}

func testInfo(t *testing.T, database db.KVDB) {
	mustSet(t, database, "b", "k", "v")
	mustSet(t, database, "a", "k", "v")

	info := database.GetInfo()
	if info.MaxTables != db.DefaultMaxTables {
		t.Errorf("Expected max tables %d, got %d", db.DefaultMaxTables, info.MaxTables)
	}
	if fmt.Sprint(info.Tables) != "[a b]" {
		t.Errorf("Expected tables [a b], got %v", info.Tables)
	}
	if info.DbType == "" {
		t.Errorf("Expected a db type")
	}
	for _, f := range info.SupportedFeatures {
		if !database.SupportsFeature(f) {
			t.Errorf("Feature %s is reported but not supported", f)
		}
	}
}
