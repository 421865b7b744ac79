package cache

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache"), 24*time.Hour)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	return c
}

func TestOpen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	c, err := Open(dir, time.Hour)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if !c.Enabled() || c.Dir() != dir {
		t.Errorf("Open() = %+v", c)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("Open() should create %s: %v", dir, err)
	}

	if _, err := Open("", time.Hour); err == nil {
		t.Error("Open() with an empty dir should fail")
	}
}

func TestStoreAndLookup(t *testing.T) {
	c := openCache(t)
	payload := []byte(`{"entry_point":"main"}`)

	if err := c.Store("fw", "fp1", payload); err != nil {
		t.Fatalf("Store() error: %v", err)
	}
	got, ok := c.Lookup("fw", "fp1")
	if !ok {
		t.Fatal("Lookup() missed a stored entry")
	}
	if string(got) != string(payload) {
		t.Errorf("Lookup() = %s, want %s", got, payload)
	}

	if _, ok := c.Lookup("fw", "fp2"); ok {
		t.Error("Lookup() should miss on a different fingerprint")
	}
	if _, ok := c.Lookup("other", "fp1"); ok {
		t.Error("Lookup() should miss on an unknown key")
	}
}

func TestStoreRejectsNonJSON(t *testing.T) {
	c := openCache(t)
	if err := c.Store("k", "fp", []byte("not json")); err == nil {
		t.Error("Store() should reject a non-JSON payload")
	}
}

func TestStoreReplacesAtomically(t *testing.T) {
	c := openCache(t)
	for i, key := range []string{"a", "b", "a"} {
		if err := c.Store(key, "fp", []byte(`[`+string(rune('0'+i))+`]`)); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("cache dir holds %d files, want 2", len(entries))
	}
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), entryExt) {
			t.Errorf("unexpected file %s", e.Name())
		}
	}
	if got, _ := c.Lookup("a", "fp"); string(got) != "[2]" {
		t.Errorf("latest store should win, got %s", got)
	}
}

func TestDrop(t *testing.T) {
	c := openCache(t)
	if err := c.Store("k", "fp", []byte(`1`)); err != nil {
		t.Fatal(err)
	}
	if err := c.Drop("k"); err != nil {
		t.Fatalf("Drop() error: %v", err)
	}
	if _, ok := c.Lookup("k", "fp"); ok {
		t.Error("Lookup() should miss after Drop()")
	}
	if err := c.Drop("k"); err != nil {
		t.Errorf("Drop() of a missing key should succeed, got %v", err)
	}
}

func TestPurgeAndStats(t *testing.T) {
	c := openCache(t)

	st, err := c.Stats()
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if st.Entries != 0 || !st.Oldest.IsZero() {
		t.Errorf("empty cache stats = %+v", st)
	}

	for _, key := range []string{"a", "b", "c"} {
		if err := c.Store(key, "fp", []byte(`{}`)); err != nil {
			t.Fatal(err)
		}
	}
	// Stray files in the directory are not entries.
	if err := os.WriteFile(filepath.Join(c.dir, "README"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	st, err = c.Stats()
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if st.Entries != 3 || st.Bytes <= 0 || st.Dir != c.dir {
		t.Errorf("Stats() = %+v", st)
	}
	if st.Newest.Before(st.Oldest) {
		t.Errorf("newest %v before oldest %v", st.Newest, st.Oldest)
	}

	n, err := c.Purge()
	if err != nil {
		t.Fatalf("Purge() error: %v", err)
	}
	if n != 3 {
		t.Errorf("Purge() removed %d, want 3", n)
	}
	if _, err := os.Stat(filepath.Join(c.dir, "README")); err != nil {
		t.Error("Purge() should leave non-entry files alone")
	}
	if _, ok := c.Lookup("a", "fp"); ok {
		t.Error("Lookup() should miss after Purge()")
	}
}

func TestNilCache(t *testing.T) {
	var c *Cache

	if c.Enabled() {
		t.Error("nil cache should be disabled")
	}
	if err := c.Store("k", "fp", []byte(`1`)); err != nil {
		t.Errorf("Store() on nil cache error: %v", err)
	}
	if _, ok := c.Lookup("k", "fp"); ok {
		t.Error("nil cache should never hit")
	}
	if err := c.Drop("k"); err != nil {
		t.Error(err)
	}
	if n, err := c.Purge(); n != 0 || err != nil {
		t.Errorf("Purge() = %d, %v", n, err)
	}
	if st, err := c.Stats(); err != nil || st.Entries != 0 {
		t.Errorf("Stats() = %+v, %v", st, err)
	}
}

func TestExpiredEntry(t *testing.T) {
	c := openCache(t)

	old, err := json.Marshal(record{Fingerprint: "fp", Stored: time.Now().Add(-48 * time.Hour), Payload: json.RawMessage(`1`)})
	if err != nil {
		t.Fatal(err)
	}
	path := c.path("k")
	if err := os.WriteFile(path, old, 0o600); err != nil {
		t.Fatal(err)
	}

	if _, ok := c.Lookup("k", "fp"); ok {
		t.Error("Lookup() should miss after the TTL")
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Error("expired entry should be removed")
	}
}

func TestZeroTTLNeverExpires(t *testing.T) {
	c, err := Open(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}
	old, _ := json.Marshal(record{Fingerprint: "fp", Stored: time.Now().Add(-24 * 365 * time.Hour), Payload: json.RawMessage(`1`)})
	if err := os.WriteFile(c.path("k"), old, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Lookup("k", "fp"); !ok {
		t.Error("zero TTL should keep old entries")
	}
}

func TestCorruptEntry(t *testing.T) {
	c := openCache(t)
	if err := os.WriteFile(c.path("k"), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Lookup("k", ""); ok {
		t.Error("corrupt entries should miss")
	}
}

func TestFingerprint(t *testing.T) {
	contents := map[string]string{"main.c": "int main(void);", "gpio.c": "void g(void);"}
	read := func(p string) ([]byte, error) {
		c, ok := contents[p]
		if !ok {
			return nil, os.ErrNotExist
		}
		return []byte(c), nil
	}

	base, err := Fingerprint("depth=5", []string{"main.c", "gpio.c"}, read)
	if err != nil {
		t.Fatalf("Fingerprint() error: %v", err)
	}
	if len(base) != 64 {
		t.Errorf("fingerprint length = %d, want 64 hex chars", len(base))
	}
	again, _ := Fingerprint("depth=5", []string{"main.c", "gpio.c"}, read)
	if base != again {
		t.Error("Fingerprint() should be stable")
	}

	if fp, _ := Fingerprint("depth=6", []string{"main.c", "gpio.c"}, read); fp == base {
		t.Error("settings should change the fingerprint")
	}
	if fp, _ := Fingerprint("depth=5", []string{"gpio.c", "main.c"}, read); fp == base {
		t.Error("file order should change the fingerprint")
	}

	contents["gpio.c"] = "void g(int);"
	if fp, _ := Fingerprint("depth=5", []string{"main.c", "gpio.c"}, read); fp == base {
		t.Error("content should change the fingerprint")
	}

	if _, err := Fingerprint("", []string{"missing.c"}, read); err == nil {
		t.Error("Fingerprint() should fail when a file cannot be read")
	}
}

func TestEntryPath(t *testing.T) {
	c := openCache(t)

	p1 := c.path("analysis:/fw@")
	p2 := c.path("analysis:/文件@HEAD")
	if p1 == p2 {
		t.Error("different keys should produce different paths")
	}
	if p1 != c.path("analysis:/fw@") {
		t.Error("same key should produce the same path")
	}
	if filepath.Dir(p1) != c.dir || len(filepath.Base(p1)) != 32+len(entryExt) {
		t.Errorf("unexpected entry path %s", p1)
	}
}
