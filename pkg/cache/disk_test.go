package cache

import (
	"strings"
	"testing"
)

func TestPutGetExists(t *testing.T) {
	d, err := NewDisk(t.TempDir())
	if err != nil {
		t.Fatalf("new disk: %v", err)
	}

	key := "line-OBSEA-TEMP-dmin0-dmax20-tmin2021-01-01T00-00-00-tmaxnil-qcnil.html"
	if d.Exists(key) {
		t.Error("key should not exist yet")
	}
	if err := d.Put(key, []byte("<html>fig</html>")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if !d.Exists(key) {
		t.Error("key should exist after put")
	}
	data, err := d.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(data) != "<html>fig</html>" {
		t.Errorf("get = %q", data)
	}
}

func TestRemovePrefix(t *testing.T) {
	d, err := NewDisk(t.TempDir())
	if err != nil {
		t.Fatalf("new disk: %v", err)
	}
	for _, key := range []string{"map-rM-platA.html", "map-rM-platB.html", "line-A.html"} {
		if err := d.Put(key, []byte("x")); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	if err := d.RemovePrefix("map-"); err != nil {
		t.Fatalf("remove prefix: %v", err)
	}
	if d.Exists("map-rM-platA.html") || d.Exists("map-rM-platB.html") {
		t.Error("map artifacts should be gone")
	}
	if !d.Exists("line-A.html") {
		t.Error("unrelated artifact must survive")
	}
}

func TestSafeKeyNormalizesColons(t *testing.T) {
	got := SafeKey("df-A_TEMP_H_tmin2021-01-01T00:00:00.json")
	if strings.ContainsAny(got, ":/") {
		t.Errorf("SafeKey left unsafe characters: %q", got)
	}
}

func TestSafeKeyDeterministicFolding(t *testing.T) {
	long := "line-" + strings.Repeat("PLATFORM,", 60) + "-TEMP.html"
	a, b := SafeKey(long), SafeKey(long)
	if a != b {
		t.Error("folded keys must be deterministic")
	}
	if len(a) > 200 {
		t.Errorf("folded key too long: %d", len(a))
	}
	if !strings.HasSuffix(a, ".html") {
		t.Errorf("folded key lost its extension: %q", a)
	}

	other := SafeKey(long + "x")
	if a == other {
		t.Error("different keys must fold differently")
	}
}
