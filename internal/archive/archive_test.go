package archive

import (
	"strings"
	"testing"
	"time"
)

func TestObjectNameFor(t *testing.T) {
	now := time.Date(2024, 7, 17, 12, 0, 0, 0, time.UTC)

	got := objectNameFor("statement.csv", now)
	if !strings.HasPrefix(got, "imports/2024/07/17/") {
		t.Errorf("object name missing date prefix: %q", got)
	}
	if !strings.HasSuffix(got, "-statement.csv") {
		t.Errorf("object name missing original file name: %q", got)
	}

	// Path components from the upload are stripped.
	got = objectNameFor("C:\\Users\\me\\statement.csv", now)
	if !strings.HasSuffix(got, "-statement.csv") {
		t.Errorf("windows path not flattened: %q", got)
	}
	got = objectNameFor("/tmp/up/statement.csv", now)
	if !strings.HasSuffix(got, "-statement.csv") {
		t.Errorf("unix path not flattened: %q", got)
	}

	if a, b := objectNameFor("x.csv", now), objectNameFor("x.csv", now); a == b {
		t.Error("two archives of the same file name must not collide")
	}
}

func TestParseGCSURI(t *testing.T) {
	bucket, object, err := parseGCSURI("gs://my-bucket/imports/2024/07/17/abc-x.csv")
	if err != nil {
		t.Fatalf("parseGCSURI: %v", err)
	}
	if bucket != "my-bucket" || object != "imports/2024/07/17/abc-x.csv" {
		t.Errorf("got %q %q", bucket, object)
	}

	for _, bad := range []string{"", "http://x/y", "gs://", "gs://bucket", "gs://bucket/"} {
		if _, _, err := parseGCSURI(bad); err == nil {
			t.Errorf("parseGCSURI(%q): expected error", bad)
		}
	}
}
