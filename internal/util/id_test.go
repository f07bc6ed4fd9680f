package util

import (
	"regexp"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

var noteSuffix = regexp.MustCompile(`^[0-9a-f]{10}$`)

func TestURLToID(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"abc", "abc"},
		{"  abc  ", "abc"},
		{"https://reader-api.test/readers/r-1", "r-1"},
		{"https://reader-api.test/notes/r-1-aa/", "r-1-aa"},
		{"https://reader-api.test/notes/n1?x=1", "n1"},
		{"https://reader-api.test/notes/n1#frag", "n1"},
		{"/", ""},
	}
	for _, tc := range cases {
		if got := URLToID(tc.input); got != tc.want {
			t.Fatalf("URLToID(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestURLToIDPtr(t *testing.T) {
	if URLToIDPtr(nil) != nil {
		t.Fatal("expected nil for nil input")
	}
	blank := "   "
	if URLToIDPtr(&blank) != nil {
		t.Fatal("expected nil for blank input")
	}
	url := "https://reader-api.test/notes/n-1"
	got := URLToIDPtr(&url)
	if got == nil || *got != "n-1" {
		t.Fatalf("unexpected id %v", got)
	}
}

func TestNoteIDIsPrefixedByReader(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		reader := rapid.StringMatching(`[a-z0-9][a-z0-9-]{0,20}`).Draw(t, "reader")
		id := NoteID("https://reader-api.test/readers/" + reader)
		if !strings.HasPrefix(id, reader+"-") {
			t.Fatalf("id %q not prefixed by %q", id, reader)
		}
		if suffix := strings.TrimPrefix(id, reader+"-"); !noteSuffix.MatchString(suffix) {
			t.Fatalf("unexpected suffix %q", suffix)
		}
	})
}

func TestNoteIDsDiffer(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := NoteID("reader")
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = struct{}{}
	}
}

