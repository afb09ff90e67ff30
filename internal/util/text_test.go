package util

import (
	"reflect"
	"testing"
)

func TestPreview(t *testing.T) {
	if got := Preview("  hello\n\n  world  ", 0); got != "hello world" {
		t.Fatalf("got %q", got)
	}
	if got := Preview("héllo wörld", 5); got != "héll…" {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("abc", 3); got != "abc" {
		t.Fatalf("got %q", got)
	}
}

func TestParseIDs(t *testing.T) {
	got := ParseIDs("1, 2 3,,1\n4")
	if !reflect.DeepEqual(got, []string{"1", "2", "3", "4"}) {
		t.Fatalf("got %v", got)
	}
	if ParseIDs("  ") != nil {
		t.Fatal("blank input must yield nil")
	}
}
