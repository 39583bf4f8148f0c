package util

import "testing"

func TestSnippet(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"  hello   world ", 20, "hello world"},
		{"hello world", 6, "hello…"},
		{"ñañañaña", 4, "ñañ…"},
		{"abc", 0, "abc"},
		{"abc", 1, "…"},
	}
	for _, c := range cases {
		if got := Snippet(c.in, c.n); got != c.want {
			t.Fatalf("Snippet(%q, %d) = %q want %q", c.in, c.n, got, c.want)
		}
	}
}

func TestShortenMiddle(t *testing.T) {
	if got := ShortenMiddle("So11111111111111111111111111111111111111112", 4); got != "So11…1112" {
		t.Fatalf("got %q", got)
	}
	if got := ShortenMiddle("short", 4); got != "short" {
		t.Fatalf("got %q", got)
	}
}

func TestHandle(t *testing.T) {
	if Handle("@evil") != "@evil" || Handle("evil") != "@evil" || Handle(" ") != "unknown" {
		t.Fatal("unexpected handle rendering")
	}
}
