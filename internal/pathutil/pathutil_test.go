package pathutil

import "testing"

import "github.com/stretchr/testify/assert"

func TestNormalise(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{`C:\Users\Bob\file.txt`, "/users/bob/file.txt"},
		{`c:\Users\\Bob//file.txt`, "/users/bob/file.txt"},
		{"/already/normal", "/already/normal"},
		{"MixedCase/Path", "mixedcase/path"},
		{"", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Normalise(c.in), "input %q", c.in)
	}
}

func TestNormaliseIdempotent(t *testing.T) {
	inputs := []string{`C:\a\B\c`, "a/b/c", `\\weird\\path`, ""}
	for _, in := range inputs {
		once := Normalise(in)
		twice := Normalise(once)
		assert.Equal(t, once, twice, "not idempotent for %q", in)
	}
}

func TestAncestors(t *testing.T) {
	got := Ancestors("a/b/c")
	assert.Equal(t, []string{"", "a", "a/b"}, got)
}

func TestAncestorsRoot(t *testing.T) {
	got := Ancestors("a")
	assert.Equal(t, []string{""}, got)
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "child", Join("", "child"))
	assert.Equal(t, "a/b", Join("a", "b"))
}
