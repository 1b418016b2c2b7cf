package fs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	cases := []struct {
		name string
		path string
		cwd  string
		want string
	}{
		{"absolute", "/a/b", "/x", "/a/b"},
		{"relative", "b", "/a", "/a/b"},
		{"relative from root", "a", "/", "/a"},
		{"empty uses cwd", "", "/a/b", "/a/b"},
		{"dot", ".", "/a", "/a"},
		{"dotdot", "..", "/a/b", "/a"},
		{"dotdot at root stays", "..", "/", "/"},
		{"dotdot chain past root", "../../..", "/a", "/"},
		{"mixed", "./x/../y", "/a", "/a/y"},
		{"duplicate separators", "//a///b", "/", "/a/b"},
		{"trailing slash", "/a/b/", "/", "/a/b"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizePath(tc.path, tc.cwd))
		})
	}
}

func TestSplitPath(t *testing.T) {
	cases := []struct {
		path   string
		parent string
		name   string
	}{
		{"/a", "/", "a"},
		{"/a/b", "/a", "b"},
		{"/a/b/c", "/a/b", "c"},
		{"plain", ".", "plain"},
	}
	for _, tc := range cases {
		parent, name := SplitPath(tc.path)
		assert.Equal(t, tc.parent, parent, tc.path)
		assert.Equal(t, tc.name, name, tc.path)
	}
}
