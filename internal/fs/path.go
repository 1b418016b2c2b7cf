// File: internal/fs/path.go
package fs

import "strings"

// NormalizePath resolves path against cwd into a canonical absolute
// path: no `.` or `..` components, no duplicate separators. `..` at the
// root stays at the root.
func NormalizePath(path, cwd string) string {
	var abs string
	switch {
	case path == "":
		abs = cwd
		if abs == "" {
			abs = "/"
		}
	case path[0] == '/':
		abs = path
	case cwd == "" || cwd == "/":
		abs = "/" + path
	default:
		abs = cwd + "/" + path
	}

	var stack []string
	for _, part := range strings.Split(abs, "/") {
		switch part {
		case "", ".":
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, part)
		}
	}

	if len(stack) == 0 {
		return "/"
	}
	return "/" + strings.Join(stack, "/")
}

// SplitPath separates a normalized path into its parent directory and
// final component.
func SplitPath(path string) (parent, name string) {
	pos := strings.LastIndexByte(path, '/')
	switch {
	case pos < 0:
		return ".", path
	case pos == 0:
		return "/", path[1:]
	default:
		return path[:pos], path[pos+1:]
	}
}
