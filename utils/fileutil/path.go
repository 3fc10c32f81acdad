package fileutil

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ExpandPath expands ~ to the user's home directory, expands environment
// variables and cleans the result. Relative paths stay relative.
func ExpandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return path, nil
	}

	path = os.ExpandEnv(path)

	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if path == "~" {
			return homeDir, nil
		}
		return filepath.Join(homeDir, path[2:]), nil
	}

	return filepath.Clean(path), nil
}

// promptPathPattern matches a path-like token with an extension. Quoted forms
// are tried first so paths containing spaces survive.
var promptPathPattern = regexp.MustCompile(`'([^'\n]+\.\w+)'|"([^"\n]+\.\w+)"|([\w./~-]+\.\w+)`)

// ExtractPathFromPrompt returns the first path-like token in a free-text
// request, with surrounding quotes removed. The second value is false when
// the prompt names no file.
func ExtractPathFromPrompt(prompt string) (string, bool) {
	m := promptPathPattern.FindStringSubmatch(prompt)
	if m == nil {
		return "", false
	}
	for _, group := range m[1:] {
		if group != "" {
			return group, true
		}
	}
	return "", false
}

// BaseName returns the file name of path without its extension
func BaseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
