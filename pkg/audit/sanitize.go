package audit

import (
	"path/filepath"
	"regexp"
	"strings"
)

// filePathPattern matches quoted paths as they appear in stack traces,
// e.g. `File "/abs/path/to/file.go"`.
var filePathPattern = regexp.MustCompile(`File "([^"]+)"`)

// externalMarkers flag paths inside vendored dependency trees or system
// library trees. Anything matching is collapsed to its basename so log
// rows never leak deployment layout.
var externalMarkers = []string{
	"/vendor/",
	"/go/pkg/mod/",
	"site-packages",
	"venv",
	"/usr/",
	"/opt/",
}

func isExternalPath(path string) bool {
	for _, m := range externalMarkers {
		if strings.Contains(path, m) {
			return true
		}
	}
	return false
}

// redactPaths rewrites quoted filesystem paths so that no absolute path
// survives: vendored or system paths become <external>/basename, paths
// under the project root become root-relative, and any other absolute
// path also collapses to <external>/basename.
func (l *Logger) redactPaths(text string) string {
	return filePathPattern.ReplaceAllStringFunc(text, func(match string) string {
		path := match[len(`File "`) : len(match)-1]
		if isExternalPath(path) {
			return `File "<external>/` + filepath.Base(path) + `"`
		}
		if l.root != "" && strings.HasPrefix(path, l.root) {
			rel := strings.TrimPrefix(strings.TrimPrefix(path, l.root), "/")
			return `File "./` + rel + `"`
		}
		return `File "<external>/` + filepath.Base(path) + `"`
	})
}

// sanitizeField applies the full per-field transformation: path
// redaction, then newline and carriage-return removal, then whitespace
// collapse. The result always fits on one physical line.
func (l *Logger) sanitizeField(field string) string {
	s := l.redactPaths(field)
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.Join(strings.Fields(s), " ")
}
