package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizeCollapsesMultilineTrace(t *testing.T) {
	l, dir := newTestLogger(t)

	trace := "goroutine 1 [running]:\nmain.main()\n\tFile \"/etc/secret/app.go\", line 10\r\nexit status 1"
	if err := l.LogError("panic", "something broke", "m", "q", trace); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "errors.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + exactly 1 physical line, got %d", len(lines))
	}
}

func TestSanitizeProjectRootPath(t *testing.T) {
	l, _ := newTestLogger(t)

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	in := `File "` + filepath.Join(cwd, "pkg", "audit", "logger.go") + `", line 42`
	got := l.sanitizeField(in)
	if !strings.Contains(got, `File "./pkg/audit/logger.go"`) {
		t.Errorf("expected root-relative path, got %q", got)
	}
	if strings.Contains(got, cwd) {
		t.Errorf("absolute project path leaked: %q", got)
	}
}

func TestSanitizeVendoredPath(t *testing.T) {
	l, _ := newTestLogger(t)

	cases := []struct {
		in   string
		want string
	}{
		{`File "/home/deploy/venv/lib/site-packages/requests/api.py"`, `File "<external>/api.py"`},
		{`File "/root/go/pkg/mod/github.com/acme/lib@v1.0.0/client.go"`, `File "<external>/client.go"`},
		{`File "/usr/lib/python3.11/json/decoder.py"`, `File "<external>/decoder.py"`},
		{`File "/opt/runtime/lib/core.go"`, `File "<external>/core.go"`},
	}
	for _, c := range cases {
		if got := l.sanitizeField(c.in); got != c.want {
			t.Errorf("sanitize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSanitizeOtherAbsolutePath(t *testing.T) {
	l, _ := newTestLogger(t)

	got := l.sanitizeField(`File "/etc/deploy/secrets/app.go"`)
	if got != `File "<external>/app.go"` {
		t.Errorf("expected basename collapse, got %q", got)
	}
}

func TestSanitizeNoAbsolutePathSurvives(t *testing.T) {
	l, _ := newTestLogger(t)

	trace := strings.Join([]string{
		`Traceback (most recent call last):`,
		`  File "/home/alice/project/src/main.py", line 12, in <module>`,
		`  File "/home/alice/venv/lib/site-packages/openai/client.py", line 99`,
	}, "\n")

	got := l.sanitizeField(trace)
	if strings.Contains(got, "/home/alice") {
		t.Errorf("home directory leaked: %q", got)
	}
	if strings.Contains(got, "site-packages") {
		t.Errorf("vendored path segment leaked: %q", got)
	}
}

func TestSanitizeCollapsesWhitespaceRuns(t *testing.T) {
	l, _ := newTestLogger(t)

	got := l.sanitizeField("a\t\tb   c\n\nd")
	if got != "a b c d" {
		t.Errorf("expected collapsed whitespace, got %q", got)
	}
}

func TestSanitizeLeavesPlainTextAlone(t *testing.T) {
	l, _ := newTestLogger(t)

	in := "What is the capital of France?"
	if got := l.sanitizeField(in); got != in {
		t.Errorf("plain text changed: %q", got)
	}
}
