// Package attachments reads user-supplied files into the text of a single
// turn. Attached content is shown to the model for that turn only and is
// never stored in the conversation history.
package attachments

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gobwas/glob"

	"github.com/entrhq/recall/pkg/logging"
)

var attachLog *logging.Logger

func init() {
	var err error
	attachLog, err = logging.NewLogger("attachments")
	if err != nil {
		attachLog.Warnf("Failed to initialize attachments logger, using stderr fallback: %v", err)
	}
}

const (
	// DefaultMaxBytes is the largest file the loader will read.
	DefaultMaxBytes int64 = 1 << 20

	// UnknownName is shown when an attachment has no usable file name.
	UnknownName = "(unknown file name)"
)

// DefaultPatterns is the allowlist used when none is configured.
var DefaultPatterns = []string{
	"*.txt", "*.md", "*.json", "*.csv", "*.log",
	"*.yaml", "*.yml", "*.go", "*.py", "*.pdf",
}

// File is one attachment that was read successfully.
type File struct {
	Name     string
	Path     string
	MIMEType string
	Content  string
}

// Skipped is an attachment that was not read, with the reason.
type Skipped struct {
	Path   string
	Reason string
}

// Result is the outcome of loading a set of attachments.
type Result struct {
	Files   []File
	Skipped []Skipped
}

// Loader reads attachments whose base name matches an allowlist pattern.
type Loader struct {
	allow    []glob.Glob
	patterns []string
	maxBytes int64
}

// NewLoader compiles patterns into an allowlist. Empty patterns fall back to
// DefaultPatterns and a non-positive maxBytes to DefaultMaxBytes.
func NewLoader(patterns []string, maxBytes int64) (*Loader, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	l := &Loader{maxBytes: maxBytes}
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid attachment pattern '%s': %w", p, err)
		}
		l.allow = append(l.allow, g)
		l.patterns = append(l.patterns, p)
	}
	return l, nil
}

// Patterns returns the compiled allowlist patterns.
func (l *Loader) Patterns() []string {
	return append([]string(nil), l.patterns...)
}

// Allowed reports whether the base name of path matches the allowlist.
func (l *Loader) Allowed(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	for _, g := range l.allow {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Load reads every path in order. Files that cannot be used are reported in
// Result.Skipped rather than failing the whole set.
func (l *Loader) Load(ctx context.Context, paths []string) *Result {
	res := &Result{}
	for _, path := range paths {
		if ctx.Err() != nil {
			res.Skipped = append(res.Skipped, Skipped{Path: path, Reason: "cancelled"})
			continue
		}
		f, err := l.loadOne(path)
		if err != nil {
			attachLog.Infof("Skipping attachment %s: %v", path, err)
			res.Skipped = append(res.Skipped, Skipped{Path: path, Reason: err.Error()})
			continue
		}
		res.Files = append(res.Files, *f)
	}
	return res
}

func (l *Loader) loadOne(path string) (*File, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("empty path")
	}
	if !l.Allowed(path) {
		return nil, fmt.Errorf("file type not allowed (allowed: %s)", strings.Join(l.patterns, ", "))
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("is a directory")
	}
	if info.Size() > l.maxBytes {
		return nil, fmt.Errorf("file is %d bytes, limit is %d", info.Size(), l.maxBytes)
	}

	mimeType := DetectMIMEType(path)
	var content string
	switch {
	case mimeType == "application/pdf":
		content, err = extractPDFText(path)
	case isTextMIMEType(mimeType):
		content, err = readText(path)
	default:
		err = fmt.Errorf("unsupported content type %s", mimeType)
	}
	if err != nil {
		return nil, err
	}

	return &File{
		Name:     displayName(path),
		Path:     path,
		MIMEType: mimeType,
		Content:  content,
	}, nil
}

// DetectMIMEType returns the MIME type for path's extension without
// parameters, or "" when the extension is unknown.
func DetectMIMEType(path string) string {
	t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if t == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		return mt
	}
	return t
}

func isTextMIMEType(t string) bool {
	switch {
	case t == "", strings.HasPrefix(t, "text/"):
		return true
	case t == "application/json", t == "application/yaml", t == "application/x-yaml", t == "application/xml":
		return true
	case strings.HasSuffix(t, "+json"), strings.HasSuffix(t, "+xml"):
		return true
	}
	return false
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("cannot read file: %w", err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("file is not valid UTF-8 text")
	}
	return string(data), nil
}

func displayName(path string) string {
	name := filepath.Base(path)
	if name == "." || name == string(filepath.Separator) || strings.TrimSpace(name) == "" {
		return UnknownName
	}
	return name
}
