package attachments

import (
	"fmt"
	"strings"
)

// Format renders one attachment for the prompt.
func Format(f File) string {
	name := f.Name
	if strings.TrimSpace(name) == "" {
		name = UnknownName
	}
	return fmt.Sprintf("File name: %s\nFile content:\n%s", name, f.Content)
}

// Compose prefixes input with the rendered attachments. Without files the
// input is returned unchanged.
func Compose(input string, files []File) string {
	if len(files) == 0 {
		return input
	}
	var sb strings.Builder
	sb.WriteString("File Attachments:\n")
	for _, f := range files {
		sb.WriteString(Format(f))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(input)
	return sb.String()
}

// Describe summarises a load result in one line per file, for status output.
func (r *Result) Describe() string {
	var lines []string
	for _, f := range r.Files {
		lines = append(lines, fmt.Sprintf("attached %s (%d chars)", f.Name, len(f.Content)))
	}
	for _, s := range r.Skipped {
		lines = append(lines, fmt.Sprintf("skipped %s: %s", s.Path, s.Reason))
	}
	return strings.Join(lines, "\n")
}
