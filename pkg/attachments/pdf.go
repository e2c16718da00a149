package attachments

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
)

func init() {
	api.DisableConfigDir()
}

// extractPDFText returns the text drawn on each page of the PDF at path,
// pages separated by a blank line.
func extractPDFText(path string) (string, error) {
	ctx, err := api.ReadContextFile(path)
	if err != nil {
		return "", fmt.Errorf("cannot read PDF: %w", err)
	}

	var pages []string
	for i := 1; i <= ctx.PageCount; i++ {
		r, err := pdfcpu.ExtractPageContent(ctx, i)
		if err != nil {
			return "", fmt.Errorf("cannot read PDF page %d: %w", i, err)
		}
		if r == nil {
			continue
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("cannot read PDF page %d: %w", i, err)
		}
		if text := contentText(data); text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) == 0 {
		return "", fmt.Errorf("PDF has no extractable text")
	}
	return strings.Join(pages, "\n\n"), nil
}

// contentText pulls the string operands of the text showing operators out of
// a page content stream. Text positioning operators start a new line and
// large negative kerning inside TJ arrays becomes a space.
func contentText(data []byte) string {
	var (
		out      []string
		line     strings.Builder
		operands []string
		array    strings.Builder
		inArray  bool
	)
	flush := func() {
		if s := strings.TrimSpace(line.String()); s != "" {
			out = append(out, s)
		}
		line.Reset()
	}
	operand := func(s string) {
		if inArray {
			array.WriteString(s)
			return
		}
		operands = append(operands, s)
	}
	last := func() string {
		if len(operands) == 0 {
			return ""
		}
		return operands[len(operands)-1]
	}

	for i := 0; i < len(data); {
		c := data[i]
		switch {
		case c == '%':
			for i < len(data) && data[i] != '\n' && data[i] != '\r' {
				i++
			}
		case c == '(':
			s, n := readLiteral(data[i:])
			operand(s)
			i += n
		case c == '<' && i+1 < len(data) && data[i+1] == '<', c == '>' && i+1 < len(data) && data[i+1] == '>':
			i += 2
		case c == '<':
			s, n := readHexString(data[i:])
			operand(s)
			i += n
		case c == '[':
			inArray = true
			array.Reset()
			i++
		case c == ']':
			inArray = false
			operands = append(operands, array.String())
			i++
		case c == '/':
			i++
			for i < len(data) && isRegular(data[i]) {
				i++
			}
		case isNumberStart(c):
			start := i
			i++
			for i < len(data) && isRegular(data[i]) {
				i++
			}
			if inArray {
				if v, err := strconv.ParseFloat(string(data[start:i]), 64); err == nil && v < -200 {
					array.WriteByte(' ')
				}
			}
		case isRegular(c):
			start := i
			for i < len(data) && isRegular(data[i]) {
				i++
			}
			switch string(data[start:i]) {
			case "Tj", "TJ":
				line.WriteString(last())
			case "'", "\"":
				flush()
				line.WriteString(last())
			case "T*", "Td", "TD", "Tm", "ET":
				flush()
			case "BI":
				if end := strings.Index(string(data[i:]), "EI"); end >= 0 {
					i += end + 2
				} else {
					i = len(data)
				}
			}
			operands = operands[:0]
		default:
			i++
		}
	}
	flush()
	return strings.Join(out, "\n")
}

func isNumberStart(c byte) bool {
	return (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.'
}

func isRegular(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0,
		'(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return false
	}
	return true
}

// readLiteral decodes a (...) string at the start of data and returns it with
// the number of bytes consumed.
func readLiteral(data []byte) (string, int) {
	var buf []byte
	depth := 0
	i := 0
	for ; i < len(data); i++ {
		c := data[i]
		switch {
		case c == '\\' && i+1 < len(data):
			i++
			switch e := data[i]; e {
			case 'n':
				buf = append(buf, '\n')
			case 'r':
				buf = append(buf, '\r')
			case 't':
				buf = append(buf, '\t')
			case 'b', 'f':
			case '\r', '\n':
				if e == '\r' && i+1 < len(data) && data[i+1] == '\n' {
					i++
				}
			default:
				if e >= '0' && e <= '7' {
					v := 0
					j := 0
					for ; j < 3 && i+j < len(data) && data[i+j] >= '0' && data[i+j] <= '7'; j++ {
						v = v*8 + int(data[i+j]-'0')
					}
					buf = append(buf, byte(v))
					i += j - 1
				} else {
					buf = append(buf, e)
				}
			}
		case c == '(':
			depth++
			if depth > 1 {
				buf = append(buf, c)
			}
		case c == ')':
			depth--
			if depth == 0 {
				return decodePDFString(buf), i + 1
			}
			buf = append(buf, c)
		default:
			buf = append(buf, c)
		}
	}
	return decodePDFString(buf), i
}

// readHexString decodes a <...> string at the start of data.
func readHexString(data []byte) (string, int) {
	var digits []byte
	i := 1
	for ; i < len(data) && data[i] != '>'; i++ {
		if c := data[i]; (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') {
			digits = append(digits, c)
		}
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	buf := make([]byte, len(digits)/2)
	for j := range buf {
		v, _ := strconv.ParseUint(string(digits[2*j:2*j+2]), 16, 8)
		buf[j] = byte(v)
	}
	return decodePDFString(buf), i + 1
}

// decodePDFString maps UTF-16BE strings (with BOM) and single-byte strings to
// UTF-8, dropping control characters.
func decodePDFString(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		u := make([]uint16, 0, len(b)/2)
		for i := 2; i+1 < len(b); i += 2 {
			u = append(u, uint16(b[i])<<8|uint16(b[i+1]))
		}
		return string(utf16.Decode(u))
	}
	var sb strings.Builder
	for _, c := range b {
		if c < 0x20 && c != '\t' && c != '\n' {
			continue
		}
		sb.WriteRune(rune(c))
	}
	return sb.String()
}
