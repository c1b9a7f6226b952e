// Package codec converts articles between their structured form and the
// stored text form: a YAML metadata block between "---" delimiters, one
// blank line, then the raw Markdown body.
package codec

import (
	"bytes"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
)

const (
	delim        = "---"
	defaultTitle = "Untitled"
)

// Encode renders f in the stored format. Field order is title, date,
// excerpt, image, published; image is omitted entirely when empty.
func Encode(f models.Fields) []byte {
	lines := []string{
		delim,
		"title: " + quote(f.Title),
		"date: " + quote(f.Date),
		"excerpt: " + quote(f.Excerpt),
	}
	if f.Image != "" {
		lines = append(lines, "image: "+quote(f.Image))
	}
	lines = append(lines,
		fmt.Sprintf("published: %t", f.Published),
		delim,
		"",
		f.Content,
	)
	return []byte(strings.Join(lines, "\n"))
}

// quote writes s as a YAML double-quoted scalar. Anything YAML would reject
// or fold as a line break is written as an escape sequence.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\u0085':
			b.WriteString(`\N`)
		case '\u2028':
			b.WriteString(`\L`)
		case '\u2029':
			b.WriteString(`\P`)
		default:
			switch {
			case printable(r):
				b.WriteRune(r)
			case r < 0x100:
				fmt.Fprintf(&b, `\x%02X`, r)
			default:
				fmt.Fprintf(&b, `\u%04X`, r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// printable mirrors the YAML printable character set, minus the byte
// order mark.
func printable(r rune) bool {
	switch {
	case r == utf8.RuneError:
		return false
	case r >= 0x20 && r <= 0x7E:
		return true
	case r >= 0xA0 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return r != 0xFEFF
	case r >= 0x10000 && r <= utf8.MaxRune:
		return true
	}
	return false
}

// Decode parses stored text. Missing fields take their defaults: title
// "Untitled", date today (per now), excerpt "", published true. Text
// without a metadata block decodes to defaults with the whole text as body.
// An unterminated or unparsable block is an error wrapping
// apperr.ErrMalformed.
func Decode(data []byte, now time.Time) (models.Fields, error) {
	block, body, err := split(data)
	if err != nil {
		return models.Fields{}, err
	}

	var meta map[string]any
	if len(block) > 0 {
		if err := yaml.Unmarshal(block, &meta); err != nil {
			return models.Fields{}, fmt.Errorf("codec: %w: %w", apperr.ErrMalformed, err)
		}
	}

	f := models.Fields{
		Title:     stringField(meta, "title"),
		Date:      dateField(meta, "date"),
		Excerpt:   stringField(meta, "excerpt"),
		Image:     stringField(meta, "image"),
		Published: true,
		Content:   body,
	}
	if f.Title == "" {
		f.Title = defaultTitle
	}
	if f.Date == "" {
		f.Date = now.Format(models.DateLayout)
	}
	if p, ok := meta["published"].(bool); ok && !p {
		f.Published = false
	}
	return f, nil
}

// split separates the metadata block from the body. The line break after
// the closing delimiter and one following blank line are consumed. Both LF
// and CRLF line endings are accepted.
func split(data []byte) ([]byte, string, error) {
	trimmed := bytes.TrimLeft(data, "\r\n")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}
	rest, ok := trimEOL(trimmed[len(delim):])
	if !ok {
		return nil, string(data), nil
	}

	var block []byte
	switch {
	case bytes.HasPrefix(rest, []byte(delim)) && isLineEnd(rest[len(delim):]):
		rest = rest[len(delim):]
	default:
		idx := indexClosing(rest)
		if idx < 0 {
			return nil, "", fmt.Errorf("codec: %w: unterminated metadata block", apperr.ErrMalformed)
		}
		block = rest[:idx]
		rest = rest[idx+1+len(delim):]
	}

	rest, _ = trimEOL(rest)
	rest, _ = trimEOL(rest)
	return block, string(rest), nil
}

// trimEOL removes one leading "\n" or "\r\n".
func trimEOL(b []byte) ([]byte, bool) {
	if rest, ok := bytes.CutPrefix(b, []byte("\r\n")); ok {
		return rest, true
	}
	return bytes.CutPrefix(b, []byte("\n"))
}

// indexClosing finds "\n---" standing on a line of its own.
func indexClosing(b []byte) int {
	offset := 0
	for {
		idx := bytes.Index(b[offset:], []byte("\n"+delim))
		if idx < 0 {
			return -1
		}
		pos := offset + idx
		if isLineEnd(b[pos+1+len(delim):]) {
			return pos
		}
		offset = pos + 1
	}
}

func isLineEnd(b []byte) bool {
	return len(b) == 0 || b[0] == '\n' || bytes.HasPrefix(b, []byte("\r\n")) || string(b) == "\r"
}

func stringField(meta map[string]any, key string) string {
	switch v := meta[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return v.Format(models.DateLayout)
	default:
		return fmt.Sprint(v)
	}
}

// dateField normalises timestamps and datetime strings to their date part.
func dateField(meta map[string]any, key string) string {
	s := stringField(meta, key)
	if len(s) > len(models.DateLayout) {
		if _, err := time.Parse(models.DateLayout, s[:len(models.DateLayout)]); err == nil {
			return s[:len(models.DateLayout)]
		}
	}
	return s
}
