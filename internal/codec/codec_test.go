package codec

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func TestEncode_Layout(t *testing.T) {
	got := string(Encode(models.Fields{
		Title:     `Say "hi"`,
		Date:      "2024-06-01",
		Excerpt:   "",
		Published: true,
		Content:   "# Body\n",
	}))
	want := "---\n" +
		"title: \"Say \\\"hi\\\"\"\n" +
		"date: \"2024-06-01\"\n" +
		"excerpt: \"\"\n" +
		"published: true\n" +
		"---\n" +
		"\n" +
		"# Body\n"
	if got != want {
		t.Errorf("encode mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestEncode_ImageOmittedWhenAbsent(t *testing.T) {
	out := string(Encode(models.Fields{Title: "t", Date: "2024-01-01", Published: true, Content: "x"}))
	if strings.Contains(out, "image") {
		t.Errorf("image key should be omitted: %q", out)
	}
	out = string(Encode(models.Fields{Title: "t", Date: "2024-01-01", Image: "/img/a.png", Content: "x"}))
	if !strings.Contains(out, "excerpt: \"\"\nimage: \"/img/a.png\"\npublished: false\n") {
		t.Errorf("image not emitted between excerpt and published: %q", out)
	}
}

func TestRoundTrip(t *testing.T) {
	cases := []models.Fields{
		{Title: "Hello", Date: "2024-01-01", Excerpt: "short", Published: true, Content: "# Hello\nWorld"},
		{Title: `Quotes " and \ backslash`, Date: "2023-12-31", Excerpt: "line\nbreak\ttab", Image: "https://cdn.example.com/a.jpg", Published: false, Content: "body"},
		{Title: "Empty body", Date: "2024-02-29", Published: true, Content: ""},
		{Title: "Delimiter in body", Date: "2024-05-05", Published: true, Content: "text\n---\nmore\n\n"},
		{Title: "Unicode ✓ заголовок", Date: "2024-07-07", Excerpt: "ünïcödé", Published: true, Content: "Привет"},
		{Title: "bell\a null\x00 esc\x1b", Date: "2024-08-01", Excerpt: "del\x7f", Published: true, Content: "x"},
		{Title: "next\u0085line", Date: "2024-08-02", Excerpt: "line\u2028sep para\u2029sep", Published: true, Content: "x"},
		{Title: "c1\u0080\u009f bom\ufeff", Date: "2024-08-03", Image: "/img/\u00a0nbsp.png", Published: true, Content: "x"},
		{Title: "replacement \ufffd kept", Date: "2024-08-04", Published: true, Content: "x"},
	}
	for _, want := range cases {
		t.Run(want.Title, func(t *testing.T) {
			got, err := Decode(Encode(want), fixedNow)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got != want {
				t.Errorf("round trip mismatch\n got: %+v\nwant: %+v", got, want)
			}
		})
	}
}

func TestDecode_Defaults(t *testing.T) {
	f, err := Decode([]byte("---\nexcerpt: \"e\"\n---\n\nbody"), fixedNow)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if f.Title != "Untitled" {
		t.Errorf("title = %q, want Untitled", f.Title)
	}
	if f.Date != "2025-03-14" {
		t.Errorf("date = %q, want today", f.Date)
	}
	if !f.Published {
		t.Error("published should default to true")
	}
	if f.Image != "" {
		t.Errorf("image = %q, want empty", f.Image)
	}
	if f.Content != "body" {
		t.Errorf("content = %q", f.Content)
	}
}

func TestDecode_PublishedOnlyFalseWhenExplicit(t *testing.T) {
	cases := []struct {
		line string
		want bool
	}{
		{"published: false", false},
		{"published: true", true},
		{"published: \"false\"", true},
		{"published: 0", true},
	}
	for _, tc := range cases {
		f, err := Decode([]byte("---\ntitle: \"t\"\n"+tc.line+"\n---\n\nx"), fixedNow)
		if err != nil {
			t.Fatalf("%s: %v", tc.line, err)
		}
		if f.Published != tc.want {
			t.Errorf("%s: published = %v, want %v", tc.line, f.Published, tc.want)
		}
	}
}

func TestDecode_UnquotedDateNormalised(t *testing.T) {
	f, err := Decode([]byte("---\ntitle: Plain\ndate: 2024-06-01\n---\nbody"), fixedNow)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if f.Date != "2024-06-01" {
		t.Errorf("date = %q", f.Date)
	}
	f, err = Decode([]byte("---\ndate: \"2024-06-01T12:00:00Z\"\n---\nbody"), fixedNow)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if f.Date != "2024-06-01" {
		t.Errorf("datetime not normalised: %q", f.Date)
	}
}

func TestDecode_NoMetadataBlock(t *testing.T) {
	f, err := Decode([]byte("# Just a heading\nSome text.\n"), fixedNow)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if f.Title != "Untitled" || f.Content != "# Just a heading\nSome text.\n" {
		t.Errorf("unexpected fields: %+v", f)
	}
}

func TestEncode_EscapesControlCharacters(t *testing.T) {
	out := string(Encode(models.Fields{Title: "a\x01b\u0085c", Date: "2024-01-01", Content: "x"}))
	if !strings.Contains(out, `title: "a\x01b\Nc"`) {
		t.Errorf("control characters not escaped: %q", out)
	}
}

func TestDecode_CRLF(t *testing.T) {
	in := "---\r\ntitle: \"T\"\r\ndate: \"2024-06-01\"\r\nexcerpt: \"e\"\r\npublished: false\r\n---\r\n\r\nbody\r\nline"
	f, err := Decode([]byte(in), fixedNow)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := models.Fields{Title: "T", Date: "2024-06-01", Excerpt: "e", Published: false, Content: "body\r\nline"}
	if f != want {
		t.Errorf("got %+v\nwant %+v", f, want)
	}

	f, err = Decode([]byte("---\r\n---\r\n\r\nonly body"), fixedNow)
	if err != nil {
		t.Fatalf("Decode empty block: %v", err)
	}
	if f.Content != "only body" || f.Title != "Untitled" {
		t.Errorf("empty CRLF block: %+v", f)
	}

	if _, err := Decode([]byte("---\r\ntitle: \"x\"\r\nbody"), fixedNow); !errors.Is(err, apperr.ErrMalformed) {
		t.Errorf("unterminated CRLF block err = %v, want ErrMalformed", err)
	}
}

func TestDecode_MalformedIsError(t *testing.T) {
	cases := []string{
		"---\ntitle: [unclosed, flow\n---\nBody\n",
		"---\ntitle: \"never closed\"\nbody",
		"---\n- a\n- list\n---\nBody",
	}
	for _, in := range cases {
		if _, err := Decode([]byte(in), fixedNow); !errors.Is(err, apperr.ErrMalformed) {
			t.Errorf("Decode(%q) err = %v, want ErrMalformed", in, err)
		}
	}
}
