package notes

import (
	"strings"
	"testing"
	"unicode/utf8"

	"pgregory.net/rapid"
)

func TestRenderSharedNoteHTML_RendersMarkdown(t *testing.T) {
	t.Parallel()

	note := Note{
		ID:          "note-1",
		Owner:       "user-1",
		Title:       "Reading list",
		Description: "## Books\n\nSome **bold** text and a [link](https://example.com).",
		Tag:         "Personal",
	}
	page := string(RenderSharedNoteHTML(note, AuthorProfile{Name: "Sam"}, "https://notes.example/public/user-1/note-1.html"))

	for _, want := range []string{
		"<strong>bold</strong>",
		`href="https://example.com"`,
		"by Sam",
		"Personal",
		`<link rel="canonical" href="https://notes.example/public/user-1/note-1.html">`,
	} {
		if !strings.Contains(page, want) {
			t.Errorf("rendered page is missing %q:\n%s", want, page)
		}
	}
}

func testRenderSharedNoteHTML_MetaDescriptionStaysValidUTF8(t *rapid.T) {
	// Multi-byte runes straddling the truncation point must not be split
	runes := rapid.SliceOfN(rapid.SampledFrom([]rune{'é', 'ü', '日', '本', '語', '€', 'a'}), 40, 300).Draw(t, "runes")

	note := Note{
		ID:          "note-m",
		Owner:       "user-m",
		Title:       "Multibyte description",
		Description: string(runes),
		Tag:         "General",
	}
	page := RenderSharedNoteHTML(note, AuthorProfile{Name: "Riko"}, "/public/user-m/note-m.html")

	if !utf8.Valid(page) {
		t.Fatalf("rendered page contains invalid UTF-8:\n%q", page)
	}
	if strings.Contains(string(page), "�") {
		t.Fatalf("rendered page contains a replacement character:\n%s", page)
	}
}

func TestRenderSharedNoteHTML_MetaDescriptionStaysValidUTF8(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testRenderSharedNoteHTML_MetaDescriptionStaysValidUTF8)
}

func FuzzRenderSharedNoteHTML_MetaDescriptionStaysValidUTF8(f *testing.F) {
	f.Add([]byte{0x00})
	f.Fuzz(rapid.MakeFuzz(testRenderSharedNoteHTML_MetaDescriptionStaysValidUTF8))
}

func testRenderSharedNoteHTML_NeverEmitsScript(t *rapid.T) {
	hostile := rapid.SampledFrom([]string{
		"<script>alert(1)</script>",
		"[click](javascript:alert(1))",
		`<img src=x onerror="alert(1)">`,
		"<iframe src=\"https://evil.example\"></iframe>",
	}).Draw(t, "hostile")
	filler := rapid.StringN(0, 100, -1).Draw(t, "filler")

	note := Note{
		ID:          "note-x",
		Owner:       "user-x",
		Title:       "Hostile content",
		Description: filler + "\n\n" + hostile,
		Tag:         "General",
	}
	page := string(RenderSharedNoteHTML(note, AuthorProfile{}, "/public/user-x/note-x.html"))

	if strings.Contains(page, "<script>alert") {
		t.Fatalf("script tag survived sanitization:\n%s", page)
	}
	if strings.Contains(page, "javascript:alert") {
		t.Fatalf("javascript: href survived sanitization:\n%s", page)
	}
	if strings.Contains(page, "onerror=") {
		t.Fatalf("event handler survived sanitization:\n%s", page)
	}
	if strings.Contains(page, "<iframe") {
		t.Fatalf("iframe survived sanitization:\n%s", page)
	}
}

func TestRenderSharedNoteHTML_NeverEmitsScript(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testRenderSharedNoteHTML_NeverEmitsScript)
}

func FuzzRenderSharedNoteHTML_NeverEmitsScript(f *testing.F) {
	f.Add([]byte{0x00})
	f.Fuzz(rapid.MakeFuzz(testRenderSharedNoteHTML_NeverEmitsScript))
}
