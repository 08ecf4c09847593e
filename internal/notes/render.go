package notes

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"unicode/utf8"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

// pageTemplate is the template for the published note page.
const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <meta name="description" content="{{.Description}}">

    <!-- Canonical URL -->
    <link rel="canonical" href="{{.CanonicalURL}}">

    <!-- Open Graph -->
    <meta property="og:title" content="{{.Title}}">
    <meta property="og:description" content="{{.Description}}">
    <meta property="og:url" content="{{.CanonicalURL}}">
    <meta property="og:type" content="article">

    <style>
        :root {
            --text-color: #1a1a1a;
            --bg-color: #ffffff;
            --link-color: #0066cc;
            --code-bg: #f5f5f5;
            --border-color: #e0e0e0;
        }

        @media (prefers-color-scheme: dark) {
            :root {
                --text-color: #e0e0e0;
                --bg-color: #1a1a1a;
                --link-color: #66b3ff;
                --code-bg: #2d2d2d;
                --border-color: #404040;
            }
        }

        * {
            box-sizing: border-box;
        }

        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            line-height: 1.6;
            color: var(--text-color);
            background-color: var(--bg-color);
            max-width: 800px;
            margin: 0 auto;
            padding: 2rem 1rem;
        }

        h1, h2, h3, h4, h5, h6 {
            margin-top: 1.5em;
            margin-bottom: 0.5em;
            line-height: 1.3;
        }

        h1 { font-size: 2rem; }
        h2 { font-size: 1.5rem; }
        h3 { font-size: 1.25rem; }

        a {
            color: var(--link-color);
            text-decoration: none;
        }

        a:hover {
            text-decoration: underline;
        }

        p {
            margin: 1em 0;
        }

        code {
            font-family: 'SF Mono', Monaco, 'Cascadia Code', 'Roboto Mono', Consolas, monospace;
            background-color: var(--code-bg);
            padding: 0.2em 0.4em;
            border-radius: 3px;
            font-size: 0.9em;
        }

        pre {
            background-color: var(--code-bg);
            padding: 1rem;
            border-radius: 6px;
            overflow-x: auto;
        }

        pre code {
            background-color: transparent;
            padding: 0;
        }

        ul, ol {
            margin: 1em 0;
            padding-left: 2em;
        }

        li {
            margin: 0.25em 0;
        }

        img {
            max-width: 100%;
            height: auto;
        }

        hr {
            border: none;
            border-top: 1px solid var(--border-color);
            margin: 2em 0;
        }

        .byline {
            color: var(--text-color);
            opacity: 0.7;
            font-size: 0.9em;
            border-bottom: 1px solid var(--border-color);
            padding-bottom: 1em;
            margin-bottom: 1em;
        }

        .tag {
            display: inline-block;
            background-color: var(--code-bg);
            padding: 0.1em 0.6em;
            border-radius: 1em;
            font-size: 0.85em;
        }
    </style>
</head>
<body>
    <article>
        <h1>{{.Title}}</h1>
        <p class="byline">{{if .Author}}by {{.Author}} &middot; {{end}}<span class="tag">{{.Tag}}</span></p>
        {{.Content}}
    </article>
</body>
</html>`

// pageData holds the data for the published note page template.
type pageData struct {
	Title        string
	Description  string
	CanonicalURL string
	Author       string
	Tag          string
	Content      template.HTML
}

// RenderSharedNoteHTML renders a shared note's body from markdown into a
// complete standalone HTML page with an author byline. The rendered body is
// sanitized, so note content cannot inject script into the published page.
func RenderSharedNoteHTML(note Note, author AuthorProfile, canonicalURL string) []byte {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(note.Description))

	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.HrefTargetBlank,
	})
	contentHTML := markdown.Render(doc, renderer)

	// Sanitize rendered markdown to prevent XSS
	policy := bluemonday.UGCPolicy()
	sanitized := policy.SanitizeBytes(contentHTML)

	description := truncateOnRuneBoundary(note.Description, 160)

	tmpl := template.Must(template.New("page").Parse(pageTemplate))

	var buf bytes.Buffer
	err := tmpl.Execute(&buf, pageData{
		Title:        html.EscapeString(note.Title),
		Description:  html.EscapeString(description),
		CanonicalURL: html.EscapeString(canonicalURL),
		Author:       html.EscapeString(author.Name),
		Tag:          html.EscapeString(note.Tag),
		Content:      template.HTML(sanitized),
	})
	if err != nil {
		// Fall back to a simple error page if template execution fails
		return []byte("<!DOCTYPE html><html><head><title>Error</title></head><body><h1>Error rendering page</h1></body></html>")
	}

	return buf.Bytes()
}

// truncateOnRuneBoundary shortens s to at most max bytes without splitting
// a multi-byte rune, appending "..." when anything was cut.
func truncateOnRuneBoundary(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// sharedNoteKey returns the object storage key for a published note.
// Format: public/{owner}/{note_id}.html
func sharedNoteKey(owner, noteID string) string {
	return fmt.Sprintf("public/%s/%s.html", owner, noteID)
}
