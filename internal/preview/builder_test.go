package preview

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDeterministic(t *testing.T) {
	b := Buffers{
		HTML: "<h1>Hello</h1>",
		CSS:  "h1 { color: red; }",
		JS:   "console.log('hi');",
	}
	opts := Options{SessionID: "s1", ResetCSS: true, CaptureErrors: true}

	first := Build(b, opts)
	second := Build(b, opts)
	assert.Equal(t, first, second, "identical inputs must produce identical documents")
}

func TestBuildAssemblesAllBuffers(t *testing.T) {
	b := Buffers{
		HTML: "<h1>Title</h1>",
		CSS:  ".card { padding: 4px; }",
		JS:   "document.title = 'x';",
	}
	doc := Build(b, Options{SessionID: "abc"})

	assert.True(t, strings.HasPrefix(doc, "<!DOCTYPE html>"))
	assert.Contains(t, doc, "<h1>Title</h1>")
	assert.Contains(t, doc, ".card { padding: 4px; }")
	assert.Contains(t, doc, "document.title = 'x';")
	assert.Contains(t, doc, `"abc"`, "session id must be wired into the shim")
}

func TestBuildEmptyBuffers(t *testing.T) {
	doc := Build(Buffers{}, Options{})
	assert.Contains(t, doc, "<body>", "empty buffers still produce a complete document")
	assert.Contains(t, doc, "</html>")
}

func TestBuildResetCSS(t *testing.T) {
	with := Build(Buffers{}, Options{ResetCSS: true})
	without := Build(Buffers{}, Options{})
	assert.Contains(t, with, "box-sizing:border-box")
	assert.NotContains(t, without, "box-sizing:border-box")
}

func TestBuildFrameworkCSS(t *testing.T) {
	doc := Build(Buffers{}, Options{FrameworkCSS: "https://cdn.example.com/water.css"})
	assert.Contains(t, doc, `<link rel="stylesheet" href="https://cdn.example.com/water.css">`)
}

func TestBuildErrorShimToggle(t *testing.T) {
	with := Build(Buffers{}, Options{CaptureErrors: true})
	without := Build(Buffers{}, Options{})
	assert.Contains(t, with, "window.onerror")
	assert.NotContains(t, without, "window.onerror")
}

func TestBuildWrapsUserJSInTryCatch(t *testing.T) {
	doc := Build(Buffers{JS: "boom();"}, Options{})
	tryIdx := strings.Index(doc, "try {")
	jsIdx := strings.Index(doc, "boom();")
	catchIdx := strings.Index(doc, "} catch (err)")
	require.True(t, tryIdx >= 0 && jsIdx >= 0 && catchIdx >= 0)
	assert.Less(t, tryIdx, jsIdx)
	assert.Less(t, jsIdx, catchIdx)
}

func TestBuildDefaultParentOrigin(t *testing.T) {
	doc := Build(Buffers{}, Options{})
	assert.Contains(t, doc, `var ORIGIN = "*";`)

	doc = Build(Buffers{}, Options{ParentOrigin: "http://localhost:3000"})
	assert.Contains(t, doc, `var ORIGIN = "http://localhost:3000";`)
}

func TestExtractBody(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "full document",
			html: "<html><head><title>x</title></head><body><p>inner</p></body></html>",
			want: "<p>inner</p>",
		},
		{
			name: "body with attributes",
			html: `<body class="dark"><div>content</div></body>`,
			want: "<div>content</div>",
		},
		{
			name: "uppercase tags",
			html: "<BODY><span>up</span></BODY>",
			want: "<span>up</span>",
		},
		{
			// Lowercasing "İ" changes its byte length, so offset math must
			// run against the original string.
			name: "multibyte runes before body",
			html: strings.Repeat("İ", 10) + "<body>x</body>",
			want: "x",
		},
		{
			name: "fragment without body",
			html: "<h1>fragment</h1>",
			want: "<h1>fragment</h1>",
		},
		{
			name: "unclosed body",
			html: "<body><p>open",
			want: "<p>open",
		},
		{
			name: "empty",
			html: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractBody(tt.html))
		})
	}
}
