package render

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToHTML(t *testing.T) {
	md := NewMarkdown()

	tests := []struct {
		name     string
		source   string
		contains []string
	}{
		{"heading and emphasis", "# Summary\n\nRevenue is **up**.", []string{"<h1>Summary</h1>", "<strong>up</strong>"}},
		{"table", "| a | b |\n|---|---|\n| 1 | 2 |", []string{"<table>", "<td>1</td>"}},
		{"strikethrough", "~~old~~", []string{"<del>old</del>"}},
		{"hard wraps", "line one\nline two", []string{"line one<br>"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := md.ToHTML(tt.source)
			require.NoError(t, err)
			for _, want := range tt.contains {
				require.Contains(t, out, want)
			}
		})
	}
}

func TestToHTMLDropsRawHTML(t *testing.T) {
	out, err := NewMarkdown().ToHTML("hello <script>alert(1)</script>")
	require.NoError(t, err)
	require.NotContains(t, out, "<script>")
}
