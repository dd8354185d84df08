package pagestore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "plain text", input: "  hello world  ", want: "hello world"},
		{name: "simple markup", input: "<p>first</p><p>second</p>", want: "first\nsecond"},
		{name: "script dropped", input: "<p>keep</p><script>alert(1)</script><p>also</p>", want: "keep\nalso"},
		{name: "style dropped", input: "<style>p{color:red}</style><div>body</div>", want: "body"},
		{name: "noscript dropped", input: "<noscript>enable js</noscript>text", want: "text"},
		{name: "nested", input: "<div><span>a</span> <em>b</em></div>", want: "a\nb"},
		{name: "blank lines collapsed", input: "<p>a</p>\n\n\n<p>b</p>", want: "a\nb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, StripHTML(tt.input))
		})
	}
}
