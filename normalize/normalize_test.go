package normalize

import (
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSummary(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "tags whitespace and entities",
			raw:  "<b>Hello</b>   world &amp; more",
			want: "Hello world & more",
		},
		{
			name: "newlines and tabs",
			raw:  "\n\tFirst line\n\nsecond\tline  ",
			want: "First line second line",
		},
		{
			name: "encoded markup is removed",
			raw:  "&lt;p&gt;Paragraph&lt;/p&gt;",
			want: "Paragraph",
		},
		{
			name: "edge brackets stripped",
			raw:  "[[Breaking]]",
			want: "Breaking",
		},
		{
			name: "interior brackets kept",
			raw:  "[a [b] c]",
			want: "a [b] c",
		},
		{
			name: "dangling angle bracket at edge",
			raw:  "text >",
			want: "text ",
		},
		{
			name: "empty",
			raw:  "",
			want: "",
		},
		{
			name: "only markup",
			raw:  "<img src=\"x.png\"/>",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summary(tt.raw)
			if got != tt.want {
				t.Errorf("Summary(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSummary_NoResidualMarkup(t *testing.T) {
	inputs := []string{
		"<div class=\"x\"><p>One &amp; two</p><br/></div>",
		"&lt;script&gt;alert(1)&lt;/script&gt; text &quot;quoted&quot;",
		"<a href=\"https://example.com\">link</a> &#8212; &nbsp; tail",
		"<ul><li>a</li><li>b</li></ul>",
	}
	tag := regexp.MustCompile(`<[^>]*>`)
	entity := regexp.MustCompile(`&(#\d+|#x[0-9a-fA-F]+|[a-zA-Z]+);`)

	for _, in := range inputs {
		got := Summary(in)
		if tag.MatchString(got) {
			t.Errorf("Summary(%q) = %q still contains markup", in, got)
		}
		if entity.MatchString(got) {
			t.Errorf("Summary(%q) = %q still contains entities", in, got)
		}
		if strings.Contains(got, "  ") {
			t.Errorf("Summary(%q) = %q contains a whitespace run", in, got)
		}
	}
}

func TestSummary_Truncation(t *testing.T) {
	raw := strings.Repeat("a", MaxSummaryLength+500)
	got := Summary(raw)

	if !strings.HasSuffix(got, " ...") {
		t.Fatalf("expected ellipsis suffix, got %q", got[len(got)-10:])
	}
	body := strings.TrimSuffix(got, " ...")
	if utf8.RuneCountInString(body) != MaxSummaryLength {
		t.Errorf("expected %d characters before ellipsis, got %d", MaxSummaryLength, utf8.RuneCountInString(body))
	}

	exact := strings.Repeat("b", MaxSummaryLength)
	if got := Summary(exact); got != exact {
		t.Error("summary of exactly the maximum length must not be truncated")
	}
}

func TestSummary_TruncationCountsCharacters(t *testing.T) {
	raw := strings.Repeat("ж", MaxSummaryLength+1)
	got := Summary(raw)
	body := strings.TrimSuffix(got, " ...")
	if utf8.RuneCountInString(body) != MaxSummaryLength {
		t.Errorf("expected %d runes, got %d", MaxSummaryLength, utf8.RuneCountInString(body))
	}
	if !utf8.ValidString(got) {
		t.Error("truncation produced invalid UTF-8")
	}
}
