package gemini

import (
	"reflect"
	"testing"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		Raw  string
		Line Line
	}{
		{"=> page.gmi", LineLink{URL: "page.gmi"}},
		{"=>page.gmi", LineLink{URL: "page.gmi"}},
		{"=> page.gmi Page", LineLink{URL: "page.gmi", Name: "Page"}},
		{"=>\tpage.gmi \t A page", LineLink{URL: "page.gmi", Name: "A page"}},
		{"=>", LineLink{}},
		{"# Heading", LineText("# Heading")},
		{"```go", LineText("```go")},
		{"* item", LineText("* item")},
		{"plain text", LineText("plain text")},
		{" => not a link", LineText(" => not a link")},
		{"", LineText("")},
	}

	for _, test := range tests {
		if got := ParseLine(test.Raw); !reflect.DeepEqual(got, test.Line) {
			t.Errorf("ParseLine(%q): expected %#v, got %#v", test.Raw, test.Line, got)
		}
	}
}

func TestTextString(t *testing.T) {
	text := Text{
		LineText("# Files"),
		LineLink{URL: "a.gmi"},
		LineLink{URL: "b.txt", Name: "Notes"},
	}
	if got, want := text.String(), "# Files\n=> a.gmi\n=> b.txt Notes\n"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
