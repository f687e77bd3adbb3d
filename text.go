package gemini

import (
	"fmt"
	"strings"
)

// Line represents a line of a gemtext document.
type Line interface {
	String() string
	line() // private function to prevent other packages from implementing Line
}

// A link line.
type LineLink struct {
	URL  string
	Name string
}

// Any line that is not a link line, kept verbatim.
type LineText string

func (l LineLink) String() string {
	if l.Name != "" {
		return fmt.Sprintf("=> %s %s", l.URL, l.Name)
	}
	return fmt.Sprintf("=> %s", l.URL)
}

func (l LineText) String() string {
	return string(l)
}

func (l LineLink) line() {}
func (l LineText) line() {}

// Text represents a gemtext document.
type Text []Line

const spacetab = " \t"

// ParseLine parses a single line of gemtext. A line starting with "=>"
// is a link: the URL follows after optional whitespace and anything after
// the next run of whitespace is the link name. Every other line is
// returned as LineText.
func ParseLine(line string) Line {
	if !strings.HasPrefix(line, "=>") {
		return LineText(line)
	}
	line = strings.TrimLeft(line[2:], spacetab)
	split := strings.IndexAny(line, spacetab)
	if split == -1 {
		// line is a URL
		return LineLink{URL: line}
	}
	return LineLink{
		URL:  line[:split],
		Name: strings.TrimLeft(line[split:], spacetab),
	}
}

// String writes the document to a string, ending every line with LF.
func (t Text) String() string {
	var b strings.Builder
	for _, l := range t {
		b.WriteString(l.String())
		b.WriteByte('\n')
	}
	return b.String()
}
