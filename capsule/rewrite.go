package capsule

import (
	"net/url"
	"strings"

	"git.sr.ht/~adnano/gemhost"
)

// RewriteLinks prefixes the relative link targets of the gemtext document
// b with the capsule name, so that a document reached as
// "/name/doc.gmi" on a shared hostname keeps pointing into its capsule.
//
// Only link lines change. Links that already carry the prefix, absolute
// URLs and fragment or query-only references are left alone. LF and CRLF
// line endings are accepted; the result uses LF.
func RewriteLinks(b []byte, name string) []byte {
	lines := strings.Split(string(b), "\n")
	for i, line := range lines {
		lines[i] = rewriteLine(strings.TrimSuffix(line, "\r"), name)
	}
	return []byte(strings.Join(lines, "\n"))
}

func rewriteLine(line, name string) string {
	if !strings.HasPrefix(line, "=>") {
		return line
	}
	link, ok := gemini.ParseLine(line).(gemini.LineLink)
	if !ok || link.URL == "" {
		return line
	}
	target, ok := prefixTarget(link.URL, name)
	if !ok {
		return line
	}
	link.URL = target
	return link.String()
}

// prefixTarget returns target prefixed with name, and false if target
// must not be rewritten.
func prefixTarget(target, name string) (string, bool) {
	if strings.HasPrefix(target, "#") || strings.HasPrefix(target, "?") ||
		strings.HasPrefix(target, "//") {
		return "", false
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" {
		return "", false
	}

	prefix := name + "/"
	if target == name || strings.HasPrefix(target, prefix) ||
		target == "/"+name || strings.HasPrefix(target, "/"+prefix) {
		return "", false
	}
	if strings.HasPrefix(target, "/") {
		return "/" + prefix + target[1:], true
	}
	return prefix + target, true
}
