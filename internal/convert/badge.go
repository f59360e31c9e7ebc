package convert

import (
	"regexp"
	"strings"
)

var (
	badgeAnnotation = regexp.MustCompile(`:badge\[([^\]\n]*)\](?:\{([^}\n]*)\})?`)
	headingLine     = regexp.MustCompile(`(?m)^ {0,3}#{1,6}[ \t][^\n]*`)
	badgeAttr       = regexp.MustCompile(`([A-Za-z][\w-]*)\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s"']+))`)
)

// BadgeTag renders one badge annotation as a self-closing tag. The `type` attribute becomes
// `variant`; other attributes pass through in order.
func BadgeTag(text, attrs string) string {
	var b strings.Builder
	b.WriteString(`{% badge text="`)
	b.WriteString(escapeAttr(text))
	b.WriteString(`"`)
	for _, m := range badgeAttr.FindAllStringSubmatch(attrs, -1) {
		key := m[1]
		if key == "type" {
			key = "variant"
		}
		val := m[2] + m[3] + m[4]
		b.WriteString(" " + key + `="` + escapeAttr(val) + `"`)
	}
	b.WriteString(" /%}")
	return b.String()
}

// ConvertBadges rewrites every badge annotation in s.
func ConvertBadges(s string) string {
	return badgeAnnotation.ReplaceAllStringFunc(s, func(match string) string {
		m := badgeAnnotation.FindStringSubmatch(match)
		return BadgeTag(m[1], m[2])
	})
}

func escapeAttr(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `"`, `\"`)
}
