package convert

import (
	"log/slog"
	"strings"

	"git.home.luguber.info/inful/docstage/internal/frontmatter"
	"git.home.luguber.info/inful/docstage/internal/logfields"
	"git.home.luguber.info/inful/docstage/internal/markdown"
)

// TagConverter rewrites alerts into aside blocks and heading/title badge annotations into
// badge tags. Converted syntax never matches again, so the conversion is idempotent.
type TagConverter struct{}

// Convert rewrites doc. On any internal failure the input is returned unchanged.
func (TagConverter) Convert(doc Document) []byte {
	p := split(doc.Content)

	body, err := convertTagBody(p.body, p.nl())
	if err != nil {
		slog.Warn("Tag conversion failed, keeping body", logfields.Path(doc.SourceRel), logfields.Error(err))
		body = p.body
	}

	if p.had {
		p.raw = convertTitleBadge(doc.SourceRel, p.raw, p.style)
	}
	return p.join(body)
}

func convertTagBody(body []byte, nl string) ([]byte, error) {
	doc, err := markdown.Parse(body)
	if err != nil {
		return nil, err
	}

	edits := alertEdits(doc, nl)

	masked := doc.Masked()
	for _, line := range headingLine.FindAllIndex(masked, -1) {
		for _, m := range badgeAnnotation.FindAllSubmatchIndex(masked[line[0]:line[1]], -1) {
			start, end := line[0]+m[0], line[0]+m[1]
			text := string(body[line[0]+m[2] : line[0]+m[3]])
			attrs := ""
			if m[4] >= 0 {
				attrs = string(body[line[0]+m[4] : line[0]+m[5]])
			}
			edits = append(edits, markdown.Edit{Start: start, End: end, Replacement: []byte(BadgeTag(text, attrs))})
		}
	}

	return markdown.ApplyEdits(body, edits)
}

// convertTitleBadge re-serializes the metadata block only when the title carries a badge.
func convertTitleBadge(path string, raw []byte, style frontmatter.Style) []byte {
	if !strings.Contains(string(raw), ":badge[") {
		return raw
	}
	fields, err := frontmatter.ParseYAML(raw)
	if err != nil {
		return raw
	}
	title, ok := fields["title"].(string)
	if !ok || !badgeAnnotation.MatchString(title) {
		return raw
	}
	fields["title"] = ConvertBadges(title)
	out, err := frontmatter.SerializeYAML(fields, style)
	if err != nil {
		slog.Warn("Cannot rewrite title badge", logfields.Path(path), logfields.Error(err))
		return raw
	}
	return out
}
