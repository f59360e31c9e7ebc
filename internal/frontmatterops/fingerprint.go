package frontmatterops

import (
	"errors"
	"strings"

	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/docstage/internal/frontmatter"
)

const fingerprintHashKeyLastmod = "lastmod"

// ComputeFingerprint computes the content fingerprint recorded in the manifest.
//
// Canonicalization:
//   - excludes: fingerprint, lastmod
//   - serializes YAML with LF newlines and sorted keys
//   - trims a single trailing newline from the serialized YAML before hashing
func ComputeFingerprint(fields map[string]any, body []byte) (string, error) {
	if fields == nil {
		return "", errors.New("fields map is nil")
	}

	fieldsForHash := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == mdfp.FingerprintField || k == fingerprintHashKeyLastmod {
			continue
		}
		fieldsForHash[k] = v
	}

	frontmatterForHash := ""
	if len(fieldsForHash) > 0 {
		serialized, err := frontmatter.SerializeYAML(fieldsForHash, frontmatter.Style{Newline: "\n"})
		if err != nil {
			return "", err
		}
		frontmatterForHash = trimSingleTrailingNewline(string(serialized))
	}

	return mdfp.CalculateFingerprintFromParts(frontmatterForHash, string(body)), nil
}

// FingerprintDocument fingerprints a full document. A document without readable metadata is
// hashed as body only.
func FingerprintDocument(content []byte) (string, error) {
	fields, body, _, _, err := Read(content)
	if err != nil {
		return mdfp.CalculateFingerprintFromParts("", string(content)), nil
	}
	return ComputeFingerprint(fields, body)
}

func trimSingleTrailingNewline(s string) string {
	if before, ok := strings.CutSuffix(s, "\r\n"); ok {
		return before
	}
	if before, ok := strings.CutSuffix(s, "\n"); ok {
		return before
	}
	return s
}
