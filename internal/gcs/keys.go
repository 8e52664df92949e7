package gcs

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StatementPrefix is the key prefix uploaded statements are stored under.
const StatementPrefix = "statements/"

// ICT is the timezone of statement key timestamps (UTC+7).
var ICT = time.FixedZone("ICT", 7*60*60)

// IsPDF reports whether filename has a .pdf extension, in any case.
func IsPDF(filename string) bool {
	return strings.EqualFold(path.Ext(filename), ".pdf")
}

// StatementKey returns statements/{owner}/{base}-{YYYYMMDDHHMMSS}-{8 hex}.pdf
// for an uploaded file.
func StatementKey(ownerID, filename string, now time.Time) string {
	return statementKey(ownerID, filename, now, strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func statementKey(ownerID, filename string, now time.Time, suffix string) string {
	name := SanitizeFilename(filename)
	base := strings.TrimSuffix(name, path.Ext(name))
	if base == "" {
		base = "statement"
	}
	return fmt.Sprintf("%s%s/%s-%s-%s.pdf", StatementPrefix, ownerID, base, now.In(ICT).Format("20060102150405"), suffix)
}

// SanitizeFilename reduces a client-supplied name to a safe ASCII file name:
// directories are dropped, whitespace becomes '_', and anything outside
// [A-Za-z0-9._-] is removed along with leading and trailing dots and underscores.
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "\\", "/")
	filename = path.Base(filename)
	if filename == "." || filename == "/" {
		return ""
	}

	var b strings.Builder
	for _, r := range strings.Join(strings.Fields(filename), "_") {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "._")
}
