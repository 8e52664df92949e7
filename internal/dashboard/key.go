package dashboard

import (
	"path"
	"strings"
)

// DefaultBase names the artifact when the source key has no usable basename.
const DefaultBase = "statement"

// BuildKey returns the object key of a statement's dashboard:
// {prefix}{ownerID}/{base}.html, base being the source file name without its
// extension. Rendering the same statement again overwrites the same key.
func BuildKey(prefix, ownerID, storageKey string) string {
	base := path.Base(storageKey)
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "" || base == "." || base == "/" {
		base = DefaultBase
	}
	return prefix + ownerID + "/" + base + ".html"
}
