package storage

import (
	"net/url"
	"path"
	"strings"
)

// Key joins segments into a blob key. Each segment is reduced to its base
// name and path-escaped, so user-supplied filenames cannot add directories
// or climb out of the prefix. Blank segments become "_".
func Key(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		s = path.Base(strings.ReplaceAll(strings.TrimSpace(s), `\`, "/"))
		if s == "." || s == "/" || s == ".." || s == "" {
			s = "_"
		}
		parts = append(parts, url.PathEscape(s))
	}
	return strings.Join(parts, "/")
}

func validateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, `\`) || path.Clean(key) != key {
		return ErrInvalidKey
	}
	for seg := range strings.SplitSeq(key, "/") {
		if seg == ".." {
			return ErrInvalidKey
		}
	}
	return nil
}
