// Package url provides URL helpers for archive content addressing.
package url

import (
	"net/url"
	"strings"
)

// ContentPrefix is the origin every archive entry is served under.
const ContentPrefix = "https://kiwix.app/"

// ContentNamespace is the namespace of user-facing entries in archives
// using the new namespace scheme.
const ContentNamespace = 'C'

// ContentURL builds the URL for an archive entry path.
func ContentURL(path string) string {
	path = strings.TrimPrefix(path, "/")
	u, err := url.Parse(ContentPrefix + path)
	if err != nil {
		return ContentPrefix + path
	}
	return u.String()
}

// IsContentURL reports whether raw points inside an archive.
func IsContentURL(raw string) bool {
	return strings.HasPrefix(raw, ContentPrefix)
}

// EntryPath strips the content prefix, query and fragment from a content URL
// and returns the unescaped entry path.
func EntryPath(raw string) (string, bool) {
	if !IsContentURL(raw) {
		return "", false
	}
	rest := strings.TrimPrefix(raw, ContentPrefix)
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	unescaped, err := url.PathUnescape(rest)
	if err != nil {
		return rest, true
	}
	return unescaped, true
}

// SplitNamespace splits an entry path into namespace and path. Paths of the
// old scheme carry a single-letter namespace prefix ("A/Foo"); everything
// else belongs to the content namespace.
func SplitNamespace(entryPath string) (byte, string) {
	if len(entryPath) >= 2 && entryPath[1] == '/' && isNamespace(entryPath[0]) {
		return entryPath[0], entryPath[2:]
	}
	return ContentNamespace, entryPath
}

func isNamespace(c byte) bool {
	return (c >= 'A' && c <= 'Z') || c == '-'
}

// Normalize turns user input into a loadable URL. Absolute http(s) URLs are
// kept; anything else is treated as an entry path.
func Normalize(input string) string {
	input = strings.TrimSpace(input)
	switch {
	case input == "":
		return ""
	case strings.HasPrefix(input, "http://"), strings.HasPrefix(input, "https://"):
		return input
	case strings.HasPrefix(input, "about:"):
		return input
	}
	return ContentURL(input)
}
