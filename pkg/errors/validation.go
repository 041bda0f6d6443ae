package errors

import (
	"regexp"
	"strings"
	"unicode"
)

const maxPathLength = 500

// ValidatePath checks an output path or base path given on the command line.
// It rejects empty and overly long paths, control characters and
// backslashes.
func ValidatePath(path string) error {
	switch {
	case path == "":
		return New(ErrCodeInvalidPath, "path cannot be empty")
	case len(path) > maxPathLength:
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	case hasControl(path):
		return New(ErrCodeInvalidPath, "path contains invalid characters")
	case strings.ContainsRune(path, '\\'):
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}
	return nil
}

// documentIDRe matches the identifiers handed out by the document stores.
var documentIDRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// ValidateDocumentID checks a document id taken from a request path.
func ValidateDocumentID(id string) error {
	if !documentIDRe.MatchString(id) {
		return New(ErrCodeInvalidInput, "invalid document id: %q", id)
	}
	return nil
}

// ValidateNodeID checks a logical node id. Ids are opaque strings chosen by
// the producer; only empty ids and control characters are rejected.
func ValidateNodeID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidDocument, "node id cannot be empty")
	}
	if hasControl(id) {
		return New(ErrCodeInvalidDocument, "node id %q contains control characters", id)
	}
	return nil
}

func hasControl(s string) bool {
	return strings.IndexFunc(s, unicode.IsControl) >= 0
}
