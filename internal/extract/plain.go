package extract

import (
	"strings"
	"unicode/utf8"
)

func extractPlain(content []byte) (string, error) {
	if utf8.Valid(content) {
		return string(content), nil
	}
	// Replace invalid byte sequences rather than failing outright; plain
	// files in the wild are occasionally mixed-encoding.
	return strings.ToValidUTF8(string(content), "�"), nil
}
