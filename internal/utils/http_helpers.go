package utils

import (
	"regexp"
	"strings"
)

var urlPattern = regexp.MustCompile(`^(https?|ftp)://[^\s/$.?#].[^\s]*$`)

// IsURL returns true if the given string appears to be a URL rather than a
// storage path.
func IsURL(str string) bool {
	str = strings.ToLower(strings.TrimSpace(str))
	if strings.HasPrefix(str, "http://") || strings.HasPrefix(str, "https://") {
		return true
	}
	return urlPattern.MatchString(str)
}
