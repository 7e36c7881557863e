package common

import "regexp"

// SearchRegexFold compiles pattern case-insensitively and reports whether it
// matches anywhere in text. Returns an error for an invalid pattern.
func SearchRegexFold(pattern, text string) (bool, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(text), nil
}
