package vars

import "strings"

// StrToBool accepts the spellings commonly used in flags and cue files.
// Anything unrecognized is false.
func StrToBool(str string) bool {
	switch strings.ToLower(strings.TrimSpace(str)) {
	case "true", "t", "yes", "y", "on", "1":
		return true
	}
	return false
}
