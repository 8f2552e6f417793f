package fieldremap

import "unicode/utf8"

func validUTF8(b []byte) bool {
	return utf8.Valid(b)
}

// IsValidFieldName reports whether name already satisfies systemd's
// restricted FIELD charset and needs no remapping: leading A-Z or
// underscore, then A-Z, 0-9 or underscore, length 1-64.
func IsValidFieldName(name []byte) bool {
	if len(name) == 0 || len(name) > 64 {
		return false
	}
	c := name[0]
	if !(c >= 'A' && c <= 'Z') && c != '_' {
		return false
	}
	for _, c := range name[1:] {
		if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') && c != '_' {
			return false
		}
	}
	return true
}
