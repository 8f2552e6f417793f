package fieldremap

import (
	"crypto/md5"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const checksumAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// pairChar maps one (field kind, following separator) combination to one of
// 24 structural characters a-x, grouped by field kind so the alphabet reads
// as four bands of five (lowercase/lowerCamel/upperCamel/uppercase) followed
// by a band of four for empty.
func pairChar(f fieldKind, sep separator, hasSep, hasNextField bool) byte {
	var band int
	switch f {
	case fieldLowercase:
		band = 0
	case fieldLowerCamel:
		band = 1
	case fieldUpperCamel:
		band = 2
	case fieldUppercase:
		band = 3
	case fieldEmpty:
		band = 4
	}
	var slot int
	switch {
	case hasSep && sep == sepDot:
		slot = 0
	case hasSep && sep == sepUnderscore:
		slot = 1
	case hasSep && sep == sepHyphen:
		slot = 2
	case hasNextField:
		slot = 3
	default:
		slot = 4
	}
	if f == fieldEmpty {
		// Empty has no NoSep slot (a separator always follows or ends the
		// string); reuse slots 0-2 for separators and 3 for End.
		if !hasSep {
			slot = 3
		}
		return byte('u' + slot)
	}
	return byte('a' + band*5 + slot)
}

func computeChecksum(s string) string {
	h := xxhash.Sum64String(s)
	i1 := (h / 36) % 36
	i2 := h % 36
	return string([]byte{checksumAlphabet[i1], checksumAlphabet[i2]})
}

// encodeNodes renders the parsed node stream into the structural
// encoding: an optional 2-char checksum (present whenever any field is
// camel-case, so "foo.bar" and "fooBar" never collide) followed by one
// character per field.
func encodeNodes(source string, nodes []node) string {
	hasCamel := false
	for _, n := range nodes {
		if n.kind == nodeField && (n.field == fieldLowerCamel || n.field == fieldUpperCamel) {
			hasCamel = true
			break
		}
	}

	var b strings.Builder
	if hasCamel {
		b.WriteString(computeChecksum(source))
	}

	for i := 0; i < len(nodes); i++ {
		if nodes[i].kind != nodeField {
			continue
		}
		nextIsSep := i+1 < len(nodes) && nodes[i+1].kind == nodeSeparator
		nextIsField := i+1 < len(nodes) && nodes[i+1].kind == nodeField
		var sep separator
		if nextIsSep {
			sep = nodes[i+1].sep
		}
		b.WriteByte(pairChar(nodes[i].field, sep, nextIsSep, nextIsField))
		if nextIsSep {
			i++
		}
	}
	return b.String()
}

func hasChecksum(encoded string) bool {
	if encoded == "" {
		return false
	}
	c := encoded[0]
	return (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// compressRuns run-length-compresses runs of 3 or more identical
// characters as "<digit><char>", splitting runs longer than 9 into
// multiple segments (a run of 12 becomes "9a3a", not "12a").
func compressRuns(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	runes := []rune(s)
	i := 0
	for i < len(runes) {
		ch := runes[i]
		count := 1
		for i+count < len(runes) && runes[i+count] == ch {
			count++
		}
		if count <= 2 {
			for j := 0; j < count; j++ {
				b.WriteRune(ch)
			}
		} else {
			remaining := count
			for remaining > 0 {
				switch {
				case remaining > 9:
					b.WriteByte('9')
					b.WriteRune(ch)
					remaining -= 9
				case remaining > 2:
					b.WriteByte('0' + byte(remaining))
					b.WriteRune(ch)
					remaining = 0
				default:
					for j := 0; j < remaining; j++ {
						b.WriteRune(ch)
					}
					remaining = 0
				}
			}
		}
		i += count
	}
	return b.String()
}

var prefixShortenings = []struct {
	from, to string
}{
	{"RESOURCE_ATTRIBUTES_", "RA_"},
	{"LOG_ATTRIBUTES_", "LA_"},
	{"LOG_BODY_", "LB_"},
}

func md5Fallback(fieldName []byte) string {
	sum := md5.Sum(fieldName)
	return fmt.Sprintf("%s%X", RemappedPrefix, sum)
}

// Encode rewrites an arbitrary attribute key into a systemd-compatible
// FIELD name: "ND" + compressed structural encoding + "_" + the normalized
// (uppercased, separator-to-underscore) input, falling back to
// "ND_<MD5-hex>" when the input isn't valid UTF-8, contains characters
// outside [A-Za-z0-9._-], or the result would exceed systemd's 64-byte field
// name limit.
func Encode(fieldName []byte) string {
	if !validUTF8(fieldName) {
		return md5Fallback(fieldName)
	}
	s := string(fieldName)
	if !hasOnlyValidChars(s) {
		return md5Fallback(fieldName)
	}

	encoded := encodeNodes(s, parse(tokenize(s)))
	var compressed string
	if hasChecksum(encoded) {
		compressed = encoded[:2] + compressRuns(encoded[2:])
	} else {
		compressed = compressRuns(encoded)
	}

	normalized := strings.ToUpper(s)
	normalized = strings.NewReplacer(".", "_", "-", "_").Replace(normalized)
	for _, p := range prefixShortenings {
		if strings.HasPrefix(normalized, p.from) {
			normalized = p.to + strings.TrimPrefix(normalized, p.from)
			break
		}
	}

	result := "ND" + strings.ToUpper(compressed) + "_" + normalized
	if len(result) > 64 {
		return md5Fallback(fieldName)
	}
	return result
}
