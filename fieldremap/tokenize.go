package fieldremap

type wordKind int

const (
	wordLowercase wordKind = iota
	wordUppercase
	wordCapitalized
	wordDot
	wordUnderscore
	wordHyphen
)

type word struct {
	kind wordKind
	text string
}

func (w word) isSeparator() bool {
	switch w.kind {
	case wordDot, wordUnderscore, wordHyphen:
		return true
	default:
		return false
	}
}

// tokenize splits s (already verified to contain only valid chars) into
// words: maximal runs of lowercase, UPPERCASE or Capitalized letters/digits,
// and single-rune separators. "HTTPResponse" splits into "HTTP" + "Response"
// (the last uppercase letter before a lowercase run starts the next word);
// "helloWorld" stays two words only once parse() reassembles them into one
// LowerCamel field.
func tokenize(s string) []word {
	runes := []rune(s)
	if len(runes) == 0 {
		return nil
	}

	var out []word
	start := 0
	var firstType charType
	hasLower, hasUpper := false, false

	flush := func(end int) {
		out = append(out, makeWord(string(runes[start:end]), firstType, hasLower, hasUpper))
	}

	var prevType charType
	havePrev := false

	for i, r := range runes {
		curType := classify(r)

		if !havePrev {
			firstType = curType
			hasLower, hasUpper = false, false
			prevType = curType
			havePrev = true
			continue
		}

		split := shouldSplit(prevType, curType, i+1 < len(runes), func() charType {
			if i+1 < len(runes) {
				return classify(runes[i+1])
			}
			return charInvalid
		}())

		if split {
			flush(i)
			start = i
			firstType = curType
			hasLower, hasUpper = false, false
		} else {
			switch curType {
			case charLower:
				hasLower = true
			case charUpper:
				hasUpper = true
			}
		}
		prevType = curType
	}
	flush(len(runes))
	return out
}

func shouldSplit(prev, cur charType, hasNext bool, next charType) bool {
	switch {
	case prev == charDot || prev == charUnderscore || prev == charHyphen:
		return true
	case cur == charDot || cur == charUnderscore || cur == charHyphen:
		return true
	case prev == charUpper && cur == charUpper:
		return hasNext && next == charLower
	case prev == charLower && cur == charLower:
		return false
	case prev == charUpper && cur == charLower:
		return false
	default:
		return true
	}
}

func makeWord(s string, first charType, hasLower, hasUpper bool) word {
	switch first {
	case charLower:
		return word{kind: wordLowercase, text: s}
	case charUpper:
		if hasLower {
			return word{kind: wordCapitalized, text: s}
		}
		return word{kind: wordUppercase, text: s}
	case charDot:
		return word{kind: wordDot, text: s}
	case charUnderscore:
		return word{kind: wordUnderscore, text: s}
	default:
		return word{kind: wordHyphen, text: s}
	}
}
