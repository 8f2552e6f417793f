package fieldremap

type fieldKind int

const (
	fieldLowercase fieldKind = iota
	fieldUppercase
	fieldLowerCamel
	fieldUpperCamel
	fieldEmpty
)

type separator int

const (
	sepDot separator = iota
	sepUnderscore
	sepHyphen
)

type nodeKind int

const (
	nodeField nodeKind = iota
	nodeSeparator
)

type node struct {
	kind  nodeKind
	field fieldKind
	sep   separator
}

func wordToSeparator(w word) (separator, bool) {
	switch w.kind {
	case wordDot:
		return sepDot, true
	case wordUnderscore:
		return sepUnderscore, true
	case wordHyphen:
		return sepHyphen, true
	default:
		return 0, false
	}
}

// fieldBuilder accumulates consecutive words of a compatible kind into one
// field, promoting a single leading lowercase word to LowerCamel the moment
// a Capitalized word follows it (helloWorld -> one LowerCamel field, not
// two).
type fieldBuilder struct {
	kind     fieldKind
	extended bool
}

func (b *fieldBuilder) canAdd(w word) bool {
	switch w.kind {
	case wordLowercase:
		return b.kind == fieldLowercase
	case wordUppercase:
		return b.kind == fieldUppercase
	case wordCapitalized:
		return b.kind == fieldLowerCamel || b.kind == fieldUpperCamel
	default:
		return false
	}
}

func (b *fieldBuilder) isSingleLowercase() bool {
	return b.kind == fieldLowercase && !b.extended
}

func newFieldBuilder(w word) *fieldBuilder {
	switch w.kind {
	case wordLowercase:
		return &fieldBuilder{kind: fieldLowercase}
	case wordUppercase:
		return &fieldBuilder{kind: fieldUppercase}
	case wordCapitalized:
		return &fieldBuilder{kind: fieldUpperCamel}
	default:
		return &fieldBuilder{kind: fieldLowercase}
	}
}

// parse groups tokens into a Field/Separator node stream: runs of
// compatible words collapse into one field, and a leading or trailing (or
// doubled) separator yields an explicit Empty field so structure encoding
// never silently drops position information.
func parse(tokens []word) []node {
	var out []node
	i := 0

	if i < len(tokens) && tokens[i].isSeparator() {
		out = append(out, node{kind: nodeField, field: fieldEmpty})
	}

	var cur *fieldBuilder

	flush := func() {
		if cur != nil {
			out = append(out, node{kind: nodeField, field: cur.kind})
			cur = nil
		}
	}

	for i < len(tokens) {
		if sep, ok := wordToSeparator(tokens[i]); ok {
			flush()
			out = append(out, node{kind: nodeSeparator, sep: sep})
			i++
			if i >= len(tokens) || tokens[i].isSeparator() {
				out = append(out, node{kind: nodeField, field: fieldEmpty})
			}
			continue
		}

		w := tokens[i]
		if cur == nil {
			cur = newFieldBuilder(w)
		} else if cur.canAdd(w) {
			cur.extended = true
		} else if cur.isSingleLowercase() && w.kind == wordCapitalized {
			cur.kind = fieldLowerCamel
			cur.extended = true
		} else {
			flush()
			cur = newFieldBuilder(w)
		}
		i++
	}
	flush()
	return out
}
