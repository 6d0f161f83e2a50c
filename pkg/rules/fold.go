package rules

// Line is a raw input line paired with its ASCII lower-cased copy.
// Substring rules read Folded; regex rules read Raw.
type Line struct {
	Raw    []byte
	Folded []byte
}

// Fold appends the ASCII lower-case form of src to dst[:0] and returns it.
// Bytes outside A-Z are copied unchanged, which keeps matching byte-exact for
// non-ASCII input.
func Fold(dst, src []byte) []byte {
	dst = dst[:0]
	for _, c := range src {
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		dst = append(dst, c)
	}
	return dst
}

// Folder builds Lines while reusing one fold buffer. Not safe for concurrent use.
type Folder struct {
	buf []byte
}

// Line returns raw paired with its folded copy. When fold is false the
// Folded field is left nil. The returned Folded slice is only valid until
// the next call.
func (f *Folder) Line(raw []byte, fold bool) Line {
	if !fold {
		return Line{Raw: raw}
	}
	f.buf = Fold(f.buf, raw)
	return Line{Raw: raw, Folded: f.buf}
}
