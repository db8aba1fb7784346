package util

// Byte classes shared by the vm lexer and the hack assembler.

func IsNumber(b byte) bool {
	return b >= '0' && b <= '9'
}

func IsLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func IsSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\f' || b == '\v'
}

// IsSymbolStart reports whether b may start a vm identifier or a hack
// symbol: a letter or one of _ . :
func IsSymbolStart(b byte) bool {
	return IsLetter(b) || b == '_' || b == '.' || b == ':'
}

// IsSymbolPart reports whether b may appear after the first character of a
// vm identifier. '$' is left out: the translator joins names with it.
func IsSymbolPart(b byte) bool {
	return IsSymbolStart(b) || IsNumber(b)
}

// IsAsmSymbolStart is like IsSymbolStart but also accepts '$', which the
// translator uses to prefix the labels it generates itself.
func IsAsmSymbolStart(b byte) bool {
	return IsSymbolStart(b) || b == '$'
}

func IsAsmSymbolPart(b byte) bool {
	return IsAsmSymbolStart(b) || IsNumber(b)
}

// IsAsmSymbol reports whether s is a valid hack label or variable name.
func IsAsmSymbol(s string) bool {
	if len(s) == 0 || !IsAsmSymbolStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !IsAsmSymbolPart(s[i]) {
			return false
		}
	}
	return true
}
