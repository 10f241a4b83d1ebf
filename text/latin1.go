package text

// Expand widens each byte of src into the matching slot of dst. Bytes are
// Latin-1, so every value is a valid scalar and nothing is validated. Multi-byte
// encodings such as UTF-8 are never recognized.
func Expand(src []byte, dst []rune) {
	dst = dst[:len(src)]
	for i, b := range src {
		dst[i] = rune(b)
	}
}
