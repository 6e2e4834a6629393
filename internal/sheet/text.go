package sheet

import "bytes"

// utf8BOM is prepended by Excel and some spreadsheet exports.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// cleanText strips a leading UTF-8 BOM and replaces invalid UTF-8 sequences with
// U+FFFD. Exports are read fully into memory (bounded by the fetcher), so this
// works on the whole payload at once.
func cleanText(data []byte) []byte {
	data = bytes.TrimPrefix(data, utf8BOM)
	return bytes.ToValidUTF8(data, []byte("\uFFFD"))
}
