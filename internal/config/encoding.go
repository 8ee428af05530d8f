package config

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
)

const EncodingUTF8 = "utf-8"

// Encoding is a legacy file encoding the store accepts on read.
type Encoding struct {
	Name     string
	Encoding encoding.Encoding
}

var (
	GBK    = Encoding{Name: "gbk", Encoding: simplifiedchinese.GBK}
	Latin1 = Encoding{Name: "latin-1", Encoding: charmap.ISO8859_1}
)

// DefaultFallbackEncodings lists the encodings tried, in order, after UTF-8.
func DefaultFallbackEncodings() []Encoding {
	return []Encoding{GBK, Latin1}
}

// decode reports false when the decoder fails or had to substitute
// replacement characters for invalid input.
func (e Encoding) decode(data []byte) (string, bool) {
	if e.Encoding == nil {
		return "", false
	}
	out, err := e.Encoding.NewDecoder().Bytes(data)
	if err != nil {
		return "", false
	}
	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", false
	}
	return string(out), true
}
