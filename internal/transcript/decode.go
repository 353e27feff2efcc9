// Package transcript turns raw transcript bytes into UTF-8 text.
package transcript

import (
	"bytes"
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type Encoding string

const (
	EncodingUTF8        Encoding = "utf-8"
	EncodingUTF16LE     Encoding = "utf-16le"
	EncodingUTF16BE     Encoding = "utf-16be"
	EncodingWindows1252 Encoding = "windows-1252"
)

// MaxSize bounds transcript files read from disk.
const MaxSize = 4 << 20

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Detect picks an encoding from the byte order mark, then UTF-8 validity. Bytes
// that are neither fall back to Windows-1252, the usual export of desktop
// dictation tools.
func Detect(data []byte) Encoding {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return EncodingUTF8
	case bytes.HasPrefix(data, bomUTF16LE):
		return EncodingUTF16LE
	case bytes.HasPrefix(data, bomUTF16BE):
		return EncodingUTF16BE
	case utf8.Valid(data):
		return EncodingUTF8
	default:
		return EncodingWindows1252
	}
}

func decoderFor(enc Encoding) *encoding.Decoder {
	switch enc {
	case EncodingUTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
	case EncodingUTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
	case EncodingWindows1252:
		return charmap.Windows1252.NewDecoder()
	default:
		return unicode.UTF8BOM.NewDecoder()
	}
}

func Decode(data []byte) (string, Encoding, error) {
	enc := Detect(data)

	out, _, err := transform.Bytes(decoderFor(enc), data)
	if err != nil {
		return "", enc, fmt.Errorf("failed to decode %s transcript: %w", enc, err)
	}

	return string(out), enc, nil
}

func ReadFile(path string) (string, Encoding, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", "", err
	}
	if info.IsDir() {
		return "", "", fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > MaxSize {
		return "", "", fmt.Errorf("transcript %s is %d bytes, limit is %d", path, info.Size(), MaxSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}

	return Decode(data)
}
