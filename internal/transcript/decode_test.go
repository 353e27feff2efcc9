package transcript

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    string
		wantEnc Encoding
	}{
		{"plain ascii", []byte("Stop. Enough."), "Stop. Enough.", EncodingUTF8},
		{"utf8 with bom", append([]byte{0xEF, 0xBB, 0xBF}, []byte("café")...), "café", EncodingUTF8},
		{"utf16le with bom", []byte{0xFF, 0xFE, 'h', 0, 'i', 0}, "hi", EncodingUTF16LE},
		{"utf16be with bom", []byte{0xFE, 0xFF, 0, 'h', 0, 'i'}, "hi", EncodingUTF16BE},
		{"windows-1252 curly apostrophe", []byte("can\x92t wait"), "can’t wait", EncodingWindows1252},
		{"empty", []byte{}, "", EncodingUTF8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, enc, err := Decode(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantEnc, enc)
		})
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("I love this vision"), 0600))

	text, enc, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "I love this vision", text)
	assert.Equal(t, EncodingUTF8, enc)

	_, _, err = ReadFile(dir)
	assert.Error(t, err)

	_, _, err = ReadFile(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}
