package cobolvar

import (
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
)

// japaneseEncoding is the host encoding used for CobolVarType JAPANESE
// fields: Shift_JIS on the mainframe/host side, transcoded to UTF-8 at the
// Go boundary. This is the one host storage flavour whose bytes are not a
// direct ASCII/EBCDIC rendering of the value, so it gets its own
// encoding/decoding pair instead of a raw byte copy.
var japaneseEncoding encoding.Encoding = japanese.ShiftJIS

// EncodeJapanese transcodes a UTF-8 Go string into the Shift_JIS bytes the
// runtime driver binds as the host field's payload.
func EncodeJapanese(s string) ([]byte, error) {
	out, err := japaneseEncoding.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("cobolvar: encoding %q as Shift_JIS: %w", s, err)
	}
	return out, nil
}

// DecodeJapanese transcodes Shift_JIS bytes read back from the database
// into a UTF-8 Go string.
func DecodeJapanese(raw []byte) (string, error) {
	out, err := japaneseEncoding.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("cobolvar: decoding Shift_JIS payload: %w", err)
	}
	return string(out), nil
}
