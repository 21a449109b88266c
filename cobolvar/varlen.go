package cobolvar

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// VarlenPrefixWidth is the width, in bytes, of the length prefix on a
// varlen host field: [length: fixed-width integer][payload: bytes].
const VarlenPrefixWidth = 4

// EncodeVarlen builds the wire representation of a varlen character host
// variable: a little-endian length prefix followed by exactly that many
// payload bytes. If trimTrailingSpaces is set (the field's FlagVarlen
// marshalling rule when the flag bit says so), trailing ASCII spaces are
// stripped from payload before the length is computed.
func EncodeVarlen(payload []byte, trimTrailingSpaces bool) []byte {
	if trimTrailingSpaces {
		payload = bytes.TrimRight(payload, " ")
	}
	out := make([]byte, VarlenPrefixWidth+len(payload))
	binary.LittleEndian.PutUint32(out, uint32(len(payload)))
	copy(out[VarlenPrefixWidth:], payload)
	return out
}

// DecodeVarlen reads the length prefix from raw and returns exactly that
// many payload bytes. It fails if raw is shorter than the prefix or than
// the declared length.
func DecodeVarlen(raw []byte) ([]byte, error) {
	if len(raw) < VarlenPrefixWidth {
		return nil, fmt.Errorf("cobolvar: varlen buffer shorter than length prefix (%d bytes)", len(raw))
	}
	n := binary.LittleEndian.Uint32(raw)
	if int(n) > len(raw)-VarlenPrefixWidth {
		return nil, fmt.Errorf("cobolvar: varlen declared length %d exceeds buffer", n)
	}
	return raw[VarlenPrefixWidth : VarlenPrefixWidth+int(n)], nil
}

// VarlenSuffixes holds the field-name suffixes used to synthesize the pair
// of generated host variables backing a varlen field when picx_as_varchar
// rewrites a PIC X into a varlen encoding: LEN for the length subfield, ARR
// for the payload subfield. Configured via the varlen_suffixes option
// (spec.md 4.4), e.g. "LEN,ARR".
type VarlenSuffixes struct {
	Len string
	Arr string
}

// DefaultVarlenSuffixes matches the historical default used by the
// preprocessor when -Y/--varying is not given.
var DefaultVarlenSuffixes = VarlenSuffixes{Len: "LEN", Arr: "ARR"}

// LenFieldName returns the generated length-subfield name for host
// variable baseName.
func (s VarlenSuffixes) LenFieldName(baseName string) string {
	return baseName + "-" + s.Len
}

// ArrFieldName returns the generated payload-subfield name for host
// variable baseName.
func (s VarlenSuffixes) ArrFieldName(baseName string) string {
	return baseName + "-" + s.Arr
}
