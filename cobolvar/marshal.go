package cobolvar

import (
	"strconv"
	"strings"
)

// Marshal decodes a host variable's raw storage bytes into the text form a
// SQL driver's text wire protocol expects, so a bound parameter's own
// COBOL storage flavour actually gets applied instead of the raw host
// bytes being handed to the driver unchanged. Binary-format parameters
// (FlagBinary) are passed through as-is: the driver binds those natively,
// not as text. FlagVarlen fields are unwrapped from their length prefix
// first, whatever the underlying type turns out to be.
func Marshal(t Type, flags uint32, scale int, raw []byte) ([]byte, error) {
	if HasFlag(flags, FlagVarlen) {
		payload, err := DecodeVarlen(raw)
		if err != nil {
			return nil, err
		}
		raw = payload
	}

	if HasFlag(flags, FlagBinary) {
		return raw, nil
	}

	switch {
	case t == Japanese:
		s, err := DecodeJapanese(raw)
		if err != nil {
			return nil, err
		}
		return []byte(s), nil
	case t.IsPacked():
		n, err := DecodePacked(raw)
		if err != nil {
			return nil, err
		}
		return []byte(formatScaled(n, scale)), nil
	case t.IsBinary():
		// Native COMP/COMP-5 bytes are already the driver's expected
		// binary integer representation; nothing to decode here.
		return raw, nil
	case t.IsNumeric():
		n, err := DecodeZoned(t, string(raw))
		if err != nil {
			return nil, err
		}
		return []byte(formatScaled(n, scale)), nil
	default: // Alphanumeric
		return raw, nil
	}
}

// formatScaled renders an unscaled integer as a decimal string with the
// point reinserted scale digits from the right.
func formatScaled(n int64, scale int) string {
	if scale <= 0 {
		return strconv.FormatInt(n, 10)
	}
	neg := n < 0
	if neg {
		n = -n
	}
	digits := strconv.FormatInt(n, 10)
	if len(digits) <= scale {
		digits = strings.Repeat("0", scale-len(digits)+1) + digits
	}
	intPart := digits[:len(digits)-scale]
	fracPart := digits[len(digits)-scale:]
	sign := ""
	if neg {
		sign = "-"
	}
	return sign + intPart + "." + fracPart
}
