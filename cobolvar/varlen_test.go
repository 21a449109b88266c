package cobolvar_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GitMensch/gixsql/cobolvar"
)

func TestEncodeDecodeVarlenRoundTrip(t *testing.T) {
	raw := cobolvar.EncodeVarlen([]byte("HELLO"), false)
	payload, err := cobolvar.DecodeVarlen(raw)
	require.NoError(t, err)
	require.Equal(t, []byte("HELLO"), payload)
}

func TestEncodeVarlenTrimsTrailingSpaces(t *testing.T) {
	raw := cobolvar.EncodeVarlen([]byte("HI   "), true)
	payload, err := cobolvar.DecodeVarlen(raw)
	require.NoError(t, err)
	require.Equal(t, []byte("HI"), payload)
}

func TestDecodeVarlenRejectsShortBuffer(t *testing.T) {
	_, err := cobolvar.DecodeVarlen([]byte{1, 2})
	require.Error(t, err)
}

func TestDecodeVarlenRejectsDeclaredLengthPastBuffer(t *testing.T) {
	raw := cobolvar.EncodeVarlen([]byte("AB"), false)
	raw = raw[:len(raw)-1]
	_, err := cobolvar.DecodeVarlen(raw)
	require.Error(t, err)
}

func TestVarlenSuffixFieldNames(t *testing.T) {
	require.Equal(t, "WS-BIG-FIELD-LEN", cobolvar.DefaultVarlenSuffixes.LenFieldName("WS-BIG-FIELD"))
	require.Equal(t, "WS-BIG-FIELD-ARR", cobolvar.DefaultVarlenSuffixes.ArrFieldName("WS-BIG-FIELD"))

	custom := cobolvar.VarlenSuffixes{Len: "L", Arr: "A"}
	require.Equal(t, "X-L", custom.LenFieldName("X"))
	require.Equal(t, "X-A", custom.ArrFieldName("X"))
}
