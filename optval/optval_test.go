package optval_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GitMensch/gixsql/optval"
)

func TestValueRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		v    optval.Value
		kind optval.Kind
		str  string
	}{
		{"bool true", optval.Bool(true), optval.KindBool, "true"},
		{"bool false", optval.Bool(false), optval.KindBool, "false"},
		{"int", optval.Int(-42), optval.KindInt, "-42"},
		{"float", optval.Float(3.5), optval.KindFloat, "3.5"},
		{"char", optval.Char('Z'), optval.KindChar, "Z"},
		{"string", optval.String("hello"), optval.KindString, "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.kind, tt.v.Kind())
			require.Equal(t, tt.str, tt.v.String())
		})
	}
}

func TestValueAsWrongKindReturnsZero(t *testing.T) {
	v := optval.String("x")
	require.False(t, v.AsBool())
	require.Equal(t, int32(0), v.AsInt())
	require.Equal(t, 0.0, v.AsFloat())
	require.Equal(t, rune(0), v.AsChar())

	i := optval.Int(7)
	require.Equal(t, "", i.AsString())
}

func TestMapAccessorsFallBackOnMissingOrWrongKind(t *testing.T) {
	m := optval.Map{}
	m.Set("verbose", optval.Bool(true))
	m.Set("style", optval.String("d"))

	require.True(t, m.Bool("verbose", false))
	require.False(t, m.Bool("missing", false))
	require.Equal(t, "d", m.String("style", "a"))
	require.Equal(t, "a", m.String("missing", "a"))

	// "style" holds a String, not a Bool -> falls back to the default.
	require.False(t, m.Bool("style", false))
}

func TestMapKeys(t *testing.T) {
	m := optval.Map{}
	m.Set("a", optval.Bool(true))
	m.Set("b", optval.Int(1))

	keys := m.Keys()
	require.ElementsMatch(t, []string{"a", "b"}, keys)
}
