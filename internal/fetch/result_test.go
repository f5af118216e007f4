package fetch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResultVariants(t *testing.T) {
	ok := Ok(42)
	require.True(t, ok.IsOk())
	require.Equal(t, ErrorKind(""), ok.Kind())

	failed := Fail[int](&Error{Kind: KindTimeout, Message: TimeoutMessage})
	require.False(t, failed.IsOk())
	require.Equal(t, KindTimeout, failed.Kind())

	_, err := From(0, errors.New("dial tcp: refused")).Unwrap()
	require.Error(t, err)
	require.Equal(t, KindNetwork, KindOf(err))
	require.Equal(t, "dial tcp: refused", MessageOf(err))
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod(" patch ")
	require.NoError(t, err)
	require.Equal(t, MethodPatch, m)
	require.True(t, m.Mutating())
	require.False(t, MethodGet.Mutating())

	_, err = ParseMethod("OPTIONS")
	require.Error(t, err)
}
