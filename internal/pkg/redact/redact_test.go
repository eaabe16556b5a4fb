package redact

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmail(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"foobar@example.com":  "fo***@example.com",
		"ab@ex.com":           "***@ex.com",
		"user@":               "us***@",
		"no-at":               "***",
		"a@b@c":               "***",
		"абвгд@пример.рф":     "аб***@пример.рф",
		"abc.def+tag@EXAMPLE": "ab***@EXAMPLE",
	}

	for in, want := range cases {
		require.Equal(t, want, Email(in), in)
	}
}

func TestLogin(t *testing.T) {
	t.Parallel()

	require.Equal(t, "fo***@example.com", Login("foobar@example.com"))
	require.Equal(t, "a***", Login("alice"))
	require.Equal(t, "", Login(""))
}

func TestToken(t *testing.T) {
	t.Parallel()

	require.Equal(t, "", Token(""))
	require.Equal(t, "[REDACTED_TOKEN]", Token("eyJhbGciOi..."))
}
