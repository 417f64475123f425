package commands

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateTokenShape(t *testing.T) {
	token := generateToken()
	require.Len(t, token, 32)
	require.Regexp(t, "^[0-9a-f]{32}$", token)
}

func TestGenerateTokenIsUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		token := generateToken()
		_, dup := seen[token]
		require.False(t, dup, "duplicate token %s", token)
		seen[token] = struct{}{}
	}
}
