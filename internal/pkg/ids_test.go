package pkg

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateNewSessionID(t *testing.T) {
	seen := make(map[string]struct{})

	for i := 0; i < 1000; i++ {
		id := GenerateNewSessionID()

		require.Len(t, id, 43)
		require.NotContains(t, seen, id)
		seen[id] = struct{}{}
	}
}

func TestGenerateMatchID(t *testing.T) {
	id := GenerateMatchID()

	_, err := uuid.Parse(id)
	assert.NoError(t, err)
}
