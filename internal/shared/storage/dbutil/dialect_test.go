package dbutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRebindToQuestion(t *testing.T) {
	assert.Equal(t, "SELECT data FROM documents WHERE collection = ? AND id = ?",
		RebindToQuestion("SELECT data FROM documents WHERE collection = $1 AND id = $2"))
	assert.Equal(t, "SELECT 1", RebindToQuestion("SELECT 1"))
}
