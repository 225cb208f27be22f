package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	oldV, oldC, oldD := Version, Commit, Date
	t.Cleanup(func() { Version, Commit, Date = oldV, oldC, oldD })

	Version, Commit, Date = "v1.0.0", "abc123", ""
	assert.Equal(t, "v1.0.0 (abc123)", String())

	Date = "2026-01-30T12:00:00Z"
	assert.Equal(t, "v1.0.0 (abc123, 2026-01-30T12:00:00Z)", String())
}
