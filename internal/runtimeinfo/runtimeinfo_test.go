package runtimeinfo

import (
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTags_ContainsProcessMetadata(t *testing.T) {
	tags := Tags()

	assert.Equal(t, strconv.Itoa(os.Getpid()), tags["pid"])
	assert.NotEmpty(t, tags["go_version"])
	assert.NotEmpty(t, tags["cores"])
	assert.NotEmpty(t, tags["session_id"])
}

func TestTags_SessionIDUniquePerCall(t *testing.T) {
	assert.NotEqual(t, Tags()["session_id"], Tags()["session_id"])
}

func TestMerge_UserTagsWin(t *testing.T) {
	merged := Merge(map[string]string{"pid": "overridden", "env": "prod"})

	require.Equal(t, "overridden", merged["pid"])
	assert.Equal(t, "prod", merged["env"])
	assert.NotEmpty(t, merged["go_version"])
}
