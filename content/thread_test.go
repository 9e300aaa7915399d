package content

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pressroom/models"
)

func uintPtr(v uint) *uint { return &v }

func TestBuildThread(t *testing.T) {
	comments := []models.Comment{
		{ID: 1, Content: "root a"},
		{ID: 2, Content: "reply to a", ParentID: uintPtr(1), Depth: 1},
		{ID: 3, Content: "root b"},
		{ID: 4, Content: "reply to reply", ParentID: uintPtr(2), Depth: 2},
		{ID: 5, Content: "second reply to a", ParentID: uintPtr(1), Depth: 1},
		{ID: 6, Content: "orphan", ParentID: uintPtr(99), Depth: 1},
	}

	roots := buildThread(comments)

	require.Len(t, roots, 2)
	assert.EqualValues(t, 1, roots[0].ID)
	assert.EqualValues(t, 3, roots[1].ID)

	require.Len(t, roots[0].Replies, 2)
	assert.EqualValues(t, 2, roots[0].Replies[0].ID)
	assert.EqualValues(t, 5, roots[0].Replies[1].ID)
	require.Len(t, roots[0].Replies[0].Replies, 1)
	assert.EqualValues(t, 4, roots[0].Replies[0].Replies[0].ID)
	assert.Empty(t, roots[1].Replies)
}

func TestBuildThread_EmptyEncodesAsList(t *testing.T) {
	out, err := json.Marshal(buildThread(nil))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(out))

	out, err = json.Marshal(buildThread([]models.Comment{{ID: 1}}))
	require.NoError(t, err)
	assert.Contains(t, string(out), `"replies":[]`)
}
