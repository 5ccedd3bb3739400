package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAssignsMonotonicIDs(t *testing.T) {
	tr := New()
	a := tr.AppendText(SenderUser, "hi")
	b := tr.AppendAssets(AssetGroup{ID: "g"})
	c := tr.AppendText(SenderAI, "hello")

	assert.Less(t, a.ID, b.ID)
	assert.Less(t, b.ID, c.ID)
	assert.Equal(t, 3, tr.Len())
}

func TestAmendLastAIText(t *testing.T) {
	tr := New()

	// Nothing to amend in an empty transcript.
	assert.False(t, tr.AmendLastAIText("x"))

	tr.AppendText(SenderUser, "question")
	assert.False(t, tr.AmendLastAIText("x"), "user tail must not be amended")

	tr.AppendText(SenderAI, "Hel")
	assert.True(t, tr.AmendLastAIText("lo"))
	assert.True(t, tr.AmendLastAIText(" world"))

	blocks := tr.Blocks()
	require.Len(t, blocks, 2)
	tail := blocks[1].(*TextBlock)
	assert.Equal(t, "Hello world", tail.Content)

	// An assets block closes the text; further text cannot amend past it.
	tr.AppendAssets(AssetGroup{ID: "g"})
	assert.False(t, tr.AmendLastAIText("more"))
}

func TestLastUserIndex(t *testing.T) {
	tr := New()
	assert.Equal(t, -1, tr.LastUserIndex())

	tr.AppendText(SenderUser, "one")
	tr.AppendText(SenderAI, "answer")
	tr.AppendText(SenderUser, "two")
	tr.AppendAssets(AssetGroup{ID: "g"})

	assert.Equal(t, 2, tr.LastUserIndex())
}

func TestStampMessageID(t *testing.T) {
	tr := New()
	tr.AppendText(SenderUser, "q1")
	tr.AppendText(SenderAI, "a1")
	tr.AppendText(SenderUser, "q2")
	tr.AppendAssets(AssetGroup{ID: "g"})
	tr.AppendText(SenderAI, "a2")

	tr.StampMessageID(tr.LastUserIndex(), "m1")

	blocks := tr.Blocks()
	assert.Empty(t, blocks[0].BackendMessageID())
	assert.Empty(t, blocks[1].BackendMessageID())
	assert.Empty(t, blocks[2].BackendMessageID(), "the user block itself is not stamped")
	assert.Equal(t, "m1", blocks[3].BackendMessageID())
	assert.Equal(t, "m1", blocks[4].BackendMessageID())
}

func TestBlocksReturnsCopy(t *testing.T) {
	tr := New()
	tr.AppendText(SenderUser, "hi")

	blocks := tr.Blocks()
	blocks[0] = nil
	require.NotNil(t, tr.Blocks()[0])
}
