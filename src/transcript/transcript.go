package transcript

// Transcript is the append-only ordered log of blocks for one conversation.
// Blocks are only ever appended; the sole permitted in-place mutation is
// amending the tail while it is the actively streaming AI text block.
//
// Transcript is not safe for concurrent use; the owning session serializes
// access.
type Transcript struct {
	nextID int64
	blocks []Block
}

func New() *Transcript {
	return &Transcript{nextID: 1}
}

// Len returns the number of blocks.
func (t *Transcript) Len() int { return len(t.blocks) }

// Blocks returns the blocks in insertion order. The returned slice is a
// copy; the blocks themselves are shared and must be treated as read-only by
// consumers.
func (t *Transcript) Blocks() []Block {
	out := make([]Block, len(t.blocks))
	copy(out, t.blocks)
	return out
}

// AppendText appends a new text block and returns it.
func (t *Transcript) AppendText(sender Sender, content string) *TextBlock {
	b := &TextBlock{ID: t.allocID(), Sender: sender, Content: content}
	t.blocks = append(t.blocks, b)
	return b
}

// AppendAssets appends a new assets block built from group and returns it.
func (t *Transcript) AppendAssets(group AssetGroup) *AssetsBlock {
	b := &AssetsBlock{ID: t.allocID(), Group: group}
	t.blocks = append(t.blocks, b)
	return b
}

// AmendLastAIText appends text to the tail block if, and only if, the tail
// is an AI text block. It reports whether the amendment happened; when it
// returns false the caller appends a fresh block instead. Interior blocks
// are never touched.
func (t *Transcript) AmendLastAIText(text string) bool {
	if len(t.blocks) == 0 {
		return false
	}
	tail, ok := t.blocks[len(t.blocks)-1].(*TextBlock)
	if !ok || tail.Sender != SenderAI {
		return false
	}
	tail.Content += text
	return true
}

// LastUserIndex returns the index of the most recent user text block, or -1
// when none exists.
func (t *Transcript) LastUserIndex() int {
	for i := len(t.blocks) - 1; i >= 0; i-- {
		if tb, ok := t.blocks[i].(*TextBlock); ok && tb.Sender == SenderUser {
			return i
		}
	}
	return -1
}

// StampMessageID sets the backend message id on every block after index
// after. The backend persists one message per turn, but a turn produces
// several local blocks; once the id is known it is applied to all of them.
func (t *Transcript) StampMessageID(after int, messageID string) {
	for i := after + 1; i < len(t.blocks); i++ {
		t.blocks[i].setMessageID(messageID)
	}
}

func (t *Transcript) allocID() int64 {
	id := t.nextID
	t.nextID++
	return id
}
