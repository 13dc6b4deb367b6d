package document

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Memory is an in-memory Document used by the headless host and the test
// suites. Block IDs are ULIDs so creation order stays reconstructible from
// the IDs alone.
type Memory struct {
	mu      sync.Mutex
	blocks  []Block
	cursor  string
	entropy *ulid.MonotonicEntropy
}

// NewMemory creates an empty in-memory document.
func NewMemory() *Memory {
	seed := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Memory{
		entropy: ulid.Monotonic(seed, 0),
	}
}

// NewMemoryWithBlocks creates a document pre-populated with blocks. Blocks
// without IDs get fresh ones.
func NewMemoryWithBlocks(blocks []Block) *Memory {
	m := NewMemory()
	for _, b := range blocks {
		if b.ID == "" {
			b.ID = m.newID()
		}
		m.blocks = append(m.blocks, b)
	}
	return m
}

func (m *Memory) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), m.entropy).String()
}

// Block returns the block with the given ID.
func (m *Memory) Block(id string) (Block, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i := m.index(id); i >= 0 {
		return m.blocks[i], true
	}
	return Block{}, false
}

// Contains reports whether the block is still present.
func (m *Memory) Contains(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index(id) >= 0
}

// Blocks returns a copy of all blocks in document order.
func (m *Memory) Blocks() []Block {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Block, len(m.blocks))
	copy(out, m.blocks)
	return out
}

// FirstBlockID returns the ID of the first block.
func (m *Memory) FirstBlockID() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.blocks) == 0 {
		return "", false
	}
	return m.blocks[0].ID, true
}

// PrecedingBlockID returns the block immediately before the given one.
func (m *Memory) PrecedingBlockID(id string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.index(id)
	if i <= 0 {
		return "", false
	}
	return m.blocks[i-1].ID, true
}

// InsertAfter inserts a block after the anchor and returns its assigned ID.
func (m *Memory) InsertAfter(anchorID string, b Block) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.index(anchorID)
	if i < 0 {
		return "", ErrBlockNotFound
	}
	if b.ID == "" {
		b.ID = m.newID()
	}
	m.blocks = append(m.blocks, Block{})
	copy(m.blocks[i+2:], m.blocks[i+1:])
	m.blocks[i+1] = b
	return b.ID, nil
}

// InsertAtStart inserts a block at the top of the document.
func (m *Memory) InsertAtStart(b Block) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b.ID == "" {
		b.ID = m.newID()
	}
	m.blocks = append([]Block{b}, m.blocks...)
	return b.ID, nil
}

// Remove deletes a block. Removing the cursor block clears the cursor.
func (m *Memory) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.index(id)
	if i < 0 {
		return ErrBlockNotFound
	}
	m.blocks = append(m.blocks[:i], m.blocks[i+1:]...)
	if m.cursor == id {
		m.cursor = ""
	}
	return nil
}

// SetText replaces a block's plain text. Used by hosts (and tests) to model
// user edits, e.g. the prompt drifting while generation streams.
func (m *Memory) SetText(id, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.index(id)
	if i < 0 {
		return ErrBlockNotFound
	}
	m.blocks[i].Content = content
	return nil
}

// SetCursorToEnd places the cursor at the end of the block.
func (m *Memory) SetCursorToEnd(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.index(id) >= 0 {
		m.cursor = id
	}
}

// CursorBlockID returns the block holding the cursor.
func (m *Memory) CursorBlockID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor
}

// index returns the position of the block, or -1. Caller holds mu.
func (m *Memory) index(id string) int {
	for i, b := range m.blocks {
		if b.ID == id {
			return i
		}
	}
	return -1
}
