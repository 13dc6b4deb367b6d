// Package document defines the contract between the inline-generation
// controller and the host editor's document model. The controller never owns
// the document; the host supplies an implementation of Document backed by its
// real editor, and Memory stands in for it in tests and headless mode.
package document

import "errors"

// ErrBlockNotFound is returned when an operation names a block ID that is no
// longer in the document.
var ErrBlockNotFound = errors.New("document: block not found")

// Block is one unit of document content: a paragraph, a SQL/HTTP/script
// block, or anything else the host registers. Content is the concatenated
// plain text of the block; Props carries block-type specific settings the
// controller passes through untouched.
type Block struct {
	ID      string            `json:"id"`
	Type    string            `json:"type"`
	Content string            `json:"content"`
	Props   map[string]string `json:"props,omitempty"`
}

// Document is the read/write surface the controller needs. Implementations
// must be safe for use from the controller's dispatch goroutine plus whatever
// goroutines the host edits from.
type Document interface {
	// Block returns the block with the given ID.
	Block(id string) (Block, bool)
	// Contains reports whether the block is still present.
	Contains(id string) bool
	// Blocks returns all blocks in document order.
	Blocks() []Block
	// FirstBlockID returns the ID of the first block, if any.
	FirstBlockID() (string, bool)
	// PrecedingBlockID returns the ID of the block immediately before the
	// given one, or false if the block is first or missing.
	PrecedingBlockID(id string) (string, bool)
	// InsertAfter inserts a block after the anchor and returns the ID
	// assigned to it.
	InsertAfter(anchorID string, b Block) (string, error)
	// InsertAtStart inserts a block at the top of the document and returns
	// the ID assigned to it.
	InsertAtStart(b Block) (string, error)
	// Remove deletes a block.
	Remove(id string) error
	// SetCursorToEnd places the text cursor at the end of the block.
	SetCursorToEnd(id string)
	// CursorBlockID returns the ID of the block holding the cursor, or ""
	// if the cursor is not in the document.
	CursorBlockID() string
}
