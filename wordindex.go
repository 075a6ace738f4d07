package prism

import (
	"errors"
	"fmt"
	"sync"
)

// ============================================================================
// WORD INDEX
// ============================================================================
//
// Keyword descriptors store integer word identifiers, not strings: the
// vectors stay compact and set intersection runs on sorted int32 slices. The
// mapping between words and identifiers lives in a WordIndex, shared by every
// descriptor of a collection.

// ErrWordNotFound is returned when a word or identifier is absent from a
// word index.
var ErrWordNotFound = errors.New("word not found")

// WordIndex is the read side of a word-identifier mapping.
type WordIndex interface {
	// WordID returns the identifier of word. Wraps ErrWordNotFound when the
	// word is not in the vocabulary.
	WordID(word string) (int32, error)

	// Word returns the word behind an identifier. Wraps ErrWordNotFound when
	// the identifier is unknown.
	Word(id int32) (string, error)
}

// WordRegistry extends WordIndex with vocabulary growth, for the indexing
// side of a pipeline.
type WordRegistry interface {
	WordIndex

	// Register returns the identifier of word, adding the word to the
	// vocabulary when absent.
	Register(word string) (int32, error)
}

// MemoryWordIndex is an in-memory WordRegistry. Identifiers are assigned
// sequentially starting at 1 and are never reused. Safe for concurrent use.
type MemoryWordIndex struct {
	mu    sync.RWMutex
	ids   map[string]int32
	words []string
}

// NewMemoryWordIndex returns an empty in-memory word registry.
func NewMemoryWordIndex() *MemoryWordIndex {
	return &MemoryWordIndex{ids: make(map[string]int32)}
}

// NewMemoryWordIndexFromWords returns a registry preloaded with the given
// vocabulary in order; duplicates keep their first identifier.
func NewMemoryWordIndexFromWords(words []string) *MemoryWordIndex {
	ix := NewMemoryWordIndex()
	for _, w := range words {
		ix.register(w)
	}
	return ix
}

// WordID returns the identifier of word.
func (ix *MemoryWordIndex) WordID(word string) (int32, error) {
	ix.mu.RLock()
	id, ok := ix.ids[word]
	ix.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrWordNotFound, word)
	}
	return id, nil
}

// Word returns the word behind an identifier.
func (ix *MemoryWordIndex) Word(id int32) (string, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if id < 1 || int(id) > len(ix.words) {
		return "", fmt.Errorf("%w: id %d", ErrWordNotFound, id)
	}
	return ix.words[id-1], nil
}

// Register returns the identifier of word, adding it when absent.
func (ix *MemoryWordIndex) Register(word string) (int32, error) {
	return ix.register(word), nil
}

func (ix *MemoryWordIndex) register(word string) int32 {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if id, ok := ix.ids[word]; ok {
		return id
	}
	ix.words = append(ix.words, word)
	id := int32(len(ix.words))
	ix.ids[word] = id
	return id
}

// Len returns the vocabulary size.
func (ix *MemoryWordIndex) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.words)
}

// Verify interface compliance at compile time.
var _ WordRegistry = (*MemoryWordIndex)(nil)
