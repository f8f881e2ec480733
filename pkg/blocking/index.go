package blocking

import (
	"sync"

	"github.com/Ramsey-B/fern/pkg/models"
)

// Index is an inverted index from strategy-qualified blocking keys to the
// records sharing that key. Blocks are capped at maxBlockSize; once a block
// is full, later inserts for that key are dropped (first-N-wins) and counted
// in Overflowed. Safe for concurrent use: resolution reads can overlap with
// incremental inserts from the ingestion path.
type Index struct {
	mu           sync.RWMutex
	maxBlockSize int
	blocks       map[string][]string
	members      map[string]map[string]bool
	byID         map[string]*models.Record
	overflowed   int
}

// NewIndex creates an empty Index. A non-positive maxBlockSize disables the
// cap.
func NewIndex(maxBlockSize int) *Index {
	return &Index{
		maxBlockSize: maxBlockSize,
		blocks:       map[string][]string{},
		members:      map[string]map[string]bool{},
		byID:         map[string]*models.Record{},
	}
}

// qualifiedKey namespaces a key by its strategy so identical literal strings
// from different strategies never land in the same block.
func qualifiedKey(strategy Strategy, key string) string {
	return strategy.Name() + ":" + key
}

// Insert adds a record to the block for the given strategy and key. Returns
// false when the record was dropped: either already present in the block, or
// the block is at capacity.
func (i *Index) Insert(strategy Strategy, key string, record *models.Record) bool {
	if record == nil || record.ID == "" {
		return false
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	qualified := qualifiedKey(strategy, key)

	block, ok := i.members[qualified]
	if !ok {
		block = map[string]bool{}
		i.members[qualified] = block
	}
	if block[record.ID] {
		return false
	}
	if i.maxBlockSize > 0 && len(block) >= i.maxBlockSize {
		i.overflowed++
		return false
	}

	block[record.ID] = true
	i.blocks[qualified] = append(i.blocks[qualified], record.ID)
	i.byID[record.ID] = record
	return true
}

// Block returns the record IDs in the block for the given strategy and key,
// in insertion order. Missing keys return nil.
func (i *Index) Block(strategy Strategy, key string) []string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.blocks[qualifiedKey(strategy, key)]
}

// Blocks returns a snapshot of the key-to-members map.
func (i *Index) Blocks() map[string][]string {
	i.mu.RLock()
	defer i.mu.RUnlock()

	snapshot := make(map[string][]string, len(i.blocks))
	for key, block := range i.blocks {
		snapshot[key] = block
	}
	return snapshot
}

// Record returns the indexed record with the given ID, or nil.
func (i *Index) Record(id string) *models.Record {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.byID[id]
}

// BlockCount returns the number of non-empty blocks.
func (i *Index) BlockCount() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.blocks)
}

// RecordCount returns the number of distinct records inserted.
func (i *Index) RecordCount() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.byID)
}

// Overflowed returns how many inserts were dropped by the block size cap.
func (i *Index) Overflowed() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.overflowed
}

// MaxBlockSize returns the configured per-block capacity.
func (i *Index) MaxBlockSize() int {
	return i.maxBlockSize
}
