package timeline

// AlignedIndex provides O(1) lookup of aligned words by canonical ID plus
// positional neighbor access in the aligner's output order. The neighbor of
// a word is its positional predecessor/successor in the aligned sequence,
// not ID−1/ID+1: the aligner may have dropped intermediate words.
//
// The index is read-only after construction and safe for concurrent use.
type AlignedIndex struct {
	words []AlignedWord
	byID  map[int64]int
}

// NewAlignedIndex builds an index over words. The slice is retained, not
// copied; callers must not mutate it afterwards. When the same ID appears
// twice, the first occurrence wins.
func NewAlignedIndex(words []AlignedWord) *AlignedIndex {
	byID := make(map[int64]int, len(words))
	for i, w := range words {
		if _, ok := byID[w.ID]; !ok {
			byID[w.ID] = i
		}
	}
	return &AlignedIndex{words: words, byID: byID}
}

// Len returns the number of aligned words.
func (ix *AlignedIndex) Len() int { return len(ix.words) }

// ByID returns the aligned word with the given canonical ID.
func (ix *AlignedIndex) ByID(id int64) (AlignedWord, bool) {
	i, ok := ix.byID[id]
	if !ok {
		return AlignedWord{}, false
	}
	return ix.words[i], true
}

// Prev returns the aligned word immediately preceding the word with the
// given ID in aligned order. ok is false when id is unknown or the word is
// the first of the sequence.
func (ix *AlignedIndex) Prev(id int64) (AlignedWord, bool) {
	i, known := ix.byID[id]
	if !known || i == 0 {
		return AlignedWord{}, false
	}
	return ix.words[i-1], true
}

// Next returns the aligned word immediately following the word with the
// given ID in aligned order. ok is false when id is unknown or the word is
// the last of the sequence.
func (ix *AlignedIndex) Next(id int64) (AlignedWord, bool) {
	i, known := ix.byID[id]
	if !known || i == len(ix.words)-1 {
		return AlignedWord{}, false
	}
	return ix.words[i+1], true
}

// IsFirst reports whether id is the first word of the aligned sequence.
func (ix *AlignedIndex) IsFirst(id int64) bool {
	i, ok := ix.byID[id]
	return ok && i == 0
}

// IsLast reports whether id is the last word of the aligned sequence.
func (ix *AlignedIndex) IsLast(id int64) bool {
	i, ok := ix.byID[id]
	return ok && i == len(ix.words)-1
}
