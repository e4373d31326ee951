package chunkset_test

import (
	"errors"
	"testing"

	"libvbs/internal/chunkset"
)

func TestSetInsertAndContains(t *testing.T) {
	s := chunkset.New()
	if err := s.Insert(&chunkset.Chunk{Sequence: 3, Size: 10}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Contains(3) {
		t.Fatal("expected set to contain sequence 3")
	}
	if s.Contains(4) {
		t.Fatal("expected set to not contain sequence 4")
	}
	if s.Len() != 1 {
		t.Fatalf("expected Len() == 1, got %d", s.Len())
	}
}

func TestSetInsertDuplicate(t *testing.T) {
	s := chunkset.New()
	if err := s.Insert(&chunkset.Chunk{Sequence: 1, Size: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := s.Insert(&chunkset.Chunk{Sequence: 1, Size: 2})
	if !errors.Is(err, chunkset.ErrDuplicateChunk) {
		t.Fatalf("expected ErrDuplicateChunk, got %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("duplicate insert should not change Len(), got %d", s.Len())
	}
}

func TestSetSortedOrdersBySequence(t *testing.T) {
	s := chunkset.New()
	seqs := []uint64{5, 1, 3, 2, 4}
	for _, seq := range seqs {
		if err := s.Insert(&chunkset.Chunk{Sequence: seq, Size: 1}); err != nil {
			t.Fatalf("insert %d: %v", seq, err)
		}
	}

	sorted := s.Sorted()
	if len(sorted) != len(seqs) {
		t.Fatalf("expected %d chunks, got %d", len(seqs), len(sorted))
	}
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].Sequence >= sorted[i].Sequence {
			t.Fatalf("chunks not in ascending order at index %d: %d >= %d", i, sorted[i-1].Sequence, sorted[i].Sequence)
		}
	}
}

func TestSetSortedAllowsSparseSequences(t *testing.T) {
	s := chunkset.New()
	for _, seq := range []uint64{0, 100, 7} {
		if err := s.Insert(&chunkset.Chunk{Sequence: seq, Size: 1}); err != nil {
			t.Fatalf("insert %d: %v", seq, err)
		}
	}
	sorted := s.Sorted()
	want := []uint64{0, 7, 100}
	for i, c := range sorted {
		if c.Sequence != want[i] {
			t.Fatalf("index %d: expected sequence %d, got %d", i, want[i], c.Sequence)
		}
	}
}
