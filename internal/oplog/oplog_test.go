package oplog

import (
	"strconv"
	"sync"
	"testing"

	"github.com/drawbridge-app/drawbridge/internal/canvas"
)

func makeOp(id string) canvas.Operation {
	return canvas.Operation{
		ID:     id,
		UserID: "user-1",
		Type:   canvas.OpStroke,
		Points: []canvas.Point{{X: 1, Y: 2}, {X: 3, Y: 4}},
		Color:  "#3B82F6",
		Width:  3,
	}
}

func TestAppendAndSnapshot(t *testing.T) {
	l := New()

	l.Append(makeOp("a"))
	l.Append(makeOp("b"))
	l.Append(makeOp("c"))

	ops := l.Snapshot()
	if len(ops) != 3 {
		t.Fatalf("Expected 3 operations, got %d", len(ops))
	}
	for i, want := range []string{"a", "b", "c"} {
		if ops[i].ID != want {
			t.Errorf("Operation %d: expected id %q, got %q", i, want, ops[i].ID)
		}
	}
}

func TestRemovePreservesOrder(t *testing.T) {
	l := New()
	for _, id := range []string{"a", "b", "c", "d"} {
		l.Append(makeOp(id))
	}

	l.Remove("b")

	ops := l.Snapshot()
	if len(ops) != 3 {
		t.Fatalf("Expected 3 operations after remove, got %d", len(ops))
	}
	for i, want := range []string{"a", "c", "d"} {
		if ops[i].ID != want {
			t.Errorf("Operation %d: expected id %q, got %q", i, want, ops[i].ID)
		}
	}
	for _, op := range ops {
		if op.ID == "b" {
			t.Error("Removed operation should not appear in snapshot")
		}
	}
}

func TestRemoveAbsentIsNoOp(t *testing.T) {
	l := New()
	l.Append(makeOp("a"))

	l.Remove("missing")
	l.Remove("missing")

	if l.Len() != 1 {
		t.Errorf("Expected 1 operation, got %d", l.Len())
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	l := New()
	l.Append(makeOp("a"))
	l.Append(makeOp("b"))

	ops := l.Snapshot()
	ops[0].ID = "mutated"

	if l.Snapshot()[0].ID != "a" {
		t.Error("Mutating a snapshot should not affect the log")
	}
}

func TestClear(t *testing.T) {
	l := New()
	l.Append(makeOp("a"))
	l.Append(makeOp("b"))

	l.Clear()

	if l.Len() != 0 {
		t.Errorf("Expected empty log after clear, got %d", l.Len())
	}
	if len(l.Snapshot()) != 0 {
		t.Error("Snapshot after clear should be empty")
	}
}

func TestConcurrentAppends(t *testing.T) {
	l := New()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l.Append(makeOp(strconv.Itoa(i)))
		}(i)
	}
	wg.Wait()

	if l.Len() != 100 {
		t.Errorf("Expected 100 operations, got %d", l.Len())
	}
}
