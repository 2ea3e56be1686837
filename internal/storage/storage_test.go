package storage

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/eugenenazirov/treemap/internal/treemap"
)

func TestNewMemoryStorageReturnsDefaultBounds(t *testing.T) {
	t.Parallel()

	store := NewMemoryStorage()

	got, err := store.GetBounds()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := DefaultBounds(); got != want {
		t.Fatalf("expected default bounds %+v, got %+v", want, got)
	}
}

func TestSetBoundsUpdatesState(t *testing.T) {
	t.Parallel()

	store := NewMemoryStorage()
	want := treemap.Rect{X: 10, Y: 20, W: 1024, H: 768}
	if err := store.SetBounds(want); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := store.GetBounds()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestSetBoundsAcceptsZeroArea(t *testing.T) {
	t.Parallel()

	store := NewMemoryStorage()
	if err := store.SetBounds(treemap.Rect{W: 0, H: 10}); err != nil {
		t.Fatalf("expected zero width to be accepted, got %v", err)
	}
}

func TestSetBoundsRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	testCases := []treemap.Rect{
		{W: -1, H: 10},
		{W: 10, H: -0.5},
		{X: math.NaN(), W: 1, H: 1},
		{W: math.Inf(1), H: 1},
		{Y: math.Inf(-1), W: 1, H: 1},
	}

	for idx, tc := range testCases {
		tc := tc
		t.Run(fmt.Sprintf("case_%d", idx), func(t *testing.T) {
			store := NewMemoryStorage()
			if err := store.SetBounds(tc); !errors.Is(err, ErrInvalidBounds) {
				t.Fatalf("expected ErrInvalidBounds for %+v, got %v", tc, err)
			}
			got, _ := store.GetBounds()
			if got != DefaultBounds() {
				t.Fatalf("rejected bounds must not be stored, got %+v", got)
			}
		})
	}
}

func TestMemoryStorageConcurrentAccess(t *testing.T) {
	store := NewMemoryStorage()
	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(2)

		go func(offset int) {
			defer wg.Done()
			bounds := treemap.Rect{W: 100 + float64(offset), H: 50}
			if err := store.SetBounds(bounds); err != nil {
				t.Errorf("SetBounds failed: %v", err)
			}
		}(i)

		go func() {
			defer wg.Done()
			if _, err := store.GetBounds(); err != nil {
				t.Errorf("GetBounds failed: %v", err)
			}
		}()
	}

	wg.Wait()

	if _, err := store.GetBounds(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
