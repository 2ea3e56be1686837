package storage

import (
	"errors"
	"math"
	"sync"

	"github.com/eugenenazirov/treemap/internal/treemap"
)

var (
	// ErrInvalidBounds indicates the provided rectangle violates validation rules.
	ErrInvalidBounds = errors.New("bounds must be finite with non-negative width and height")
)

var defaultBounds = treemap.Rect{X: 0, Y: 0, W: 800, H: 600}

// Storage provides access to the default target rectangle used for layouts
// that do not specify their own bounds.
type Storage interface {
	GetBounds() (treemap.Rect, error)
	SetBounds(bounds treemap.Rect) error
}

// MemoryStorage keeps the default bounds in-memory and guards access with a RWMutex.
type MemoryStorage struct {
	mu     sync.RWMutex
	bounds treemap.Rect
}

// NewMemoryStorage initialises storage with the default bounds.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		bounds: defaultBounds,
	}
}

// DefaultBounds returns the built-in default target rectangle.
func DefaultBounds() treemap.Rect {
	return defaultBounds
}

// GetBounds returns the currently configured default bounds.
func (s *MemoryStorage) GetBounds() (treemap.Rect, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.bounds, nil
}

// SetBounds validates and stores the provided bounds.
func (s *MemoryStorage) SetBounds(bounds treemap.Rect) error {
	if err := ValidateBounds(bounds); err != nil {
		return err
	}

	s.mu.Lock()
	s.bounds = bounds
	s.mu.Unlock()

	return nil
}

// ValidateBounds reports ErrInvalidBounds when r has a non-finite coordinate
// or a negative size.
func ValidateBounds(r treemap.Rect) error {
	for _, v := range []float64{r.X, r.Y, r.W, r.H} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrInvalidBounds
		}
	}
	if r.W < 0 || r.H < 0 {
		return ErrInvalidBounds
	}
	return nil
}
