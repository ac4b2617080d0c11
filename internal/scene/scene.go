package scene

import (
	"encoding/json"

	"github.com/doodlekit/doodlekit/backend-go/internal/geom"
	"github.com/doodlekit/doodlekit/backend-go/internal/typeid"
)

// DuplicateOffset is the position delta applied to duplicated shapes.
const DuplicateOffset = 20.0

// Scene is an ordered collection of shapes. Slice order is draw order:
// later entries draw on top and win hit-testing ties. There is no z-order
// editing beyond insertion order.
//
// A Scene is owned by exactly one editor session and is never mutated by
// the renderer, so no locking happens here.
type Scene struct {
	shapes []Shape
}

// New creates an empty scene.
func New() *Scene {
	return &Scene{}
}

// Len returns the number of shapes.
func (s *Scene) Len() int {
	return len(s.shapes)
}

// Shapes returns the shapes in draw order. Callers must not mutate the
// returned slice; use Update for edits.
func (s *Scene) Shapes() []Shape {
	return s.shapes
}

// Add appends a shape on top of the draw order.
func (s *Scene) Add(shape Shape) {
	s.shapes = append(s.shapes, shape)
}

// Get returns a copy of the shape with the given id.
func (s *Scene) Get(id string) (Shape, bool) {
	for i := range s.shapes {
		if s.shapes[i].ID == id {
			return s.shapes[i].Clone(), true
		}
	}
	return Shape{}, false
}

// Update applies fn to the shape with the given id, in place. A missing id
// is a no-op, not a fault: the shape may have been deleted mid-gesture.
func (s *Scene) Update(id string, fn func(*Shape)) bool {
	for i := range s.shapes {
		if s.shapes[i].ID == id {
			fn(&s.shapes[i])
			return true
		}
	}
	return false
}

// Remove deletes the shape with the given id. Missing ids are a no-op.
func (s *Scene) Remove(id string) bool {
	for i := range s.shapes {
		if s.shapes[i].ID == id {
			s.shapes = append(s.shapes[:i], s.shapes[i+1:]...)
			return true
		}
	}
	return false
}

// Duplicate copies the shape with the given id, offsets the copy by a fixed
// (20,20) delta, assigns a fresh id, and appends it on top. Returns the new
// id, or "" if the source id is gone.
func (s *Scene) Duplicate(id string) (string, bool) {
	src, ok := s.Get(id)
	if !ok {
		return "", false
	}

	dup := src.Clone()
	dup.ID = typeid.NewShapeID()
	dup.TranslateBy(DuplicateOffset, DuplicateOffset)
	s.Add(dup)
	return dup.ID, true
}

// FindShapeAt returns the id of the topmost shape whose hit-test succeeds at
// the given world point. Shapes are tested in reverse insertion order so the
// most recently drawn shape wins ties. This defines the selection and click
// semantics for the whole editor.
func (s *Scene) FindShapeAt(p geom.Point) (string, bool) {
	for i := len(s.shapes) - 1; i >= 0; i-- {
		if s.shapes[i].HitTest(p) {
			return s.shapes[i].ID, true
		}
	}
	return "", false
}

// Bounds returns the tight bounding box over all shapes, or the zero Rect
// for an empty scene. Accumulates with Extend, not Union: a horizontal or
// vertical line and a collinear freehand stroke have zero-area bounds that
// must still widen the box.
func (s *Scene) Bounds() geom.Rect {
	if len(s.shapes) == 0 {
		return geom.Rect{}
	}
	out := s.shapes[0].Bounds()
	for i := range s.shapes[1:] {
		out = out.Extend(s.shapes[i+1].Bounds())
	}
	return out
}

// Clone returns a deep copy of the scene, safe to hand to a saver running
// outside the event loop.
func (s *Scene) Clone() *Scene {
	out := &Scene{shapes: make([]Shape, len(s.shapes))}
	for i := range s.shapes {
		out.shapes[i] = s.shapes[i].Clone()
	}
	return out
}

// MarshalJSON encodes the scene as its bare shape array. The format is a
// plain structural encoding and is not versioned.
func (s *Scene) MarshalJSON() ([]byte, error) {
	if s.shapes == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.shapes)
}

// UnmarshalJSON restores a scene from its shape array encoding.
func (s *Scene) UnmarshalJSON(data []byte) error {
	var shapes []Shape
	if err := json.Unmarshal(data, &shapes); err != nil {
		return err
	}
	s.shapes = shapes
	return nil
}
