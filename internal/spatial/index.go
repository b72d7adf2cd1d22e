package spatial

import "math"

const (
	// DefaultCellSize is used when an index is constructed with a
	// non-positive cell size.
	DefaultCellSize = 200.0
)

// CellKey identifies a grid cell.
type CellKey struct {
	X int
	Y int
}

// Rect is an axis-aligned bounding box.
type Rect struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// RectAround returns the bounding box of a circle.
func RectAround(x, y, radius float64) Rect {
	radius = math.Abs(radius)
	return Rect{MinX: x - radius, MinY: y - radius, MaxX: x + radius, MaxY: y + radius}
}

// Union grows r to include other.
func (r Rect) Union(other Rect) Rect {
	return Rect{
		MinX: math.Min(r.MinX, other.MinX),
		MinY: math.Min(r.MinY, other.MinY),
		MaxX: math.Max(r.MaxX, other.MaxX),
		MaxY: math.Max(r.MaxY, other.MaxY),
	}
}

// Expand pads every side of r by margin.
func (r Rect) Expand(margin float64) Rect {
	return Rect{MinX: r.MinX - margin, MinY: r.MinY - margin, MaxX: r.MaxX + margin, MaxY: r.MaxY + margin}
}

// Membership records the cells an entity currently occupies. Embed it in any
// record stored in an Index; the index owns no other entity data.
type Membership struct {
	cells   []CellKey
	indexed bool
}

func (m *Membership) spatialMembership() *Membership { return m }

// Indexed reports whether the owning entity is registered in an index.
func (m *Membership) Indexed() bool { return m.indexed }

// occupied returns a copy of the occupied cell keys.
func (m *Membership) occupied() []CellKey {
	return append([]CellKey(nil), m.cells...)
}

// Entity is anything with a bounding box and an embedded Membership.
type Entity interface {
	Bounds() Rect
	spatialMembership() *Membership
}

// Member constrains index element types to comparable entities so queries can
// de-duplicate results.
type Member interface {
	comparable
	Entity
}

// Index buckets entities into fixed-size square cells. It is not safe for
// concurrent use; callers hold the world lock.
type Index[T Member] struct {
	cellSize    float64
	invCellSize float64
	cells       map[CellKey][]T
	count       int
}

// NewIndex constructs an index with the given cell size.
func NewIndex[T Member](cellSize float64) *Index[T] {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &Index[T]{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cells:       make(map[CellKey][]T),
	}
}


// Len reports the number of registered entities.
func (idx *Index[T]) Len() int {
	return idx.count
}

// Insert registers entity in every cell its bounding box touches. Inserting an
// already registered entity re-registers it.
func (idx *Index[T]) Insert(entity T) {
	m := entity.spatialMembership()
	if m.indexed {
		idx.removeFromCells(entity, m.cells)
		idx.count--
	}
	m.cells = idx.appendCells(m.cells[:0], entity.Bounds())
	for _, cell := range m.cells {
		idx.cells[cell] = append(idx.cells[cell], entity)
	}
	m.indexed = true
	idx.count++
}

// Remove deregisters entity using its cached cell list. It reports false when
// the entity was not registered.
func (idx *Index[T]) Remove(entity T) bool {
	m := entity.spatialMembership()
	if !m.indexed {
		return false
	}
	idx.removeFromCells(entity, m.cells)
	m.cells = m.cells[:0]
	m.indexed = false
	idx.count--
	return true
}

// Update re-registers a moved entity.
func (idx *Index[T]) Update(entity T) {
	idx.Remove(entity)
	idx.Insert(entity)
}

// Query returns every entity registered in a cell covered by rect. The result
// over-approximates; callers run exact distance tests.
func (idx *Index[T]) Query(rect Rect) []T {
	minX, minY := idx.coordToCell(rect.MinX), idx.coordToCell(rect.MinY)
	maxX, maxY := idx.coordToCell(rect.MaxX), idx.coordToCell(rect.MaxY)

	var found []T
	seen := make(map[T]struct{})
	for cy := minY; cy <= maxY; cy++ {
		for cx := minX; cx <= maxX; cx++ {
			for _, entity := range idx.cells[CellKey{X: cx, Y: cy}] {
				if _, dup := seen[entity]; dup {
					continue
				}
				seen[entity] = struct{}{}
				found = append(found, entity)
			}
		}
	}
	return found
}

// QueryCircle is Query over the bounding box of a circle.
func (idx *Index[T]) QueryCircle(x, y, radius float64) []T {
	return idx.Query(RectAround(x, y, radius))
}

// cellsFor returns the cell keys a bounding box covers.
func (idx *Index[T]) cellsFor(rect Rect) []CellKey {
	return idx.appendCells(nil, rect)
}

func (idx *Index[T]) appendCells(dst []CellKey, rect Rect) []CellKey {
	minX, minY := idx.coordToCell(rect.MinX), idx.coordToCell(rect.MinY)
	maxX, maxY := idx.coordToCell(rect.MaxX), idx.coordToCell(rect.MaxY)
	for cy := minY; cy <= maxY; cy++ {
		for cx := minX; cx <= maxX; cx++ {
			dst = append(dst, CellKey{X: cx, Y: cy})
		}
	}
	return dst
}

func (idx *Index[T]) removeFromCells(entity T, cells []CellKey) {
	for _, cell := range cells {
		bucket := idx.cells[cell]
		for i := range bucket {
			if bucket[i] != entity {
				continue
			}
			last := len(bucket) - 1
			bucket[i] = bucket[last]
			var zero T
			bucket[last] = zero
			bucket = bucket[:last]
			break
		}
		if len(bucket) == 0 {
			delete(idx.cells, cell)
		} else {
			idx.cells[cell] = bucket
		}
	}
}

func (idx *Index[T]) coordToCell(value float64) int {
	return int(math.Floor(value * idx.invCellSize))
}
