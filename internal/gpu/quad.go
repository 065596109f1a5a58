package gpu

// CellQuad is the per-instance vertex data: two triangles covering
// [-0.8, 0.8]² in cell-local space, as float32x2 positions.
var CellQuad = []float32{
	-0.8, -0.8,
	0.8, -0.8,
	0.8, 0.8,

	-0.8, -0.8,
	0.8, 0.8,
	-0.8, 0.8,
}

const (
	// CellQuadVertexCount is len(CellQuad)/2.
	CellQuadVertexCount = 6
	// CellQuadStride is the byte stride of one float32x2 vertex.
	CellQuadStride = 8
)

// QuadExtent returns the largest absolute coordinate in a float32x2 vertex
// list, i.e. the half-size of the quad in cell-local space.
func QuadExtent(verts []float32) float32 {
	var m float32
	for _, v := range verts {
		if v < 0 {
			v = -v
		}
		if v > m {
			m = v
		}
	}
	return m
}
