package topology

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cablesizer/internal/models"
)

func seg(cable, from, to string, load, length float64) models.CableSegment {
	return models.CableSegment{
		CableNumber: cable,
		FromBus:     from,
		ToBus:       to,
		Voltage:     415,
		LoadKW:      load,
		Length:      length,
		PowerFactor: 0.85,
	}
}

func constantDrop(v float64) DropFunc {
	return func(int, models.CableSegment) float64 { return v }
}

func diagKinds(topo models.Topology) []string {
	out := make([]string, 0, len(topo.Diagnostics))
	for _, d := range topo.Diagnostics {
		out = append(out, d.Kind)
	}
	return out
}

// plant is a small radial network with one transformer.
func plant() []models.CableSegment {
	return []models.CableSegment{
		seg("C-01", "MDB", "TRF-1", 0, 40),
		seg("C-02", "MCC-1", "mdb", 120, 60),
		seg("C-03", "M-101", " mcc-1 ", 37, 25),
		seg("C-04", "M-102", "MCC-1", 15, 30),
		seg("C-05", "DB-L1", "MDB", 12, 80),
	}
}

func TestResolveRadialNetwork(t *testing.T) {
	topo := New(Config{}, nil).Resolve(plant(), nil)

	assert.Equal(t, []string{"TRF-1"}, topo.Roots)
	assert.Equal(t, []string{"M-101", "M-102", "DB-L1"}, topo.Leaves)
	assert.Empty(t, topo.Unresolved)
	assert.Empty(t, topo.Diagnostics)
	require.Len(t, topo.Paths, 3)

	p := topo.Paths[0]
	assert.Equal(t, "M-101", p.StartEquipment)
	assert.Equal(t, "TRF-1", p.EndSource)
	assert.Equal(t, []int{2, 1, 0}, p.SegmentIndexes)
	assert.Equal(t, 125.0, p.TotalDistance)
	assert.Equal(t, 37.0, p.CumulativeLoad)
	assert.Equal(t, 415.0, p.TotalVoltage)
	assert.Equal(t, models.DropSourcePreview, p.DropSource)

	assert.Equal(t, []int{3, 1, 0}, topo.Paths[1].SegmentIndexes)
	assert.Equal(t, []int{4, 0}, topo.Paths[2].SegmentIndexes)
}

func TestResolvePathsChainLeafToRoot(t *testing.T) {
	topo := New(Config{}, nil).Resolve(plant(), nil)

	for _, p := range topo.Paths {
		require.NotEmpty(t, p.Cables)
		assert.Equal(t, models.CanonicalBus(p.StartEquipment), models.CanonicalBus(p.Cables[0].FromBus))
		assert.Equal(t, models.CanonicalBus(p.EndSource), models.CanonicalBus(p.Cables[len(p.Cables)-1].ToBus))
		for i := 1; i < len(p.Cables); i++ {
			assert.Equal(t, models.CanonicalBus(p.Cables[i-1].ToBus), models.CanonicalBus(p.Cables[i].FromBus))
		}
	}
}

func TestResolveSingleSegmentPath(t *testing.T) {
	topo := New(Config{}, nil).Resolve([]models.CableSegment{seg("C-1", "DB-1", "TRF-1", 10, 20)}, nil)

	require.Len(t, topo.Paths, 1)
	assert.Equal(t, []int{0}, topo.Paths[0].SegmentIndexes)
	assert.Equal(t, 20.0, topo.Paths[0].TotalDistance)
}

func TestResolveMultipleRoots(t *testing.T) {
	segments := []models.CableSegment{
		seg("C-1", "M-1", "TRF-1", 10, 20),
		seg("C-2", "M-2", "TRF-2", 10, 20),
	}
	topo := New(Config{}, nil).Resolve(segments, nil)

	assert.Equal(t, []string{"TRF-1", "TRF-2"}, topo.Roots)
	require.Len(t, topo.Paths, 2)
	assert.Equal(t, "TRF-1", topo.Paths[0].EndSource)
	assert.Equal(t, "TRF-2", topo.Paths[1].EndSource)
	assert.Empty(t, topo.Diagnostics)
}

func TestResolveUnmarkedRoot(t *testing.T) {
	segments := []models.CableSegment{
		seg("C-1", "M-1", "TRF-1", 10, 20),
		seg("C-2", "M-2", "PANEL-X", 10, 20),
	}
	topo := New(Config{}, nil).Resolve(segments, nil)

	assert.Len(t, topo.Paths, 2)
	require.Len(t, topo.Diagnostics, 1)
	assert.Equal(t, models.DiagUnmarkedRoot, topo.Diagnostics[0].Kind)
	assert.Equal(t, "PANEL-X", topo.Diagnostics[0].Bus)
}

func TestResolveStructuralRootWithoutMarker(t *testing.T) {
	topo := New(Config{}, nil).Resolve([]models.CableSegment{seg("C-1", "M-1", "SWBD", 10, 20)}, nil)

	assert.Equal(t, []string{"SWBD"}, topo.Roots)
	assert.Len(t, topo.Paths, 1)
	assert.Empty(t, topo.Diagnostics)
}

func TestResolveNoRoot(t *testing.T) {
	segments := []models.CableSegment{
		seg("C-1", "A", "B", 10, 20),
		seg("C-2", "B", "A", 10, 20),
	}
	topo := New(Config{}, nil).Resolve(segments, nil)

	assert.Empty(t, topo.Roots)
	assert.Empty(t, topo.Paths)
	assert.Equal(t, []string{models.DiagNoRoot}, diagKinds(topo))
}

func TestResolveCycle(t *testing.T) {
	segments := []models.CableSegment{
		seg("C-1", "A", "B", 10, 20),
		seg("C-2", "B", "C", 10, 20),
		seg("C-3", "C", "B", 10, 20),
		seg("C-4", "X", "TRF-1", 10, 20),
	}
	topo := New(Config{}, nil).Resolve(segments, nil)

	require.Len(t, topo.Paths, 1)
	assert.Equal(t, "X", topo.Paths[0].StartEquipment)

	require.Len(t, topo.Unresolved, 1)
	u := topo.Unresolved[0]
	assert.Equal(t, "A", u.Leaf)
	assert.Equal(t, models.DiagCycle, u.Reason)
	assert.Equal(t, "B", u.Bus)
	assert.Equal(t, []int{0, 1}, u.SegmentIndexes)
	assert.Contains(t, diagKinds(topo), models.DiagCycle)
}

func TestResolveDeadEnd(t *testing.T) {
	segments := []models.CableSegment{
		seg("C-1", "M-1", "DB-1", 10, 20),
		seg("C-2", "DB-1", "", 10, 20),
		seg("C-3", "DB-2", "TRF-1", 10, 20),
	}
	topo := New(Config{}, nil).Resolve(segments, nil)

	require.Len(t, topo.Paths, 1)
	assert.Equal(t, "DB-2", topo.Paths[0].StartEquipment)

	require.Len(t, topo.Unresolved, 1)
	assert.Equal(t, models.DiagDeadEnd, topo.Unresolved[0].Reason)
	assert.Equal(t, "DB-1", topo.Unresolved[0].Bus)
	assert.Equal(t, []int{0}, topo.Unresolved[0].SegmentIndexes)
	assert.Equal(t, []string{models.DiagBlankBus, models.DiagDeadEnd}, diagKinds(topo))
}

func TestResolveMultipleParentsFollowsFirst(t *testing.T) {
	segments := []models.CableSegment{
		seg("C-1", "M-1", "DB-1", 10, 20),
		seg("C-2", "M-1", "DB-2", 10, 20),
		seg("C-3", "DB-1", "TRF-1", 10, 20),
		seg("C-4", "DB-2", "TRF-1", 10, 20),
	}
	topo := New(Config{}, nil).Resolve(segments, nil)

	require.Len(t, topo.Paths, 1)
	assert.Equal(t, []int{0, 2}, topo.Paths[0].SegmentIndexes)
	assert.Equal(t, []string{models.DiagMultipleParents}, diagKinds(topo))
}

func TestResolveIgnoredParentIsNotARoot(t *testing.T) {
	segments := []models.CableSegment{
		seg("C-1", "M-1", "DB-1", 10, 20),
		seg("C-2", "M-1", "ALT-1", 10, 20),
		seg("C-3", "DB-1", "TRF-1", 10, 20),
	}
	topo := New(Config{}, nil).Resolve(segments, nil)

	assert.Equal(t, []string{"TRF-1"}, topo.Roots)
	assert.Equal(t, []string{"M-1"}, topo.Leaves)
	require.Len(t, topo.Paths, 1)
	assert.Equal(t, "TRF-1", topo.Paths[0].EndSource)
	assert.Equal(t, []string{models.DiagMultipleParents}, diagKinds(topo))
}

// radialTree builds a random forest: buses 0..roots-1 are supplies and every
// later bus is fed from an earlier one picked by parent. Segments are shuffled.
func radialTree(rng *rand.Rand, roots, buses int, parent func(rng *rand.Rand, i int) int) ([]models.CableSegment, []string, []int) {
	names := make([]string, buses)
	depth := make([]int, buses)
	children := make([]int, buses)
	for i := range names {
		if i < roots {
			names[i] = fmt.Sprintf("TRF-%d", i+1)
		} else {
			names[i] = fmt.Sprintf("B-%03d", i)
		}
	}

	var segments []models.CableSegment
	for i := roots; i < buses; i++ {
		up := parent(rng, i)
		children[up]++
		depth[i] = depth[up] + 1
		segments = append(segments, seg(fmt.Sprintf("C-%03d", i), names[i], names[up], 1, 10))
	}
	rng.Shuffle(len(segments), func(i, j int) { segments[i], segments[j] = segments[j], segments[i] })

	var leaves []string
	var leafDepth []int
	for i := roots; i < buses; i++ {
		if children[i] == 0 {
			leaves = append(leaves, names[i])
			leafDepth = append(leafDepth, depth[i])
		}
	}
	return segments, leaves, leafDepth
}

func TestResolveGeneratedTrees(t *testing.T) {
	anyEarlier := func(rng *rand.Rand, i int) int { return rng.Intn(i) }
	tests := []struct {
		name   string
		roots  int
		buses  int
		parent func(rng *rand.Rand, i int) int
	}{
		{"chain", 1, 40, func(_ *rand.Rand, i int) int { return i - 1 }},
		{"star", 1, 30, func(*rand.Rand, int) int { return 0 }},
		{"random", 1, 60, anyEarlier},
		{"bushy", 1, 80, func(rng *rand.Rand, i int) int { return rng.Intn(min(i, 4)) }},
		{"two supplies", 2, 50, anyEarlier},
	}
	for seed, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(int64(seed)))
			segments, leaves, depths := radialTree(rng, tt.roots, tt.buses, tt.parent)

			topo := New(Config{}, nil).Resolve(segments, nil)

			assert.Empty(t, topo.Unresolved)
			assert.Empty(t, topo.Diagnostics)
			assert.ElementsMatch(t, leaves, topo.Leaves)
			require.Len(t, topo.Paths, len(leaves))

			want := make(map[string]int, len(leaves))
			for i, l := range leaves {
				want[l] = depths[i]
			}
			for _, p := range topo.Paths {
				seen := map[string]bool{}
				for _, c := range p.Cables {
					bus := models.CanonicalBus(c.FromBus)
					assert.False(t, seen[bus], "%s visits %s twice", p.StartEquipment, bus)
					seen[bus] = true
				}
				assert.False(t, seen[models.CanonicalBus(p.EndSource)])
				assert.Contains(t, p.EndSource, "TRF-")
				assert.Len(t, p.SegmentIndexes, want[p.StartEquipment], p.StartEquipment)
			}
		})
	}
}

func TestResolveIterationCap(t *testing.T) {
	var segments []models.CableSegment
	for i := 0; i < 6; i++ {
		segments = append(segments, seg(fmt.Sprintf("C-%d", i), fmt.Sprintf("B%d", i), fmt.Sprintf("B%d", i+1), 1, 1))
	}
	segments = append(segments, seg("C-6", "B6", "TRF-1", 1, 1))

	topo := New(Config{IterationCap: 3}, nil).Resolve(segments, nil)
	assert.Empty(t, topo.Paths)
	require.Len(t, topo.Unresolved, 1)
	assert.Equal(t, models.DiagIterationCap, topo.Unresolved[0].Reason)
	assert.Len(t, topo.Unresolved[0].SegmentIndexes, 3)

	topo = New(Config{}, nil).Resolve(segments, nil)
	require.Len(t, topo.Paths, 1)
	assert.Len(t, topo.Paths[0].SegmentIndexes, 7)
}

func TestResolveDropBands(t *testing.T) {
	tests := []struct {
		perSegment float64
		band       string
		valid      bool
	}{
		{2, models.DropNormal, true},     // 6 V over 415 V ≈ 1.4 %
		{5, models.DropFlagged, true},    // 15 V ≈ 3.6 %
		{6.9, models.DropFlagged, true},  // 20.7 V ≈ 4.99 %
		{8, models.DropExceeded, false},  // 24 V ≈ 5.8 %
		{80, models.DropExceeded, false}, // 240 V ≈ 58 %
	}
	for _, tt := range tests {
		t.Run(tt.band, func(t *testing.T) {
			topo := New(Config{}, nil).Resolve(plant(), constantDrop(tt.perSegment))
			p := topo.Paths[0]
			assert.Equal(t, models.DropSourceSegment, p.DropSource)
			assert.InDelta(t, 3*tt.perSegment, p.VoltageDrop, 1e-9)
			assert.InDelta(t, 3*tt.perSegment/415*100, p.VoltageDropPercent, 1e-9)
			assert.Equal(t, tt.band, p.DropBand)
			assert.Equal(t, tt.valid, p.IsValid)
		})
	}
}

func TestResolveExcessiveDrop(t *testing.T) {
	topo := New(Config{}, nil).Resolve(plant(), constantDrop(80))
	assert.Contains(t, diagKinds(topo), models.DiagExcessiveDrop)
}

func TestResolveEmpty(t *testing.T) {
	topo := New(Config{}, nil).Resolve(nil, nil)
	assert.NotNil(t, topo.Paths)
	assert.NotNil(t, topo.Unresolved)
	assert.NotNil(t, topo.Diagnostics)
	assert.Empty(t, topo.Diagnostics)
}

func TestResolveDeterministic(t *testing.T) {
	r := New(Config{}, nil)
	assert.Equal(t, r.Resolve(plant(), nil), r.Resolve(plant(), nil))
}

func TestPreviewDrop(t *testing.T) {
	drop := PreviewDrop(0.1)
	s := seg("C-1", "M-1", "TRF-1", 37, 100)

	current := 37000 / (math.Sqrt(3) * 415 * 0.85)
	assert.InDelta(t, math.Sqrt(3)*current*0.1*0.1, drop(0, s), 1e-9)

	s.LoadKW = 0
	assert.Zero(t, drop(0, s))
}
