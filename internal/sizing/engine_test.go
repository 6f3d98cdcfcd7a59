package sizing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cablesizer/internal/catalogue"
	"cablesizer/internal/models"
)

func motor37kW() models.CableSegment {
	return models.CableSegment{
		SerialNo:               1,
		CableNumber:            "C-101",
		FromBus:                "M-101",
		ToBus:                  "MCC-1",
		Voltage:                415,
		LoadKW:                 37,
		Length:                 25,
		PowerFactor:            0.85,
		Efficiency:             0.92,
		NumberOfCores:          catalogue.ThreeCore,
		Material:               models.Copper,
		Insulation:             models.XLPE,
		InstallationMethod:     catalogue.Air,
		StartingMethod:         models.StartDOL,
		LoadType:               models.LoadMotor,
		MaxShortCircuitCurrent: 8,
		ProtectionClearingTime: 1,
	}
}

func generalLoad(kw, length float64) models.CableSegment {
	return models.CableSegment{
		CableNumber:        "C-GEN",
		FromBus:            "DB-1",
		ToBus:              "MDB",
		Voltage:            415,
		LoadKW:             kw,
		Length:             length,
		PowerFactor:        0.9,
		Efficiency:         1,
		NumberOfCores:      catalogue.FourCore,
		InstallationMethod: catalogue.Air,
		LoadType:           models.LoadGeneral,
	}
}

func TestSizeMotor37kW(t *testing.T) {
	e := New(DefaultOptions(), nil)
	res := e.Size(motor37kW(), catalogue.Default())

	assert.InDelta(t, 65.83, res.FullLoadCurrent, 0.1)
	assert.InDelta(t, 66.5, res.FullLoadCurrent, 1.0)
	assert.InDelta(t, 395, res.StartingCurrent, 1)
	assert.InDelta(t, 1.0, res.DeratingFactor, 1e-9)
	assert.InDelta(t, 82.3, res.RequiredCurrent, 0.1)

	assert.Equal(t, 25.0, res.SelectedConductorArea)
	assert.Equal(t, 1, res.NumberOfRuns)
	assert.Equal(t, models.ConstraintAmpacity, res.DrivingConstraint)
	assert.Equal(t, 25.0, res.SizeByAmpacity)
	assert.Equal(t, 6.0, res.SizeByVoltageDropRunning)
	assert.Equal(t, 2.5, res.SizeByVoltageDropStarting)
	assert.Equal(t, 70.0, res.SizeByShortCircuit)

	assert.InDelta(t, 0.54, res.VoltageDropPercent, 0.01)
	assert.Less(t, res.StartingVoltageDropPercent, 15.0)

	sc, ok := res.Check(models.ConstraintShortCircuit)
	require.True(t, ok)
	assert.True(t, sc.Evaluated)
	assert.True(t, sc.Advisory)
	assert.False(t, sc.Passed)
	assert.Contains(t, sc.Detail, "55.9")

	assert.Equal(t, models.StatusWarning, res.Status)
	assert.NotNil(t, res.Anomalies)
	assert.Empty(t, res.Anomalies)
}

func TestSizeShortCircuitBlocking(t *testing.T) {
	opts := DefaultOptions()
	opts.BlockingShortCircuit = true
	res := New(opts, nil).Size(motor37kW(), catalogue.Default())

	assert.Equal(t, 70.0, res.SelectedConductorArea)
	assert.Equal(t, models.ConstraintShortCircuit, res.DrivingConstraint)
	assert.Equal(t, models.StatusApproved, res.Status)
	for _, c := range res.Constraints {
		assert.True(t, c.Passed, c.Name)
	}
}

func TestSizeZeroLoadFloorsToMinimum(t *testing.T) {
	seg := generalLoad(0, 20)
	seg.PowerFactor, seg.Efficiency = 0, 0

	res := New(DefaultOptions(), nil).Size(seg, catalogue.Default())

	assert.Zero(t, res.FullLoadCurrent)
	assert.Equal(t, 2.5, res.SelectedConductorArea)
	assert.Equal(t, models.ConstraintMinimumSize, res.DrivingConstraint)
	assert.Equal(t, models.StatusApproved, res.Status)
	assert.Empty(t, res.Anomalies)
}

func TestSizeSmallLoadFloorsToMinimum(t *testing.T) {
	res := New(DefaultOptions(), nil).Size(generalLoad(0.5, 10), catalogue.Default())

	assert.Equal(t, 2.5, res.SelectedConductorArea)
	assert.Less(t, res.SizeByAmpacity, 2.5)
	assert.Equal(t, models.ConstraintMinimumSize, res.DrivingConstraint)
	assert.Equal(t, models.StatusApproved, res.Status)
	assert.Empty(t, res.Anomalies)
}

func TestSizeCatalogueBelowMinimumSize(t *testing.T) {
	cat, err := catalogue.New("small", map[catalogue.CoreConfig][]catalogue.Entry{
		catalogue.FourCore: {
			{Size: 1, AirRating: 15, Resistance: 18.1, Reactance: 0.11},
			{Size: 1.5, AirRating: 19, Resistance: 12.1, Reactance: 0.105},
		},
	})
	require.NoError(t, err)
	e := New(DefaultOptions(), nil)

	res := e.Size(generalLoad(0.5, 10), cat)
	assert.Equal(t, 1.0, res.SelectedConductorArea)
	assert.Equal(t, models.StatusWarning, res.Status)
	require.Len(t, res.Anomalies, 1)
	assert.Contains(t, res.Anomalies[0], "below the minimum practical size")

	idle := generalLoad(0, 10)
	idle.PowerFactor, idle.Efficiency = 0, 0
	res = e.Size(idle, cat)
	assert.Equal(t, models.StatusApproved, res.Status)
	assert.Empty(t, res.Anomalies)
}

func TestSizeDeterministic(t *testing.T) {
	e := New(DefaultOptions(), nil)
	cat := catalogue.Default()
	a := e.Size(motor37kW(), cat)
	b := e.Size(motor37kW(), cat)
	assert.Equal(t, a, b)
}

func TestSizeMonotonicInLoad(t *testing.T) {
	e := New(DefaultOptions(), nil)
	cat := catalogue.Default()

	prevRuns, prevArea := 0, 0.0
	for kw := 0.0; kw <= 2000; kw += 5 {
		res := e.Size(generalLoad(kw, 120), cat)
		require.NotEqual(t, models.StatusFailed, res.Status, "load %.0f kW", kw)

		if res.NumberOfRuns == prevRuns {
			assert.GreaterOrEqual(t, res.SelectedConductorArea, prevArea, "load %.0f kW", kw)
		} else {
			assert.Greater(t, res.NumberOfRuns, prevRuns, "load %.0f kW", kw)
		}
		prevRuns, prevArea = res.NumberOfRuns, res.SelectedConductorArea
	}
}

func TestSizeSelectionIsSmallestAdequate(t *testing.T) {
	e := New(DefaultOptions(), nil)
	cat := catalogue.Default()

	for kw := 5.0; kw <= 400; kw += 15 {
		seg := generalLoad(kw, 80)
		res := e.Size(seg, cat)
		require.NotEqual(t, models.StatusFailed, res.Status)

		entries := cat.Entries(catalogue.FourCore)
		runs := float64(res.NumberOfRuns)
		selected, ok := cat.Lookup(catalogue.FourCore, res.SelectedConductorArea)
		require.True(t, ok)

		// recomputed independently of the engine's constraint closures
		flc := kw * 1000 / (math.Sqrt(3) * 415 * 0.9)
		required := flc * 1.25 / runs
		assert.GreaterOrEqual(t, selected.AirRating, required)
		drop := VoltageDropPercent(3, flc/runs, 80, selected, 0.9, 415)
		assert.LessOrEqual(t, drop, 5.0)

		if res.DrivingConstraint == models.ConstraintMinimumSize {
			continue
		}
		for i := 1; i < len(entries); i++ {
			if entries[i].Size != selected.Size {
				continue
			}
			smaller := entries[i-1]
			tooSmall := smaller.AirRating < required ||
				VoltageDropPercent(3, flc/runs, 80, smaller, 0.9, 415) > 5
			assert.True(t, tooSmall, "%.0f kW: %g mm² would also do", kw, smaller.Size)
		}
	}
}

func TestSizeSplitsRuns(t *testing.T) {
	seg := generalLoad(600, 60)
	res := New(DefaultOptions(), nil).Size(seg, catalogue.Default())

	// 600 kW ≈ 927 A, 1160 A required, past the 497 A of a single 300 mm²
	assert.Equal(t, 3, res.NumberOfRuns)
	assert.LessOrEqual(t, res.SelectedConductorArea, 300.0)
	assert.Equal(t, models.StatusApproved, res.Status)

	entry, ok := catalogue.Default().Lookup(catalogue.FourCore, res.SelectedConductorArea)
	require.True(t, ok)
	// the area is per run: one conductor of it cannot carry the load alone
	assert.Less(t, entry.AirRating, res.RequiredCurrent)
	assert.GreaterOrEqual(t, entry.AirRating*3, res.RequiredCurrent)
}

func TestSizeRunsForVoltageDrop(t *testing.T) {
	// ampacity fits one run; the length forces more
	seg := generalLoad(150, 900)
	res := New(DefaultOptions(), nil).Size(seg, catalogue.Default())

	require.NotEqual(t, models.StatusFailed, res.Status)
	assert.Greater(t, res.NumberOfRuns, 1)
	assert.LessOrEqual(t, res.VoltageDropPercent, 5.0)
}

func TestSizeUnsatisfiable(t *testing.T) {
	seg := generalLoad(20000, 500)
	res := New(DefaultOptions(), nil).Size(seg, catalogue.Default())

	assert.Equal(t, models.StatusFailed, res.Status)
	assert.Equal(t, models.ConstraintUnsatisfiable, res.DrivingConstraint)
	assert.Zero(t, res.SelectedConductorArea)
	assert.Equal(t, 10, res.NumberOfRuns)
	require.NotEmpty(t, res.Anomalies)
	assert.Contains(t, res.Anomalies[0], "unsatisfiable")
	assert.NotEmpty(t, res.Constraints)
}

func TestSizeCatalogueWithoutCore(t *testing.T) {
	cat, err := catalogue.New("single only", map[catalogue.CoreConfig][]catalogue.Entry{
		catalogue.SingleCore: {{Size: 10, AirRating: 60, Resistance: 2.19}},
	})
	require.NoError(t, err)

	res := New(DefaultOptions(), nil).Size(motor37kW(), cat)
	assert.Equal(t, models.StatusFailed, res.Status)
	assert.Equal(t, models.ConstraintUnsatisfiable, res.DrivingConstraint)
	assert.NotNil(t, res.Constraints)
}

func TestSizeInvalidVoltage(t *testing.T) {
	seg := motor37kW()
	seg.Voltage = 0

	res := New(DefaultOptions(), nil).Size(seg, catalogue.Default())

	assert.Equal(t, models.StatusFailed, res.Status)
	assert.Zero(t, res.FullLoadCurrent)
	assert.Zero(t, res.SelectedConductorArea)
	assert.NotNil(t, res.Constraints)
	require.Len(t, res.Anomalies, 1)
	assert.Contains(t, res.Anomalies[0], "voltage")
}

func TestSizeSinglePhaseTwinCore(t *testing.T) {
	seg := generalLoad(5, 30)
	seg.Voltage = 230
	seg.NumberOfCores = catalogue.TwoCore

	res := New(DefaultOptions(), nil).Size(seg, catalogue.Default())

	assert.InDelta(t, 5000/(230*0.9), res.FullLoadCurrent, 0.01)
	assert.Equal(t, models.StatusApproved, res.Status)
}

func TestSizeFeederIgnoresPowerFactor(t *testing.T) {
	seg := generalLoad(100, 40)
	seg.LoadType = models.LoadFeeder
	seg.PowerFactor, seg.Efficiency = 0.5, 0.5

	res := New(DefaultOptions(), nil).Size(seg, catalogue.Default())
	assert.InDelta(t, 100000/(math.Sqrt(3)*415), res.FullLoadCurrent, 0.01)
}

func TestSizeInputAnomalies(t *testing.T) {
	seg := motor37kW()
	seg.NumberOfCores = 0
	seg.InstallationMethod = 0
	seg.StartingMethod = ""
	seg.PowerFactor = 1.4
	seg.Length = 0

	res := New(DefaultOptions(), nil).Size(seg, catalogue.Default())

	assert.Len(t, res.Anomalies, 5)
	assert.NotEqual(t, models.StatusApproved, res.Status)
	assert.InDelta(t, 0, res.VoltageDropPercent, 1e-9)
	assert.InDelta(t, 6*res.FullLoadCurrent, res.StartingCurrent, 1e-6)
}

func TestSizeStartingMethodImpliesMotor(t *testing.T) {
	seg := motor37kW()
	seg.LoadType = ""
	seg.StartingMethod = models.StartStarDelta

	res := New(DefaultOptions(), nil).Size(seg, catalogue.Default())
	assert.InDelta(t, 2.5*res.FullLoadCurrent, res.StartingCurrent, 1e-6)

	c, ok := res.Check(models.ConstraintVoltageDropStarting)
	require.True(t, ok)
	assert.True(t, c.Evaluated)
}

func TestSizeNonMotorSkipsStarting(t *testing.T) {
	res := New(DefaultOptions(), nil).Size(generalLoad(30, 50), catalogue.Default())

	c, ok := res.Check(models.ConstraintVoltageDropStarting)
	require.True(t, ok)
	assert.False(t, c.Evaluated)
	assert.True(t, c.Passed)
	assert.Zero(t, res.StartingCurrent)
	assert.Len(t, res.Constraints, 4)
}

func TestSizeDeratingRaisesRequirement(t *testing.T) {
	e := New(DefaultOptions(), nil)
	cat := catalogue.Default()

	base := generalLoad(55, 30)
	hot := base
	hot.AmbientTemp = 50
	hot.NumberOfLoadedCircuits = 4

	a := e.Size(base, cat)
	b := e.Size(hot, cat)

	assert.InDelta(t, 0.82*0.65, b.DeratingFactor, 1e-9)
	assert.InDelta(t, a.DeratedCurrent/b.DeratingFactor, b.DeratedCurrent, 1e-6)
	assert.Greater(t, b.SelectedConductorArea, a.SelectedConductorArea)
}

func TestSizeSafetyMarginOption(t *testing.T) {
	opts := DefaultOptions()
	opts.SafetyMargin = 1.0
	res := New(opts, nil).Size(motor37kW(), catalogue.Default())

	assert.InDelta(t, res.DeratedCurrent, res.RequiredCurrent, 1e-9)
	assert.Equal(t, 16.0, res.SizeByAmpacity)
}

func TestDropVolts(t *testing.T) {
	seg := motor37kW()
	res := models.SizingResult{VoltageDropPercent: 2}
	assert.InDelta(t, 8.3, DropVolts(seg, res), 1e-9)

	seg.Voltage = 0
	assert.Zero(t, DropVolts(seg, res))
}
