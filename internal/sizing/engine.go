package sizing

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"cablesizer/internal/catalogue"
	"cablesizer/internal/models"
)

// Engine sizes one segment at a time against a catalogue passed on every
// call. It holds no catalogue state and is safe for concurrent use.
type Engine struct {
	opts Options
	logr *zap.Logger
}

func New(opts Options, logr *zap.Logger) *Engine {
	if logr == nil {
		logr = zap.NewNop()
	}
	return &Engine{opts: opts.withDefaults(), logr: logr}
}

// Options returns the effective options, defaults applied.
func (e *Engine) Options() Options {
	return e.opts
}

// inputs is a segment with defaults applied and input anomalies collected.
type inputs struct {
	seg          models.CableSegment
	core         catalogue.CoreConfig
	method       catalogue.Method
	phases       int
	load         float64
	lengthM      float64
	pf, eff      float64
	feeder       bool
	motor        bool
	starting     models.StartingMethod
	runningLimit float64
	k            float64
	anomalies    []string
}

func (in *inputs) note(format string, args ...any) {
	in.anomalies = append(in.anomalies, fmt.Sprintf(format, args...))
}

func (in *inputs) drop(current float64, e catalogue.Entry, pf float64) float64 {
	return VoltageDropPercent(in.phases, current, in.lengthM, e, pf, in.seg.Voltage)
}

func (e *Engine) prepare(seg models.CableSegment) inputs {
	in := inputs{
		seg:     seg,
		core:    seg.NumberOfCores,
		method:  seg.InstallationMethod,
		load:    seg.LoadKW,
		lengthM: seg.Length,
		pf:      seg.PowerFactor,
		eff:     seg.Efficiency,
		feeder:  seg.LoadType == models.LoadFeeder,
	}

	if !in.core.Valid() {
		in.core = catalogue.ThreeCore
		in.note("number of cores not recognised, assumed %s", in.core)
	}
	if !in.method.Valid() {
		in.method = catalogue.Air
		in.note("installation method not recognised, assumed %s", in.method)
	}
	in.phases = phasesOf(in.core)

	if in.load < 0 {
		in.note("negative load %.2f kW treated as zero", in.load)
		in.load = 0
	}
	switch {
	case in.lengthM < 0:
		in.note("negative length %.1f m treated as zero", in.lengthM)
		in.lengthM = 0
	case in.lengthM == 0:
		in.note("zero cable length")
	}

	// pass-through feeders carry no load of their own; blank pf/efficiency is expected there
	if in.pf <= 0 || in.pf > 1 {
		if in.load > 0 {
			in.note("power factor %.2f outside (0,1], using %.2f", in.pf, e.opts.DefaultPowerFactor)
		}
		in.pf = e.opts.DefaultPowerFactor
	}
	if in.eff <= 0 || in.eff > 1 {
		if in.load > 0 && !in.feeder {
			in.note("efficiency %.2f outside (0,1], using %.2f", in.eff, e.opts.DefaultEfficiency)
		}
		in.eff = e.opts.DefaultEfficiency
	}

	in.motor = seg.IsMotor()
	in.starting = seg.StartingMethod
	if in.motor && !in.starting.Motor() {
		in.starting = models.StartDOL
		in.note("motor load without starting method, assumed %s", in.starting)
	}

	in.runningLimit = e.opts.RunningLimitGeneral
	if in.motor {
		in.runningLimit = e.opts.RunningLimitMotor
	}
	in.k = kFactor(seg.Material, seg.Insulation)
	return in
}

// Size computes currents, derating and the four constraints, and selects the
// smallest practical conductor and run count meeting every blocking one.
// It never panics on bad data: problems are reported in Status and Anomalies.
func (e *Engine) Size(seg models.CableSegment, cat *catalogue.Catalogue) models.SizingResult {
	in := e.prepare(seg)
	res := models.SizingResult{
		SerialNo:    seg.SerialNo,
		CableNumber: seg.CableNumber,
	}

	if seg.Voltage <= 0 {
		in.note("voltage %.0f V is not positive, current cannot be computed", seg.Voltage)
		return e.failed(res, in, "", nil)
	}

	res.FullLoadCurrent = FullLoadCurrent(in.load, seg.Voltage, in.pf, in.eff, in.phases, in.feeder)
	if in.motor {
		res.StartingCurrent = StartingCurrent(res.FullLoadCurrent, in.starting)
	}

	derating, notes := Derate(seg, in.method)
	in.anomalies = append(in.anomalies, notes...)
	res.Derating = derating
	res.DeratingFactor = derating.Total
	res.DeratedCurrent = res.FullLoadCurrent / derating.Total
	res.RequiredCurrent = res.DeratedCurrent * e.opts.SafetyMargin

	var all []catalogue.Entry
	if cat != nil {
		all = cat.Entries(in.core)
	}
	if len(all) == 0 {
		in.note("catalogue has no %s conductors", in.core)
		return e.failed(res, in, models.ConstraintUnsatisfiable, nil)
	}
	practical := practicalRange(all, e.opts.MaxPracticalSize)
	largest := practical[len(practical)-1]
	capacity := largest.Rating(in.method)
	if capacity <= 0 {
		in.note("catalogue has no %s rating for %s conductors", in.method, in.core)
		return e.failed(res, in, models.ConstraintUnsatisfiable, nil)
	}

	runs := 1
	if res.RequiredCurrent > capacity {
		runs = int(math.Ceil(res.RequiredCurrent / capacity))
	}
	for ; runs <= e.opts.MaxRuns; runs++ {
		cs := e.constraints(&in, res, runs)
		if scanAll(cs, practical, all) {
			return e.finish(res, &in, cs, practical, runs)
		}
	}

	// catalogue gap: report what could not be met at the run cap
	cs := e.constraints(&in, res, e.opts.MaxRuns)
	scanAll(cs, practical, all)
	var failing []string
	for _, c := range cs {
		if !c.advisory && c.err != nil {
			failing = append(failing, c.name)
		}
	}
	in.note("%s %v with %d runs", strings.Join(failing, ", "), ErrUnsatisfiable, e.opts.MaxRuns)

	res.NumberOfRuns = e.opts.MaxRuns
	res.VoltageDropPercent = in.drop(res.DeratedCurrent/float64(e.opts.MaxRuns), largest, in.pf)
	if res.VoltageDropPercent > e.opts.ExcessiveDropPercent {
		in.note("voltage drop %.1f%% even on %d runs of %gmm²", res.VoltageDropPercent, e.opts.MaxRuns, largest.Size)
	}
	setSizes(&res, cs)
	return e.failed(res, in, models.ConstraintUnsatisfiable, checks(cs, catalogue.Entry{}, false))
}

// constraints builds the rules for a given run count. Currents are shared
// equally between runs.
func (e *Engine) constraints(in *inputs, res models.SizingResult, runs int) []*constraint {
	r := float64(runs)
	cs := make([]*constraint, 0, 4)

	required := res.RequiredCurrent / r
	cs = append(cs, &constraint{
		name:  models.ConstraintAmpacity,
		holds: func(c catalogue.Entry) bool { return c.Rating(in.method) >= required },
	})

	running := res.DeratedCurrent / r
	cs = append(cs, &constraint{
		name:  models.ConstraintVoltageDropRunning,
		holds: func(c catalogue.Entry) bool { return in.drop(running, c, in.pf) <= in.runningLimit },
	})

	if in.motor {
		starting := res.StartingCurrent / r
		pf := startingPowerFactor(in.starting)
		cs = append(cs, &constraint{
			name:  models.ConstraintVoltageDropStarting,
			holds: func(c catalogue.Entry) bool { return in.drop(starting, c, pf) <= e.opts.StartingLimit },
		})
	}

	isc, t := in.seg.MaxShortCircuitCurrent, in.seg.ProtectionClearingTime
	if isc > 0 && t > 0 {
		area := ShortCircuitArea(isc, t, in.k)
		perRun := area / r
		cs = append(cs, &constraint{
			name:     models.ConstraintShortCircuit,
			advisory: !e.opts.BlockingShortCircuit,
			holds:    func(c catalogue.Entry) bool { return c.Size >= perRun },
			detail:   fmt.Sprintf("%.1f mm² needed for %.1f kA over %.2f s", area, isc, t),
		})
	}
	return cs
}

// scanAll finds each constraint's smallest size. Advisory constraints may
// look past the practical range. It reports whether every blocking
// constraint is satisfiable.
func scanAll(cs []*constraint, practical, all []catalogue.Entry) bool {
	ok := true
	for _, c := range cs {
		if c.advisory {
			c.scan(all)
			continue
		}
		c.scan(practical)
		if c.err != nil {
			ok = false
		}
	}
	return ok
}

func (e *Engine) finish(res models.SizingResult, in *inputs, cs []*constraint, practical []catalogue.Entry, runs int) models.SizingResult {
	var selected float64
	var driving string
	for _, c := range cs {
		if c.advisory {
			continue
		}
		if c.size > selected {
			selected, driving = c.size, c.name
		}
	}

	// A selection below the minimum size is raised to the smallest catalogue
	// size at or above it, recorded as the minimum_size driving constraint.
	// Only a catalogue with nothing that large leaves a loaded segment below
	// the minimum, which is an anomaly.
	floor, err := smallest(practical, func(c catalogue.Entry) bool { return c.Size >= e.opts.MinConductorSize })
	switch {
	case err == nil && selected < floor.Size:
		selected, driving = floor.Size, models.ConstraintMinimumSize
	case err != nil && in.load > 0:
		in.note("selected %gmm² is below the minimum practical size of %gmm²", selected, e.opts.MinConductorSize)
	}

	entry := entryOf(practical, selected)
	r := float64(runs)

	setSizes(&res, cs)
	res.SelectedConductorArea = selected
	res.NumberOfRuns = runs
	res.DrivingConstraint = driving
	res.VoltageDropPercent = in.drop(res.DeratedCurrent/r, entry, in.pf)
	if in.motor {
		res.StartingVoltageDropPercent = in.drop(res.StartingCurrent/r, entry, startingPowerFactor(in.starting))
	}
	res.Constraints = checks(cs, entry, true)

	res.Status = models.StatusApproved
	for _, ch := range res.Constraints {
		if !ch.Evaluated || ch.Passed {
			continue
		}
		if ch.Advisory {
			if res.Status == models.StatusApproved {
				res.Status = models.StatusWarning
			}
			continue
		}
		res.Status = models.StatusFailed
	}
	if res.Status == models.StatusApproved && len(in.anomalies) > 0 {
		res.Status = models.StatusWarning
	}
	res.Anomalies = append([]string{}, in.anomalies...)

	e.logr.Debug("segment sized",
		zap.String("cable", in.seg.CableNumber),
		zap.Float64("area_mm2", selected),
		zap.Int("runs", runs),
		zap.String("driving", driving),
		zap.String("status", res.Status))
	return res
}

func (e *Engine) failed(res models.SizingResult, in inputs, driving string, cc []models.ConstraintCheck) models.SizingResult {
	if cc == nil {
		cc = []models.ConstraintCheck{}
	}
	res.DrivingConstraint = driving
	res.SelectedConductorArea = 0
	res.Constraints = cc
	res.Status = models.StatusFailed
	res.Anomalies = append([]string{}, in.anomalies...)

	e.logr.Warn("segment could not be sized",
		zap.String("cable", in.seg.CableNumber),
		zap.String("from_bus", in.seg.FromBus),
		zap.Strings("anomalies", res.Anomalies))
	return res
}

// checks reports every constraint in a fixed order, including those that
// do not apply to the segment.
func checks(cs []*constraint, selected catalogue.Entry, selectedOK bool) []models.ConstraintCheck {
	byName := make(map[string]*constraint, len(cs))
	for _, c := range cs {
		byName[c.name] = c
	}

	out := make([]models.ConstraintCheck, 0, 4)
	for _, name := range []string{
		models.ConstraintAmpacity,
		models.ConstraintVoltageDropRunning,
		models.ConstraintVoltageDropStarting,
		models.ConstraintShortCircuit,
	} {
		c, ok := byName[name]
		switch {
		case ok:
			out = append(out, c.check(selected, selectedOK))
		case name == models.ConstraintVoltageDropStarting:
			out = append(out, skipped(name, "not a motor load"))
		case name == models.ConstraintShortCircuit:
			out = append(out, skipped(name, "short-circuit current or clearing time not given"))
		}
	}
	return out
}

func setSizes(res *models.SizingResult, cs []*constraint) {
	for _, c := range cs {
		if c.err != nil {
			continue
		}
		switch c.name {
		case models.ConstraintAmpacity:
			res.SizeByAmpacity = c.size
		case models.ConstraintVoltageDropRunning:
			res.SizeByVoltageDropRunning = c.size
		case models.ConstraintVoltageDropStarting:
			res.SizeByVoltageDropStarting = c.size
		case models.ConstraintShortCircuit:
			res.SizeByShortCircuit = c.size
		}
	}
}

func entryOf(entries []catalogue.Entry, size float64) catalogue.Entry {
	for _, e := range entries {
		if e.Size == size {
			return e
		}
	}
	return catalogue.Entry{Size: size}
}

// DropVolts is the running voltage drop of a sized segment in volts, the
// figure path aggregation sums.
func DropVolts(seg models.CableSegment, res models.SizingResult) float64 {
	if seg.Voltage <= 0 || math.IsInf(res.VoltageDropPercent, 0) || math.IsNaN(res.VoltageDropPercent) {
		return 0
	}
	return res.VoltageDropPercent / 100 * seg.Voltage
}
