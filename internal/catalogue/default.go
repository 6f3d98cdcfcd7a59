package catalogue

import "math"

// Built-in copper table, 0.6/1 kV, reference conditions 30 °C air / 20 °C ground.
// Columns: size mm², air A, trench A, duct A, R Ω/km, X Ω/km.
var multiCoreRows = [][6]float64{
	{1.5, 18.5, 22, 18, 14.5, 0.115},
	{2.5, 25, 29, 24, 8.87, 0.110},
	{4, 34, 37, 31, 5.52, 0.107},
	{6, 43, 46, 39, 3.69, 0.100},
	{10, 60, 61, 52, 2.19, 0.094},
	{16, 80, 79, 67, 1.38, 0.090},
	{25, 101, 101, 86, 0.870, 0.086},
	{35, 126, 122, 104, 0.627, 0.083},
	{50, 153, 144, 122, 0.463, 0.083},
	{70, 196, 178, 151, 0.321, 0.082},
	{95, 238, 211, 179, 0.231, 0.082},
	{120, 276, 240, 204, 0.183, 0.080},
	{150, 319, 271, 230, 0.148, 0.080},
	{185, 364, 304, 258, 0.119, 0.080},
	{240, 430, 351, 298, 0.0902, 0.079},
	{300, 497, 396, 337, 0.0719, 0.079},
	{400, 586, 450, 382, 0.0567, 0.078},
}

var singleCoreRows = [][6]float64{
	{1.5, 19.5, 22, 19, 14.5, 0.120},
	{2.5, 27, 29, 25, 8.87, 0.115},
	{4, 36, 38, 32, 5.52, 0.110},
	{6, 46, 47, 40, 3.69, 0.105},
	{10, 63, 63, 54, 2.19, 0.100},
	{16, 85, 81, 69, 1.38, 0.095},
	{25, 110, 104, 88, 0.870, 0.092},
	{35, 137, 125, 106, 0.627, 0.090},
	{50, 167, 148, 126, 0.463, 0.088},
	{70, 216, 183, 156, 0.321, 0.086},
	{95, 264, 216, 184, 0.231, 0.085},
	{120, 308, 246, 209, 0.183, 0.084},
	{150, 356, 278, 236, 0.148, 0.084},
	{185, 409, 312, 265, 0.119, 0.083},
	{240, 485, 361, 307, 0.0902, 0.082},
	{300, 561, 408, 347, 0.0719, 0.082},
	{400, 656, 469, 399, 0.0567, 0.081},
	{500, 749, 530, 451, 0.0466, 0.081},
	{630, 855, 603, 513, 0.0375, 0.080},
}

// two loaded conductors run cooler than three
const twoCoreUplift = 1.16

// Default returns the built-in standard table. Each call builds a fresh catalogue.
func Default() *Catalogue {
	c, err := New("default", map[CoreConfig][]Entry{
		SingleCore: rowsToEntries(singleCoreRows, 1),
		TwoCore:    rowsToEntries(multiCoreRows[:len(multiCoreRows)-1], twoCoreUplift),
		ThreeCore:  rowsToEntries(multiCoreRows, 1),
		FourCore:   rowsToEntries(multiCoreRows, 1),
	})
	if err != nil {
		panic("catalogue: built-in table is invalid: " + err.Error())
	}
	return c
}

func rowsToEntries(rows [][6]float64, uplift float64) []Entry {
	scale := func(v float64) float64 {
		if uplift == 1 {
			return v
		}
		return math.Round(v * uplift)
	}

	entries := make([]Entry, len(rows))
	for i, r := range rows {
		entries[i] = Entry{
			Size:         r[0],
			AirRating:    scale(r[1]),
			TrenchRating: scale(r[2]),
			DuctRating:   scale(r[3]),
			Resistance:   r[4],
			Reactance:    r[5],
			Material:     "Cu",
		}
	}
	return entries
}
