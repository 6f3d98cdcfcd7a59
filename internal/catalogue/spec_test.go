package catalogue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlSpec = `
3C:
  "16": {airRating: 80, trenchRating: 79, ductRating: 67, resistance: 1.38, reactance: 0.090}
  "25mm²": {airRating: 101, trenchRating: 101, ductRating: 86, resistance: 0.870, reactance: 0.086}
  "10": {airRating: 60, trenchRating: 61, ductRating: 52, resistance: 2.19, reactance: 0.094}
single core:
  "50mm2": {airRating: 167, resistance: 0.463, reactance: 0.088}
`

func TestParseSpecYAML(t *testing.T) {
	s, err := ParseSpec([]byte(yamlSpec))
	require.NoError(t, err)

	c, err := FromSpec("site", s)
	require.NoError(t, err)

	assert.Equal(t, []CoreConfig{SingleCore, ThreeCore}, c.Cores())
	entries := c.Entries(ThreeCore)
	require.Len(t, entries, 3)
	assert.Equal(t, 10.0, entries[0].Size)
	assert.Equal(t, 25.0, entries[2].Size)

	e, ok := c.Lookup(SingleCore, 50)
	require.True(t, ok)
	assert.Equal(t, 167.0, e.AirRating)
}

func TestParseSpecJSON(t *testing.T) {
	s, err := ParseSpec([]byte(`{"4C": {"35": {"airRating": 126, "resistance": 0.627, "reactance": 0.083}}}`))
	require.NoError(t, err)

	c, err := FromSpec("json", s)
	require.NoError(t, err)
	_, ok := c.Lookup(FourCore, 35)
	assert.True(t, ok)
}

func TestFromSpecRejects(t *testing.T) {
	tests := map[string]Spec{
		"unknown core": {"9C": {"10": {AirRating: 60}}},
		"bad size":     {"3C": {"ten": {AirRating: 60}}},
		"duplicate core": {
			"3C":    {"10": {AirRating: 60}},
			"three": {"16": {AirRating: 80}},
		},
		"no rating": {"3C": {"10": {Resistance: 2}}},
		"nan size":  {"3C": {"nan": {AirRating: 60}}},
		"inf size":  {"3C": {"inf": {AirRating: 60}}},
	}
	for name, s := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := FromSpec(name, s)
			assert.ErrorIs(t, err, ErrInvalidCatalogue)
		})
	}

	_, err := ParseSpec([]byte("3C: [unclosed"))
	assert.ErrorIs(t, err, ErrInvalidCatalogue)
}

func TestFromSpecRejectsNonFiniteYAML(t *testing.T) {
	for name, body := range map[string]string{
		"nan rating":     `3C: {"10": {airRating: .nan}}`,
		"inf rating":     `3C: {"10": {airRating: .inf, trenchRating: 61}}`,
		"nan resistance": `3C: {"10": {airRating: 60, resistance: .nan}}`,
		"inf reactance":  `3C: {"10": {airRating: 60, reactance: .inf}}`,
	} {
		t.Run(name, func(t *testing.T) {
			s, err := ParseSpec([]byte(body))
			require.NoError(t, err)
			_, err = FromSpec(name, s)
			assert.ErrorIs(t, err, ErrInvalidCatalogue)
		})
	}
}

func TestSpecRoundTrip(t *testing.T) {
	c := Default()
	back, err := FromSpec(c.Name(), c.Spec())
	require.NoError(t, err)

	for _, core := range AllCores {
		assert.Equal(t, c.Entries(core), back.Entries(core), core.String())
	}
}
