package materials

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/logistics-bot/internal/detection"
)

func TestTally(t *testing.T) {
	tests := []struct {
		name   string
		shapes []detection.Shape
		want   Counts
	}{
		{"empty", nil, Counts{}},
		{"square is damaged", []detection.Shape{detection.Square}, Counts{Damaged: 1}},
		{"triangle is e-waste", []detection.Shape{detection.Triangle}, Counts{EWaste: 1}},
		{"circle is dispatch ready", []detection.Shape{detection.Circle}, Counts{DispatchReady: 1}},
		{"x is raw materials", []detection.Shape{detection.X}, Counts{RawMaterials: 1}},
		{
			"mixed",
			[]detection.Shape{detection.Circle, detection.Circle, detection.X, detection.Triangle, detection.Square, detection.Circle},
			Counts{DispatchReady: 3, Damaged: 1, EWaste: 1, RawMaterials: 1},
		},
		{"unclassified ignored", []detection.Shape{detection.Unclassified, detection.Square}, Counts{Damaged: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tally(tt.shapes)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Tally mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTally_TotalMatchesLabelled(t *testing.T) {
	shapes := []detection.Shape{detection.Circle, detection.X, detection.X, detection.Triangle}
	assert.Equal(t, len(shapes), Tally(shapes).Total())
}

func TestTally_FreshPerCall(t *testing.T) {
	first := Tally([]detection.Shape{detection.Square, detection.Square})
	second := Tally([]detection.Shape{detection.Circle})

	assert.Equal(t, 2, first.Damaged)
	assert.Equal(t, Counts{DispatchReady: 1}, second)
}

func TestCountsAddGet(t *testing.T) {
	var c Counts
	for _, cat := range Categories {
		c.Add(cat)
	}
	c.Add(EWaste)
	c.Add(Category("plutonium"))

	assert.Equal(t, 1, c.Get(DispatchReady))
	assert.Equal(t, 1, c.Get(Damaged))
	assert.Equal(t, 2, c.Get(EWaste))
	assert.Equal(t, 1, c.Get(RawMaterials))
	assert.Equal(t, 0, c.Get(Category("plutonium")))
	assert.Equal(t, 5, c.Total())
}

func TestCountsJSON(t *testing.T) {
	data, err := json.Marshal(Counts{DispatchReady: 1, EWaste: 2})
	require.NoError(t, err)

	var keys map[string]int
	require.NoError(t, json.Unmarshal(data, &keys))
	assert.Equal(t, map[string]int{
		"dispatchReady": 1,
		"damaged":       0,
		"eWaste":        2,
		"rawMaterials":  0,
	}, keys)
	assert.Equal(t, keys, Counts{DispatchReady: 1, EWaste: 2}.Map())
}

func TestCountsString(t *testing.T) {
	c := Counts{DispatchReady: 1, Damaged: 0, EWaste: 2, RawMaterials: 3}
	assert.Equal(t, "{dispatchReady: 1, damaged: 0, eWaste: 2, rawMaterials: 3}", c.String())
}

func TestForShape(t *testing.T) {
	_, ok := ForShape(detection.Unclassified)
	assert.False(t, ok)

	cat, ok := ForShape(detection.X)
	assert.True(t, ok)
	assert.Equal(t, RawMaterials, cat)
}
