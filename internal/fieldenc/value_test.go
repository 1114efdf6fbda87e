package fieldenc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromMap(t *testing.T) {
	t.Run("tags scalar kinds", func(t *testing.T) {
		rec := FromMap(map[string]any{
			"name":   "Maria",
			"age":    float64(34),
			"active": true,
			"note":   nil,
		})

		assert.Equal(t, KindString, rec["name"].Kind())
		assert.Equal(t, "Maria", rec["name"].Str())
		assert.Equal(t, KindRaw, rec["age"].Kind())
		assert.Equal(t, KindRaw, rec["active"].Kind())
		assert.Equal(t, KindRaw, rec["note"].Kind())
	})

	t.Run("nested object becomes record", func(t *testing.T) {
		rec := FromMap(map[string]any{
			"contact": map[string]any{"phone": "555-0101"},
		})

		require.Equal(t, KindRecord, rec["contact"].Kind())
		assert.Equal(t, "555-0101", rec["contact"].Record()["phone"].Str())
	})

	t.Run("array of objects becomes list", func(t *testing.T) {
		rec := FromMap(map[string]any{
			"contacts": []any{
				map[string]any{"phone": "555-0101"},
				map[string]any{"phone": "555-0202"},
			},
		})

		require.Equal(t, KindList, rec["contacts"].Kind())
		require.Len(t, rec["contacts"].List(), 2)
		assert.Equal(t, "555-0202", rec["contacts"].List()[1]["phone"].Str())
	})

	t.Run("mixed array passes through raw", func(t *testing.T) {
		mixed := []any{map[string]any{"phone": "555-0101"}, "not an object"}
		rec := FromMap(map[string]any{"contacts": mixed})

		require.Equal(t, KindRaw, rec["contacts"].Kind())
		assert.Equal(t, mixed, rec["contacts"].Interface())
	})
}

func TestRecord_ToMap(t *testing.T) {
	original := map[string]any{
		"name": "Maria",
		"age":  float64(34),
		"contact": map[string]any{
			"phone": "555-0101",
		},
		"loans": []any{
			map[string]any{"amount": float64(1000)},
		},
	}

	assert.Equal(t, original, FromMap(original).ToMap())
}

func TestRecord_Clone(t *testing.T) {
	rec := FromMap(map[string]any{
		"name":    "Maria",
		"contact": map[string]any{"phone": "555-0101"},
		"loans":   []any{map[string]any{"ref": "L-1"}},
	})

	clone := rec.Clone()
	clone["name"] = String("changed")
	clone["contact"].Record()["phone"] = String("changed")
	clone["loans"].List()[0]["ref"] = String("changed")

	assert.Equal(t, "Maria", rec["name"].Str())
	assert.Equal(t, "555-0101", rec["contact"].Record()["phone"].Str())
	assert.Equal(t, "L-1", rec["loans"].List()[0]["ref"].Str())
}
