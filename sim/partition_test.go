package sim

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestQuotas_Examples(t *testing.T) {
	tests := []struct {
		name  string
		total int64
		parts int
		want  []int64
	}{
		{"remainder goes to lowest indices", 7, 3, []int64{3, 2, 2}},
		{"even split", 8, 4, []int64{2, 2, 2, 2}},
		{"fewer samples than parts", 2, 4, []int64{1, 1, 0, 0}},
		{"zero samples", 0, 3, []int64{0, 0, 0}},
		{"negative total owns nothing", -5, 2, []int64{0, 0}},
		{"single part takes all", 1_000_003, 1, []int64{1_000_003}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Quotas(tt.total, tt.parts))
		})
	}
}

func TestShare_OutOfRange(t *testing.T) {
	assert.Zero(t, Share(10, 0, 0), "no parts")
	assert.Zero(t, Share(10, 3, -1), "negative index")
	assert.Zero(t, Share(10, 3, 3), "index past the end")
	assert.Nil(t, Quotas(10, 0))
}

func TestProperty_PartitionInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("shares sum to the total", prop.ForAll(
		func(total int64, parts int) bool {
			var sum int64
			for _, q := range Quotas(total, parts) {
				sum += q
			}
			return sum == total
		},
		gen.Int64Range(0, 1<<50),
		gen.IntRange(1, 512),
	))

	properties.Property("shares are non-negative and differ by at most one", prop.ForAll(
		func(total int64, parts int) bool {
			q := Quotas(total, parts)
			for i, v := range q {
				if v < 0 || v > q[0] || q[0]-v > 1 {
					return false
				}
				// non-increasing: the remainder sits on the lowest indices
				if i > 0 && v > q[i-1] {
					return false
				}
			}
			return true
		},
		gen.Int64Range(0, 1<<50),
		gen.IntRange(1, 512),
	))

	properties.Property("nested split of rank shares over threads covers the total", prop.ForAll(
		func(total int64, ranks, threads int) bool {
			var sum int64
			for r := 0; r < ranks; r++ {
				for _, q := range Quotas(Share(total, ranks, r), threads) {
					sum += q
				}
			}
			return sum == total
		},
		gen.Int64Range(0, 1<<40),
		gen.IntRange(1, 64),
		gen.IntRange(1, 64),
	))

	properties.TestingRun(t)
}
