package internaldefs

import (
	"testing"

	goSession "github.com/MrEthical07/goSession"
)

func TestDefinitionsCoverEveryCounter(t *testing.T) {
	seen := map[goSession.MetricID]bool{}
	names := map[string]bool{}
	for _, def := range CounterDefs {
		if seen[def.ID] {
			t.Fatalf("duplicate id %d", def.ID)
		}
		if names[def.Name] {
			t.Fatalf("duplicate name %s", def.Name)
		}
		seen[def.ID] = true
		names[def.Name] = true
	}
	for id := goSession.MetricID(0); id < goSession.MetricOpenLatency; id++ {
		if !seen[id] {
			t.Fatalf("counter %d has no definition", id)
		}
	}
}

func TestBoundsMatchManagerHistogram(t *testing.T) {
	upper := UpperBoundsSeconds()
	if len(upper) != BucketCount-1 || len(HistogramBounds) != BucketCount || len(HistogramBoundSuffix) != BucketCount {
		t.Fatalf("bucket layout mismatch: %d finite bounds", len(upper))
	}
	if upper[0] != 0.001 || upper[len(upper)-1] != 0.1 {
		t.Fatalf("unexpected bounds %v", upper)
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [BucketCount]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
