package internaldefs

import (
	"strings"
	"testing"

	goAuthClient "github.com/MrEthical07/goAuthClient"
)

func TestCounterDefsCoverEveryCounter(t *testing.T) {
	cfg := goAuthClient.DefaultConfig().Metrics
	cfg.Enabled = true
	snap := goAuthClient.NewMetrics(cfg).Snapshot()

	seen := map[goAuthClient.MetricID]bool{}
	names := map[string]bool{}
	for _, def := range CounterDefs {
		if seen[def.ID] {
			t.Fatalf("metric %d defined twice", def.ID)
		}
		if names[def.Name] {
			t.Fatalf("name %q used twice", def.Name)
		}
		if !strings.HasPrefix(def.Name, "goauthclient_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("unexpected counter name %q", def.Name)
		}
		seen[def.ID] = true
		names[def.Name] = true
	}
	for id := range snap.Counters {
		if !seen[id] {
			t.Fatalf("counter %d has no definition", id)
		}
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 0, 2}))
	want := [8]uint64{1, 1, 3, 3, 3, 3, 3, 3}
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
	if len(HistogramUpperBounds)+1 != len(HistogramBoundSuffix) {
		t.Fatal("bucket bounds and suffixes disagree")
	}
}
