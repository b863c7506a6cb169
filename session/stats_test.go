package session

import (
	"strings"
	"testing"
	"time"

	"github.com/achilleasa/rtsession/engine"
)

func TestStatsString(t *testing.T) {
	cfg, err := engine.NewConfigBuilder().
		WithWidth(640).
		WithHeight(480).
		WithSamplesPixel(4).
		WithSamplesLight(2).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	st := Stats{
		Config:     cfg,
		Threads:    8,
		Primitives: 36,
		Lights:     1,
		StartedAt:  time.Now().Add(-2 * time.Second),
		RenderTime: 2 * time.Second,
		Polls:      8,
		State:      engine.Finished,
	}

	if got := st.RefreshRate(); got != 4 {
		t.Fatalf("expected refresh rate of 4 Hz; got %f", got)
	}

	out := st.String()
	for _, exp := range []string{"640x480", "threads: 8", "spp: 4", "spl: 2", "primitives: 36", "lights: 1", "2s", "4.0 Hz", "FINISHED"} {
		if !strings.Contains(out, exp) {
			t.Fatalf("expected status line to contain %q; got %q", exp, out)
		}
	}
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{PollInterval: time.Second}.withDefaults()
	if opts.PollInterval != time.Second {
		t.Fatalf("expected explicit poll interval to be kept; got %s", opts.PollInterval)
	}

	def := DefaultOptions()
	if opts.AwaitTimeout != def.AwaitTimeout || opts.JobWorkers != 1 || opts.PollWorkers != 1 {
		t.Fatalf("expected zero values to be replaced by defaults; got %+v", opts)
	}
}
