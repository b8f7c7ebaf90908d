package refresh

import (
	"context"
	"testing"
	"time"
)

func TestSchedulerRunsImmediately(t *testing.T) {
	u := newUpstreams(t)
	p, st := newTestPipeline(t, u)

	s, err := NewScheduler(p, time.Hour, nil)
	if err != nil {
		t.Fatalf("creating scheduler: %v", err)
	}
	s.Start()
	t.Cleanup(func() { s.Stop() })

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := st.ReadPublished(context.Background(), PricesPayloadName); err == nil {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("startup run never published within the deadline")
}

func TestSchedulerSurvivesFailingRuns(t *testing.T) {
	u := newUpstreams(t)
	p, st := newTestPipeline(t, u)
	u.pricesDown.Store(true)

	s, err := NewScheduler(p, time.Hour, nil)
	if err != nil {
		t.Fatalf("creating scheduler: %v", err)
	}
	s.Start()
	t.Cleanup(func() { s.Stop() })

	// The failing prices feed must not take the scheduler down; the news
	// half of the run still publishes.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := st.ReadPublished(context.Background(), NewsPayloadName); err == nil {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("news payload never published within the deadline")
}
