package bandit

import (
	"testing"
)

func TestUCBForcedInitialExploration(t *testing.T) {
	p := NewUCB(5, 2.0)
	seen := make(map[int]bool)
	for i := 0; i < 5; i++ {
		arm := p.Select()
		if seen[arm] {
			t.Fatalf("arm %d selected twice while unpulled arms remain", arm)
		}
		seen[arm] = true
		p.Observe(arm, 0.5)
	}
	if len(seen) != 5 {
		t.Fatalf("expected all 5 arms covered, got %d", len(seen))
	}
}

func TestUCBConvergesToBestArm(t *testing.T) {
	p := NewUCB(3, 0.5)
	rewards := []float64{0.2, 0.9, 0.4}
	for i := 0; i < 300; i++ {
		arm := p.Select()
		p.Observe(arm, rewards[arm])
	}
	stats := p.Statistics()
	if stats[1].Pulls <= stats[0].Pulls || stats[1].Pulls <= stats[2].Pulls {
		t.Fatalf("expected arm 1 pulled most, got pulls %d/%d/%d",
			stats[0].Pulls, stats[1].Pulls, stats[2].Pulls)
	}
	if p.BestArm() != 1 {
		t.Fatalf("expected best arm 1, got %d", p.BestArm())
	}
}

func TestUCBPullCountMatchesObservations(t *testing.T) {
	p := NewUCB(2, 2.0)
	p.Observe(0, 0.1)
	p.Observe(0, 0.3)
	p.Observe(1, 0.7)
	stats := p.Statistics()
	if stats[0].Pulls != 2 || stats[1].Pulls != 1 {
		t.Fatalf("unexpected pull counts %d/%d", stats[0].Pulls, stats[1].Pulls)
	}
	if stats[0].MeanReward != 0.2 {
		t.Fatalf("expected mean 0.2 for arm 0, got %v", stats[0].MeanReward)
	}
}

func TestThompsonSeparatesArms(t *testing.T) {
	p := NewThompson(2, 1.0, 1.0, 42)
	for i := 0; i < 1000; i++ {
		p.Observe(0, 1.0)
		p.Observe(1, 0.0)
	}

	wins := 0
	const trials = 500
	for i := 0; i < trials; i++ {
		if p.Select() == 0 {
			wins++
		}
	}
	// Posterior means are ~0.999 vs ~0.001; selecting arm 1 should be
	// vanishingly rare.
	if wins < trials*99/100 {
		t.Fatalf("arm 0 selected only %d/%d times", wins, trials)
	}
}

func TestThompsonPosteriorMonotone(t *testing.T) {
	p := NewThompson(2, 1.0, 1.0, 7)
	stats := p.Statistics()
	if stats[0].Alpha != 1.0 || stats[0].Beta != 1.0 {
		t.Fatalf("expected prior (1,1), got (%v,%v)", stats[0].Alpha, stats[0].Beta)
	}

	p.Observe(0, 0.75)
	stats = p.Statistics()
	if stats[0].Alpha != 1.75 || stats[0].Beta != 1.25 {
		t.Fatalf("expected posterior (1.75,1.25), got (%v,%v)", stats[0].Alpha, stats[0].Beta)
	}
	if stats[0].Pulls != 1 {
		t.Fatalf("expected 1 pull, got %d", stats[0].Pulls)
	}
}

func TestTunerFreezesOnLowCanaryHealth(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 11
	tuner := NewTuner(cfg, nil)

	// Teach the tuner that config 3 (arm 2) is best.
	for i := 0; i < 50; i++ {
		tuner.RecordReward(3, 1.0)
		tuner.RecordReward(1, 0.1)
	}

	sel := tuner.SelectConfig(0.1)
	if !sel.Frozen {
		t.Fatal("expected frozen selection at canary health 0.1")
	}
	if sel.Reason != "anomaly_detected_frozen" {
		t.Fatalf("unexpected reason %q", sel.Reason)
	}
	if sel.ConfigID != 3 {
		t.Fatalf("expected best-known config 3, got %d", sel.ConfigID)
	}
	if sel.CanaryPercent != 0 {
		t.Fatalf("expected zero canary allocation when frozen, got %d", sel.CanaryPercent)
	}
}

func TestTunerFreezeWithNoHistoryFallsBackToFirstConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 13
	tuner := NewTuner(cfg, nil)
	sel := tuner.SelectConfig(0.0)
	if sel.ConfigID != 1 {
		t.Fatalf("expected config 1 with no history, got %d", sel.ConfigID)
	}
}

func TestTunerCanaryPercentClamped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 17
	cfg.FreezeFloor = 0 // keep exploration live even at very low health
	tuner := NewTuner(cfg, nil)

	sel := tuner.SelectConfig(0.05)
	if sel.CanaryPercent != cfg.MinCanaryPercent {
		t.Fatalf("expected min canary percent %d, got %d", cfg.MinCanaryPercent, sel.CanaryPercent)
	}

	sel = tuner.SelectConfig(0.99)
	if sel.CanaryPercent != cfg.MaxCanaryPercent {
		t.Fatalf("expected max canary percent %d, got %d", cfg.MaxCanaryPercent, sel.CanaryPercent)
	}
	if sel.ConfigID < 1 || sel.ConfigID > cfg.NumConfigs {
		t.Fatalf("config id %d out of range", sel.ConfigID)
	}
}

func TestTunerClampsRewards(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumConfigs = 2
	cfg.Seed = 19
	tuner := NewTuner(cfg, nil)

	tuner.RecordReward(1, 5.0)  // clamped to 1
	tuner.RecordReward(2, -3.0) // clamped to 0
	stats := tuner.Statistics()
	if stats[0].Alpha != 2.0 || stats[0].Beta != 1.0 {
		t.Fatalf("expected (2,1) after clamped high reward, got (%v,%v)", stats[0].Alpha, stats[0].Beta)
	}
	if stats[1].Alpha != 1.0 || stats[1].Beta != 2.0 {
		t.Fatalf("expected (1,2) after clamped low reward, got (%v,%v)", stats[1].Alpha, stats[1].Beta)
	}
}

func TestTunerIgnoresUnknownConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 23
	tuner := NewTuner(cfg, nil)
	tuner.RecordReward(0, 1.0)  // below range
	tuner.RecordReward(99, 1.0) // above range
	for _, s := range tuner.Statistics() {
		if s.Pulls != 0 {
			t.Fatalf("expected no pulls recorded, arm %d has %d", s.ConfigID, s.Pulls)
		}
	}
}

func TestTunerUCBMethod(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Method = MethodUCB
	tuner := NewTuner(cfg, nil)

	sel := tuner.SelectConfig(0.8)
	if sel.Method != MethodUCB {
		t.Fatalf("expected ucb method, got %s", sel.Method)
	}
	if sel.Frozen {
		t.Fatal("healthy canary should not freeze")
	}
	tuner.RecordReward(sel.ConfigID, 0.9)
	stats := tuner.Statistics()
	if stats[sel.ConfigID-1].Pulls != 1 {
		t.Fatalf("expected reward routed to arm %d", sel.ConfigID-1)
	}
}
