package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/decision-core/go-engine/internal/config"
	"github.com/danielpatrickdp/decision-core/go-engine/internal/decision"
	"github.com/danielpatrickdp/decision-core/go-engine/internal/feature"
	"github.com/danielpatrickdp/decision-core/go-engine/internal/history"
	"github.com/danielpatrickdp/decision-core/go-engine/internal/logging"
	"github.com/danielpatrickdp/decision-core/go-engine/internal/telemetry"
)

// #region main
func main() {
	configPath := envOr("DECISION_CONFIG", "engine.yaml")

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.Build(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	var store *history.Store
	if cfg.Engine.DatabasePath != "" {
		store, err = history.NewStore(cfg.Engine.DatabasePath)
		if err != nil {
			log.Fatalf("failed to open store: %v", err)
		}
		defer store.Close()
	}

	source := telemetry.NewContextSource()
	pipeline := telemetry.NewPipeline(source,
		telemetry.PipelineConfig{WindowSize: cfg.Engine.WindowSize}, logger)
	cache := feature.NewCache(logger)
	if err := pipeline.Register(cache); err != nil {
		log.Fatalf("failed to register features: %v", err)
	}

	engine := decision.NewEngine(cfg.Components(), cache, store, logger)

	fmt.Println("Decision engine ready.")
	fmt.Printf("  Config: %s | DB: %s\n", configPath, cfg.Engine.DatabasePath)
	fmt.Println("Paste a JSON metric snapshot per line, or a command:")
	fmt.Println("  status | reward <config_id> <value> | emergency on <reason> | emergency off | override on | override off | quit")

	scanner := bufio.NewScanner(os.Stdin)
	cycleNum := 0

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		if handled := runCommand(engine, line); handled {
			continue
		}

		var metrics map[string]float64
		if err := json.Unmarshal([]byte(line), &metrics); err != nil {
			log.Printf("not a command and not valid JSON metrics: %v", err)
			continue
		}

		cycleNum++
		source.Set(metrics)
		pipeline.Observe(metrics)
		ctx := feature.Context(metrics)

		regime := engine.DetectRegime(ctx)
		tail := engine.AssessTailRisk(ctx)
		tuning := engine.TuneConfiguration(ctx)

		fmt.Printf("[cycle-%d] regime=%v p=%v | alert=%v | config=%v canary=%v%% frozen=%v\n",
			cycleNum,
			regime.Output["regime_state"], regime.Output["change_probability"],
			tail.Output["alert_level"],
			tuning.Output["best_config_id"], tuning.Output["canary_percentage"],
			tuning.Output["freeze_on_anomaly"])
		printVerdict("regime", regime)
		printVerdict("tail", tail)
		printVerdict("tuning", tuning)
	}
}

// #endregion main

// #region commands

// runCommand handles operator commands. Returns false when the line should
// be parsed as a metric snapshot instead.
func runCommand(engine *decision.Engine, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "status":
		emergency, reason := engine.Safety().EmergencyMode()
		fmt.Printf("emergency=%v", emergency)
		if reason != "" {
			fmt.Printf(" (%s)", reason)
		}
		fmt.Printf(" override=%v\n", engine.Safety().HumanOverride())
		for _, violation := range engine.Safety().ViolationHistory(5) {
			fmt.Printf("  %s %s: %v\n",
				violation.Timestamp.Format("15:04:05"), violation.DecisionType, violation.Violations)
		}
		return true
	case "reward":
		if len(fields) != 3 {
			fmt.Println("usage: reward <config_id> <value>")
			return true
		}
		id, err1 := strconv.Atoi(fields[1])
		value, err2 := strconv.ParseFloat(fields[2], 64)
		if err1 != nil || err2 != nil {
			fmt.Println("usage: reward <config_id> <value>")
			return true
		}
		engine.RecordReward(id, value)
		fmt.Printf("recorded reward %.3f for config %d\n", value, id)
		return true
	case "emergency":
		if len(fields) >= 2 && fields[1] == "on" {
			reason := "manual_trigger"
			if len(fields) > 2 {
				reason = strings.Join(fields[2:], " ")
			}
			engine.Safety().EnableEmergencyMode(reason)
			fmt.Println("emergency mode enabled")
			return true
		}
		if len(fields) == 2 && fields[1] == "off" {
			engine.Safety().DisableEmergencyMode()
			fmt.Println("emergency mode disabled")
			return true
		}
		fmt.Println("usage: emergency on <reason> | emergency off")
		return true
	case "override":
		if len(fields) == 2 && fields[1] == "on" {
			engine.Safety().EnableHumanOverride()
			fmt.Println("human override enabled")
			return true
		}
		if len(fields) == 2 && fields[1] == "off" {
			engine.Safety().DisableHumanOverride()
			fmt.Println("human override disabled")
			return true
		}
		fmt.Println("usage: override on | override off")
		return true
	}
	return false
}

func printVerdict(label string, result decision.Result) {
	if result.IsSafe && len(result.Warnings) == 0 {
		return
	}
	if !result.IsSafe {
		fmt.Printf("  %s UNSAFE (fallback=%v): %v\n", label, result.FallbackUsed, result.Violations)
	}
	for _, warning := range result.Warnings {
		fmt.Printf("  %s warning: %s\n", label, warning)
	}
}

// #endregion commands

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
