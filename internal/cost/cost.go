// Package cost records per-session token usage on every stop and raises
// alerts when spend crosses the session or daily threshold. Usage comes
// from a configurable external command; a machine without the binary is a
// silent no-op.
package cost

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"wiggum/internal/config"
	"wiggum/internal/constants"
	"wiggum/internal/hookio"
	"wiggum/internal/logger"
	"wiggum/internal/notify"
	"wiggum/internal/project"
	"wiggum/internal/sessionlog"
)

// usageTimeout bounds the usage command run.
const usageTimeout = 10 * time.Second

// Usage is the JSON document the usage command prints.
type Usage struct {
	InputTokens     int     `json:"input_tokens"`
	OutputTokens    int     `json:"output_tokens"`
	CacheReadTokens int     `json:"cache_read_tokens"`
	EstimatedCost   float64 `json:"estimated_cost"`
}

// Query runs the configured usage command and parses its output.
func Query(ctx context.Context, command []string) (Usage, error) {
	if len(command) == 0 {
		return Usage{}, errors.New("no usage command configured")
	}
	out, err := exec.CommandContext(ctx, command[0], command[1:]...).Output()
	if err != nil {
		return Usage{}, fmt.Errorf("usage command failed: %w", err)
	}
	var u Usage
	if err := json.Unmarshal(out, &u); err != nil {
		return Usage{}, fmt.Errorf("failed to parse usage output: %w", err)
	}
	return u, nil
}

// Entry formats one cost log line.
func Entry(ts time.Time, sessionID string, u Usage) string {
	sid := sessionID
	if sid == "" {
		sid = "unknown"
	}
	if len(sid) > 12 {
		sid = sid[:12]
	}
	return fmt.Sprintf("[%s] session=%s in=%d out=%d cache=%d cost=$%.4f",
		ts.UTC().Format("2006-01-02T15:04:05Z"), sid,
		u.InputTokens, u.OutputTokens, u.CacheReadTokens, u.EstimatedCost)
}

// DailyTotal sums the cost fields of log lines stamped with day
// (YYYY-MM-DD). Unparseable lines are skipped.
func DailyTotal(path, day string) float64 {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	var total float64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, day) {
			continue
		}
		idx := strings.LastIndex(line, "cost=$")
		if idx == -1 {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(line[idx+len("cost=$"):]), 64)
		if err != nil {
			continue
		}
		total += v
	}
	return total
}

// Thresholds are dollars; environment variables override config.
func sessionAlert(cfg config.CostConfig) float64 {
	return envFloat(constants.EnvCostAlert, cfg.SessionAlert)
}

func dailyAlert(cfg config.CostConfig) float64 {
	return envFloat(constants.EnvCostDailyAlert, cfg.DailyAlert)
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// alert pushes message through the notification chain, best-effort.
func alert(message string, log *sessionlog.Log) {
	n := notify.Notification{
		Title:        "Claude Code: Cost alert",
		Body:         message,
		HighPriority: true,
	}
	notify.Dispatch(context.Background(), notify.Backends(config.Get().Notify), n, log)
}

// Process answers a Stop event: query usage, append the log line, and
// raise any threshold alerts. Always allows; every failure is a silent
// skip.
func Process(p hookio.Payload) hookio.Result {
	cfg := config.Get().Cost
	if len(cfg.UsageCommand) == 0 {
		return hookio.Result{}
	}
	if _, err := exec.LookPath(cfg.UsageCommand[0]); err != nil {
		return hookio.Result{}
	}

	ctx, cancel := context.WithTimeout(context.Background(), usageTimeout)
	defer cancel()
	u, err := Query(ctx, cfg.UsageCommand)
	if err != nil {
		logger.Debug("usage query failed", "error", err)
		return hookio.Result{}
	}

	now := time.Now()
	logPath := filepath.Join(project.LogsDir(), constants.LogCostTracker)
	if err := appendLine(logPath, Entry(now, p.Session(), u)); err != nil {
		logger.Debug("failed to append cost log", "error", err)
	}

	log := sessionlog.New(filepath.Join(project.LogsDir(), constants.LogNotifications))
	if threshold := sessionAlert(cfg); threshold > 0 && u.EstimatedCost > threshold {
		alert(fmt.Sprintf("Session cost alert: $%.2f (threshold: $%.2f)", u.EstimatedCost, threshold), log)
	}
	if threshold := dailyAlert(cfg); threshold > 0 {
		if daily := DailyTotal(logPath, now.UTC().Format("2006-01-02")); daily > threshold {
			alert(fmt.Sprintf("Daily cost alert: $%.2f (threshold: $%.2f)", daily, threshold), log)
		}
	}

	return hookio.Result{}
}

func appendLine(path, line string) error {
	if err := os.MkdirAll(filepath.Dir(path), constants.DirMode); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, constants.FileMode)
	if err != nil {
		return fmt.Errorf("failed to open cost log: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("failed to append cost log: %w", err)
	}
	return nil
}
