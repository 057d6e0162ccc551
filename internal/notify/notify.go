// Package notify pushes session events to wherever the operator actually
// is: phone (ntfy, Pushover), chat webhook (Discord, Slack), or desktop.
// Backends are tried in order until one accepts the message; delivery is
// best-effort, bounded by a short timeout, and never retried. The hook
// itself always allows — a notification that cannot be delivered only
// leaves a line in notifications.log.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"wiggum/internal/config"
	"wiggum/internal/constants"
	"wiggum/internal/hookio"
	"wiggum/internal/identity"
	"wiggum/internal/logger"
	"wiggum/internal/project"
	"wiggum/internal/ralph"
	"wiggum/internal/sessionlog"
)

// Notification types that warrant interrupting the operator.
const (
	TypePermissionPrompt = "permission_prompt"
	TypeIdlePrompt       = "idle_prompt"
)

// DefaultTopic is the ntfy topic used when none is configured:
// claude-code-<hostname>, sanitized to the characters ntfy accepts.
func DefaultTopic() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	var b strings.Builder
	for _, r := range strings.ToLower(host) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		} else {
			b.WriteRune('-')
		}
	}
	return "claude-code-" + b.String()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envTruthy(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true"
}

// Backends assembles the delivery chain in preference order. ntfy is
// always present; the others join when configured. Environment variables
// override config values.
func Backends(cfg config.NotifyConfig) []Backend {
	client := &http.Client{Timeout: sendTimeout}

	topic := envOr(constants.EnvNtfyTopic, cfg.NtfyTopic)
	if topic == "" {
		topic = DefaultTopic()
	}
	server := cfg.NtfyServer
	if server == "" {
		server = "https://ntfy.sh"
	}
	chain := []Backend{ntfyBackend{server: server, topic: topic, client: client}}

	user := envOr(constants.EnvPushoverUser, cfg.PushoverUser)
	token := envOr(constants.EnvPushoverToken, cfg.PushoverToken)
	if user != "" && token != "" {
		chain = append(chain, pushoverBackend{url: pushoverURL, user: user, token: token, client: client})
	}
	if hook := envOr(constants.EnvDiscordWebhook, cfg.DiscordWebhook); hook != "" {
		chain = append(chain, discordBackend{webhook: hook, client: client})
	}
	if hook := envOr(constants.EnvSlackWebhook, cfg.SlackWebhook); hook != "" {
		chain = append(chain, slackBackend{webhook: hook, client: client})
	}
	if cfg.Desktop || envTruthy(constants.EnvDesktopNotify) {
		chain = append(chain, desktopBackend{})
	}
	return chain
}

// Dispatch tries each backend until one accepts n and returns its name.
// Failures land in the log; all-failed adds a warning line and returns "".
func Dispatch(ctx context.Context, backends []Backend, n Notification, log *sessionlog.Log) string {
	var tried []string
	for _, b := range backends {
		tried = append(tried, b.Name())
		attempt, cancel := context.WithTimeout(ctx, sendTimeout)
		err := b.Send(attempt, n)
		cancel()
		if err == nil {
			return b.Name()
		}
		logLine(log, "%s %s error: %v\n", sessionlog.Timestamp(), b.Name(), err)
	}
	logLine(log, "%s WARNING: notification failed via: %s\n", sessionlog.Timestamp(), strings.Join(tried, ", "))
	return ""
}

func logLine(log *sessionlog.Log, format string, args ...any) {
	if err := log.AppendString(fmt.Sprintf(format, args...)); err != nil {
		logger.Debug("failed to append notification log", "error", err)
	}
}

// render layers the terminal identity, session, and task labels onto the
// base title and message so notifications from parallel terminals stay
// tellable apart.
func render(base, message, cwd, terminalName, shortSession, task string) Notification {
	var tag string
	switch {
	case task != "" && (terminalName != "" || shortSession != ""):
		label := terminalName
		if label == "" {
			label = shortSession
		}
		tag = fmt.Sprintf(" [%s] %s", label, truncate(task, 40))
	case terminalName != "":
		tag = " [" + terminalName + "]"
	case shortSession != "":
		tag = " [" + shortSession + "]"
	}

	body := strings.TrimSpace(message)
	if cwd != "" {
		if home, err := os.UserHomeDir(); err == nil && home != "" {
			cwd = strings.Replace(cwd, home, "~", 1)
		}
		body = body + "\n(" + cwd + ")"
	}
	switch {
	case terminalName != "" && task != "":
		body = fmt.Sprintf("Terminal: %s | Task: %s\n%s", terminalName, task, body)
	case terminalName != "":
		body = fmt.Sprintf("Terminal: %s\n%s", terminalName, body)
	case shortSession != "" && task != "":
		body = fmt.Sprintf("Session: %s | Task: %s\n%s", shortSession, task, body)
	case shortSession != "":
		body = fmt.Sprintf("Session: %s\n%s", shortSession, body)
	}

	return Notification{Title: base + tag, Body: body}
}

// taskLabel pulls the first body line of the loop state file, when one
// exists, so a notification says which task that terminal is grinding on.
func taskLabel(projectDir string) string {
	state, err := ralph.NewStore(projectDir).Load()
	if err != nil || state == nil {
		return ""
	}
	for _, line := range strings.Split(state.Body, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return truncate(line, 60)
		}
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Process answers a Notification event. Only permission and idle prompts
// interrupt the operator; everything else is silent. The hook always
// exits 0.
func Process(p hookio.Payload) hookio.Result {
	if envTruthy(constants.EnvNotifyDisable) {
		return hookio.Result{}
	}

	var base string
	switch p.NotificationType {
	case TypePermissionPrompt:
		base = "Claude Code: Permission required"
	case TypeIdlePrompt:
		base = "Claude Code: Waiting for input"
	default:
		return hookio.Result{}
	}

	projectDir := project.Dir()
	short := p.Session()
	if len(short) > 8 {
		short = short[:8]
	}

	n := render(base, p.Message, p.Cwd, identity.CurrentName(projectDir), short, taskLabel(projectDir))
	n.HighPriority = p.NotificationType == TypePermissionPrompt

	log := sessionlog.New(filepath.Join(project.LogsDir(), constants.LogNotifications))
	logLine(log, "%s [%s] %s\n", sessionlog.Timestamp(), p.NotificationType, n.Body)

	Dispatch(context.Background(), Backends(config.Get().Notify), n, log)
	return hookio.Result{}
}
