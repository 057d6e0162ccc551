package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"
)

// sendTimeout bounds each delivery attempt.
const sendTimeout = 5 * time.Second

// pushoverURL is the Pushover message endpoint.
const pushoverURL = "https://api.pushover.net/1/messages.json"

// Notification is one rendered message.
type Notification struct {
	Title string
	Body  string
	// HighPriority marks permission prompts; each backend maps it to its
	// own priority scheme.
	HighPriority bool
}

// Backend delivers one notification. Implementations are best-effort: an
// error moves the chain on to the next backend.
type Backend interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}

func post(client *http.Client, req *http.Request, accept ...int) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	for _, code := range accept {
		if resp.StatusCode == code {
			return nil
		}
	}
	return fmt.Errorf("unexpected status %d", resp.StatusCode)
}

func priority(n Notification, high, normal string) string {
	if n.HighPriority {
		return high
	}
	return normal
}

type ntfyBackend struct {
	server string
	topic  string
	client *http.Client
}

func (b ntfyBackend) Name() string { return "ntfy" }

func (b ntfyBackend) Send(ctx context.Context, n Notification) error {
	endpoint := strings.TrimSuffix(b.server, "/") + "/" + b.topic
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(n.Body))
	if err != nil {
		return fmt.Errorf("create ntfy request: %w", err)
	}
	req.Header.Set("Title", n.Title)
	req.Header.Set("Priority", priority(n, "high", "default"))
	req.Header.Set("Tags", "robot")
	return post(b.client, req, http.StatusOK)
}

type pushoverBackend struct {
	url    string
	user   string
	token  string
	client *http.Client
}

func (b pushoverBackend) Name() string { return "pushover" }

func (b pushoverBackend) Send(ctx context.Context, n Notification) error {
	form := url.Values{
		"token":    {b.token},
		"user":     {b.user},
		"title":    {n.Title},
		"message":  {n.Body},
		"priority": {priority(n, "1", "0")},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create pushover request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return post(b.client, req, http.StatusOK)
}

type discordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

type discordMessage struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordBackend struct {
	webhook string
	client  *http.Client
}

func (b discordBackend) Name() string { return "discord" }

func (b discordBackend) Send(ctx context.Context, n Notification) error {
	color := 0x00FF00
	if n.HighPriority {
		color = 0xFF6600
	}
	payload, err := json.Marshal(discordMessage{
		Embeds: []discordEmbed{{Title: n.Title, Description: n.Body, Color: color}},
	})
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.webhook, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return post(b.client, req, http.StatusOK, http.StatusNoContent)
}

type slackMessage struct {
	Text string `json:"text"`
}

type slackBackend struct {
	webhook string
	client  *http.Client
}

func (b slackBackend) Name() string { return "slack" }

func (b slackBackend) Send(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(slackMessage{Text: fmt.Sprintf("*%s*\n%s", n.Title, n.Body)})
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.webhook, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return post(b.client, req, http.StatusOK)
}

// desktopBackend shells out to notify-send. Headless sessions get a
// terminal bell instead, which still counts as a failed delivery so the
// outcome is logged.
type desktopBackend struct{}

func (desktopBackend) Name() string { return "notify-send" }

func (desktopBackend) Send(ctx context.Context, n Notification) error {
	if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
		fmt.Fprint(os.Stderr, "\a")
		return fmt.Errorf("no display available")
	}
	bin, err := exec.LookPath("notify-send")
	if err != nil {
		return fmt.Errorf("notify-send not found")
	}
	out, err := exec.CommandContext(ctx, bin, n.Title, n.Body).CombinedOutput()
	if err != nil {
		return fmt.Errorf("notify-send: %v: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
