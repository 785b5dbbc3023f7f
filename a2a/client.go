package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/hupe1980/agentlink/core"
	"github.com/hupe1980/agentlink/logging"
)

const (
	defaultDiscoveryTimeout = 5 * time.Second
	defaultSendTimeout      = 15 * time.Second
	defaultCardCacheSize    = 64
	defaultCardCacheTTL     = 5 * time.Minute
)

// ClientOptions configures the A2A client.
type ClientOptions struct {
	// DiscoveryTimeout bounds the discovery document fetch.
	DiscoveryTimeout time.Duration
	// SendTimeout bounds a task submission round trip.
	SendTimeout time.Duration
	// HTTPClient overrides the transport used for all calls.
	HTTPClient *http.Client
	// CardCacheSize is the maximum number of cached discovery documents.
	CardCacheSize int
	// CardCacheTTL bounds how long a cached card stays valid.
	CardCacheTTL time.Duration
	// Logger receives structured client diagnostics.
	Logger logging.Logger
}

// Client executes the peer discovery and task-send protocol against remote
// agents. All failures surface as typed errors at the Discover/SendTask
// level; Delegate additionally converts them to descriptive text so callers
// above the protocol boundary never observe an error value.
//
// Discovery results are cached in a TTL-bounded LRU so repeated delegations
// to the same peer skip the round trip.
type Client struct {
	httpClient       *http.Client
	discoveryTimeout time.Duration
	sendTimeout      time.Duration
	cards            *expirable.LRU[string, *AgentCard]
	logger           logging.Logger
}

// NewClient constructs a Client with optional overrides.
func NewClient(optFns ...func(o *ClientOptions)) *Client {
	opts := ClientOptions{
		DiscoveryTimeout: defaultDiscoveryTimeout,
		SendTimeout:      defaultSendTimeout,
		CardCacheSize:    defaultCardCacheSize,
		CardCacheTTL:     defaultCardCacheTTL,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		httpClient:       httpClient,
		discoveryTimeout: opts.DiscoveryTimeout,
		sendTimeout:      opts.SendTimeout,
		cards:            expirable.NewLRU[string, *AgentCard](opts.CardCacheSize, nil, opts.CardCacheTTL),
		logger:           logging.Ensure(opts.Logger),
	}
}

// Discover fetches the discovery document of the agent at targetBaseURL.
// Network faults map to KindNetwork, malformed documents to KindParse; no
// error escapes untyped.
func (c *Client) Discover(ctx context.Context, targetBaseURL string) (*AgentCard, error) {
	if card, ok := c.cards.Get(targetBaseURL); ok {
		c.logger.Debug("a2a.discover.cache_hit", "target", targetBaseURL)
		return card, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.discoveryTimeout)
	defer cancel()

	wellKnown := strings.TrimRight(targetBaseURL, "/") + WellKnownPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wellKnown, nil)
	if err != nil {
		return nil, core.WrapError(core.KindNetwork, err, "invalid discovery url %q", wellKnown)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, core.WrapError(core.KindNetwork, err, "discovery request to %s failed", targetBaseURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, core.NewError(core.KindNetwork, "discovery at %s returned %s: %s", targetBaseURL, resp.Status, strings.TrimSpace(string(body)))
	}

	var card AgentCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return nil, core.WrapError(core.KindParse, err, "malformed discovery document from %s", targetBaseURL)
	}

	c.cards.Add(targetBaseURL, &card)
	c.logger.Debug("a2a.discover.ok", "target", targetBaseURL, "agent", card.Name)

	return &card, nil
}

// TaskEndpoint resolves the task submission URL for a discovered card. The
// card's declared path (or the canonical default) is resolved against the
// card's own url, falling back to the original discovery target.
func (c *Client) TaskEndpoint(card *AgentCard, targetBaseURL string) string {
	path := card.TaskEndpoint
	if path == "" {
		path = DefaultTaskEndpoint
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	base := card.URL
	if base == "" {
		base = targetBaseURL
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// SendTask submits taskInput to the given endpoint wrapped in a fresh task
// envelope. A new task id is generated on every call and never reused.
// Textual input becomes a text part; anything else is carried as a data part.
func (c *Client) SendTask(ctx context.Context, endpoint string, taskInput any) (*Task, error) {
	var part Part
	if text, ok := taskInput.(string); ok {
		part = NewTextPart(text)
	} else {
		part = NewDataPart(taskInput)
	}

	envelope := TaskRequest{Task: TaskSubmission{
		ID:      uuid.NewString(),
		Message: NewUserMessage(part),
	}}

	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, core.WrapError(core.KindParse, err, "marshal task envelope")
	}

	ctx, cancel := context.WithTimeout(ctx, c.sendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, core.WrapError(core.KindNetwork, err, "invalid task endpoint %q", endpoint)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, core.WrapError(core.KindNetwork, err, "task send to %s failed", endpoint)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.WrapError(core.KindNetwork, err, "reading task response from %s", endpoint)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Embed whatever structured error payload the peer returned.
		return nil, core.NewError(core.KindNetwork, "task send to %s returned %s: %s", endpoint, resp.Status, strings.TrimSpace(string(raw)))
	}

	var task Task
	if err := json.Unmarshal(raw, &task); err != nil {
		return nil, core.WrapError(core.KindParse, err, "malformed task response from %s", endpoint)
	}

	c.logger.Debug("a2a.send.ok", "endpoint", endpoint, "task_id", task.ID, "state", task.Status.State)

	return &task, nil
}

// Delegate runs the full discover + send sequence against targetBaseURL and
// composes a human readable summary of the outcome. It never returns an
// error: every failure mode degrades to descriptive text embedding the raw
// failure message or the peer's error payload.
func (c *Client) Delegate(ctx context.Context, targetBaseURL string, taskInput any) string {
	card, err := c.Discover(ctx, targetBaseURL)
	if err != nil {
		c.logger.Warn("a2a.delegate.discovery_failed", "target", targetBaseURL, "error", err)
		return fmt.Sprintf("Failed to discover agent at %s: %v", targetBaseURL, err)
	}

	task, err := c.SendTask(ctx, c.TaskEndpoint(card, targetBaseURL), taskInput)
	if err != nil {
		c.logger.Warn("a2a.delegate.send_failed", "target", targetBaseURL, "error", err)
		return fmt.Sprintf("Failed to delegate task to %s: %v", targetBaseURL, err)
	}

	return summarize(targetBaseURL, task)
}

// summarize renders a task response as one line: the first text part of the
// status message (or the serialized first part), else the artifact count.
func summarize(target string, task *Task) string {
	if task.Status.Message != nil {
		if text, ok := PrimaryText(task.Status.Message.Parts); ok {
			return fmt.Sprintf("Response from %s (%s): %s", target, task.Status.State, text)
		}
	}
	if n := len(task.Artifacts); n > 0 {
		return fmt.Sprintf("Response from %s (%s): %d artifact(s)", target, task.Status.State, n)
	}
	return fmt.Sprintf("Response from %s (%s)", target, task.Status.State)
}
