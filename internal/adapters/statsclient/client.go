package statsclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"eventhub/internal/domain"
	"eventhub/internal/metrics"
)

// timestampLayout is the wire format of the statistics service. The fraction is optional on input.
const timestampLayout = "2006-01-02 15:04:05.000"

const (
	defaultTimeout   = 2 * time.Second
	defaultQueueSize = 1024
	defaultWorkers   = 4
)

// Config configures the client. Zero values fall back to defaults.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	QueueSize int
	Workers   int
}

// hitPayload is the JSON body of POST /hit.
type hitPayload struct {
	App       string `json:"app"`
	URI       string `json:"uri"`
	IP        string `json:"ip"`
	Timestamp string `json:"timestamp"`
}

// Client talks to the statistics service over HTTP. Hits are posted by a small worker pool
// fed from a bounded queue; when the queue is full the hit is dropped.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
	hits   chan domain.EndpointHit
	wg     sync.WaitGroup
}

// New returns a started client. Call Close to flush queued hits.
func New(cfg Config, client *http.Client, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	c := &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		client:  client,
		logger:  logger,
		hits:    make(chan domain.EndpointHit, cfg.QueueSize),
	}
	for w := 0; w < cfg.Workers; w++ {
		c.wg.Add(1)
		go func(workerID int) {
			defer c.wg.Done()
			for hit := range c.hits {
				ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
				err := c.postHit(ctx, hit)
				cancel()
				if err != nil {
					metrics.HitsDispatched.WithLabelValues("failed").Inc()
					c.logger.Warn("hit dispatch failed", "worker", workerID, "uri", hit.URI, "err", err)
					continue
				}
				metrics.HitsDispatched.WithLabelValues("sent").Inc()
			}
		}(w)
	}
	return c
}

// RecordHit queues hit for delivery and never blocks.
func (c *Client) RecordHit(hit domain.EndpointHit) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		metrics.HitsDispatched.WithLabelValues("dropped").Inc()
		return
	}
	select {
	case c.hits <- hit:
	default:
		metrics.HitsDispatched.WithLabelValues("dropped").Inc()
		c.logger.Debug("hit queue full, dropping hit", "uri", hit.URI)
	}
}

// Close stops accepting hits and waits for queued ones to be sent or for ctx to expire.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.hits)
	}
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain hit queue: %w", ctx.Err())
	}
}

func (c *Client) postHit(ctx context.Context, hit domain.EndpointHit) error {
	body, err := json.Marshal(hitPayload{
		App:       hit.App,
		URI:       hit.URI,
		IP:        hit.IP,
		Timestamp: hit.Timestamp.UTC().Format(timestampLayout),
	})
	if err != nil {
		return fmt.Errorf("failed to encode hit: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/hit", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post hit: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("stats service returned status: %d", resp.StatusCode)
	}
	return nil
}

// GetViewStats queries GET /stats. A 400 from the service is reported as domain.ErrValidation.
func (c *Client) GetViewStats(ctx context.Context, q domain.ViewStatsQuery) ([]*domain.ViewStats, error) {
	params := url.Values{}
	params.Set("start", q.Start.UTC().Format(timestampLayout))
	params.Set("end", q.End.UTC().Format(timestampLayout))
	for _, uri := range q.URIs {
		params.Add("uris", uri)
	}
	params.Set("unique", strconv.FormatBool(q.Unique))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/stats?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch view stats: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, readError(resp.Body))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("stats service returned status: %d", resp.StatusCode)
	}

	var stats []*domain.ViewStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("failed to decode view stats: %w", err)
	}
	return stats, nil
}

// readError extracts error.message from an API envelope, falling back to the raw body.
func readError(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return err.Error()
	}
	var envelope struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error != nil {
		return envelope.Error.Message
	}
	return strings.TrimSpace(string(raw))
}

var _ domain.StatsClient = (*Client)(nil)
