package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/a11y-remediator/internal/db"
	"github.com/jonathan/a11y-remediator/internal/llm"
)

// llmRetryAttempts bounds model round trips, matching the retry cap used
// for browser and audit calls.
const llmRetryAttempts = 3

// llmRetryDelay is the initial backoff between attempts; it doubles after
// each failure. A variable so tests do not wait out real backoff.
var llmRetryDelay = 2 * time.Second

// llmFor returns the run's model client prepared for one kind of call:
// every round trip is recorded under callType when the run has a database
// row, and failures are retried with doubling backoff.
func (rc *runContext) llmFor(callType string) llm.Client {
	client := rc.client
	if rc.database != nil && rc.hasRun {
		client = &recordingClient{
			Client:   client,
			database: rc.database,
			runID:    rc.runID,
			callType: callType,
		}
	}
	return &retryingClient{Client: client}
}

// recordingClient wraps a client so every successful round trip lands in the
// run's llm_calls log. Inserts are best effort; a failed insert never fails
// the call itself.
type recordingClient struct {
	llm.Client
	database *db.DB
	runID    uuid.UUID
	callType string
}

func (c *recordingClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	start := time.Now()
	response, err := c.Client.GenerateContent(ctx, prompt, tier)
	c.record(ctx, tier, prompt, response, err, start)
	return response, err
}

func (c *recordingClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	start := time.Now()
	response, err := c.Client.GenerateJSON(ctx, prompt, tier)
	c.record(ctx, tier, prompt, response, err, start)
	return response, err
}

func (c *recordingClient) GenerateWithImages(ctx context.Context, prompt string, images []llm.Image, tier llm.ModelTier) (string, error) {
	start := time.Now()
	response, err := c.Client.GenerateWithImages(ctx, prompt, images, tier)
	c.record(ctx, tier, prompt, response, err, start)
	return response, err
}

func (c *recordingClient) record(ctx context.Context, tier llm.ModelTier, prompt, response string, err error, start time.Time) {
	if err != nil {
		return
	}
	_ = c.database.RecordLLMCall(ctx, c.runID, c.callType, c.Client.GetModel(tier), prompt, response, time.Since(start))
}

// retryingClient retries failed generation calls with capped doubling
// backoff. Context cancellation stops the retry loop immediately.
type retryingClient struct {
	llm.Client
}

func (c *retryingClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return retryGenerate(ctx, func() (string, error) {
		return c.Client.GenerateContent(ctx, prompt, tier)
	})
}

func (c *retryingClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return retryGenerate(ctx, func() (string, error) {
		return c.Client.GenerateJSON(ctx, prompt, tier)
	})
}

func (c *retryingClient) GenerateWithImages(ctx context.Context, prompt string, images []llm.Image, tier llm.ModelTier) (string, error) {
	return retryGenerate(ctx, func() (string, error) {
		return c.Client.GenerateWithImages(ctx, prompt, images, tier)
	})
}

func retryGenerate(ctx context.Context, call func() (string, error)) (string, error) {
	delay := llmRetryDelay
	var lastErr error
	for attempt := 1; attempt <= llmRetryAttempts; attempt++ {
		out, err := call()
		if err == nil {
			return out, nil
		}
		lastErr = err
		if attempt < llmRetryAttempts {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}
	return "", lastErr
}
