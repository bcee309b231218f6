// internal/common/camunda/client.go
package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gig-marketplace/internal/common/config"
	apperrors "gig-marketplace/internal/common/errors"
	"gig-marketplace/internal/common/logger"
	"gig-marketplace/internal/common/retry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// Client wraps the Zeebe gateway client with retrying message publication.
type Client struct {
	client     zbc.Client
	cfg        config.CamundaConfig
	retry      retry.Policy
	messageTTL time.Duration
	logger     logger.Logger
}

// NewClient dials the gateway and verifies it with a topology request.
func NewClient(ctx context.Context, cfg config.CamundaConfig, log logger.Logger) (*Client, error) {
	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.BrokerAddress,
		UsePlaintextConnection: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, config.GetDuration(cfg.RequestTimeout))
	defer cancel()

	if _, err := zeebeClient.NewTopologyCommand().Send(ctx); err != nil {
		zeebeClient.Close()
		return nil, fmt.Errorf("failed to connect to Zeebe broker at %s: %w", cfg.BrokerAddress, err)
	}

	return &Client{
		client:     zeebeClient,
		cfg:        cfg,
		retry:      retry.Policy{MaxAttempts: 3, InitialDelay: time.Second, MaxDelay: 10 * time.Second},
		messageTTL: config.GetDuration(cfg.MessageTTL),
		logger:     log.WithFields(map[string]interface{}{"component": "zeebe"}),
	}, nil
}

func (c *Client) Zeebe() zbc.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}

// PublishMessage publishes a correlated message carrying vars as process variables.
func (c *Client) PublishMessage(ctx context.Context, name, correlationKey string, vars interface{}) error {
	attempts := 0
	err := retry.Do(ctx, c.retry, "publish "+name, c.logger, isRetryableZeebeError, func(ctx context.Context) error {
		attempts++
		cmd, err := c.client.NewPublishMessageCommand().
			MessageName(name).
			CorrelationKey(correlationKey).
			TimeToLive(c.messageTTL).
			VariablesFromObject(vars)
		if err != nil {
			return err
		}

		reqCtx, cancel := context.WithTimeout(ctx, config.GetDuration(c.cfg.RequestTimeout))
		defer cancel()
		_, err = cmd.Send(reqCtx)
		return err
	})
	if err != nil {
		return mapZeebeError(err, "publish "+name, attempts)
	}
	return nil
}

func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, config.GetDuration(c.cfg.RequestTimeout))
	defer cancel()

	if _, err := c.client.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}

func isRetryableZeebeError(err error) bool {
	msg := strings.ToLower(err.Error())
	retryablePhrases := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"deadline exceeded",
		"unavailable",
		"unreachable",
		"broken pipe",
		"resource_exhausted",
	}
	for _, phrase := range retryablePhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

func mapZeebeError(err error, operation string, attempts int) error {
	lowerMsg := strings.ToLower(err.Error())

	wrapped := fmt.Errorf("zeebe operation '%s' failed after %d attempt(s): %w", operation, attempts, err)

	switch {
	case strings.Contains(lowerMsg, "timeout") || strings.Contains(lowerMsg, "deadline exceeded"):
		return apperrors.NewTimeoutError(operation, wrapped)
	case strings.Contains(lowerMsg, "already exists"):
		return apperrors.NewConflictError("message already published").WithCause(wrapped)
	case strings.Contains(lowerMsg, "permission denied") || strings.Contains(lowerMsg, "unauthorized"):
		return apperrors.NewForbiddenError("zeebe rejected the credentials").WithCause(wrapped)
	default:
		return apperrors.NewNotificationSendFailedError("zeebe", wrapped)
	}
}
