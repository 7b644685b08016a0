// Package cms talks to the headless content store (Hygraph) over GraphQL.
package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dohanimedicare/medicare-platform/pkg/logging"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 300
)

var tracer = otel.Tracer("dohani.internal.cms")

var (
	// ErrNotConfigured is returned when no endpoint is set.
	ErrNotConfigured = errors.New("cms: endpoint not configured")
	// ErrUnavailable is returned while the circuit breaker is open.
	ErrUnavailable = errors.New("cms: temporarily unavailable")
)

// Config holds the content store connection settings.
type Config struct {
	Endpoint string
	Token    string
	Timeout  time.Duration
}

// Client is a lightweight GraphQL client guarded by a circuit breaker.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*rawResponse]
	logger     *logging.Logger
}

type rawResponse struct {
	status int
	body   []byte
}

type graphQLRequest struct {
	OperationName string         `json:"operationName,omitempty"`
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
}

type graphQLEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// GraphQLError is one entry of a GraphQL "errors" array.
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// ResponseError reports a structured rejection from the content store, such
// as a schema mismatch on a mutation.
type ResponseError struct {
	Operation string
	Status    int
	Errors    []GraphQLError
}

func (e *ResponseError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ge := range e.Errors {
		msgs = append(msgs, ge.Message)
	}
	return fmt.Sprintf("cms: %s rejected: %s", e.Operation, strings.Join(msgs, "; "))
}

// NewClient creates a content store client.
func NewClient(cfg Config, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		endpoint:   strings.TrimSpace(cfg.Endpoint),
		token:      strings.TrimSpace(cfg.Token),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker[*rawResponse](gobreaker.Settings{
		Name:        "cms",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("cms circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

// Do executes one GraphQL operation and decodes its data object into out.
func (c *Client) Do(ctx context.Context, operationName, query string, variables map[string]any, out any) (err error) {
	ctx, span := tracer.Start(ctx, "cms."+operationName)
	span.SetAttributes(attribute.String("graphql.operation", operationName))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if c == nil || c.endpoint == "" {
		return ErrNotConfigured
	}

	body, err := json.Marshal(graphQLRequest{OperationName: operationName, Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("cms: marshal request: %w", err)
	}

	raw, err := c.breaker.Execute(func() (*rawResponse, error) {
		return c.post(ctx, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return err
	}

	var env graphQLEnvelope
	decodeErr := json.Unmarshal(raw.body, &env)
	if len(env.Errors) > 0 {
		return &ResponseError{Operation: operationName, Status: raw.status, Errors: env.Errors}
	}
	if raw.status != http.StatusOK {
		msg := string(raw.body)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return fmt.Errorf("cms: %s status %d: %s", operationName, raw.status, msg)
	}
	if decodeErr != nil {
		return fmt.Errorf("cms: unmarshal response: %w", decodeErr)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("cms: unmarshal %s data: %w", operationName, err)
	}
	return nil
}

// post performs the HTTP round trip. Only transport failures and 5xx answers
// count against the breaker; GraphQL rejections are the caller's problem.
func (c *Client) post(ctx context.Context, body []byte) (*rawResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("cms: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cms: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cms: read response: %w", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		msg := string(respBody)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return nil, fmt.Errorf("cms: status %d: %s", resp.StatusCode, msg)
	}
	return &rawResponse{status: resp.StatusCode, body: respBody}, nil
}
