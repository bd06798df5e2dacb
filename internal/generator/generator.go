// Package generator drafts articles from batches of jobs through an LLM backend
// and validates the structured result before anything downstream trusts it.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/jobs-newsroom/internal/llm"
	"github.com/jonathan/jobs-newsroom/internal/schemas"
	"github.com/jonathan/jobs-newsroom/internal/types"
)

// DefaultTimeout bounds a single generation call
const DefaultTimeout = llm.DefaultTimeout

// Request is the input for one article
type Request struct {
	ContentType types.ContentType
	// Category is set for roundups; other types derive linking from the first job
	Category *types.Category
	Jobs     []types.JobRecord
}

// ResultKind tags the outcome of a generation call
type ResultKind int

const (
	// ResultOK carries a validated article
	ResultOK ResultKind = iota
	// ResultSchemaError means the payload failed JSON or schema validation
	ResultSchemaError
	// ResultTransportError means the backend could not be reached, timed out, or returned non-2xx
	ResultTransportError
	// ResultRequestError means no call was made because the request was unusable
	ResultRequestError
)

func (k ResultKind) String() string {
	switch k {
	case ResultOK:
		return "ok"
	case ResultSchemaError:
		return "schema_error"
	case ResultTransportError:
		return "transport_error"
	case ResultRequestError:
		return "request_error"
	default:
		return "unknown"
	}
}

// Result is either a validated article (Kind == ResultOK) or the error that prevented one
type Result struct {
	Kind    ResultKind
	Article *types.GeneratedArticle
	Err     error
	Latency time.Duration
}

// OK reports whether the result carries an article
func (r Result) OK() bool {
	return r.Kind == ResultOK && r.Article != nil
}

// Generator turns a Request into a validated article. It never retries.
type Generator struct {
	client   llm.Client
	timeout  time.Duration
	validate *validator.Validate
	now      func() time.Time
}

// New creates a Generator. A non-positive timeout uses DefaultTimeout.
func New(client llm.Client, timeout time.Duration) *Generator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Generator{
		client:   client,
		timeout:  timeout,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
}

// Model returns the backend model identifier recorded in article metadata
func (g *Generator) Model() string {
	return g.client.Model()
}

// Generate makes exactly one backend call bounded by the generator timeout
func (g *Generator) Generate(ctx context.Context, req Request) Result {
	prompt, err := BuildPrompt(req)
	if err != nil {
		return Result{Kind: ResultRequestError, Err: &RequestError{Message: "failed to build prompt", Cause: err}}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := g.now()
	raw, err := g.client.GenerateJSON(ctx, prompt)
	latency := g.now().Sub(start)
	if err != nil {
		var te *llm.TransportError
		if !errors.As(err, &te) {
			err = &llm.TransportError{Err: err}
		}
		return Result{Kind: ResultTransportError, Err: err, Latency: latency}
	}

	article, err := g.parse(raw)
	if err != nil {
		return Result{Kind: ResultSchemaError, Err: err, Latency: latency}
	}
	return Result{Kind: ResultOK, Article: article, Latency: latency}
}

// parse validates against the JSON schema first, then the struct tags
func (g *Generator) parse(raw string) (*types.GeneratedArticle, error) {
	if err := schemas.ValidateArticle([]byte(raw)); err != nil {
		return nil, &SchemaError{Message: "schema validation failed", Cause: err}
	}

	var article types.GeneratedArticle
	if err := json.Unmarshal([]byte(raw), &article); err != nil {
		return nil, &SchemaError{Message: "failed to decode article", Cause: err}
	}
	if err := g.validate.Struct(article); err != nil {
		return nil, &SchemaError{Message: "field validation failed", Cause: err}
	}
	return &article, nil
}
