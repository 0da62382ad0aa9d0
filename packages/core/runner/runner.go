package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/abdul-hamid-achik/tstit/packages/assertions"
	"github.com/abdul-hamid-achik/tstit/packages/capture"
	"github.com/abdul-hamid-achik/tstit/packages/core/env"
	"github.com/abdul-hamid-achik/tstit/packages/core/plan"
	"github.com/abdul-hamid-achik/tstit/packages/http"
	"github.com/abdul-hamid-achik/tstit/packages/value"
)

type Config struct {
	// BaseURL is joined with every relative plan URL.
	BaseURL string
	// Envelope enables the {"code": 0, "data": ...} response convention.
	Envelope bool
	// RateLimit caps requests per second; 0 means unlimited.
	RateLimit float64
	// RunID identifies the run; the zero value gets a random ID.
	RunID uuid.UUID
}

// Observer is notified synchronously as plans start and finish.
type Observer interface {
	PlanStarted(index, total int, p *plan.Plan)
	PlanFinished(index, total int, res *PlanResult)
}

type Runner struct {
	config    *Config
	client    *http.Client
	store     *env.Store
	resolver  *env.Resolver
	limiter   *rate.Limiter
	observers []Observer
	logger    *slog.Logger
}

type Option func(*Runner)

func WithClient(c *http.Client) Option {
	return func(r *Runner) {
		r.client = c
	}
}

func WithObserver(o Observer) Option {
	return func(r *Runner) {
		r.observers = append(r.observers, o)
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// NewRunner returns a runner reading and writing variables in store.
func NewRunner(cfg *Config, store *env.Store, opts ...Option) *Runner {
	if cfg == nil {
		cfg = &Config{}
	}
	if store == nil {
		store = env.NewStore()
	}

	r := &Runner{
		config:   cfg,
		store:    store,
		resolver: env.NewResolver(store),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.client == nil {
		r.client = http.NewClient()
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.RateLimit > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return r
}

// Store returns the Variable Store of the run.
func (r *Runner) Store() *env.Store {
	return r.store
}

// Run executes plans one at a time in the given order. Every plan runs,
// whatever happened to the previous ones.
func (r *Runner) Run(ctx context.Context, plans []*plan.Plan) *RunResult {
	start := time.Now()
	id := r.config.RunID
	if id == uuid.Nil {
		id = uuid.New()
	}
	result := &RunResult{
		ID:        id,
		StartedAt: start,
		Results:   make([]*PlanResult, 0, len(plans)),
	}
	latency := newLatencyRecorder()

	for i, p := range plans {
		for _, o := range r.observers {
			o.PlanStarted(i, len(plans), p)
		}

		res := r.RunPlan(ctx, p)
		if res.Response != nil {
			latency.record(res.Response.Duration)
		}

		result.Results = append(result.Results, res)
		if res.Succeeded() {
			result.Succeeded++
		} else {
			result.Failed++
		}

		for _, o := range r.observers {
			o.PlanFinished(i, len(plans), res)
		}
	}

	result.Duration = time.Since(start)
	result.Latency = latency.summary()
	r.logger.Debug("run completed",
		"run_id", result.ID,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"duration", result.Duration)
	return result
}

// RunPlan drives a single plan to a terminal state.
func (r *Runner) RunPlan(ctx context.Context, p *plan.Plan) *PlanResult {
	res := &PlanResult{Plan: p, State: Pending}
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
	}()
	log := r.logger.With("plan", p.Path)

	res.State = Resolving
	in, expect, err := r.resolve(p)
	if err != nil {
		return r.fail(log, res, KindResolution, err)
	}
	req, err := http.BuildRequest(r.config.BaseURL, in)
	if err != nil {
		return r.fail(log, res, KindResolution, err)
	}
	res.Request = req
	log.Debug("request", "method", req.Method, "url", req.URL, "body", string(req.Body))

	res.State = Executing
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return r.fail(log, res, KindTransport, err)
		}
	}
	resp, err := r.client.Do(ctx, req)
	if err != nil {
		return r.fail(log, res, KindTransport, err)
	}
	res.Response = resp
	log.Debug("response", "status", resp.StatusCode, "duration", resp.Duration, "body", resp.BodyString())

	res.State = Validating
	body, err := resp.Value()
	if err != nil {
		return r.fail(log, res, KindValidation, fmt.Errorf("validation failed: %w", err))
	}
	res.Body = body

	if perr := r.checkResponse(p.Out, resp, body); perr != nil {
		return r.fail(log, res, perr.Kind, perr.Err)
	}

	if p.Out.HasExpectation() {
		v := assertions.Validate(body, expect)
		res.Validation = v
		res.Notes = v.Notes
		for _, note := range v.Notes {
			log.Debug("note", "message", note)
		}
		if !v.Passed {
			return r.fail(log, res, KindValidation, v.Err())
		}
	}

	captured, err := capture.ExtractAndApply(r.store, resp, body, p.Out.Assign)
	if err != nil {
		return r.fail(log, res, KindExtraction, err)
	}
	res.Captures = captured
	for _, c := range captured {
		log.Debug("assigned", "variable", c.Variable, "value", c.Value.Text())
	}

	res.State = Succeeded
	return res
}

func (r *Runner) fail(log *slog.Logger, res *PlanResult, kind ErrorKind, err error) *PlanResult {
	res.FailedAt = res.State
	res.State = Failed
	res.Err = &PlanError{Kind: kind, Err: err}

	switch kind {
	case KindTransport:
		log.Debug("transport failure, no response received", "error", err)
	case KindAPI:
		log.Debug("backend returned an error response", "error", err)
	default:
		log.Debug("testplan failed", "kind", kind.String(), "error", err)
	}
	return res
}

// resolve substitutes placeholders in the request and the expectation in
// one pass, so every undefined variable of the plan is reported together.
func (r *Runner) resolve(p *plan.Plan) (plan.Input, value.Value, error) {
	in := p.In
	tree := value.MappingOf(
		value.Member{Key: "method", Value: value.StringOf(in.Method)},
		value.Member{Key: "url", Value: value.StringOf(in.URL)},
		value.Member{Key: "content_type", Value: value.StringOf(in.ContentType)},
		value.Member{Key: "headers", Value: in.Headers},
		value.Member{Key: "query", Value: in.Query},
		value.Member{Key: "body", Value: in.Body},
		value.Member{Key: "json", Value: value.StringOf(in.JSON)},
		value.Member{Key: "expect", Value: p.Out.Expect},
	)

	resolved, err := r.resolver.Resolve(tree)
	if err != nil {
		return in, value.Value{}, err
	}
	field := func(key string) value.Value {
		v, _ := resolved.Get(key)
		return v
	}

	in.Method = field("method").Text()
	in.URL = field("url").Text()
	in.ContentType = field("content_type").Text()
	in.Headers = field("headers")
	in.Query = field("query")
	in.Body = field("body")
	in.JSON = field("json").Text()
	return in, field("expect"), nil
}

// checkResponse applies the status and API-error rules before the body is
// validated.
func (r *Runner) checkResponse(out plan.Output, resp *http.Response, body value.Value) *PlanError {
	apiErr := r.apiError(resp, body)

	if apiErr != nil && !out.ExpectsError() {
		return &PlanError{Kind: KindAPI, Err: apiErr}
	}
	if out.Status != 0 && resp.StatusCode != out.Status {
		return &PlanError{Kind: KindValidation, Err: fmt.Errorf("validation failed: expected status %d, got %d", out.Status, resp.StatusCode)}
	}
	if apiErr == nil && out.ExpectsError() {
		return &PlanError{Kind: KindValidation, Err: fmt.Errorf("validation failed: expected an error response, got %s", resp.Status)}
	}
	return nil
}

func (r *Runner) apiError(resp *http.Response, body value.Value) *APIError {
	if !resp.IsSuccess() {
		apiErr := &APIError{StatusCode: resp.StatusCode, Payload: body}
		if r.config.Envelope {
			if code, ok := envelopeCode(body); ok {
				apiErr.Code, apiErr.HasCode = code, true
				apiErr.Payload, _ = body.Get("data")
			}
		}
		return apiErr
	}
	if !r.config.Envelope {
		return nil
	}

	code, ok := envelopeCode(body)
	if !ok {
		return &APIError{StatusCode: resp.StatusCode, Payload: body, Reason: "required field 'code' is missing"}
	}
	if code != 0 {
		data, found := body.Get("data")
		if !found {
			data = value.StringOf("unknown error")
		}
		return &APIError{StatusCode: resp.StatusCode, Code: code, HasCode: true, Payload: data}
	}
	return nil
}

func envelopeCode(body value.Value) (int64, bool) {
	raw, ok := body.Get("code")
	if !ok {
		return 0, false
	}
	return raw.Int()
}
