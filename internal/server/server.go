package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	eventbus "github.com/tvarn/fieldplan/internal/eventbus"
	events "github.com/tvarn/fieldplan/internal/events"
	extract "github.com/tvarn/fieldplan/internal/extract"
	fielderr "github.com/tvarn/fieldplan/internal/fielderr"
	language "github.com/tvarn/fieldplan/internal/language"
	plan "github.com/tvarn/fieldplan/internal/plan"
	reqid "github.com/tvarn/fieldplan/internal/reqid"
)

// Handler is an http.Handler exposing the planner over JSON.
// POST /plan turns a field request into its select/load/template triple;
// POST /project additionally applies the template to a result payload.
type Handler struct {
	planner *plan.Planner
	opt     Options
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions

	// Bus receives request lifecycle events. Nil disables publishing.
	Bus *eventbus.Bus
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}
func WithBus(b *eventbus.Bus) Option { return func(o *Options) { o.Bus = b } }

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

// New creates an HTTP handler serving the given planner.
func New(planner *plan.Planner, opts ...Option) *Handler {
	op := Options{Timeout: 10 * time.Second}
	for _, f := range opts {
		f(&op)
	}
	return &Handler{planner: planner, opt: op}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	ctx, _ = reqid.NewContext(ctx)
	status := http.StatusOK
	start := time.Now()
	eventbus.Publish(ctx, h.opt.Bus, events.HTTPStart{Request: r})
	defer func() {
		eventbus.Publish(ctx, h.opt.Bus, events.HTTPFinish{Request: r, Status: status, Duration: time.Since(start)})
	}()

	if len(h.opt.CORS.AllowedOrigins) > 0 {
		setCORSHeaders(w, r, h.opt.CORS)
	}
	if r.Method == http.MethodOptions {
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	}
	if r.Method != http.MethodPost {
		status = http.StatusMethodNotAllowed
		h.writeError(w, status, transportError("method_not_allowed", "method not allowed"))
		return
	}

	req, terr := parseRequest(r, h.opt.MaxBodyBytes)
	if terr != nil {
		status = http.StatusBadRequest
		if terr.code == "body_too_large" {
			status = http.StatusRequestEntityTooLarge
		}
		h.writeError(w, status, terr)
		return
	}

	switch r.URL.Path {
	case "/plan":
		status = h.servePlan(ctx, w, req)
	case "/project":
		status = h.serveProject(ctx, w, req)
	default:
		status = http.StatusNotFound
		h.writeError(w, status, transportError("not_found", "no such endpoint"))
	}
}

func (h *Handler) servePlan(ctx context.Context, w http.ResponseWriter, req request) int {
	res, status, terr := h.buildPlan(ctx, req)
	if terr != nil {
		h.writeError(w, status, terr)
		return status
	}
	writeJSON(w, status, res, h.opt.Pretty)
	return status
}

func (h *Handler) serveProject(ctx context.Context, w http.ResponseWriter, req request) int {
	if !req.hasData {
		terr := transportError("bad_request", "missing 'data'")
		h.writeError(w, http.StatusBadRequest, terr)
		return http.StatusBadRequest
	}
	res, status, terr := h.buildPlan(ctx, req)
	if terr != nil {
		h.writeError(w, status, terr)
		return status
	}

	start := time.Now()
	eventbus.Publish(ctx, h.opt.Bus, events.ExtractStart{Resource: req.Resource})
	out := extract.Apply(req.Data, res.Template, h.planner.Formatter())
	eventbus.Publish(ctx, h.opt.Bus, events.ExtractFinish{Resource: req.Resource, Duration: time.Since(start)})

	writeJSON(w, status, map[string]any{"result": out}, h.opt.Pretty)
	return status
}

// buildPlan resolves the field list and runs the planner, translating
// failures into HTTP statuses: 404 for unknown resources, 422 for any
// field taxonomy error.
func (h *Handler) buildPlan(ctx context.Context, req request) (*plan.Result, int, *transportErr) {
	fields := req.Fields
	if req.Query != "" {
		parsed, err := language.ParseFields(req.Query)
		if err != nil {
			return nil, http.StatusBadRequest, transportError("invalid_query", err.Error())
		}
		fields = parsed
	}

	start := time.Now()
	eventbus.Publish(ctx, h.opt.Bus, events.PlanStart{Resource: req.Resource, Fields: len(fields)})
	res, err := h.planner.Plan(req.Resource, fields)
	finish := events.PlanFinish{Resource: req.Resource, Err: err, Duration: time.Since(start)}
	if res != nil {
		finish.Selects = len(res.Select)
		finish.Loads = len(res.Load)
	}
	eventbus.Publish(ctx, h.opt.Bus, finish)

	if err != nil {
		leaf := fielderr.Leaf(err)
		if leaf == nil {
			return nil, http.StatusInternalServerError, transportError("internal", err.Error())
		}
		status := http.StatusUnprocessableEntity
		if leaf.Code == fielderr.CodeActionNotFound {
			status = http.StatusNotFound
		}
		return nil, status, h.taxonomyError(leaf)
	}
	return res, http.StatusOK, nil
}

// ------------------ Request parsing ------------------

type request struct {
	Resource string `json:"resource"`
	Fields   []any  `json:"fields"`
	Query    string `json:"query"`
	Data     any    `json:"data"`

	hasData bool
}

func parseRequest(r *http.Request, maxBody int64) (request, *transportErr) {
	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" && !startsWith(ct, "application/json;") {
		return request{}, transportError("bad_request", "unsupported Content-Type")
	}
	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return request{}, transportError("bad_request", "failed to read body")
	}
	defer r.Body.Close()
	if maxBody > 0 && int64(len(body)) > maxBody {
		return request{}, transportError("body_too_large", "body too large")
	}

	var req request
	if err := json.Unmarshal(body, &req); err != nil {
		return request{}, transportError("bad_request", "invalid JSON")
	}
	if req.Resource == "" {
		return request{}, transportError("bad_request", "missing 'resource'")
	}
	if req.Fields != nil && req.Query != "" {
		return request{}, transportError("bad_request", "provide either 'fields' or 'query', not both")
	}
	if req.Fields == nil && req.Query == "" {
		return request{}, transportError("bad_request", "missing 'fields' or 'query'")
	}

	// Distinguish an absent "data" from an explicit null.
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err == nil {
		_, req.hasData = probe["data"]
	}
	return req, nil
}

// ------------------ Response formatting ------------------

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Type    string `json:"type,omitempty"`
	Path    string `json:"path,omitempty"`
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

type transportErr struct {
	code   string
	detail errorDetail
}

func transportError(code, message string) *transportErr {
	return &transportErr{code: code, detail: errorDetail{Code: code, Message: message}}
}

func (h *Handler) taxonomyError(leaf *fielderr.Error) *transportErr {
	f := h.planner.Formatter()
	return &transportErr{
		code: string(leaf.Code),
		detail: errorDetail{
			Code:    string(leaf.Code),
			Message: leaf.Message(f),
			Field:   f.ToExternal(leaf.Field),
			Type:    leaf.Type,
			Path:    leaf.RenderPath(f),
		},
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, terr *transportErr) {
	writeJSON(w, status, errorResponse{Error: terr.detail}, h.opt.Pretty)
}

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

func startsWith(s, prefix string) bool { return len(s) >= len(prefix) && s[:len(prefix)] == prefix }

func setCORSHeaders(w http.ResponseWriter, r *http.Request, opts CORSOptions) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	allowed := false
	for _, o := range opts.AllowedOrigins {
		if o == "*" || o == origin {
			allowed = true
			break
		}
	}
	if !allowed {
		return
	}
	if contains(opts.AllowedOrigins, "*") {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "POST,OPTIONS")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
