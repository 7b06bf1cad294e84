package response

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/ordertrack/pkg/errorbank"
)

// Builder helps construct consistent HTTP responses.
type Builder struct {
	ctx     echo.Context
	status  int
	data    any
	message string
	err     error
	meta    map[string]any
}

type errorBody struct {
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type envelope struct {
	Success   bool           `json:"success"`
	Message   string         `json:"message,omitempty"`
	Data      any            `json:"data,omitempty"`
	Error     *errorBody     `json:"error,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// New instantiates a Builder for the provided request context.
func New(ctx echo.Context) *Builder {
	return &Builder{ctx: ctx, status: http.StatusOK}
}

// WithStatus overrides the response status code.
func (b *Builder) WithStatus(status int) *Builder {
	if status > 0 {
		b.status = status
	}
	return b
}

// WithData attaches a success payload.
func (b *Builder) WithData(data any) *Builder {
	b.data = data
	return b
}

// WithMessage attaches a human-readable note to a successful response.
func (b *Builder) WithMessage(msg string) *Builder {
	b.message = msg
	return b
}

// WithError records an error to be rendered.
func (b *Builder) WithError(err error) *Builder {
	b.err = err
	return b
}

// WithMeta appends auxiliary metadata to the response.
func (b *Builder) WithMeta(key string, value any) *Builder {
	if key == "" {
		return b
	}
	if b.meta == nil {
		b.meta = make(map[string]any)
	}
	b.meta[key] = value
	return b
}

// Build finalises and emits the HTTP response.
func (b *Builder) Build() error {
	payload := envelope{
		Meta:      b.meta,
		RequestID: b.ctx.Response().Header().Get(echo.HeaderXRequestID),
	}
	if b.err == nil {
		payload.Success = true
		payload.Message = b.message
		payload.Data = b.data
		return b.ctx.JSON(b.status, payload)
	}

	appErr := errorbank.From(b.err)
	status := b.status
	if status < 400 {
		status = appErr.StatusCode()
	}
	payload.Error = &errorBody{
		Kind:    string(appErr.Kind()),
		Message: appErr.Message(),
		Details: appErr.Details(),
	}
	return b.ctx.JSON(status, payload)
}
