package middleware

import (
	"net/http"

	"emperror.dev/errors"
	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/priyxstudio/examination/messages"
	"github.com/priyxstudio/examination/module"
)

// RequestError is an error that carries the HTTP status it should be reported
// with. Handlers use it for problems with the request itself, such as a body
// that cannot be decoded.
type RequestError struct {
	err    error
	status int
}

// NewError wraps err so that it is returned to the client with status.
func NewError(err error, status int) *RequestError {
	return &RequestError{err: err, status: status}
}

func (re *RequestError) Error() string {
	return re.err.Error()
}

func (re *RequestError) Unwrap() error {
	return re.err
}

// StatusFor returns the HTTP status code that err should be reported with.
func StatusFor(err error) int {
	var re *RequestError
	if errors.As(err, &re) {
		return re.status
	}
	switch {
	case errors.Is(err, module.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, module.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, module.ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, module.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// AttachRequestID attaches a unique ID to the incoming HTTP request so that any
// errors that are generated or returned to the client will include this reference
// allowing for an easier time identifying the specific request that failed for
// the user.
func AttachRequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.New().String()
		c.Set("request_id", id)
		c.Set("logger", log.WithField("request_id", id))
		c.Header("X-Request-Id", id)
		c.Next()
	}
}

// CaptureErrors handles errors that were pushed onto the context with c.Error
// but never written to the client.
func CaptureErrors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if c.Writer.Written() {
			return
		}
		if err := c.Errors.Last(); err != nil && err.Err != nil {
			writeError(c, err.Err)
		}
	}
}

// CaptureAndAbort aborts the request and writes err to the client with the
// status matching its kind. Unexpected errors are logged and replaced with a
// generic message.
func CaptureAndAbort(c *gin.Context, err error) {
	_ = c.Error(err)
	writeError(c, err)
}

func writeError(c *gin.Context, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		ExtractLogger(c).WithField("error", err).Error("unexpected error while processing request")
		msg = "An unexpected error was encountered while processing this request."
	} else {
		ExtractLogger(c).WithField("error", err).WithField("status", status).Debug("request failed")
	}
	body := gin.H{"error": msg}
	if id := c.GetString("request_id"); id != "" {
		body["request_id"] = id
	}
	c.AbortWithStatusJSON(status, body)
}

// AttachService attaches the module service to the request context.
func AttachService(s *module.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("service", s)
		c.Next()
	}
}

// AttachInbox attaches the message inbox to the request context.
func AttachInbox(i messages.Inbox) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("inbox", i)
		c.Next()
	}
}

// ExtractService returns the module service attached to the request.
func ExtractService(c *gin.Context) *module.Service {
	if v, ok := c.Get("service"); ok {
		return v.(*module.Service)
	}
	panic("middleware/middleware: cannot extract module service: not present in context")
}

// ExtractInbox returns the message inbox attached to the request.
func ExtractInbox(c *gin.Context) messages.Inbox {
	if v, ok := c.Get("inbox"); ok {
		return v.(messages.Inbox)
	}
	panic("middleware/middleware: cannot extract inbox: not present in context")
}

// ExtractLogger pulls the request logger out of the context, falling back to
// the global logger when no request ID was attached.
func ExtractLogger(c *gin.Context) log.Interface {
	if v, ok := c.Get("logger"); ok {
		return v.(log.Interface)
	}
	return log.Log
}
