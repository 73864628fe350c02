package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projectpulse.io/pulse/internal/api/openapi"
	apperrors "projectpulse.io/pulse/internal/pkg/errors"
	"projectpulse.io/pulse/internal/pkg/logger"
)

// skipAuth leaves authentication to JWTAuth and RequirePermission.
var skipAuth = &openapi3filter.Options{
	AuthenticationFunc: func(context.Context, *openapi3filter.AuthenticationInput) error { return nil },
}

type contractValidator struct {
	router   routers.Router
	basePath string
}

// MustOpenAPIValidator is NewOpenAPIValidator that panics on a broken contract.
func MustOpenAPIValidator(basePath string) gin.HandlerFunc {
	mw, err := NewOpenAPIValidator(basePath)
	if err != nil {
		panic(fmt.Sprintf("init openapi validator: %v", err))
	}
	return mw
}

// NewOpenAPIValidator checks requests and JSON responses against the
// embedded API contract. Request violations are answered with
// VALIDATION_FAILED and per-field errors; response violations are logged
// and replaced by a 500. Paths the contract does not describe pass through.
func NewOpenAPIValidator(basePath string) (gin.HandlerFunc, error) {
	doc, err := openapi.Load(context.Background())
	if err != nil {
		return nil, fmt.Errorf("load openapi contract: %w", err)
	}
	// Hosts differ per deployment; match on path only.
	doc.Servers = nil

	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build contract router: %w", err)
	}
	v := &contractValidator{router: router, basePath: normalizeBasePath(basePath)}
	return v.handle, nil
}

func (v *contractValidator) handle(c *gin.Context) {
	input, err := v.requestInput(c.Request)
	if errors.Is(err, routers.ErrPathNotFound) {
		c.Next()
		return
	}
	if err != nil {
		abortWithAppError(c, apperrors.FromCode(apperrors.CodeInvalidRequest, err.Error()))
		return
	}

	err = openapi3filter.ValidateRequest(c.Request.Context(), input)
	// The body may have been consumed and replaced on the routed copy.
	c.Request.Body = input.Request.Body
	if err != nil {
		abortWithAppError(c, requestViolation(err))
		return
	}

	captured := newCapturedResponse(c.Writer)
	c.Writer = captured
	c.Next()

	v.checkResponse(c, input, captured)
	if err := captured.flush(); err != nil {
		logger.Warn("Flushing validated response failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
	}
	c.Writer = captured.ResponseWriter
}

// requestInput resolves the contract route for req. The contract paths are
// relative to basePath, so the lookup runs on a copy with the prefix removed.
func (v *contractValidator) requestInput(req *http.Request) (*openapi3filter.RequestValidationInput, error) {
	routed := req.Clone(req.Context())
	routed.URL.Path = normalizeValidationPath(v.basePath, req.URL.Path)
	routed.URL.RawPath = ""

	route, params, err := v.router.FindRoute(routed)
	if err != nil {
		if isPathNotFound(err) {
			return nil, routers.ErrPathNotFound
		}
		return nil, err
	}
	return &openapi3filter.RequestValidationInput{
		Request:    routed,
		PathParams: params,
		Route:      route,
		Options:    skipAuth,
	}, nil
}

func (v *contractValidator) checkResponse(c *gin.Context, input *openapi3filter.RequestValidationInput, resp *capturedResponse) {
	out := &openapi3filter.ResponseValidationInput{
		RequestValidationInput: input,
		Status:                 resp.Status(),
		Header:                 resp.Header().Clone(),
		Options: &openapi3filter.Options{
			AuthenticationFunc: skipAuth.AuthenticationFunc,
			// CSV and XLSX downloads are described by media type only.
			ExcludeResponseBody: !isJSON(resp.Header().Get("Content-Type")),
		},
	}
	out.SetBodyBytes(resp.body.Bytes())

	if err := openapi3filter.ValidateResponse(c.Request.Context(), out); err != nil {
		logger.Error("Response violates API contract",
			zap.String("request_id", GetRequestID(c.Request.Context())),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", resp.Status()),
			zap.Error(err),
		)
		resp.replace(http.StatusInternalServerError, apperrors.FromCode(apperrors.CodeContractViolation, "response does not conform to the API contract"))
	}
}

// requestViolation turns a kin-openapi request error into VALIDATION_FAILED
// with the offending parameter or body field.
func requestViolation(err error) *apperrors.AppError {
	appErr := apperrors.FromCode(apperrors.CodeValidationFailed, "request does not conform to the API contract")

	field := "body"
	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) && reqErr.Parameter != nil {
		field = reqErr.Parameter.Name
	}
	var schemaErr *openapi3.SchemaError
	if errors.As(err, &schemaErr) {
		if ptr := schemaErr.JSONPointer(); len(ptr) > 0 {
			field = strings.Join(ptr, ".")
		}
		return appErr.WithFieldErrors([]apperrors.FieldError{{Field: field, Code: "INVALID", Message: schemaErr.Reason}})
	}
	return appErr.WithFieldErrors([]apperrors.FieldError{{Field: field, Code: "INVALID", Message: err.Error()}})
}

func abortWithAppError(c *gin.Context, appErr *apperrors.AppError) {
	logger.Warn("Request rejected by API contract",
		zap.String("request_id", GetRequestID(c.Request.Context())),
		zap.String("path", c.Request.URL.Path),
		zap.String("code", appErr.Code),
	)
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr)
}

func isJSON(contentType string) bool {
	return strings.HasPrefix(strings.TrimSpace(contentType), "application/json")
}

func isPathNotFound(err error) bool {
	if errors.Is(err, routers.ErrPathNotFound) {
		return true
	}
	var routeErr *routers.RouteError
	return errors.As(err, &routeErr) && routeErr.Reason == routers.ErrPathNotFound.Error()
}

func normalizeBasePath(basePath string) string {
	basePath = strings.Trim(strings.TrimSpace(basePath), "/")
	if basePath == "" {
		return ""
	}
	return "/" + basePath
}

// normalizeValidationPath strips basePath from path.
func normalizeValidationPath(basePath, path string) string {
	switch {
	case basePath == "" && path == "":
		return "/"
	case basePath == "":
		return path
	case path == basePath:
		return "/"
	case strings.HasPrefix(path, basePath+"/"):
		return strings.TrimPrefix(path, basePath)
	default:
		return path
	}
}

// capturedResponse holds the handler output until it has been validated.
type capturedResponse struct {
	gin.ResponseWriter
	body   bytes.Buffer
	status int
}

func newCapturedResponse(w gin.ResponseWriter) *capturedResponse {
	return &capturedResponse{ResponseWriter: w}
}

func (w *capturedResponse) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
}

func (w *capturedResponse) WriteHeaderNow() {
	if w.status == 0 {
		w.status = http.StatusOK
	}
}

func (w *capturedResponse) Write(data []byte) (int, error) {
	w.WriteHeaderNow()
	return w.body.Write(data)
}

func (w *capturedResponse) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

func (w *capturedResponse) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *capturedResponse) Size() int {
	if w.status == 0 {
		return -1
	}
	return w.body.Len()
}

func (w *capturedResponse) Written() bool {
	return w.status != 0
}

func (w *capturedResponse) replace(status int, appErr *apperrors.AppError) {
	w.status = status
	w.body.Reset()
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Del("Content-Disposition")
	_ = json.NewEncoder(&w.body).Encode(appErr)
}

func (w *capturedResponse) flush() error {
	w.ResponseWriter.WriteHeader(w.Status())
	if w.body.Len() == 0 {
		return nil
	}
	_, err := w.ResponseWriter.Write(w.body.Bytes())
	return err
}
