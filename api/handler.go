// Package api exposes the homepage section operations over API Gateway.
// It is transport glue only: request decoding, routing, and status
// mapping. All semantics live in the home package.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/vitrine/home"
)

// Handler routes API Gateway requests to the section manager. Designed to
// be used as an AWS Lambda handler.
type Handler struct {
	manager *home.Manager
	logger  *slog.Logger
}

// NewHandler creates an API handler over the section manager.
func NewHandler(manager *home.Manager, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		manager: manager,
		logger:  logger,
	}
}

// sectionRequest is the add/edit payload.
type sectionRequest struct {
	CategoryID string   `json:"category_id"`
	ProductIDs []string `json:"product_ids"`
	Position   *int64   `json:"s_no,omitempty"`
}

// Handle serves one API Gateway request.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	method := req.RequestContext.HTTP.Method
	path := req.RawPath

	switch {
	case method == http.MethodGet && path == "/homepage/list":
		return h.list(ctx, h.manager.List)
	case method == http.MethodGet && path == "/public/homepage":
		return h.list(ctx, h.manager.PublicList)
	case method == http.MethodPost && path == "/homepage/add":
		return h.add(ctx, req.Body)
	case method == http.MethodPut && strings.HasPrefix(path, "/homepage/edit/"):
		return h.edit(ctx, strings.TrimPrefix(path, "/homepage/edit/"), req.Body)
	case method == http.MethodDelete && strings.HasPrefix(path, "/homepage/delete/"):
		return h.delete(ctx, strings.TrimPrefix(path, "/homepage/delete/"))
	}
	return respond(http.StatusNotFound, map[string]string{"detail": "Not found"})
}

func (h *Handler) list(ctx context.Context, fetch func(context.Context) ([]home.View, error)) (events.APIGatewayV2HTTPResponse, error) {
	sections, err := fetch(ctx)
	if err != nil {
		return h.fail(err)
	}
	return respond(http.StatusOK, map[string]any{"sections": sections})
}

func (h *Handler) add(ctx context.Context, body string) (events.APIGatewayV2HTTPResponse, error) {
	var req sectionRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return respond(http.StatusBadRequest, map[string]string{"detail": "Invalid request body"})
	}
	position, err := h.manager.Add(ctx, req.CategoryID, req.ProductIDs)
	if err != nil {
		return h.fail(err)
	}
	return respond(http.StatusOK, map[string]any{
		"message": "Homepage section added",
		"s_no":    position,
	})
}

func (h *Handler) edit(ctx context.Context, rawPos, body string) (events.APIGatewayV2HTTPResponse, error) {
	target, err := strconv.ParseInt(rawPos, 10, 64)
	if err != nil {
		return respond(http.StatusBadRequest, map[string]string{"detail": "Invalid section position"})
	}
	var req sectionRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return respond(http.StatusBadRequest, map[string]string{"detail": "Invalid request body"})
	}
	if err := h.manager.Edit(ctx, target, req.CategoryID, req.ProductIDs, req.Position); err != nil {
		return h.fail(err)
	}
	return respond(http.StatusOK, map[string]string{
		"message": "Homepage section updated successfully",
	})
}

func (h *Handler) delete(ctx context.Context, rawPos string) (events.APIGatewayV2HTTPResponse, error) {
	position, err := strconv.ParseInt(rawPos, 10, 64)
	if err != nil {
		return respond(http.StatusBadRequest, map[string]string{"detail": "Invalid section position"})
	}
	if err := h.manager.Delete(ctx, position); err != nil {
		return h.fail(err)
	}
	return respond(http.StatusOK, map[string]string{
		"message": "Homepage section deleted successfully",
	})
}

// fail maps manager errors onto HTTP statuses. The error text already
// names the offending field.
func (h *Handler) fail(err error) (events.APIGatewayV2HTTPResponse, error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, home.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, home.ErrInvalidArgument),
		errors.Is(err, home.ErrInvalidReference),
		errors.Is(err, home.ErrCapacityExceeded):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
		return respond(status, map[string]string{"detail": "Internal server error"})
	}
	return respond(status, map[string]string{"detail": err.Error()})
}

func respond(status int, body any) (events.APIGatewayV2HTTPResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusInternalServerError}, nil
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(payload),
	}, nil
}
