package controllers

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/QuizFox/internal/pkg/affiliate"
	"github.com/ManuelReschke/QuizFox/internal/pkg/billing"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"authentication", billing.ErrInvalidSignature, fiber.StatusUnauthorized, `{"error":"invalid_signature","message":"notification signature mismatch"}`},
		{"malformed id", billing.Describe(billing.ErrMalformedOrderID, "order id \"x\" is malformed"), fiber.StatusBadRequest, `{"error":"malformed_order_id","message":"order id \"x\" is malformed"}`},
		{"validation with cause", billing.Wrap(billing.ErrInvalidRequest, errors.New("plan is required")), fiber.StatusBadRequest, `{"error":"invalid_request","message":"request is invalid: plan is required"}`},
		{"not found", affiliate.ErrWithdrawalNotFound, fiber.StatusNotFound, ""},
		{"conflict", affiliate.ErrAlreadyProcessed, fiber.StatusConflict, ""},
		{"insufficient funds", affiliate.ErrInsufficientFunds, fiber.StatusUnprocessableEntity, ""},
		{"upstream hides cause", billing.Wrap(billing.ErrGatewayUnavailable, errors.New("dial tcp 10.0.0.1:443")), fiber.StatusBadGateway, `{"error":"gateway_unavailable","message":"payment gateway request failed"}`},
		{"plain error", errors.New("deadlock found"), fiber.StatusInternalServerError, `{"error":"internal_server_error","message":"Internal server error"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return writeError(c, tt.err) })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.body != "" {
				raw, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.JSONEq(t, tt.body, string(raw))
			}
		})
	}
}

func TestParseIDParam(t *testing.T) {
	app := fiber.New()
	app.Get("/:id", func(c *fiber.Ctx) error {
		id, ok := parseIDParam(c, "id")
		if !ok {
			return badRequest(c, "Invalid id")
		}
		return c.JSON(fiber.Map{"id": id})
	})

	for path, status := range map[string]int{"/12": fiber.StatusOK, "/0": fiber.StatusBadRequest, "/-3": fiber.StatusBadRequest, "/abc": fiber.StatusBadRequest} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		assert.Equal(t, status, resp.StatusCode, path)
	}
}
