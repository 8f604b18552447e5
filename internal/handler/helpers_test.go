package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/casedesk-api/internal/auth"
	"github.com/noah-isme/casedesk-api/internal/middleware"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type tokenTable map[string]auth.Identity

func (t tokenTable) Verify(token string) (auth.Identity, error) {
	identity, ok := t[token]
	if !ok {
		return auth.Identity{}, auth.ErrUnauthorized
	}
	return identity, nil
}

var testTokens = tokenTable{
	"client-token": {ID: "5", Role: "client", FullName: "Ada Client"},
	"lawyer-token": {ID: "9", Role: "lawyer", FullName: "Bo Lawyer"},
	"admin-token":  {ID: "1", Role: "admin", FullName: "Root Admin"},
}

func authenticated() fiber.Handler {
	return middleware.Authenticate(testTokens)
}

func doRequest(t *testing.T, app *fiber.App, method, target, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(data, target))
}
