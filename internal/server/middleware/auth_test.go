package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef-secret"

// testTokenValidator accepts a fixed set of tokens.
type testTokenValidator struct {
	validTokens map[string]string
}

func newTestTokenValidator() *testTokenValidator {
	return &testTokenValidator{validTokens: make(map[string]string)}
}

func (v *testTokenValidator) addValidToken(token, subject string) {
	v.validTokens[token] = subject
}

func (v *testTokenValidator) ValidateToken(tokenString string) (SubjectGetter, error) {
	subject, ok := v.validTokens[tokenString]
	if !ok {
		return nil, fmt.Errorf("invalid token")
	}
	return testClaims(subject), nil
}

type testClaims string

func (c testClaims) GetSubject() (string, error) {
	return string(c), nil
}

// captureHandler records the caller seen by the wrapped handler
func captureHandler(caller *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*caller = GetCaller(r)
		w.WriteHeader(http.StatusOK)
	})
}

func serve(t *testing.T, opts AuthOptions, authHeader string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	var caller string
	handler := TriggerAuth(opts)(captureHandler(&caller))

	req := httptest.NewRequest(http.MethodPost, "/api/cron/generate-news", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w, caller
}

func TestTriggerAuth_Secret(t *testing.T) {
	w, caller := serve(t, AuthOptions{Secret: testSecret}, "Bearer "+testSecret)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, CallerSecret, caller)
}

func TestTriggerAuth_CaseInsensitiveScheme(t *testing.T) {
	w, _ := serve(t, AuthOptions{Secret: testSecret}, "bearer "+testSecret)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTriggerAuth_SignedToken(t *testing.T) {
	validator := newTestTokenValidator()
	validator.addValidToken("signed-token", "scheduler")

	w, caller := serve(t, AuthOptions{Secret: testSecret, Validator: validator}, "Bearer signed-token")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "scheduler", caller)
}

func TestTriggerAuth_Rejected(t *testing.T) {
	validator := newTestTokenValidator()
	validator.addValidToken("signed-token", "scheduler")

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong secret", header: "Bearer not-the-secret"},
		{name: "basic scheme", header: "Basic " + testSecret},
		{name: "no token", header: "Bearer"},
		{name: "extra parts", header: "Bearer a b"},
		{name: "secret as prefix", header: "Bearer " + testSecret + "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rejected := 0
			opts := AuthOptions{
				Secret:    testSecret,
				Validator: validator,
				OnReject:  func(*http.Request) { rejected++ },
			}
			w, caller := serve(t, opts, tt.header)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Empty(t, caller)
			assert.Equal(t, 1, rejected)

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "Unauthorized", body["error"])
		})
	}
}

func TestTriggerAuth_NoSecretConfigured(t *testing.T) {
	// An empty secret must never match an empty or arbitrary token
	w, _ := serve(t, AuthOptions{}, "Bearer anything")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTriggerAuth_AllowUnauthenticated(t *testing.T) {
	w, caller := serve(t, AuthOptions{AllowUnauthenticated: true}, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, CallerAnonymous, caller)
}

func TestGetCaller_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, GetCaller(req))
}
