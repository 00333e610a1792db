package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"webhook-dispatcher/internal/core/ports"
	"webhook-dispatcher/internal/core/ports/mocks"
	"webhook-dispatcher/internal/service"
	"webhook-dispatcher/pkg/apperror"
	"webhook-dispatcher/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testClientSecret = "ingest-shared-secret"

type hmacFixture struct {
	clients    *mocks.MockIngestClients
	encSvc     *mocks.MockEncryptionService
	nonceStore *mocks.MockNonceStore
	router     *gin.Engine
}

func newHMACFixture(t *testing.T) *hmacFixture {
	ctrl := gomock.NewController(t)
	f := &hmacFixture{
		clients:    mocks.NewMockIngestClients(ctrl),
		encSvc:     mocks.NewMockEncryptionService(ctrl),
		nonceStore: mocks.NewMockNonceStore(ctrl),
	}
	f.router = gin.New()
	f.router.POST("/api/v1/events",
		HMACAuth(f.clients, f.encSvc, service.NewHMACSignatureService(), f.nonceStore, zerolog.Nop()),
		func(c *gin.Context) {
			body, _ := io.ReadAll(c.Request.Body)
			c.JSON(http.StatusOK, gin.H{"client_id": c.GetString(CtxClientID), "body": string(body)})
		})
	return f
}

func signedRequest(secret, accessKey, nonce string, ts int64, body []byte) *http.Request {
	sig := service.NewHMACSignatureService()
	canonical := sig.BuildCanonicalString(http.MethodPost, "/api/v1/events", ts, nonce, string(body))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", bytes.NewReader(body))
	req.Header.Set(HeaderAccessKey, accessKey)
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(HeaderNonce, nonce)
	req.Header.Set(HeaderSignature, sig.Sign(secret, []byte(canonical)))
	return req
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	code, _ := resp["error_code"].(string)
	return code
}

func TestHMACAuth_Success(t *testing.T) {
	f := newHMACFixture(t)
	f.clients.EXPECT().SecretFor("Billing").Return("enc-secret", true)
	f.nonceStore.EXPECT().CheckAndSet(gomock.Any(), "billing", "nonce-1", nonceTTL).Return(true, nil)
	f.encSvc.EXPECT().Decrypt("enc-secret").Return(testClientSecret, nil)

	body := []byte(`{"event":"user.created","data":{"id":"u1"}}`)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, signedRequest(testClientSecret, "Billing", "nonce-1", time.Now().Unix(), body))

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "billing", resp["client_id"])
	assert.Equal(t, string(body), resp["body"], "body must be readable after verification")
}

func TestHMACAuth_MissingHeaders(t *testing.T) {
	f := newHMACFixture(t)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/events", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "SEC_001", errorCode(t, w))
}

func TestHMACAuth_TimestampDrift(t *testing.T) {
	tests := []struct {
		name string
		ts   int64
	}{
		{"too old", time.Now().Add(-2 * time.Minute).Unix()},
		{"too far ahead", time.Now().Add(2 * time.Minute).Unix()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHMACFixture(t)
			w := httptest.NewRecorder()
			f.router.ServeHTTP(w, signedRequest(testClientSecret, "billing", "n", tt.ts, []byte(`{}`)))

			assert.Equal(t, http.StatusForbidden, w.Code)
			assert.Equal(t, "SEC_003", errorCode(t, w))
		})
	}
}

func TestHMACAuth_NonNumericTimestamp(t *testing.T) {
	f := newHMACFixture(t)
	req := signedRequest(testClientSecret, "billing", "n", time.Now().Unix(), []byte(`{}`))
	req.Header.Set(HeaderTimestamp, "yesterday")

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, "SEC_003", errorCode(t, w))
}

func TestHMACAuth_UnknownClient(t *testing.T) {
	f := newHMACFixture(t)
	f.clients.EXPECT().SecretFor("stranger").Return("", false)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, signedRequest(testClientSecret, "stranger", "n", time.Now().Unix(), []byte(`{}`)))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "SEC_001", errorCode(t, w))
}

func TestHMACAuth_ReplayedNonce(t *testing.T) {
	f := newHMACFixture(t)
	f.clients.EXPECT().SecretFor("billing").Return("enc-secret", true)
	f.nonceStore.EXPECT().CheckAndSet(gomock.Any(), "billing", "used", nonceTTL).Return(false, nil)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, signedRequest(testClientSecret, "billing", "used", time.Now().Unix(), []byte(`{}`)))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "SEC_004", errorCode(t, w))
}

func TestHMACAuth_NonceStoreDownStillVerifies(t *testing.T) {
	f := newHMACFixture(t)
	f.clients.EXPECT().SecretFor("billing").Return("enc-secret", true)
	f.nonceStore.EXPECT().CheckAndSet(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(false, errors.New("redis down"))
	f.encSvc.EXPECT().Decrypt("enc-secret").Return(testClientSecret, nil)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, signedRequest(testClientSecret, "billing", "n", time.Now().Unix(), []byte(`{}`)))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHMACAuth_BadSignature(t *testing.T) {
	f := newHMACFixture(t)
	f.clients.EXPECT().SecretFor("billing").Return("enc-secret", true)
	f.nonceStore.EXPECT().CheckAndSet(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(true, nil)
	f.encSvc.EXPECT().Decrypt("enc-secret").Return(testClientSecret, nil)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, signedRequest("some-other-secret", "billing", "n", time.Now().Unix(), []byte(`{}`)))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "SEC_002", errorCode(t, w))
}

func TestHMACAuth_TamperedBody(t *testing.T) {
	f := newHMACFixture(t)
	f.clients.EXPECT().SecretFor("billing").Return("enc-secret", true)
	f.nonceStore.EXPECT().CheckAndSet(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(true, nil)
	f.encSvc.EXPECT().Decrypt("enc-secret").Return(testClientSecret, nil)

	ts := time.Now().Unix()
	req := signedRequest(testClientSecret, "billing", "n", ts, []byte(`{"event":"user.created"}`))
	req.Body = io.NopCloser(bytes.NewReader([]byte(`{"event":"user.deleted"}`)))

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, "SEC_002", errorCode(t, w))
}

func TestHMACAuth_UndecryptableSecret(t *testing.T) {
	f := newHMACFixture(t)
	f.clients.EXPECT().SecretFor("billing").Return("garbage", true)
	f.nonceStore.EXPECT().CheckAndSet(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(true, nil)
	f.encSvc.EXPECT().Decrypt("garbage").Return("", errors.New("cipher: message authentication failed"))

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, signedRequest(testClientSecret, "billing", "n", time.Now().Unix(), []byte(`{}`)))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "SYS_003", errorCode(t, w))
}

func newJWTRouter(tokenSvc ports.TokenService) *gin.Engine {
	r := gin.New()
	r.GET("/admin", JWTAuth(tokenSvc, zerolog.Nop()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"subject": c.GetString(CtxSubject)})
	})
	return r
}

func TestJWTAuth_MissingHeader(t *testing.T) {
	ctrl := gomock.NewController(t)
	router := newJWTRouter(mocks.NewMockTokenService(ctrl))

	for _, header := range []string{"", "Bearer ", "Basic abc", "bearer token"} {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
	}
}

func TestJWTAuth_InvalidToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	tokenSvc := mocks.NewMockTokenService(ctrl)
	tokenSvc.EXPECT().Validate("expired").Return(nil, errors.New("token is expired"))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer expired")
	w := httptest.NewRecorder()
	newJWTRouter(tokenSvc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "AUTH_001", errorCode(t, w))
}

func TestJWTAuth_Success(t *testing.T) {
	tokenSvc := service.NewJWTTokenService("unit-test-jwt-secret-with-some-length", time.Hour, "pulse-webhooks")
	token, _, err := tokenSvc.Generate("ops@example.com")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	newJWTRouter(tokenSvc).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ops@example.com")
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(CtxRequestID)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	generated := w.Header().Get(HeaderRequestID)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get(HeaderRequestID))
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	r := gin.New()
	r.Use(RequestID(), RequestLogger(zerolog.New(&buf)))
	r.GET("/missing/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing/42", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "/missing/:id", entry["path"])
	assert.Equal(t, float64(http.StatusNotFound), entry["status"])
	assert.NotEmpty(t, entry["request_id"])
}

func TestRequestLogger_ReportsServerErrorCause(t *testing.T) {
	var buf bytes.Buffer
	r := gin.New()
	r.Use(RequestID(), RequestLogger(zerolog.New(&buf)))
	r.GET("/logs", func(c *gin.Context) {
		response.Error(c, apperror.ErrDatabaseError(errors.New("connection reset")))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/logs", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Contains(t, entry["cause"], "connection reset")
	assert.NotContains(t, w.Body.String(), "connection reset")
}

func TestRecovery_PanicRecovered(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(zerolog.Nop()))
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "SYS_001", errorCode(t, w))
}
