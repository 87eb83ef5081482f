package billing

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adforge-app/adforge/internal/credits"
)

const testSecret = "test-webhook-secret"

func newTestHandler(t *testing.T) (*WebhookHandler, *credits.Service) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ledger := credits.NewService(credits.NewMemoryStore())
	return NewWebhookHandler(testSecret, rdb, ledger, nil), ledger
}

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func postEvent(t *testing.T, h *WebhookHandler, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/billing", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Billing-Signature", signature)
	}
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

func TestWebhook_PurchaseGrantsCredits(t *testing.T) {
	h, ledger := newTestHandler(t)
	userID := uuid.New()

	body := []byte(fmt.Sprintf(
		`{"id":"evt_1","type":"credit_pack.purchased","user_id":"%s","pack_id":"starter"}`, userID))
	rec := postEvent(t, h, body, sign(body))

	assert.Equal(t, http.StatusOK, rec.Code)

	balance, err := ledger.Balance(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("50")), "got %s", balance)

	txs, _, err := ledger.Transactions(context.Background(), userID, credits.ListParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, credits.KindPurchase, txs[0].Kind)
}

func TestWebhook_DuplicateEventGrantsOnce(t *testing.T) {
	h, ledger := newTestHandler(t)
	userID := uuid.New()

	body := []byte(fmt.Sprintf(
		`{"id":"evt_dup","type":"credit_pack.purchased","user_id":"%s","pack_id":"growth"}`, userID))

	first := postEvent(t, h, body, sign(body))
	second := postEvent(t, h, body, sign(body))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)

	balance, err := ledger.Balance(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("200")), "double grant: %s", balance)
}

func TestWebhook_BadSignatureRejected(t *testing.T) {
	h, ledger := newTestHandler(t)
	userID := uuid.New()

	body := []byte(fmt.Sprintf(
		`{"id":"evt_2","type":"credit_pack.purchased","user_id":"%s","pack_id":"starter"}`, userID))

	rec := postEvent(t, h, body, "deadbeef")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	missing := postEvent(t, h, body, "")
	assert.Equal(t, http.StatusUnauthorized, missing.Code)

	balance, err := ledger.Balance(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestWebhook_UnknownPackRejectedAndRetryable(t *testing.T) {
	h, ledger := newTestHandler(t)
	userID := uuid.New()

	bad := []byte(fmt.Sprintf(
		`{"id":"evt_3","type":"credit_pack.purchased","user_id":"%s","pack_id":"mega"}`, userID))
	rec := postEvent(t, h, bad, sign(bad))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	balance, err := ledger.Balance(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	// The failed attempt must not burn the event ID.
	good := []byte(fmt.Sprintf(
		`{"id":"evt_3","type":"credit_pack.purchased","user_id":"%s","pack_id":"starter"}`, userID))
	retry := postEvent(t, h, good, sign(good))
	assert.Equal(t, http.StatusOK, retry.Code)

	balance, err = ledger.Balance(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("50")))
}

func TestWebhook_UnknownEventTypeIgnored(t *testing.T) {
	h, ledger := newTestHandler(t)
	userID := uuid.New()

	body := []byte(fmt.Sprintf(
		`{"id":"evt_4","type":"invoice.paid","user_id":"%s","pack_id":"starter"}`, userID))
	rec := postEvent(t, h, body, sign(body))

	assert.Equal(t, http.StatusOK, rec.Code)

	balance, err := ledger.Balance(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestWebhook_MissingEventID(t *testing.T) {
	h, _ := newTestHandler(t)

	body := []byte(`{"type":"credit_pack.purchased","user_id":"x","pack_id":"starter"}`)
	rec := postEvent(t, h, body, sign(body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
