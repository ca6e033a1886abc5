//go:build integration

package router_test

// End-to-end tests against real Postgres + Redis via testcontainers.
// Run with: go test -tags integration ./internal/router/... -v

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tradecore/internal/config"
	"tradecore/internal/infra"
	"tradecore/internal/middleware"
	"tradecore/internal/router"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

const testSecret = "e2e-secret-key"

// ── Helpers ──────────────────────────────────────────────────────────────────

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func do(t *testing.T, srv *httptest.Server, method, path string, body *bytes.Buffer, token string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, srv.URL+path, body)
	} else {
		req, err = http.NewRequest(method, srv.URL+path, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// mintToken issues a token the way the identity service would.
func mintToken(t *testing.T, companyID uuid.UUID) string {
	t.Helper()
	claims := middleware.Claims{
		UserID:    uuid.NewString(),
		CompanyID: companyID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

// ── Test Suite Setup ─────────────────────────────────────────────────────────

type testEnv struct {
	server      *httptest.Server
	buyerToken  string
	sellerToken string
	buyerID     uuid.UUID
	sellerID    uuid.UUID
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("tradecore_test"),
		tcPostgres.WithUsername("tradecore"),
		tcPostgres.WithPassword("tradecore"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx,
		testcontainers.WithImage("redis:7-alpine"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Port:           8000,
		Env:            "test",
		JWTSecret:      testSecret,
		DatabaseURL:    pgURL,
		RedisURL:       rdURL,
		WorkerPoolSize: 1,
		PDFStoragePath: t.TempDir(),
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)
	require.NoError(t, infra.RunMigrations(db))

	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	buyerID := uuid.New()
	sellerID := uuid.New()
	for id, name := range map[uuid.UUID]string{
		buyerID:  "Acme Trading LLC",
		sellerID: "Globex Supplies Inc",
	} {
		err := db.Exec(`INSERT INTO companies (id, name, contact_email, active, created_at, updated_at)
			VALUES (?, ?, ?, true, NOW(), NOW())`, id, name, "deals@example.test").Error
		require.NoError(t, err)
	}

	srv := httptest.NewServer(router.New(cfg, db, rdb))
	t.Cleanup(srv.Close)

	return &testEnv{
		server:      srv,
		buyerToken:  mintToken(t, buyerID),
		sellerToken: mintToken(t, sellerID),
		buyerID:     buyerID,
		sellerID:    sellerID,
	}
}

type dealBody struct {
	DealID      string `json:"deal_id"`
	Version     int    `json:"version"`
	Status      string `json:"status"`
	TotalAmount string `json:"total_amount"`
	Comment     string `json:"comment"`
}

func createDeal(t *testing.T, env *testEnv) dealBody {
	t.Helper()
	resp := do(t, env.server, "POST", "/v1/deals",
		jsonBody(t, map[string]any{
			"seller_id": env.sellerID.String(),
			"deal_type": "goods",
			"items": []map[string]any{
				{"product_name": "Steel pipe 40mm", "quantity": "2", "unit_price": "100"},
			},
		}),
		env.buyerToken,
	)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var deal dealBody
	decodeJSON(t, resp, &deal)
	return deal
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestE2E_DealVersionLifecycle(t *testing.T) {
	env := setupTestEnv(t)

	deal := createDeal(t, env)
	assert.Equal(t, 1, deal.Version)
	assert.Equal(t, "200", deal.TotalAmount)

	// seller spins a new version with a comment override
	resp := do(t, env.server, "POST", fmt.Sprintf("/v1/deals/%s/versions", deal.DealID),
		jsonBody(t, map[string]any{"comment": "revised delivery window"}), env.sellerToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var v2 dealBody
	decodeJSON(t, resp, &v2)
	assert.Equal(t, 2, v2.Version)
	assert.Equal(t, "200", v2.TotalAmount)

	// latest resolves to v2, exact lookup still serves v1
	resp = do(t, env.server, "GET", "/v1/deals/"+deal.DealID, nil, env.buyerToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var latest dealBody
	decodeJSON(t, resp, &latest)
	assert.Equal(t, 2, latest.Version)

	resp = do(t, env.server, "GET", "/v1/deals/"+deal.DealID+"?version=1", nil, env.buyerToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var v1 dealBody
	decodeJSON(t, resp, &v1)
	assert.Equal(t, 1, v1.Version)
	assert.Empty(t, v1.Comment)

	// rollback
	resp = do(t, env.server, "DELETE", fmt.Sprintf("/v1/deals/%s/versions/last", deal.DealID), nil, env.buyerToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var deleted struct {
		DeletedVersion int `json:"deleted_version"`
	}
	decodeJSON(t, resp, &deleted)
	assert.Equal(t, 2, deleted.DeletedVersion)

	resp = do(t, env.server, "GET", "/v1/deals/"+deal.DealID, nil, env.buyerToken)
	decodeJSON(t, resp, &latest)
	assert.Equal(t, 1, latest.Version)
}

func TestE2E_ConcurrentVersionConflict(t *testing.T) {
	env := setupTestEnv(t)
	deal := createDeal(t, env)

	// fire two version creations in parallel from the same latest
	results := make(chan int, 2)
	for i := 0; i < 2; i++ {
		go func() {
			resp := do(t, env.server, "POST", fmt.Sprintf("/v1/deals/%s/versions", deal.DealID),
				jsonBody(t, map[string]any{}), env.buyerToken)
			resp.Body.Close()
			results <- resp.StatusCode
		}()
	}
	codes := []int{<-results, <-results}

	// exactly one winner; the loser either hit the unique index (409) or
	// serialized behind the winner and produced version 3 (201, 201)
	winners := 0
	for _, code := range codes {
		if code == http.StatusCreated {
			winners++
		} else {
			assert.Equal(t, http.StatusConflict, code)
		}
	}
	assert.GreaterOrEqual(t, winners, 1)
}

func TestE2E_ApprovalAndDocuments(t *testing.T) {
	env := setupTestEnv(t)
	deal := createDeal(t, env)

	// propose + bilateral accept
	resp := do(t, env.server, "POST", fmt.Sprintf("/v1/deals/%s/propose", deal.DealID), jsonBody(t, map[string]any{}), env.buyerToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, env.server, "POST", fmt.Sprintf("/v1/deals/%s/accept", deal.DealID), jsonBody(t, map[string]any{}), env.buyerToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, env.server, "POST", fmt.Sprintf("/v1/deals/%s/accept", deal.DealID), jsonBody(t, map[string]any{}), env.sellerToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var completed dealBody
	decodeJSON(t, resp, &completed)
	assert.Equal(t, "completed", completed.Status)

	// transitions on a completed version are rejected
	resp = do(t, env.server, "POST", fmt.Sprintf("/v1/deals/%s/reject", deal.DealID), jsonBody(t, map[string]any{}), env.sellerToken)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// document: default read, then buyer saves, seller reads the buyer's payload
	resp = do(t, env.server, "GET", fmt.Sprintf("/v1/deals/%s/documents/bill", deal.DealID), nil, env.sellerToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var doc struct {
		Payload   map[string]any `json:"payload"`
		UpdatedBy *string        `json:"updated_by"`
	}
	decodeJSON(t, resp, &doc)
	assert.Empty(t, doc.Payload)
	assert.Nil(t, doc.UpdatedBy)

	resp = do(t, env.server, "PUT", fmt.Sprintf("/v1/deals/%s/documents/bill", deal.DealID),
		jsonBody(t, map[string]any{"payload": map[string]any{"number": "B-7"}}), env.buyerToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, env.server, "GET", fmt.Sprintf("/v1/deals/%s/documents/bill", deal.DealID), nil, env.sellerToken)
	decodeJSON(t, resp, &doc)
	assert.Equal(t, "B-7", doc.Payload["number"])
	require.NotNil(t, doc.UpdatedBy)
	assert.Equal(t, env.buyerID.String(), *doc.UpdatedBy)
}

func TestE2E_AuthAndAccessGating(t *testing.T) {
	env := setupTestEnv(t)
	deal := createDeal(t, env)

	// no token
	resp := do(t, env.server, "GET", "/v1/deals/"+deal.DealID, nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// authenticated stranger
	resp = do(t, env.server, "GET", "/v1/deals/"+deal.DealID, nil, mintToken(t, uuid.New()))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// health is public
	resp = do(t, env.server, "GET", "/health", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}
