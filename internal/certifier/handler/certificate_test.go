package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/opencertify/certledger/internal/certifier/handler"
	"github.com/opencertify/certledger/internal/certifier/repository"
	"github.com/opencertify/certledger/internal/certifier/service"
	"github.com/opencertify/certledger/internal/identity"
	"github.com/opencertify/certledger/internal/ledger"
	"go.uber.org/zap"
)

const (
	certifierAddr = "0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1"
	auditorAddr   = "0x22d491Bde2303f2f43325b2108D26f1eAbA1e32b"
)

type testServer struct {
	router *gin.Engine
	store  *repository.MemoryStore
	chain  *ledger.MemoryLedger
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := identity.NewRegistry(identity.DefaultSigners())
	store := repository.NewMemoryStore()
	chain := ledger.NewMemory(reg)
	svc := service.NewCertificateService(store, chain, zap.NewNop())

	router := gin.New()
	api := router.Group("/")
	api.Use(identity.CallerIdentity(reg, nil))
	handler.NewCertificateHandler(svc, zap.NewNop()).Register(api)

	return &testServer{router: router, store: store, chain: chain}
}

func (ts *testServer) do(t *testing.T, method, path, signer, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if signer != "" {
		req.Header.Set("X-Signer", signer)
	}

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("non-JSON response (%d): %s", w.Code, w.Body.String())
	}
	return w, resp
}

const certBody = `{
	"certificateId": "CERT-1",
	"productId": "prod-77",
	"manufacturerId": "mfg-12",
	"certifyingBodyId": "body-3",
	"issueDate": "2025-03-01",
	"expiryDate": "2027-03-01"
}`

func TestAddCertificate_ok(t *testing.T) {
	ts := newTestServer(t)

	w, resp := ts.do(t, http.MethodPost, "/addCertificate", certifierAddr, certBody)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if resp["success"] != true {
		t.Error("success flag not set")
	}
	txHash, _ := resp["txHash"].(string)
	if !strings.HasPrefix(txHash, "0x") {
		t.Errorf("txHash = %q", txHash)
	}
}

func TestAddCertificate_missingField(t *testing.T) {
	ts := newTestServer(t)

	body := `{"certificateId": "CERT-1", "productId": "prod-77"}`
	w, resp := ts.do(t, http.MethodPost, "/addCertificate", certifierAddr, body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if resp["category"] != "validation_error" {
		t.Errorf("category = %v", resp["category"])
	}
}

func TestAddCertificate_malformedJSON(t *testing.T) {
	ts := newTestServer(t)

	w, resp := ts.do(t, http.MethodPost, "/addCertificate", certifierAddr, `{"certificateId": `)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if resp["category"] != "validation_error" {
		t.Errorf("category = %v", resp["category"])
	}
}

func TestAddCertificate_noSigner(t *testing.T) {
	ts := newTestServer(t)

	w, resp := ts.do(t, http.MethodPost, "/addCertificate", "", certBody)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	if resp["category"] != "permission_denied" {
		t.Errorf("category = %v", resp["category"])
	}
}

func TestAddCertificate_auditorForbidden(t *testing.T) {
	ts := newTestServer(t)

	w, resp := ts.do(t, http.MethodPost, "/addCertificate", auditorAddr, certBody)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	if resp["category"] != "permission_denied" {
		t.Errorf("category = %v", resp["category"])
	}
}

func TestGetCertificate_ok(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/addCertificate", certifierAddr, certBody)

	w, resp := ts.do(t, http.MethodGet, "/getCertificate/CERT-1", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	data, _ := resp["data"].(map[string]any)
	if data == nil {
		t.Fatal("response has no data object")
	}
	if data["certificateId"] != "CERT-1" || data["productId"] != "prod-77" {
		t.Errorf("data = %v", data)
	}
	if data["isValid"] != true {
		t.Error("certificate should read valid")
	}
	hash, _ := data["offchainDataHash"].(string)
	if !strings.HasPrefix(hash, "0x") {
		t.Errorf("offchainDataHash = %q", hash)
	}
}

func TestGetCertificate_notFound(t *testing.T) {
	ts := newTestServer(t)

	w, resp := ts.do(t, http.MethodGet, "/getCertificate/nonexistent", "", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if resp["category"] != "not_found" {
		t.Errorf("category = %v", resp["category"])
	}
}

func TestGetCertificate_invalidated(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/addCertificate", certifierAddr, certBody)
	ts.do(t, http.MethodPost, "/invalidateCertificate/CERT-1", certifierAddr, "")

	w, resp := ts.do(t, http.MethodGet, "/getCertificate/CERT-1", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	data, _ := resp["data"].(map[string]any)
	if data == nil {
		t.Fatal("response has no data object")
	}
	if data["isValid"] != false {
		t.Error("invalidated certificate should read invalid")
	}
	if _, leaked := data["productId"]; leaked {
		t.Error("invalidated read leaked stored detail")
	}
}

func TestGetCertificate_tamperedIs500(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/addCertificate", certifierAddr, certBody)

	rec, err := ts.store.FindByID(context.Background(), "CERT-1")
	if err != nil {
		t.Fatal(err)
	}
	rec.ExpiryDate = "2099-01-01"
	if err := ts.store.Upsert(context.Background(), rec); err != nil {
		t.Fatal(err)
	}

	w, resp := ts.do(t, http.MethodGet, "/getCertificate/CERT-1", "", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if resp["category"] != "integrity_violation" {
		t.Errorf("category = %v", resp["category"])
	}
}

func TestGetCertificate_orphanIs500(t *testing.T) {
	ts := newTestServer(t)

	if _, err := ts.chain.CommitCertificate(context.Background(), certifierAddr, "CERT-1",
		"0x6b86b273ff34fce19d6b804eff5a3f5747ada4eaa22f1d49c01e52ddb7875b4b", true); err != nil {
		t.Fatal(err)
	}

	w, resp := ts.do(t, http.MethodGet, "/getCertificate/CERT-1", "", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if resp["category"] != "inconsistency" {
		t.Errorf("category = %v", resp["category"])
	}
}

func TestInvalidateCertificate_flow(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/addCertificate", certifierAddr, certBody)

	w, resp := ts.do(t, http.MethodPost, "/invalidateCertificate/CERT-1", certifierAddr, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if resp["success"] != true {
		t.Error("success flag not set")
	}

	// A repeat is a conflict, not a success.
	w, resp = ts.do(t, http.MethodPost, "/invalidateCertificate/CERT-1", certifierAddr, "")
	if w.Code != http.StatusConflict {
		t.Fatalf("second invalidate status = %d, want 409", w.Code)
	}
	if resp["category"] != "already_invalid" {
		t.Errorf("category = %v", resp["category"])
	}
}

func TestInvalidateCertificate_notFound(t *testing.T) {
	ts := newTestServer(t)

	w, resp := ts.do(t, http.MethodPost, "/invalidateCertificate/nonexistent", certifierAddr, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if resp["category"] != "not_found" {
		t.Errorf("category = %v", resp["category"])
	}
}

func TestInvalidateCertificate_noSigner(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/addCertificate", certifierAddr, certBody)

	w, _ := ts.do(t, http.MethodPost, "/invalidateCertificate/CERT-1", "", "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestRepairCertificate_flow(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/addCertificate", certifierAddr, certBody)

	// Invalidate on the ledger only, leaving the store mirror stale.
	if _, err := ts.chain.InvalidateCertificate(context.Background(), certifierAddr, "CERT-1"); err != nil {
		t.Fatal(err)
	}

	w, resp := ts.do(t, http.MethodPost, "/repairCertificate/CERT-1", auditorAddr, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if resp["repaired"] != true || resp["isValid"] != false {
		t.Errorf("repair response = %v", resp)
	}

	rec, err := ts.store.FindByID(context.Background(), "CERT-1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.IsValid {
		t.Error("repair did not sync the store mirror")
	}
}
