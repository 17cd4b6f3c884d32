package rpc

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"agrochain/core"
	"agrochain/crypto"
	"agrochain/storage"
)

type testEnv struct {
	server   *Server
	handler  http.Handler
	owner    crypto.Address
	verifier crypto.Address
	farmer   crypto.Address
}

const testAuthToken = "test-rpc-token"

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ownerKey, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate owner key: %v", err)
	}
	verifierKey, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate verifier key: %v", err)
	}
	farmerKey, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate farmer key: %v", err)
	}

	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	ledger, err := core.NewLedger(db, ownerKey.PubKey().Address().Array())
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	ledger.SetNowFunc(func() uint64 { return 2000 })

	server := NewServer(ledger)
	server.authToken = testAuthToken
	return &testEnv{
		server:   server,
		handler:  server.Router(),
		owner:    ownerKey.PubKey().Address(),
		verifier: verifierKey.PubKey().Address(),
		farmer:   farmerKey.PubKey().Address(),
	}
}

func (env *testEnv) call(t *testing.T, method string, authed bool, params interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  []interface{}{},
	}
	if params != nil {
		body["params"] = []interface{}{params}
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(encoded))
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+testAuthToken)
	}
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) (json.RawMessage, *RPCError) {
	t.Helper()
	var resp struct {
		Result json.RawMessage `json:"result"`
		Error  *RPCError       `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, rec.Body.String())
	}
	return resp.Result, resp.Error
}

func (env *testEnv) mustCall(t *testing.T, method string, params interface{}) json.RawMessage {
	t.Helper()
	rec := env.call(t, method, true, params)
	result, rpcErr := decodeResponse(t, rec)
	if rpcErr != nil {
		t.Fatalf("%s failed: %+v", method, rpcErr)
	}
	return result
}

func TestMutationsRequireAuth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.call(t, "registry_registerFarmer", false, map[string]string{"caller": env.farmer.String()})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	_, rpcErr := decodeResponse(t, rec)
	if rpcErr == nil || rpcErr.Code != codeUnauthorized {
		t.Fatalf("expected unauthorized error, got %+v", rpcErr)
	}
}

func TestMethodNotFound(t *testing.T) {
	env := newTestEnv(t)
	rec := env.call(t, "registry_unknown", false, nil)
	_, rpcErr := decodeResponse(t, rec)
	if rpcErr == nil || rpcErr.Code != codeMethodNotFound {
		t.Fatalf("expected method not found, got %+v", rpcErr)
	}
}

func TestAddVerifierRequiresOwner(t *testing.T) {
	env := newTestEnv(t)
	rec := env.call(t, "registry_addVerifier", true, map[string]string{
		"caller":   env.farmer.String(),
		"verifier": env.verifier.String(),
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	_, rpcErr := decodeResponse(t, rec)
	if rpcErr == nil || rpcErr.Message != "not_authorized" {
		t.Fatalf("expected not_authorized, got %+v", rpcErr)
	}
}

func TestRegisterFarmerConflict(t *testing.T) {
	env := newTestEnv(t)
	env.mustCall(t, "registry_registerFarmer", map[string]string{"caller": env.farmer.String()})

	rec := env.call(t, "registry_registerFarmer", true, map[string]string{"caller": env.farmer.String()})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	_, rpcErr := decodeResponse(t, rec)
	if rpcErr == nil || rpcErr.Message != "already_registered" {
		t.Fatalf("expected already_registered, got %+v", rpcErr)
	}
}

func TestVerifyPracticeRejectsBadAddress(t *testing.T) {
	env := newTestEnv(t)
	rec := env.call(t, "registry_verifyPractice", true, map[string]interface{}{
		"caller":     env.verifier.String(),
		"farmer":     "invalid",
		"practiceId": 1,
	})
	_, rpcErr := decodeResponse(t, rec)
	if rpcErr == nil || rpcErr.Code != codeInvalidParams {
		t.Fatalf("expected invalid params, got %+v", rpcErr)
	}
}

func TestFullFlowOverRPC(t *testing.T) {
	env := newTestEnv(t)

	env.mustCall(t, "registry_initPractices", map[string]string{"caller": env.owner.String()})
	env.mustCall(t, "registry_addVerifier", map[string]string{
		"caller":   env.owner.String(),
		"verifier": env.verifier.String(),
	})
	env.mustCall(t, "registry_registerFarmer", map[string]string{"caller": env.farmer.String()})
	env.mustCall(t, "registry_verifyPractice", map[string]interface{}{
		"caller":     env.verifier.String(),
		"farmer":     env.farmer.String(),
		"practiceId": 1,
	})
	env.mustCall(t, "registry_verifyPractice", map[string]interface{}{
		"caller":     env.verifier.String(),
		"farmer":     env.farmer.String(),
		"practiceId": 4,
	})

	result := env.mustCall(t, "registry_getFarmer", map[string]string{"address": env.farmer.String()})
	var farmer farmerJSON
	if err := json.Unmarshal(result, &farmer); err != nil {
		t.Fatalf("decode farmer: %v", err)
	}
	if farmer.TotalScore != 22 || len(farmer.Practices) != 2 {
		t.Fatalf("unexpected farmer: %+v", farmer)
	}

	result = env.mustCall(t, "registry_isVerifier", map[string]string{"address": env.verifier.String()})
	var isVerifier bool
	if err := json.Unmarshal(result, &isVerifier); err != nil {
		t.Fatalf("decode isVerifier: %v", err)
	}
	if !isVerifier {
		t.Fatalf("expected verifier true")
	}

	result = env.mustCall(t, "registry_claimRewards", map[string]string{"caller": env.farmer.String()})
	var claim claimJSON
	if err := json.Unmarshal(result, &claim); err != nil {
		t.Fatalf("decode claim: %v", err)
	}
	if claim.Reward != "2200" {
		t.Fatalf("unexpected reward: %s", claim.Reward)
	}

	result = env.mustCall(t, "registry_balance", map[string]string{"address": env.farmer.String()})
	var balance string
	if err := json.Unmarshal(result, &balance); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	if balance != "2200" {
		t.Fatalf("unexpected balance: %s", balance)
	}

	result = env.mustCall(t, "registry_tokenSupply", nil)
	var supply string
	if err := json.Unmarshal(result, &supply); err != nil {
		t.Fatalf("decode supply: %v", err)
	}
	if supply != "2200" {
		t.Fatalf("unexpected supply: %s", supply)
	}

	// An immediate follow-up claim is still cooling down.
	rec := env.call(t, "registry_claimRewards", true, map[string]string{"caller": env.farmer.String()})
	_, rpcErr := decodeResponse(t, rec)
	if rpcErr == nil || rpcErr.Message != "cooldown_active" {
		t.Fatalf("expected cooldown_active, got %+v", rpcErr)
	}

	// Absent farmers read back as null rather than an error.
	result = env.mustCall(t, "registry_getFarmer", map[string]string{"address": env.owner.String()})
	if string(result) != "null" && len(result) != 0 {
		t.Fatalf("expected null result, got %s", result)
	}
}

func TestGetPracticeAbsent(t *testing.T) {
	env := newTestEnv(t)
	env.mustCall(t, "registry_initPractices", map[string]string{"caller": env.owner.String()})

	result := env.mustCall(t, "registry_getPractice", map[string]uint32{"practiceId": 4})
	var practice practiceJSON
	if err := json.Unmarshal(result, &practice); err != nil {
		t.Fatalf("decode practice: %v", err)
	}
	if practice.Name != "Agroforestry" || practice.Score != 12 || !practice.Active {
		t.Fatalf("unexpected practice: %+v", practice)
	}

	result = env.mustCall(t, "registry_getPractice", map[string]uint32{"practiceId": 42})
	if string(result) != "null" && len(result) != 0 {
		t.Fatalf("expected null result, got %s", result)
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
