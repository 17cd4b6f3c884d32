package rpc

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"agrochain/crypto"
	"agrochain/native/registry"
)

type addressParams struct {
	Address string `json:"address"`
}

type callerParams struct {
	Caller string `json:"caller"`
}

type verifierAdminParams struct {
	Caller   string `json:"caller"`
	Verifier string `json:"verifier"`
}

type verifyPracticeParams struct {
	Caller     string `json:"caller"`
	Farmer     string `json:"farmer"`
	PracticeID uint32 `json:"practiceId"`
}

type practiceParams struct {
	PracticeID uint32 `json:"practiceId"`
}

type farmerJSON struct {
	Address    string   `json:"address"`
	Registered bool     `json:"registered"`
	TotalScore uint64   `json:"totalScore"`
	LastClaim  uint64   `json:"lastClaim"`
	Practices  []uint32 `json:"practices"`
}

type practiceJSON struct {
	ID     uint32 `json:"id"`
	Name   string `json:"name"`
	Score  uint64 `json:"score"`
	Active bool   `json:"active"`
}

type claimJSON struct {
	Reward string `json:"reward"`
}

type okJSON struct {
	OK bool `json:"ok"`
}

func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return errors.New("exactly one parameter object expected")
	}
	return json.Unmarshal(req.Params[0], out)
}

func parseAddress(value string) ([20]byte, error) {
	var out [20]byte
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return out, errors.New("address required")
	}
	decoded, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return out, err
	}
	return decoded.Array(), nil
}

func formatAddress(addr [20]byte) string {
	return crypto.NewAddress(crypto.AgriPrefix, addr[:]).String()
}

func writeRegistryError(w http.ResponseWriter, id interface{}, err error) {
	if err == nil {
		return
	}
	status := http.StatusInternalServerError
	code := codeServerError
	message := "internal_error"
	switch {
	case errors.Is(err, registry.ErrNotAuthorized):
		status = http.StatusForbidden
		code = codeUnauthorized
		message = "not_authorized"
	case errors.Is(err, registry.ErrAlreadyRegistered):
		status = http.StatusConflict
		message = "already_registered"
	case errors.Is(err, registry.ErrNotRegistered):
		status = http.StatusNotFound
		message = "not_registered"
	case errors.Is(err, registry.ErrInvalidPractice):
		status = http.StatusBadRequest
		code = codeInvalidParams
		message = "invalid_practice"
	case errors.Is(err, registry.ErrCooldownActive):
		status = http.StatusConflict
		message = "cooldown_active"
	case errors.Is(err, registry.ErrPracticeLogFull):
		status = http.StatusConflict
		message = "practice_log_full"
	}
	writeError(w, status, id, code, message, err.Error())
}

func (s *Server) handleAddVerifier(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params verifierAdminParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	verifier, err := parseAddress(params.Verifier)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.ledger.AddVerifier(caller, verifier); err != nil {
		writeRegistryError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okJSON{OK: true})
}

func (s *Server) handleRemoveVerifier(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params verifierAdminParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	verifier, err := parseAddress(params.Verifier)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.ledger.RemoveVerifier(caller, verifier); err != nil {
		writeRegistryError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okJSON{OK: true})
}

func (s *Server) handleInitPractices(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params callerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.ledger.InitializePractices(caller); err != nil {
		writeRegistryError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okJSON{OK: true})
}

func (s *Server) handleRegisterFarmer(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params callerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.ledger.RegisterFarmer(caller); err != nil {
		writeRegistryError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okJSON{OK: true})
}

func (s *Server) handleVerifyPractice(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params verifyPracticeParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	farmer, err := parseAddress(params.Farmer)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if params.PracticeID == 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", "practiceId required")
		return
	}
	if err := s.ledger.VerifyPractice(caller, farmer, params.PracticeID); err != nil {
		writeRegistryError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okJSON{OK: true})
}

func (s *Server) handleClaimRewards(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params callerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	reward, err := s.ledger.ClaimRewards(caller)
	if err != nil {
		writeRegistryError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, claimJSON{Reward: reward.String()})
}

func (s *Server) handleGetFarmer(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params addressParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	record, found, err := s.ledger.GetFarmer(addr)
	if err != nil {
		writeRegistryError(w, req.ID, err)
		return
	}
	if !found {
		writeResult(w, req.ID, nil)
		return
	}
	practices := record.Practices
	if practices == nil {
		practices = []uint32{}
	}
	writeResult(w, req.ID, farmerJSON{
		Address:    formatAddress(addr),
		Registered: record.Registered,
		TotalScore: record.TotalScore,
		LastClaim:  record.LastClaim,
		Practices:  practices,
	})
}

func (s *Server) handleGetPractice(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params practiceParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	practice, found, err := s.ledger.GetPractice(params.PracticeID)
	if err != nil {
		writeRegistryError(w, req.ID, err)
		return
	}
	if !found {
		writeResult(w, req.ID, nil)
		return
	}
	writeResult(w, req.ID, practiceJSON{
		ID:     params.PracticeID,
		Name:   practice.Name,
		Score:  practice.Score,
		Active: practice.Active,
	})
}

func (s *Server) handleIsVerifier(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params addressParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	verifier, err := s.ledger.IsVerifier(addr)
	if err != nil {
		writeRegistryError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, verifier)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params addressParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	balance, err := s.ledger.Balance(addr)
	if err != nil {
		writeRegistryError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, balance.String())
}

func (s *Server) handleTokenSupply(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if len(req.Params) != 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", "no parameters expected")
		return
	}
	supply, err := s.ledger.TokenSupply()
	if err != nil {
		writeRegistryError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, supply.String())
}
