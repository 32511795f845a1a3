// Copyright (c) 2026 VeilForms, Inc.
//
// This file is part of veilkey.
//
// veilkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@veilforms.com for commercial licensing options.

package rest

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/veilforms/veilkey/pkg/encoding/jwk"
	"github.com/veilforms/veilkey/pkg/keyring"
	"github.com/veilforms/veilkey/pkg/veilkey"
)

// HandlerContext holds the dependencies shared by all handlers.
type HandlerContext struct {
	service *veilkey.Service
	version string
}

// NewHandlerContext creates a handler context over the facade service.
func NewHandlerContext(service *veilkey.Service, version string) *HandlerContext {
	return &HandlerContext{
		service: service,
		version: version,
	}
}

// HealthHandler reports server liveness.
func (h *HandlerContext) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{Status: "ok", Version: h.version}, http.StatusOK)
}

// CreateKeysHandler generates the first key pair for a form. The response
// carries the public key and a one-time download URL; the private key
// itself never appears in this response body.
//
// POST /api/forms/{formId}/keys
func (h *HandlerContext) CreateKeysHandler(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formId")

	var req CreateKeysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, ErrInvalidRequest, http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		writeError(w, ErrMissingUserID, http.StatusBadRequest)
		return
	}

	res, err := h.service.CreateFormKeys(r.Context(), formID, req.UserID)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, CreateKeysResponse{
		FormID:      res.FormID,
		Version:     res.Version,
		PublicKey:   res.PublicKey,
		DownloadURL: res.Disclosure.DownloadURL,
		ExpiresAt:   res.Disclosure.ExpiresAt,
	}, http.StatusCreated)
}

// DownloadKeyHandler performs the one-time private key disclosure. The
// token arrives as a query parameter; a token minted for another form is
// treated as unknown.
//
// GET /api/forms/{formId}/download-key?token={token}
func (h *HandlerContext) DownloadKeyHandler(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formId")

	tokenID := r.URL.Query().Get("token")
	if tokenID == "" {
		writeError(w, ErrMissingToken, http.StatusBadRequest)
		return
	}

	tok, err := h.service.RedeemDownloadToken(r.Context(), formID, tokenID)
	if err != nil {
		handleError(w, err)
		return
	}

	privateKey, err := jwk.Unmarshal(tok.EncryptedPrivateKey)
	if err != nil {
		handleError(w, ErrInternalError)
		return
	}

	writeJSON(w, DownloadKeyResponse{
		FormID:     tok.FormID,
		UserID:     tok.UserID,
		PrivateKey: privateKey,
	}, http.StatusOK)
}

// RotateKeysHandler rotates a form's keys. The fresh private key is
// returned inline to the authenticated owner; previous public keys stay
// resolvable for historical submissions.
//
// POST /api/forms/{formId}/rotate
func (h *HandlerContext) RotateKeysHandler(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formId")

	var req RotateKeysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, ErrInvalidRequest, http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		writeError(w, ErrMissingUserID, http.StatusBadRequest)
		return
	}

	res, err := h.service.RotateFormKeys(r.Context(), formID, req.UserID)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, RotateKeysResponse{
		FormID:          res.FormID,
		NewVersion:      res.NewKeyPair.Version,
		PreviousVersion: res.PreviousVersion,
		PublicKey:       res.NewKeyPair.PublicKey,
		PrivateKey:      res.NewKeyPair.PrivateKey,
		Warning:         RotationWarning,
	}, http.StatusOK)
}

// PublicKeyHandler returns the active public key, or a historical
// version when ?version=N is given.
//
// GET /api/forms/{formId}/public-key[?version=N]
func (h *HandlerContext) PublicKeyHandler(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formId")

	versionParam := r.URL.Query().Get("version")
	if versionParam == "" {
		key, version, err := h.service.ActivePublicKey(r.Context(), formID)
		if err != nil {
			handleError(w, err)
			return
		}
		writeJSON(w, PublicKeyResponse{FormID: formID, Version: version, PublicKey: key}, http.StatusOK)
		return
	}

	version, err := strconv.ParseUint(versionParam, 10, 64)
	if err != nil || version == 0 {
		writeError(w, ErrInvalidVersion, http.StatusBadRequest)
		return
	}

	key, err := h.service.PublicKey(r.Context(), formID, version)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, PublicKeyResponse{FormID: formID, Version: version, PublicKey: key}, http.StatusOK)
}

// ListVersionsHandler lists every key version of a form.
//
// GET /api/forms/{formId}/versions
func (h *HandlerContext) ListVersionsHandler(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formId")

	infos, err := h.service.KeyVersions(r.Context(), formID)
	if err != nil {
		handleError(w, err)
		return
	}

	resp := ListVersionsResponse{
		FormID:   formID,
		Versions: make([]VersionInfo, 0, len(infos)),
	}
	for _, info := range infos {
		if info.State == keyring.KeyStateActive {
			resp.CurrentVersion = info.Version
		}
		resp.Versions = append(resp.Versions, VersionInfo{
			Version: info.Version,
			Kid:     info.Kid,
			State:   string(info.State),
			Created: info.Created,
		})
	}
	writeJSON(w, resp, http.StatusOK)
}
