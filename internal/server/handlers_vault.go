package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mediavault-app/mediavault/internal/models"
)

type unlockRequest struct {
	Passphrase string `json:"passphrase"`
}

type unlockResponse struct {
	Session string `json:"session"`
}

// handleUnlock verifies the passphrase and establishes an unlocked
// session. The passphrase arrives only in the request body, never in a
// URL, and is not logged.
func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	var req unlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, models.ErrCodeConfig, "invalid request body")
		return
	}

	token, err := s.sessions.Create()
	if err != nil {
		s.logger.WithError(err).Error("Session creation failed")
		writeError(w, http.StatusInternalServerError, models.ErrCodeAuth, "internal error")
		return
	}

	ownerID, _ := s.sessions.Lookup(token)

	if _, err := s.manager.Unlock(token, ownerID, req.Passphrase); err != nil {
		s.sessions.Delete(token)
		if errors.Is(err, models.ErrInvalidPassphrase) {
			writeError(w, http.StatusUnauthorized, models.ErrCodeAuth, "unlock failed")
			return
		}
		s.logger.WithError(err).Error("Unlock failed")
		writeError(w, http.StatusInternalServerError, models.ErrCodeVaultState, "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(s.cfg.Server.SessionTTL.Seconds()),
	})

	setNoStore(w)
	writeJSON(w, http.StatusOK, &unlockResponse{Session: token})
}

// handleLock destroys the session's key context. Grant revocation and
// the client lock-event broadcast run inside manager.Lock via the
// registered observers, before this handler writes its response.
func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	token, _, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	s.manager.Lock(token)
	s.sessions.Delete(token)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	setNoStore(w)
	writeJSON(w, http.StatusOK, map[string]bool{"locked": true})
}

// handleSignURL mints a capability for one resource fetch. Requires an
// unlocked vault; returns 401 when locked so the client can prompt for
// the passphrase rather than retrying.
func (s *Server) handleSignURL(w http.ResponseWriter, r *http.Request) {
	token, ownerID, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	var req models.SignURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, models.ErrCodeConfig, "invalid request body")
		return
	}
	if req.ResourceID == "" {
		writeError(w, http.StatusBadRequest, models.ErrCodeConfig, "resource_id required")
		return
	}

	variant := req.Variant
	if variant == "" {
		variant = models.VariantMedia
	}
	if variant != models.VariantMedia && variant != models.VariantThumbnail {
		writeError(w, http.StatusBadRequest, models.ErrCodeConfig, "invalid variant")
		return
	}

	vctx, err := s.manager.Context(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, models.ErrCodeVaultState, "vault is locked")
		return
	}

	capToken, err := s.issuer.Issue(req.ResourceID, ownerID, variant, vctx)
	if err != nil {
		if errors.Is(err, models.ErrVaultLocked) {
			writeError(w, http.StatusUnauthorized, models.ErrCodeVaultState, "vault is locked")
			return
		}
		s.logger.WithError(err).Error("Capability issuance failed")
		writeError(w, http.StatusInternalServerError, models.ErrCodeCapability, "internal error")
		return
	}

	setNoStore(w)
	writeJSON(w, http.StatusOK, &models.SignURLResponse{
		Signature: capToken.Signature,
		ExpiresAt: capToken.ExpiresAt,
	})
}

// handleEvents subscribes the session to vault lifecycle events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	_, ownerID, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	s.hub.Subscribe(w, r, ownerID)
}
