package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/mediavault-app/mediavault/internal/crypto"
	"github.com/mediavault-app/mediavault/internal/models"
	"github.com/mediavault-app/mediavault/internal/vault"
)

// handleMediaPut stores a media blob. With the vault unlocked the body
// is encrypted under the session's vault key before it touches disk;
// `?encrypt=false` stores a public, unencrypted resource.
func (s *Server) handleMediaPut(w http.ResponseWriter, r *http.Request) {
	token, ownerID, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	encrypt := r.URL.Query().Get("encrypt") != "false"

	body, err := io.ReadAll(io.LimitReader(r.Body, s.cfg.Storage.MaxFileSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, models.ErrCodeStorage, "read body")
		return
	}
	if int64(len(body)) > s.cfg.Storage.MaxFileSize {
		writeError(w, http.StatusRequestEntityTooLarge, models.ErrCodeStorage, "blob too large")
		return
	}

	data := body
	if encrypt {
		vctx, err := s.manager.Context(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, models.ErrCodeVaultState, "vault is locked")
			return
		}

		data, err = s.encryptUnderContext(vctx, body)
		if err != nil {
			s.logger.WithError(err).Error("Media encryption failed")
			writeError(w, http.StatusInternalServerError, models.ErrCodeDecryption, "internal error")
			return
		}
	}

	if err := s.blobs.WriteMedia(id, data); err != nil {
		s.logger.WithError(err).Error("Blob write failed")
		writeError(w, http.StatusInternalServerError, models.ErrCodeStorage, "internal error")
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	s.resources.Put(&models.Resource{
		ID:          id,
		OwnerID:     ownerID,
		ContentType: contentType,
		Size:        int64(len(body)),
		Encrypted:   encrypt,
	})

	setNoStore(w)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":        id,
		"encrypted": encrypt,
		"size":      len(body),
	})
}

// handleThumbnailPut stores an encrypted thumbnail variant. Thumbnails
// for encrypted media are always encrypted; generation itself happens
// upstream.
func (s *Server) handleThumbnailPut(w http.ResponseWriter, r *http.Request) {
	token, _, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	size := r.URL.Query().Get("size")
	if !models.ThumbnailSizes[size] {
		writeError(w, http.StatusBadRequest, models.ErrCodeConfig, "invalid size")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, s.cfg.Storage.MaxFileSize+1))
	if err != nil || int64(len(body)) > s.cfg.Storage.MaxFileSize {
		writeError(w, http.StatusBadRequest, models.ErrCodeStorage, "invalid body")
		return
	}

	vctx, err := s.manager.Context(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, models.ErrCodeVaultState, "vault is locked")
		return
	}

	data, err := s.encryptUnderContext(vctx, body)
	if err != nil {
		s.logger.WithError(err).Error("Thumbnail encryption failed")
		writeError(w, http.StatusInternalServerError, models.ErrCodeDecryption, "internal error")
		return
	}

	if err := s.blobs.WriteThumbnail(id, size, data); err != nil {
		s.logger.WithError(err).Error("Thumbnail write failed")
		writeError(w, http.StatusInternalServerError, models.ErrCodeStorage, "internal error")
		return
	}

	setNoStore(w)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"id": id, "size": size})
}

// handleMediaDelete removes a resource and its thumbnails.
func (s *Server) handleMediaDelete(w http.ResponseWriter, r *http.Request) {
	_, _, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if err := s.blobs.Delete(id); err != nil {
		s.logger.WithError(err).Error("Blob delete failed")
		writeError(w, http.StatusInternalServerError, models.ErrCodeStorage, "internal error")
		return
	}
	s.resources.Delete(id)

	w.WriteHeader(http.StatusNoContent)
}

// handleMediaGet serves media bytes. For an encrypted resource a valid
// capability signature is the only path to decrypted bytes; its
// absence or invalidity is an authorization failure regardless of
// whether the resource exists, and there is no unencrypted fallback.
func (s *Server) handleMediaGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	res, known := s.resources.Get(id)
	if known && !res.Encrypted {
		// Public resource: served as stored, cacheable.
		data, err := s.blobs.ReadMedia(id)
		if err != nil {
			writeError(w, http.StatusNotFound, models.ErrCodeStorage, "not found")
			return
		}
		setPublicCache(w)
		w.Header().Set("Content-Type", res.ContentType)
		_, _ = w.Write(data)
		return
	}

	s.serveDecrypted(w, r, id, models.VariantMedia, func() ([]byte, error) {
		return s.blobs.ReadMedia(id)
	})
}

// handleThumbnailGet serves a decrypted thumbnail variant.
func (s *Server) handleThumbnailGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	size := r.URL.Query().Get("size")
	if size == "" {
		size = "medium"
	}
	if !models.ThumbnailSizes[size] {
		setNoStore(w)
		writeError(w, http.StatusBadRequest, models.ErrCodeConfig, "invalid size")
		return
	}

	s.serveDecrypted(w, r, id, models.VariantThumbnail, func() ([]byte, error) {
		return s.blobs.ReadThumbnail(id, size)
	})
}

// serveDecrypted runs the shared capability-gated decrypt path:
// validate the signature first, read and decrypt only afterwards. Every
// response on this path carries no-store directives, failures included.
func (s *Server) serveDecrypted(w http.ResponseWriter, r *http.Request, resourceID string, variant models.FetchVariant, read func() ([]byte, error)) {
	setNoStore(w)

	token := sessionToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, models.ErrCodeAuth, "session required")
		return
	}
	ownerID, ok := s.sessions.Lookup(token)
	if !ok {
		writeError(w, http.StatusUnauthorized, models.ErrCodeAuth, "session required")
		return
	}

	if r.URL.Query().Get("decrypt") != "true" {
		writeAuthError(w)
		return
	}

	sig := r.URL.Query().Get("sig")
	if err := s.issuer.Validate(sig, resourceID, variant, ownerID); err != nil {
		if models.IsCapabilityDenied(err) {
			writeAuthError(w)
			return
		}
		s.logger.WithError(err).Error("Capability validation failed")
		writeError(w, http.StatusInternalServerError, models.ErrCodeCapability, "internal error")
		return
	}

	vctx, err := s.manager.Context(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, models.ErrCodeVaultState, "vault is locked")
		return
	}

	blob, err := read()
	if err != nil {
		if errors.Is(err, models.ErrResourceNotFound) {
			writeError(w, http.StatusNotFound, models.ErrCodeStorage, "not found")
			return
		}
		s.logger.WithError(err).Error("Blob read failed")
		writeError(w, http.StatusInternalServerError, models.ErrCodeStorage, "internal error")
		return
	}

	plaintext, err := s.decryptUnderContext(vctx, blob)
	if err != nil {
		// Wrong key and corrupt blob produce the same failure; the
		// client sees a denial either way.
		s.logger.WithError(&models.DecryptError{ResourceID: resourceID, Err: err}).Error("Decryption failed")
		writeAuthError(w)
		return
	}

	contentType := "application/octet-stream"
	if res, known := s.resources.Get(resourceID); known && variant == models.VariantMedia {
		contentType = res.ContentType
	}

	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(plaintext)
}

// encryptUnderContext encrypts with the context's captured key; the
// copy is zeroed before returning.
func (s *Server) encryptUnderContext(vctx *vault.Context, plaintext []byte) ([]byte, error) {
	key, err := vctx.Key()
	if err != nil {
		return nil, err
	}
	defer crypto.Zero(key)

	salt, err := vctx.Salt()
	if err != nil {
		return nil, err
	}

	return s.engine.EncryptWithKey(plaintext, key, salt)
}

// decryptUnderContext decrypts with the context's captured key.
func (s *Server) decryptUnderContext(vctx *vault.Context, blob []byte) ([]byte, error) {
	key, err := vctx.Key()
	if err != nil {
		return nil, err
	}
	defer crypto.Zero(key)

	return s.engine.DecryptWithKey(blob, key)
}
