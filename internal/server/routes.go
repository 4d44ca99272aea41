package server

import "net/http"

// routes builds the route table. The session token is the service's
// identity mechanism; capability signatures gate only the media fetch
// endpoints.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Vault lifecycle
	mux.HandleFunc("POST /vault/unlock", s.handleUnlock)
	mux.HandleFunc("POST /vault/lock", s.handleLock)
	mux.HandleFunc("POST /vault/sign-url", s.handleSignURL)
	mux.HandleFunc("GET /vault/events", s.handleEvents)

	// Media
	mux.HandleFunc("PUT /media/{id}", s.handleMediaPut)
	mux.HandleFunc("PUT /media/{id}/thumbnail", s.handleThumbnailPut)
	mux.HandleFunc("DELETE /media/{id}", s.handleMediaDelete)
	mux.HandleFunc("GET /media/{id}", s.handleMediaGet)
	mux.HandleFunc("GET /media/{id}/thumbnail", s.handleThumbnailGet)

	return mux
}
