package api

import (
	"net/http"
)

func NewRouter(handler *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", handler.Health)
	mux.HandleFunc("/v1/honeypot/message", handler.Message)
	mux.HandleFunc("/v1/honeypot/end", handler.End)
	mux.HandleFunc("/v1/honeypot/sessions/", handler.Session)

	return mux
}
