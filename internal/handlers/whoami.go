package handlers

import (
	"net/http"

	"github.com/nkiryanov/bookstore/internal/handlers/principal"
	"github.com/nkiryanov/bookstore/internal/handlers/render"
)

// Shows principal the request runs with
func handleWhoami() http.Handler {
	type response struct {
		UserID    int64  `json:"userId"`
		Role      string `json:"role"`
		Authority string `json:"authority"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := principal.FromContext(r.Context())
		render.JSON(w, response{UserID: p.UserID, Role: p.Role.String(), Authority: p.Authority()})
	})
}
