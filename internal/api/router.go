// internal/api/router.go
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"vedavault/internal/catalog"
	"vedavault/internal/changefeed"
	"vedavault/internal/identity"
	"vedavault/internal/lending"
	"vedavault/internal/review"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Identity *identity.Handler
	Catalog  *catalog.Handler
	Lending  *lending.Handler
	Review   *review.Handler
	Feed     *changefeed.Handler
	Issuer   *identity.TokenIssuer
}

// NewRouter wires the public API. Reads that the predicate table opens
// to anyone are unauthenticated; every mutation sits behind the bearer
// token middleware so an actor is always present.
func NewRouter(h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/register", h.Identity.HandleRegister)
	r.Post("/login", h.Identity.HandleLogin)
	r.Get("/profiles/{id}", h.Identity.HandleGetProfile)

	r.Get("/books", h.Catalog.HandleListBooks)
	r.Get("/books/{id}", h.Catalog.HandleGetBook)
	r.Get("/books/{id}/reviews", h.Review.HandleListBookReviews)
	r.Get("/feed/books", h.Feed.HandleStream)

	r.Group(func(r chi.Router) {
		r.Use(identity.RequireAuth(h.Issuer))

		r.Patch("/profiles/{id}", h.Identity.HandleUpdateProfile)

		r.Post("/books", h.Catalog.HandleCreateBook)
		r.Delete("/books/{id}", h.Catalog.HandleDeleteBook)
		r.Get("/me/books", h.Catalog.HandleListOwnBooks)

		r.Post("/books/{id}/reviews", h.Review.HandleAddReview)
		r.Patch("/reviews/{id}", h.Review.HandleUpdateReview)
		r.Delete("/reviews/{id}", h.Review.HandleDeleteReview)

		r.Post("/transactions", h.Lending.HandleRequestBorrow)
		r.Get("/transactions", h.Lending.HandleListTransactions)
		r.Get("/transactions/{id}", h.Lending.HandleGetTransaction)
		r.Patch("/transactions/{id}", h.Lending.HandleUpdateStatus)
		r.Post("/transactions/{id}/payments", h.Lending.HandleRecordPayment)
		r.Get("/transactions/{id}/payments", h.Lending.HandleListPayments)
	})

	return r
}
