package router

import (
	"net/http"

	"github.com/UjraaTech/Ujraa-API/internal/auth"
	"github.com/UjraaTech/Ujraa-API/internal/credits"
	"github.com/UjraaTech/Ujraa-API/internal/escrow"
	"github.com/UjraaTech/Ujraa-API/internal/jobs"
	"github.com/UjraaTech/Ujraa-API/internal/payments"
	"github.com/UjraaTech/Ujraa-API/internal/proposals"
	"github.com/UjraaTech/Ujraa-API/internal/support"
)

// Middleware wraps a handler, typically for auth or precondition checks.
type Middleware func(http.Handler) http.Handler

// Handlers groups the per-domain HTTP handlers the router wires up.
type Handlers struct {
	Auth      *auth.Handler
	Credits   *credits.Handler
	Jobs      *jobs.Handler
	Proposals *proposals.Handler
	Escrow    *escrow.Handler
	Payments  *payments.Handler
	Support   *support.Handler
}

// New returns an http.Handler serving the API under /api/v1. Everything
// except registration, login and the payment webhook sits behind authn;
// proposal submission additionally passes the credit affordability check.
func New(h Handlers, authn, creditCheck Middleware) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"

	mux.HandleFunc("POST "+base+"/auth/register", h.Auth.Register)
	mux.HandleFunc("POST "+base+"/auth/login", h.Auth.Login)

	// The gateway authenticates webhooks with its own signature scheme,
	// verified before this mux, not with user tokens.
	mux.HandleFunc("POST "+base+"/webhooks/payment", h.Payments.HandleWebhook)

	mux.Handle("GET "+base+"/credits/balance", authn(http.HandlerFunc(h.Credits.Balance)))
	mux.Handle("GET "+base+"/credits/transactions", authn(http.HandlerFunc(h.Credits.Transactions)))

	mux.Handle("POST "+base+"/jobs", authn(http.HandlerFunc(h.Jobs.Create)))
	mux.Handle("GET "+base+"/jobs", authn(http.HandlerFunc(h.Jobs.List)))
	mux.Handle("GET "+base+"/jobs/{id}", authn(http.HandlerFunc(h.Jobs.Get)))
	mux.Handle("POST "+base+"/jobs/{id}/publish", authn(http.HandlerFunc(h.Jobs.Publish)))
	mux.Handle("POST "+base+"/jobs/{id}/complete", authn(http.HandlerFunc(h.Jobs.Complete)))
	mux.Handle("POST "+base+"/jobs/{id}/cancel", authn(http.HandlerFunc(h.Jobs.Cancel)))

	mux.Handle("POST "+base+"/jobs/{id}/proposals", authn(creditCheck(http.HandlerFunc(h.Proposals.Submit))))
	mux.Handle("GET "+base+"/jobs/{id}/proposals", authn(http.HandlerFunc(h.Proposals.ListByJob)))
	mux.Handle("POST "+base+"/proposals/{id}/accept", authn(http.HandlerFunc(h.Proposals.Accept)))
	mux.Handle("POST "+base+"/proposals/{id}/reject", authn(http.HandlerFunc(h.Proposals.Reject)))
	mux.Handle("POST "+base+"/proposals/{id}/withdraw", authn(http.HandlerFunc(h.Proposals.Withdraw)))

	mux.Handle("POST "+base+"/escrow/deposit", authn(http.HandlerFunc(h.Escrow.Deposit)))
	mux.Handle("GET "+base+"/escrow/transactions", authn(http.HandlerFunc(h.Escrow.Transactions)))
	mux.Handle("POST "+base+"/escrow/{id}/release", authn(http.HandlerFunc(h.Escrow.Release)))
	mux.Handle("POST "+base+"/escrow/{id}/dispute", authn(http.HandlerFunc(h.Escrow.Dispute)))
	mux.Handle("POST "+base+"/escrow/{id}/refund", authn(http.HandlerFunc(h.Escrow.Refund)))

	mux.Handle("POST "+base+"/payouts", authn(http.HandlerFunc(h.Payments.RequestPayout)))

	mux.Handle("GET "+base+"/support/tickets", authn(http.HandlerFunc(h.Support.List)))
	mux.Handle("GET "+base+"/support/tickets/{id}", authn(http.HandlerFunc(h.Support.Get)))

	return mux
}
