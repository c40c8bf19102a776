package relay

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"authrelay/internal/downstream"
	"authrelay/internal/provider"
	"authrelay/pkg/logging"
)

// Handler implements the two inbound endpoints of the relay: /authorize,
// where downstream clients start a flow, and /callback, where the upstream
// provider returns. The handler keeps no per-flow state; everything a flow
// needs travels in the upstream state parameter and the consent cookie.
type Handler struct {
	provider   provider.Provider
	engine     *downstream.Engine
	registry   *downstream.Registry
	signingKey []byte
	consentTTL time.Duration
	metrics    *Metrics
}

// NewHandler builds the relay handler. metrics may be nil when flow counters
// are not wanted, for example in tests.
func NewHandler(p provider.Provider, engine *downstream.Engine, registry *downstream.Registry, signingKey []byte, consentTTL time.Duration, metrics *Metrics) *Handler {
	return &Handler{
		provider:   p,
		engine:     engine,
		registry:   registry,
		signingKey: signingKey,
		consentTTL: consentTTL,
		metrics:    metrics,
	}
}

// Register attaches the relay endpoints to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/authorize", h.ServeAuthorize)
	mux.HandleFunc("/callback", h.ServeCallback)
}

// ServeAuthorize dispatches on method: GET shows or skips the consent
// dialog, POST records the user's decision.
func (h *Handler) ServeAuthorize(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.serveAuthorizeGet(w, r)
	case http.MethodPost:
		h.serveAuthorizePost(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) serveAuthorizeGet(w http.ResponseWriter, r *http.Request) {
	h.count(func(m *Metrics) { m.FlowsStarted.Inc() })

	req, err := downstream.ParseAuthorizationRequest(r)
	if err != nil {
		h.fail(w, StageAuthorize, http.StatusBadRequest, err.Error())
		return
	}

	client, ok := h.registry.Get(req.ClientID)
	if !ok {
		h.fail(w, StageAuthorize, http.StatusBadRequest, fmt.Sprintf("unknown client: %s", req.ClientID))
		return
	}

	if ClientApproved(r, req.ClientID, h.signingKey) {
		state, err := EncodeState(req)
		if err != nil {
			h.fail(w, StageAuthorize, http.StatusInternalServerError, "failed to prepare authorization request")
			return
		}
		logging.Debug("Relay", "Consent cookie valid for client %s, skipping dialog", req.ClientID)
		h.count(func(m *Metrics) { m.ConsentSkipped.Inc() })
		http.Redirect(w, r, h.provider.AuthorizeURL(state), http.StatusFound)
		return
	}

	encoded, err := EncodeState(req)
	if err != nil {
		h.fail(w, StageAuthorize, http.StatusInternalServerError, "failed to prepare authorization request")
		return
	}

	renderConsentPage(w, consentPageData{
		ClientName:     client.Name,
		ClientID:       client.ID,
		ProviderName:   h.provider.Name(),
		Scope:          req.Scope,
		EncodedRequest: encoded,
	})
}

func (h *Handler) serveAuthorizePost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.fail(w, StageAuthorize, http.StatusBadRequest, "malformed form submission")
		return
	}

	req, err := DecodeState(r.PostFormValue("request"))
	if err != nil {
		h.fail(w, StageAuthorize, http.StatusBadRequest, err.Error())
		return
	}

	if r.PostFormValue("action") == "deny" {
		h.count(func(m *Metrics) { m.ConsentDenied.Inc() })
		h.denyRedirect(w, r, req)
		return
	}

	cookie, err := ApproveClient(r, req.ClientID, h.signingKey, h.consentTTL)
	if err != nil {
		h.fail(w, StageAuthorize, http.StatusInternalServerError, "failed to record consent")
		return
	}
	http.SetCookie(w, cookie)

	state, err := EncodeState(req)
	if err != nil {
		h.fail(w, StageAuthorize, http.StatusInternalServerError, "failed to prepare authorization request")
		return
	}

	logging.Info("Relay", "Client %s approved, redirecting to %s", req.ClientID, h.provider.Name())
	h.count(func(m *Metrics) { m.ConsentApproved.Inc() })
	http.Redirect(w, r, h.provider.AuthorizeURL(state), http.StatusFound)
}

// denyRedirect sends the user back to the downstream client with the
// standard access_denied error when a redirect target is known, and reports
// the denial directly otherwise.
func (h *Handler) denyRedirect(w http.ResponseWriter, r *http.Request, req *downstream.AuthorizationRequest) {
	target, err := h.registry.ValidateRedirectURI(req.ClientID, req.RedirectURI)
	if err != nil {
		http.Error(w, "authorization denied", http.StatusForbidden)
		return
	}
	u, err := url.Parse(target)
	if err != nil {
		http.Error(w, "authorization denied", http.StatusForbidden)
		return
	}
	q := u.Query()
	q.Set("error", "access_denied")
	if req.State != "" {
		q.Set("state", req.State)
	}
	u.RawQuery = q.Encode()
	http.Redirect(w, r, u.String(), http.StatusFound)
}

// ServeCallback finishes the flow when the upstream provider redirects back.
// It exchanges the upstream code, resolves the user's identity, and completes
// the downstream authorization with the identity and token joined into the
// grant's capability context.
func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	req, err := DecodeState(q.Get("state"))
	if err != nil {
		h.fail(w, StageState, http.StatusBadRequest, err.Error())
		return
	}

	// A callback without a code is a client mistake, not an upstream
	// rejection; it gets its own failure stage and never dispatches.
	code := q.Get("code")
	if code == "" {
		h.fail(w, StageCallback, http.StatusBadRequest, "missing authorization code")
		return
	}

	result := h.provider.ExchangeCode(r.Context(), code)
	if !result.OK() {
		logging.Warn("Relay", "Upstream code exchange failed for client %s: %s", req.ClientID, result.Err.Error())
		h.count(func(m *Metrics) { m.FlowsFailed.WithLabelValues(StageExchange).Inc() })
		result.Err.Write(w)
		return
	}

	identity, errResp := h.provider.FetchIdentity(r.Context(), result.AccessToken)
	if errResp != nil {
		logging.Warn("Relay", "Identity fetch failed for client %s: %s", req.ClientID, errResp.Error())
		h.count(func(m *Metrics) { m.FlowsFailed.WithLabelValues(StageIdentity).Inc() })
		errResp.Write(w)
		return
	}

	props := &downstream.Props{
		Name:        identity.Name,
		Email:       identity.Email,
		AccessToken: result.AccessToken,
	}

	redirect, err := h.engine.CompleteAuthorization(req, identity.Subject, props)
	if err != nil {
		h.fail(w, StageGrant, http.StatusBadRequest, err.Error())
		return
	}

	logging.Info("Relay", "Flow completed for client %s, user %s", req.ClientID, logging.TruncateSubject(identity.Subject))
	h.count(func(m *Metrics) { m.FlowsCompleted.Inc() })
	http.Redirect(w, r, redirect, http.StatusFound)
}

func (h *Handler) fail(w http.ResponseWriter, stage string, status int, message string) {
	logging.Warn("Relay", "Flow failed at %s: %s", stage, message)
	h.count(func(m *Metrics) { m.FlowsFailed.WithLabelValues(stage).Inc() })
	http.Error(w, message, status)
}

func (h *Handler) count(fn func(*Metrics)) {
	if h.metrics != nil {
		fn(h.metrics)
	}
}
