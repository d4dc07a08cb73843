package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/dealerdesk/backend/api/transport"
	"github.com/dealerdesk/backend/domain"
	"github.com/dealerdesk/backend/pkg/httpcontext"
	"github.com/dealerdesk/backend/usecase/identity"
)

type AuthHandler struct {
	baseHandler
	resolver  *identity.Resolver
	jwtSecret string
	jwtIssuer string
}

func NewAuthHandler(resolver *identity.Resolver, jwtSecret, jwtIssuer string, adapter *httpcontext.Adapter, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		resolver:    resolver,
		jwtSecret:   jwtSecret,
		jwtIssuer:   jwtIssuer,
	}
}

// Login creates a session for the user and returns a bearer token plus the
// resolved identity.
func (h *AuthHandler) Login(ctx *fasthttp.RequestCtx) {
	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	var req transport.LoginRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || req.UserID == "" {
		h.respondError(ctx, domain.ErrInvalidPayload)
		return
	}

	ttl := time.Duration(req.TTL) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}

	session, ident, err := h.resolver.SignIn(reqCtx, req.UserID, ttl)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	token, err := h.issueToken(session, ident)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	h.respondSuccess(ctx, http.StatusOK, map[string]interface{}{
		"token":    token,
		"session":  session,
		"identity": ident,
	})
}

// Refresh pushes the session expiry forward.
func (h *AuthHandler) Refresh(ctx *fasthttp.RequestCtx) {
	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	var req transport.RefreshRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || req.SessionID == "" {
		h.respondError(ctx, domain.ErrInvalidPayload)
		return
	}

	if err := h.resolver.ExtendSession(reqCtx, req.SessionID, req.TTL); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]string{"session_id": req.SessionID})
}

// Logout revokes the session and wipes every per-user cache.
func (h *AuthHandler) Logout(ctx *fasthttp.RequestCtx) {
	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	var req transport.LogoutRequest
	_ = json.Unmarshal(ctx.PostBody(), &req)

	if err := h.resolver.SignOut(reqCtx, req.SessionID); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, nil)
}

// Me returns the resolved identity of the caller.
func (h *AuthHandler) Me(ctx *fasthttp.RequestCtx) {
	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	ident, err := h.resolver.Resolve(reqCtx, userID(ctx))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, ident)
}

func (h *AuthHandler) issueToken(session *domain.Session, ident domain.Identity) (string, error) {
	claims := jwt.MapClaims{
		"user_id":    ident.UserID,
		"session_id": session.ID,
		"iss":        h.jwtIssuer,
		"exp":        session.ExpiresAt.Unix(),
		"iat":        time.Now().Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.jwtSecret))
}
