package vault

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lockboxhq/lockbox/pkg/clientip"
	"github.com/lockboxhq/lockbox/pkg/jwt"
	"github.com/lockboxhq/lockbox/pkg/keymaterial"
	"github.com/lockboxhq/lockbox/pkg/logger"
)

// secretHeader carries the context secret on guarded read/write requests, so
// it never appears in URLs or access logs.
const secretHeader = "X-Encryption-Key"

// Handler exposes the vault service over HTTP. Mount its Routes under an
// authenticated router; every handler resolves the owner from JWT claims.
type Handler struct {
	svc *Service
	log *slog.Logger
}

// NewHandler creates the HTTP handler for the vault module.
func NewHandler(svc *Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Handler{svc: svc, log: log}
}

// Routes returns the module's route tree.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/keys", h.generateSecret)

	r.Route("/contexts", func(r chi.Router) {
		r.Post("/", h.createContext)
		r.Get("/", h.listContexts)

		r.Route("/{contextID}", func(r chi.Router) {
			r.Get("/", h.getContext)
			r.Patch("/", h.renameContext)
			r.Delete("/", h.deleteContext)
			r.Post("/verify", h.verifyKey)
			r.Post("/rotate", h.rotateKey)

			r.Route("/records", func(r chi.Router) {
				r.Post("/", h.storeRecord)
				r.Get("/", h.listRecords)
				r.Get("/{recordID}", h.getRecord)
				r.Put("/{recordID}", h.updateRecord)
				r.Delete("/{recordID}", h.deleteRecord)
			})
		})
	})

	return r
}

type contextResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
}

func toContextResponse(ec Context) contextResponse {
	return contextResponse{
		ID:        ec.ID,
		Name:      ec.Name,
		CreatedAt: ec.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: ec.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// generateSecret hands out a fresh random secret for a new context. The
// server does not remember it; losing it before creating the context costs
// nothing.
func (h *Handler) generateSecret(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.owner(w, r); !ok {
		return
	}
	secret, err := keymaterial.GenerateSecret()
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"secret": secret})
}

func (h *Handler) createContext(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req struct {
		Name   string `json:"name"`
		Secret string `json:"secret"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	ec, err := h.svc.CreateContext(r.Context(), ownerID, req.Name, req.Secret)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, toContextResponse(ec))
}

func (h *Handler) listContexts(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	contexts, err := h.svc.ListContexts(r.Context(), ownerID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	out := make([]contextResponse, 0, len(contexts))
	for _, ec := range contexts {
		out = append(out, toContextResponse(ec))
	}
	respond(w, http.StatusOK, out)
}

func (h *Handler) getContext(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	contextID, ok := pathID(w, r, "contextID")
	if !ok {
		return
	}

	ec, err := h.svc.GetContext(r.Context(), ownerID, contextID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, toContextResponse(ec))
}

func (h *Handler) renameContext(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	contextID, ok := pathID(w, r, "contextID")
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.svc.RenameContext(r.Context(), ownerID, contextID, req.Name); err != nil {
		h.respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, nil)
}

func (h *Handler) deleteContext(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	contextID, ok := pathID(w, r, "contextID")
	if !ok {
		return
	}

	if err := h.svc.DeleteContext(r.Context(), ownerID, contextID); err != nil {
		h.respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, nil)
}

func (h *Handler) verifyKey(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	contextID, ok := pathID(w, r, "contextID")
	if !ok {
		return
	}

	var req struct {
		Secret string `json:"secret"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.svc.VerifyKey(r.Context(), ownerID, contextID, req.Secret, clientip.GetIP(r)); err != nil {
		h.respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]bool{"valid": true})
}

func (h *Handler) rotateKey(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	contextID, ok := pathID(w, r, "contextID")
	if !ok {
		return
	}

	var req struct {
		OldSecret string `json:"old_secret"`
		NewSecret string `json:"new_secret"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.svc.RotateKey(r.Context(), ownerID, contextID, req.OldSecret, req.NewSecret, clientip.GetIP(r)); err != nil {
		h.respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, nil)
}

func (h *Handler) storeRecord(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	contextID, ok := pathID(w, r, "contextID")
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	rec, err := h.svc.StoreRecord(r.Context(), ownerID, contextID, r.Header.Get(secretHeader), req.Text, clientip.GetIP(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, map[string]any{"id": rec.ID})
}

func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	contextID, ok := pathID(w, r, "contextID")
	if !ok {
		return
	}

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	page, err := h.svc.Records(r.Context(), ownerID, contextID, r.Header.Get(secretHeader), clientip.GetIP(r), offset, limit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, page)
}

func (h *Handler) getRecord(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	contextID, ok := pathID(w, r, "contextID")
	if !ok {
		return
	}
	recordID, ok := pathID(w, r, "recordID")
	if !ok {
		return
	}

	rec, err := h.svc.GetRecord(r.Context(), ownerID, contextID, recordID, r.Header.Get(secretHeader), clientip.GetIP(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, rec)
}

func (h *Handler) updateRecord(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	contextID, ok := pathID(w, r, "contextID")
	if !ok {
		return
	}
	recordID, ok := pathID(w, r, "recordID")
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.svc.UpdateRecord(r.Context(), ownerID, contextID, recordID, r.Header.Get(secretHeader), req.Text, clientip.GetIP(r)); err != nil {
		h.respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, nil)
}

func (h *Handler) deleteRecord(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	contextID, ok := pathID(w, r, "contextID")
	if !ok {
		return
	}
	recordID, ok := pathID(w, r, "recordID")
	if !ok {
		return
	}

	if err := h.svc.DeleteRecord(r.Context(), ownerID, contextID, recordID); err != nil {
		h.respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, nil)
}

// owner resolves the authenticated owner from JWT claims. Writes a 401 and
// returns false when the request carries no usable subject.
func (h *Handler) owner(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	claims, ok := jwt.GetClaims(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "authentication required")
		return uuid.Nil, false
	}
	ownerID, err := uuid.Parse(claims.Subject)
	if err != nil {
		respondMessage(w, http.StatusUnauthorized, "authentication required")
		return uuid.Nil, false
	}
	return ownerID, true
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		respondMessage(w, http.StatusNotFound, ErrNotFound.Error())
		return uuid.Nil, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Message           string `json:"message"`
	RemainingAttempts *int   `json:"remaining_attempts,omitempty"`
	RetryAfterSeconds *int   `json:"retry_after_seconds,omitempty"`
}

func respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Error: &errorBody{Message: message}})
}

// respondError maps service errors to HTTP status codes. Denials carry the
// lockout status through so clients can show remaining attempts or wait time.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var accessErr *AccessError
	if errors.As(err, &accessErr) {
		body := errorBody{Message: accessErr.Error()}
		status := http.StatusForbidden
		if errors.Is(err, ErrLockedOut) {
			status = http.StatusTooManyRequests
			retry := int(accessErr.Status.RetryIn.Seconds())
			body.RetryAfterSeconds = &retry
			w.Header().Set("Retry-After", strconv.Itoa(retry))
		} else {
			remaining := accessErr.Status.RemainingAttempts
			body.RemainingAttempts = &remaining
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(envelope{Error: &body})
		return
	}

	switch {
	case errors.Is(err, ErrNotFound):
		respondMessage(w, http.StatusNotFound, ErrNotFound.Error())
	case errors.Is(err, ErrNameTaken):
		respondMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrNameTooShort),
		errors.Is(err, ErrNameTooLong),
		errors.Is(err, ErrEmptyText),
		errors.Is(err, ErrTextTooLarge),
		errors.Is(err, ErrSameSecret),
		errors.Is(err, keymaterial.ErrSecretLength),
		errors.Is(err, keymaterial.ErrSecretCharset),
		errors.Is(err, keymaterial.ErrWeakSecret):
		respondMessage(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.log.ErrorContext(r.Context(), "vault request failed", logger.Error(err))
		respondMessage(w, http.StatusInternalServerError, "internal server error")
	}
}
