package catalog

// HTTP handlers for the catalog.
//
// Mutating routes expect the x-user-id / x-is-admin headers forwarded by
// the Gateway.
//
// Routes:
//
//	POST   /companies                     → create company (admin)
//	GET    /companies                     → list companies (name, minEmployees, maxEmployees)
//	GET    /companies/{handle}            → company with its jobs
//	PATCH  /companies/{handle}            → partial update (admin)
//	DELETE /companies/{handle}            → delete (admin)
//	POST   /jobs                          → create job (admin)
//	GET    /jobs                          → list jobs (title, minSalary, hasEquity)
//	GET    /jobs/{id}                     → job with its company
//	PATCH  /jobs/{id}                     → partial update (admin)
//	DELETE /jobs/{id}                     → delete (admin)
//	POST   /users                         → create user (admin)
//	GET    /users                         → list users (admin)
//	GET    /users/{username}              → user with applications (self or admin)
//	PATCH  /users/{username}              → partial update (self or admin)
//	DELETE /users/{username}              → delete (self or admin)
//	POST   /users/{username}/jobs/{id}    → apply to job (self or admin)
//	PATCH  /users/{username}/jobs/{id}    → move application state (self or admin)

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"jobly/api-service/internal/logging"
)

// ─── Handler ─────────────────────────────────────────────────────────────────

// Handler holds shared dependencies.
type Handler struct {
	svc *Service
}

// NewHandler returns a configured Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts all catalog routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /companies", h.createCompany)
	mux.HandleFunc("GET /companies", h.listCompanies)
	mux.HandleFunc("GET /companies/{handle}", h.getCompany)
	mux.HandleFunc("PATCH /companies/{handle}", h.updateCompany)
	mux.HandleFunc("DELETE /companies/{handle}", h.removeCompany)

	mux.HandleFunc("POST /jobs", h.createJob)
	mux.HandleFunc("GET /jobs", h.listJobs)
	mux.HandleFunc("GET /jobs/{id}", h.getJob)
	mux.HandleFunc("PATCH /jobs/{id}", h.updateJob)
	mux.HandleFunc("DELETE /jobs/{id}", h.removeJob)

	mux.HandleFunc("POST /users", h.createUser)
	mux.HandleFunc("GET /users", h.listUsers)
	mux.HandleFunc("GET /users/{username}", h.getUser)
	mux.HandleFunc("PATCH /users/{username}", h.updateUser)
	mux.HandleFunc("DELETE /users/{username}", h.removeUser)
	mux.HandleFunc("POST /users/{username}/jobs/{id}", h.applyToJob)
	mux.HandleFunc("PATCH /users/{username}/jobs/{id}", h.moveApplication)
}

// ─── Companies ───────────────────────────────────────────────────────────────

func (h *Handler) createCompany(w http.ResponseWriter, r *http.Request) {
	if err := IdentityFromRequest(r).RequireAdmin(); err != nil {
		writeError(w, r, err)
		return
	}
	var body NewCompany
	if err := Decode(r.Body, &body); err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.svc.CreateCompany(r.Context(), body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"company": c})
}

func (h *Handler) listCompanies(w http.ResponseWriter, r *http.Request) {
	f, err := ParseCompanyFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	companies, err := h.svc.FindCompanies(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"companies": companies})
}

func (h *Handler) getCompany(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetCompany(r.Context(), r.PathValue("handle"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"company": c})
}

func (h *Handler) updateCompany(w http.ResponseWriter, r *http.Request) {
	if err := IdentityFromRequest(r).RequireAdmin(); err != nil {
		writeError(w, r, err)
		return
	}
	var body CompanyUpdate
	if err := Decode(r.Body, &body); err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.svc.UpdateCompany(r.Context(), r.PathValue("handle"), body.Patch())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"company": c})
}

func (h *Handler) removeCompany(w http.ResponseWriter, r *http.Request) {
	if err := IdentityFromRequest(r).RequireAdmin(); err != nil {
		writeError(w, r, err)
		return
	}
	handle := r.PathValue("handle")
	if err := h.svc.RemoveCompany(r.Context(), handle); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": handle})
}

// ─── Jobs ────────────────────────────────────────────────────────────────────

func (h *Handler) createJob(w http.ResponseWriter, r *http.Request) {
	if err := IdentityFromRequest(r).RequireAdmin(); err != nil {
		writeError(w, r, err)
		return
	}
	var body NewJob
	if err := Decode(r.Body, &body); err != nil {
		writeError(w, r, err)
		return
	}

	j, err := h.svc.CreateJob(r.Context(), body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"job": j})
}

func (h *Handler) listJobs(w http.ResponseWriter, r *http.Request) {
	f, err := ParseJobFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	jobs, err := h.svc.FindJobs(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (h *Handler) getJob(w http.ResponseWriter, r *http.Request) {
	id, err := jobID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	j, err := h.svc.GetJob(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job": j})
}

func (h *Handler) updateJob(w http.ResponseWriter, r *http.Request) {
	if err := IdentityFromRequest(r).RequireAdmin(); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := jobID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body JobUpdate
	if err := Decode(r.Body, &body); err != nil {
		writeError(w, r, err)
		return
	}

	j, err := h.svc.UpdateJob(r.Context(), id, body.Patch())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job": j})
}

func (h *Handler) removeJob(w http.ResponseWriter, r *http.Request) {
	if err := IdentityFromRequest(r).RequireAdmin(); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := jobID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.RemoveJob(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// ─── Users ───────────────────────────────────────────────────────────────────

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	if err := IdentityFromRequest(r).RequireAdmin(); err != nil {
		writeError(w, r, err)
		return
	}
	var body NewUser
	if err := Decode(r.Body, &body); err != nil {
		writeError(w, r, err)
		return
	}

	u, err := h.svc.CreateUser(r.Context(), body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": u})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	if err := IdentityFromRequest(r).RequireAdmin(); err != nil {
		writeError(w, r, err)
		return
	}
	users, err := h.svc.FindUsers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	if err := IdentityFromRequest(r).RequireUserOrAdmin(username); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.svc.GetUser(r.Context(), username)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	if err := IdentityFromRequest(r).RequireUserOrAdmin(username); err != nil {
		writeError(w, r, err)
		return
	}
	var body UserUpdate
	if err := Decode(r.Body, &body); err != nil {
		writeError(w, r, err)
		return
	}

	u, err := h.svc.UpdateUser(r.Context(), username, body.Patch())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (h *Handler) removeUser(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	if err := IdentityFromRequest(r).RequireUserOrAdmin(username); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.RemoveUser(r.Context(), username); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": username})
}

func (h *Handler) applyToJob(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	if err := IdentityFromRequest(r).RequireUserOrAdmin(username); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := jobID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// The body is optional: an empty one applies with the default state.
	var body ApplicationRequest
	if err := Decode(r.Body, &body); err != nil {
		var ve *ValidationError
		if !errors.As(err, &ve) || !isEmptyBody(ve) {
			writeError(w, r, err)
			return
		}
	}

	a, err := h.svc.Apply(r.Context(), username, id, body.State)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"applied": a.JobID, "state": a.State})
}

func (h *Handler) moveApplication(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	if err := IdentityFromRequest(r).RequireUserOrAdmin(username); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := jobID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body ApplicationRequest
	if err := Decode(r.Body, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if body.State == "" {
		writeError(w, r, &ValidationError{Msg: "invalid request", Details: []string{"state is required"}})
		return
	}

	a, err := h.svc.MoveApplication(r.Context(), username, id, body.State)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"application": a})
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// jobID reads the {id} path value. Ids are SERIAL, so anything outside the
// INTEGER range is rejected before it reaches the database.
func jobID(r *http.Request) (int, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 32)
	if err != nil {
		return 0, badRequest("job id must be an integer between %d and %d, got %q", -maxInt4-1, maxInt4, r.PathValue("id"))
	}
	return int(id), nil
}

func isEmptyBody(ve *ValidationError) bool {
	return len(ve.Details) == 1 && ve.Details[0] == io.EOF.Error()
}

// writeError maps domain errors to HTTP status codes. Unexpected errors are
// logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		body := map[string]any{"error": ve.Msg}
		if len(ve.Details) > 0 {
			body["details"] = ve.Details
		}
		writeJSON(w, http.StatusBadRequest, body)
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": err.Error()})
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrForbidden):
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Unauthorized"})
	default:
		logging.FromCtx(r.Context()).Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "database error"})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
