package server

import (
	"net/http"
	"time"

	"github.com/tallyhour/tallyhour/internal/apperr"
	"github.com/tallyhour/tallyhour/internal/distribution"
	"github.com/tallyhour/tallyhour/internal/middleware"
	"github.com/tallyhour/tallyhour/internal/models"
	"github.com/tallyhour/tallyhour/internal/registry"
)

// ProjectHandler owns project, membership, invitation, and distribution
// endpoints.
type ProjectHandler struct {
	membership  *registry.Membership
	distributor *distribution.Distributor
	inviteTTL   time.Duration
}

// NewProjectHandler constructs the handler.
func NewProjectHandler(membership *registry.Membership, distributor *distribution.Distributor, inviteTTL time.Duration) *ProjectHandler {
	return &ProjectHandler{membership: membership, distributor: distributor, inviteTTL: inviteTTL}
}

// Register attaches project routes to the mux. All routes require auth.
func (h *ProjectHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /projects", h.handleCreate)
	mux.HandleFunc("GET /projects/{id}", h.handleGet)
	mux.HandleFunc("POST /projects/{id}/members", h.handleAddMember)
	mux.HandleFunc("GET /projects/{id}/members", h.handleListMembers)
	mux.HandleFunc("POST /projects/{id}/invitations", h.handleInvite)
	mux.HandleFunc("POST /invitations/{id}/respond", h.handleRespond)
	mux.HandleFunc("POST /projects/{id}/distribute", h.handleDistribute)
}

type createProjectRequest struct {
	Name                 string  `json:"name"`
	Budget               float64 `json:"budget"`
	ProfitSharingEnabled bool    `json:"profit_sharing_enabled"`
	ProfitSharePercent   float64 `json:"profit_share_percent"`
}

func (h *ProjectHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	project, err := h.membership.CreateProject(r.Context(), middleware.GetUserID(r.Context()),
		req.Name, req.Budget, req.ProfitSharingEnabled, req.ProfitSharePercent)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, "project created", project)
}

func (h *ProjectHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	project, err := h.membership.GetProject(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "ok", project)
}

type addMemberRequest struct {
	UserID     string  `json:"user_id"`
	Role       string  `json:"role"`
	HourlyRate float64 `json:"hourly_rate"`
}

func (h *ProjectHandler) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var req addMemberRequest
	if !decodeBody(w, r, &req) {
		return
	}
	projectID := r.PathValue("id")
	caller, err := h.membership.GetProjectMember(r.Context(), projectID, middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	if caller == nil || !caller.Role.CanInvite() {
		writeError(w, apperr.Precondition(apperr.CodeNotAuthorized, "caller may not manage members"))
		return
	}
	member, err := h.membership.AddProjectMember(r.Context(), projectID, req.UserID, models.Role(req.Role), req.HourlyRate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "member added", member)
}

func (h *ProjectHandler) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.membership.GetProjectMembers(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "ok", members)
}

type inviteRequest struct {
	InviteeID string `json:"invitee_id"`
	Role      string `json:"role"`
}

func (h *ProjectHandler) handleInvite(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	inv, err := h.membership.CreateInvitation(r.Context(), r.PathValue("id"),
		middleware.GetUserID(r.Context()), req.InviteeID, models.Role(req.Role), h.inviteTTL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, "invitation created", inv)
}

type respondRequest struct {
	Accept bool `json:"accept"`
}

func (h *ProjectHandler) handleRespond(w http.ResponseWriter, r *http.Request) {
	var req respondRequest
	if !decodeBody(w, r, &req) {
		return
	}
	inv, err := h.membership.RespondToInvitation(r.Context(), r.PathValue("id"), req.Accept)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "invitation answered", inv)
}

func (h *ProjectHandler) handleDistribute(w http.ResponseWriter, r *http.Request) {
	result, err := h.distributor.DistributeProjectProfits(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "profits distributed", result)
}
