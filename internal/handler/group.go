package handler

import (
	"net/http"

	"github.com/mmynk/campusbuy/internal/middleware"
	"github.com/mmynk/campusbuy/internal/models"
	"github.com/mmynk/campusbuy/internal/response"
	"github.com/mmynk/campusbuy/internal/service"
)

// GroupHandler serves the /groups routes.
type GroupHandler struct {
	groups *service.GroupService
}

func NewGroupHandler(groups *service.GroupService) *GroupHandler {
	return &GroupHandler{groups: groups}
}

// Create handles POST /groups.
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decode(w, r, &req); err != nil {
		response.Error(w, r, err)
		return
	}

	group, err := h.groups.CreateGroup(r.Context(), middleware.GetUserID(r.Context()), req.command())
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Success(w, http.StatusCreated, newGroupResponse(group))
}

// List handles GET /groups?status=&category=&creator=&member=.
func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	groups, err := h.groups.ListGroups(r.Context(), service.ListGroupsQuery{
		Status:    q.Get("status"),
		Category:  q.Get("category"),
		CreatorID: q.Get("creator"),
		MemberID:  q.Get("member"),
	})
	if err != nil {
		response.Error(w, r, err)
		return
	}

	out := make([]groupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, newGroupResponse(g))
	}
	response.Success(w, http.StatusOK, out)
}

// Get handles GET /groups/{id}.
func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "group id")
	if err != nil {
		response.Error(w, r, err)
		return
	}

	group, err := h.groups.GetGroup(r.Context(), id)
	h.respond(w, r, group, err)
}

// Update handles PUT /groups/{id}.
func (h *GroupHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "group id")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	var req updateGroupRequest
	if err := decode(w, r, &req); err != nil {
		response.Error(w, r, err)
		return
	}

	group, err := h.groups.UpdateGroup(r.Context(), id, middleware.GetUserID(r.Context()), req.patch())
	h.respond(w, r, group, err)
}

// Delete handles DELETE /groups/{id}.
func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "group id")
	if err != nil {
		response.Error(w, r, err)
		return
	}

	if err := h.groups.DeleteGroup(r.Context(), id, middleware.GetUserID(r.Context())); err != nil {
		response.Error(w, r, err)
		return
	}
	response.Message(w, http.StatusOK, "Group deleted successfully")
}

// Join handles POST /groups/{id}/join.
func (h *GroupHandler) Join(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "group id")
	if err != nil {
		response.Error(w, r, err)
		return
	}

	group, err := h.groups.JoinGroup(r.Context(), id, middleware.GetUserID(r.Context()))
	h.respond(w, r, group, err)
}

// Leave handles POST /groups/{id}/leave.
func (h *GroupHandler) Leave(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "group id")
	if err != nil {
		response.Error(w, r, err)
		return
	}

	group, err := h.groups.LeaveGroup(r.Context(), id, middleware.GetUserID(r.Context()))
	h.respond(w, r, group, err)
}

// Kick handles POST /groups/{id}/kick/{memberId}.
func (h *GroupHandler) Kick(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "group id")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	memberID, err := pathID(r, "memberId", "member id")
	if err != nil {
		response.Error(w, r, err)
		return
	}

	group, err := h.groups.KickMember(r.Context(), id, middleware.GetUserID(r.Context()), memberID)
	h.respond(w, r, group, err)
}

// Transfer handles POST /groups/{id}/transfer/{newOwnerId}.
func (h *GroupHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "group id")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	newOwnerID, err := pathID(r, "newOwnerId", "new owner id")
	if err != nil {
		response.Error(w, r, err)
		return
	}

	group, err := h.groups.TransferOwnership(r.Context(), id, middleware.GetUserID(r.Context()), newOwnerID)
	h.respond(w, r, group, err)
}

// UpdateStatus handles PATCH /groups/{id}/status.
func (h *GroupHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "group id")
	if err != nil {
		response.Error(w, r, err)
		return
	}
	var req updateStatusRequest
	if err := decode(w, r, &req); err != nil {
		response.Error(w, r, err)
		return
	}

	group, err := h.groups.UpdateStatus(r.Context(), id, middleware.GetUserID(r.Context()), models.GroupStatus(req.Status))
	h.respond(w, r, group, err)
}

func (h *GroupHandler) respond(w http.ResponseWriter, r *http.Request, group *models.GroupDetail, err error) {
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, newGroupResponse(group))
}
