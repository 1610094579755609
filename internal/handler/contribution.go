package handler

import (
	"net/http"

	"github.com/mmynk/campusbuy/internal/middleware"
	"github.com/mmynk/campusbuy/internal/models"
	"github.com/mmynk/campusbuy/internal/response"
	"github.com/mmynk/campusbuy/internal/service"
)

// ContributionHandler serves the /contributions routes.
type ContributionHandler struct {
	contributions *service.ContributionService
}

func NewContributionHandler(contributions *service.ContributionService) *ContributionHandler {
	return &ContributionHandler{contributions: contributions}
}

// Create handles POST /contributions.
func (h *ContributionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createContributionRequest
	if err := decode(w, r, &req); err != nil {
		response.Error(w, r, err)
		return
	}

	result, err := h.contributions.CreateContribution(r.Context(), middleware.GetUserID(r.Context()), req.GroupID, models.CentsFromFloat(req.Amount))
	if err != nil {
		response.Error(w, r, err)
		return
	}

	out := newContributionResponse(result.Contribution)
	out.Group = &groupProgressResponse{
		ID:            result.Group.ID,
		CurrentAmount: result.Group.CurrentAmount.Float(),
		TargetAmount:  result.Group.TargetAmount.Float(),
		Status:        string(result.Group.Status),
	}
	response.Success(w, http.StatusCreated, out)
}

// ListByGroup handles GET /contributions/group/{groupId}.
func (h *ContributionHandler) ListByGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "groupId", "group id")
	if err != nil {
		response.Error(w, r, err)
		return
	}

	contributions, err := h.contributions.ListGroupContributions(r.Context(), middleware.GetUserID(r.Context()), groupID)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	out := make([]contributionResponse, 0, len(contributions))
	for _, c := range contributions {
		out = append(out, newContributionResponse(c))
	}
	response.Success(w, http.StatusOK, out)
}
