package handler

import (
	"strings"
	"time"

	"github.com/mmynk/campusbuy/internal/models"
	"github.com/mmynk/campusbuy/internal/service"
)

// Requests

type createGroupRequest struct {
	Name         string    `json:"name" validate:"required,min=3,max=100"`
	Description  string    `json:"description" validate:"required,min=10,max=500"`
	MaxMembers   int       `json:"maxMembers" validate:"required,min=2,max=100"`
	Category     string    `json:"category" validate:"required,min=1,max=50"`
	TargetAmount float64   `json:"targetAmount" validate:"required,gt=0,lte=1000000"`
	ExpiryDate   time.Time `json:"expiryDate" validate:"required"`
	Image        string    `json:"image" validate:"omitempty,url"`
	Rules        []string  `json:"rules" validate:"omitempty,max=10,dive,min=1,max=200"`
}

func (r *createGroupRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	r.Category = strings.TrimSpace(r.Category)
	r.Image = strings.TrimSpace(r.Image)
	r.Rules = trimAll(r.Rules)
}

func (r *createGroupRequest) command() service.CreateGroupCommand {
	return service.CreateGroupCommand{
		Name:         r.Name,
		Description:  r.Description,
		MaxMembers:   r.MaxMembers,
		Category:     r.Category,
		TargetAmount: models.CentsFromFloat(r.TargetAmount),
		ExpiryDate:   r.ExpiryDate,
		Image:        r.Image,
		Rules:        r.Rules,
	}
}

type updateGroupRequest struct {
	Name         *string    `json:"name" validate:"omitempty,min=3,max=100"`
	Description  *string    `json:"description" validate:"omitempty,min=10,max=500"`
	MaxMembers   *int       `json:"maxMembers" validate:"omitempty,min=2,max=100"`
	Category     *string    `json:"category" validate:"omitempty,min=1,max=50"`
	TargetAmount *float64   `json:"targetAmount" validate:"omitempty,gt=0,lte=1000000"`
	ExpiryDate   *time.Time `json:"expiryDate"`
	Image        *string    `json:"image" validate:"omitempty,url"`
	Rules        *[]string  `json:"rules" validate:"omitempty,max=10,dive,min=1,max=200"`
}

func (r *updateGroupRequest) normalize() {
	for _, s := range []*string{r.Name, r.Description, r.Category, r.Image} {
		if s != nil {
			*s = strings.TrimSpace(*s)
		}
	}
	if r.Rules != nil {
		trimmed := trimAll(*r.Rules)
		r.Rules = &trimmed
	}
}

func (r *updateGroupRequest) patch() service.GroupPatch {
	var target *models.Cents
	if r.TargetAmount != nil {
		c := models.CentsFromFloat(*r.TargetAmount)
		target = &c
	}
	return service.GroupPatch{
		Name:         r.Name,
		Description:  r.Description,
		MaxMembers:   r.MaxMembers,
		Category:     r.Category,
		TargetAmount: target,
		ExpiryDate:   r.ExpiryDate,
		Image:        r.Image,
		Rules:        r.Rules,
	}
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=open closed completed"`
}

// Amounts arrive in major units and are rounded to whole cents.
type createContributionRequest struct {
	GroupID string  `json:"groupId" validate:"required,uuid"`
	Amount  float64 `json:"amount" validate:"required,gt=0"`
}

type registerRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"firstName" validate:"required,min=1,max=50"`
	LastName  string `json:"lastName" validate:"required,min=1,max=50"`
	Role      string `json:"role" validate:"omitempty,oneof=student vendor admin"`
}

func (r *registerRequest) normalize() {
	r.Email = models.NormalizeEmail(r.Email)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *loginRequest) normalize() {
	r.Email = models.NormalizeEmail(r.Email)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

func trimAll(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(s)
	}
	return out
}

// Responses

type userSummaryResponse struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

func newUserSummary(u models.UserSummary) userSummaryResponse {
	return userSummaryResponse(u)
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Role      string    `json:"role"`
	Points    int       `json:"points"`
	Level     int       `json:"level"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      string(u.Role),
		Points:    u.Points,
		Level:     u.Level,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type groupResponse struct {
	ID            string                `json:"id"`
	Name          string                `json:"name"`
	Description   string                `json:"description"`
	Creator       userSummaryResponse   `json:"creator"`
	Members       []userSummaryResponse `json:"members"`
	MaxMembers    int                   `json:"maxMembers"`
	Category      string                `json:"category"`
	TargetAmount  float64               `json:"targetAmount"`
	CurrentAmount float64               `json:"currentAmount"`
	Status        string                `json:"status"`
	ExpiryDate    time.Time             `json:"expiryDate"`
	Image         string                `json:"image,omitempty"`
	Rules         []string              `json:"rules"`
	CreatedAt     time.Time             `json:"createdAt"`
	UpdatedAt     time.Time             `json:"updatedAt"`
}

func newGroupResponse(d *models.GroupDetail) groupResponse {
	members := make([]userSummaryResponse, 0, len(d.MemberDetails))
	for _, m := range d.MemberDetails {
		members = append(members, newUserSummary(m))
	}
	rules := d.Rules
	if rules == nil {
		rules = []string{}
	}
	return groupResponse{
		ID:            d.ID,
		Name:          d.Name,
		Description:   d.Description,
		Creator:       newUserSummary(d.Creator),
		Members:       members,
		MaxMembers:    d.MaxMembers,
		Category:      d.Category,
		TargetAmount:  d.TargetAmount.Float(),
		CurrentAmount: d.CurrentAmount.Float(),
		Status:        string(d.Status),
		ExpiryDate:    d.ExpiryDate,
		Image:         d.Image,
		Rules:         rules,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

type groupProgressResponse struct {
	ID            string  `json:"id"`
	CurrentAmount float64 `json:"currentAmount"`
	TargetAmount  float64 `json:"targetAmount"`
	Status        string  `json:"status"`
}

type contributionResponse struct {
	ID            string                 `json:"id"`
	GroupID       string                 `json:"groupId"`
	Contributor   userSummaryResponse    `json:"contributor"`
	Amount        float64                `json:"amount"`
	Status        string                 `json:"status"`
	TransactionID string                 `json:"transactionId,omitempty"`
	CreatedAt     time.Time              `json:"createdAt"`
	Group         *groupProgressResponse `json:"group,omitempty"`
}

func newContributionResponse(d *models.ContributionDetail) contributionResponse {
	return contributionResponse{
		ID:            d.ID,
		GroupID:       d.GroupID,
		Contributor:   newUserSummary(d.Contributor),
		Amount:        d.Amount.Float(),
		Status:        string(d.Status),
		TransactionID: d.TransactionID,
		CreatedAt:     d.CreatedAt,
	}
}

type authResponse struct {
	User         userResponse `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
}
