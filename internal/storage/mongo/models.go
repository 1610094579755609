package mongo

import (
	"time"

	"github.com/mmynk/campusbuy/internal/models"
)

// userDoc structures a user BSON document in the users collection.
type userDoc struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password"`
	FirstName    string    `bson:"firstName"`
	LastName     string    `bson:"lastName"`
	Role         string    `bson:"role"`
	Points       int       `bson:"points"`
	Level        int       `bson:"level"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

func newUserDoc(u *models.User) *userDoc {
	return &userDoc{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Role:         string(u.Role),
		Points:       u.Points,
		Level:        u.Level,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (d *userDoc) toModel() *models.User {
	return &models.User{
		ID:           d.ID,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		Role:         models.Role(d.Role),
		Points:       d.Points,
		Level:        d.Level,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

// groupDoc structures a group BSON document in the groups collection.
// Amounts are whole cents.
type groupDoc struct {
	ID            string    `bson:"_id"`
	Name          string    `bson:"name"`
	Description   string    `bson:"description"`
	Creator       string    `bson:"creator"`
	Members       []string  `bson:"members"`
	MaxMembers    int       `bson:"maxMembers"`
	Category      string    `bson:"category"`
	TargetAmount  int64     `bson:"targetAmount"`
	CurrentAmount int64     `bson:"currentAmount"`
	Status        string    `bson:"status"`
	ExpiryDate    time.Time `bson:"expiryDate"`
	Image         string    `bson:"image,omitempty"`
	Rules         []string  `bson:"rules"`
	Version       int64     `bson:"version"`
	CreatedAt     time.Time `bson:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt"`
}

func newGroupDoc(g *models.Group) *groupDoc {
	members := g.Members
	if members == nil {
		members = []string{}
	}
	rules := g.Rules
	if rules == nil {
		rules = []string{}
	}
	return &groupDoc{
		ID:            g.ID,
		Name:          g.Name,
		Description:   g.Description,
		Creator:       g.CreatorID,
		Members:       members,
		MaxMembers:    g.MaxMembers,
		Category:      g.Category,
		TargetAmount:  int64(g.TargetAmount),
		CurrentAmount: int64(g.CurrentAmount),
		Status:        string(g.Status),
		ExpiryDate:    g.ExpiryDate,
		Image:         g.Image,
		Rules:         rules,
		Version:       g.Version,
		CreatedAt:     g.CreatedAt,
		UpdatedAt:     g.UpdatedAt,
	}
}

func (d *groupDoc) toModel() *models.Group {
	members := d.Members
	if members == nil {
		members = []string{}
	}
	rules := d.Rules
	if rules == nil {
		rules = []string{}
	}
	return &models.Group{
		ID:            d.ID,
		Name:          d.Name,
		Description:   d.Description,
		CreatorID:     d.Creator,
		Members:       members,
		MaxMembers:    d.MaxMembers,
		Category:      d.Category,
		TargetAmount:  models.Cents(d.TargetAmount),
		CurrentAmount: models.Cents(d.CurrentAmount),
		Status:        models.GroupStatus(d.Status),
		ExpiryDate:    d.ExpiryDate.UTC(),
		Image:         d.Image,
		Rules:         rules,
		Version:       d.Version,
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}
}

// contributionDoc structures a contribution BSON document.
type contributionDoc struct {
	ID            string    `bson:"_id"`
	Group         string    `bson:"group"`
	Contributor   string    `bson:"contributor"`
	Amount        int64     `bson:"amount"`
	Status        string    `bson:"status"`
	TransactionID string    `bson:"transactionId,omitempty"`
	CreatedAt     time.Time `bson:"createdAt"`
}

func newContributionDoc(c *models.Contribution) *contributionDoc {
	return &contributionDoc{
		ID:            c.ID,
		Group:         c.GroupID,
		Contributor:   c.ContributorID,
		Amount:        int64(c.Amount),
		Status:        string(c.Status),
		TransactionID: c.TransactionID,
		CreatedAt:     c.CreatedAt,
	}
}

func (d *contributionDoc) toModel() *models.Contribution {
	return &models.Contribution{
		ID:            d.ID,
		GroupID:       d.Group,
		ContributorID: d.Contributor,
		Amount:        models.Cents(d.Amount),
		Status:        models.ContributionStatus(d.Status),
		TransactionID: d.TransactionID,
		CreatedAt:     d.CreatedAt.UTC(),
	}
}
