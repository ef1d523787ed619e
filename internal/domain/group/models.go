package group

import (
	"errors"
	"strings"
	"time"
)

// Group categories
const (
	CategoryFamily    = "family"
	CategoryFriends   = "friends"
	CategoryRoommates = "roommates"
	CategoryTrip      = "trip"
	CategoryOther     = "other"
)

var validCategories = map[string]struct{}{
	CategoryFamily:    {},
	CategoryFriends:   {},
	CategoryRoommates: {},
	CategoryTrip:      {},
	CategoryOther:     {},
}

// Domain errors
var (
	ErrNotFound          = errors.New("group not found")
	ErrForbidden         = errors.New("access forbidden")
	ErrOwnerOnly         = errors.New("only the group owner can perform this action")
	ErrInvalidInviteCode = errors.New("invalid invite code")
	ErrInvalidCategory   = errors.New("invalid group category")
	ErrInvalidSettlement = errors.New("settlement requires a recipient and a positive amount")
)

type Group struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Description       string     `json:"description"`
	Category          string     `json:"category"`
	Avatar            string     `json:"avatar,omitempty"`
	Currency          string     `json:"currency"`
	OwnerID           string     `json:"ownerId"`
	MemberIDs         []string   `json:"memberIds"`
	InviteCode        string     `json:"inviteCode"`
	AllowMemberInvite bool       `json:"allowMemberInvite"`
	AutoSplit         bool       `json:"autoSplit"`
	RequireApproval   bool       `json:"requireApproval"`
	TotalExpenses     float64    `json:"totalExpenses"`
	TotalTransactions int        `json:"totalTransactions"`
	LastActivityAt    *time.Time `json:"lastActivityAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// HasMember reports whether a user is the owner or a member of the group.
// The owner is not duplicated into MemberIDs.
func (g *Group) HasMember(userID string) bool {
	if g.OwnerID == userID {
		return true
	}
	for _, id := range g.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

type CreateGroupParams struct {
	Name        string
	Description string
	Category    string
	Avatar      string
	Currency    string
	OwnerID     string

	// Settings left nil fall back to the defaults below.
	AllowMemberInvite *bool
	AutoSplit         *bool
	RequireApproval   *bool
}

func (p *CreateGroupParams) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("group name is required")
	}
	if p.OwnerID == "" {
		return errors.New("owner ID is required")
	}
	if p.Category == "" {
		p.Category = CategoryOther
	}
	if _, ok := validCategories[p.Category]; !ok {
		return ErrInvalidCategory
	}
	if p.Currency == "" {
		p.Currency = "BDT"
	}
	if p.AllowMemberInvite == nil {
		t := true
		p.AllowMemberInvite = &t
	}
	if p.AutoSplit == nil {
		f := false
		p.AutoSplit = &f
	}
	if p.RequireApproval == nil {
		f := false
		p.RequireApproval = &f
	}
	return nil
}

type UpdateGroupParams struct {
	Name              *string
	Description       *string
	Category          *string
	Avatar            *string
	Currency          *string
	AllowMemberInvite *bool
	AutoSplit         *bool
	RequireApproval   *bool
}

func (p UpdateGroupParams) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return errors.New("group name cannot be empty")
	}
	if p.Category != nil {
		if _, ok := validCategories[*p.Category]; !ok {
			return ErrInvalidCategory
		}
	}
	return nil
}
