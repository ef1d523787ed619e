package group

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"
)

// TransactionSource provides the group expense data the ledger is built
// from and records settlement transactions.
// Implemented by the transaction domain.
type TransactionSource interface {
	ListExpenses(ctx context.Context, groupID string) ([]Expense, error)
	CreateSettlement(ctx context.Context, params SettlementParams) (string, error)
}

// SettlementParams describes a settlement payment between two members.
type SettlementParams struct {
	GroupID    string
	FromUserID string
	ToUserID   string
	Amount     float64
}

// Notifier sends group event notifications. Delivery failures are logged
// by implementations, never surfaced to the caller.
type Notifier interface {
	NotifyMemberAdded(ctx context.Context, g *Group, memberName string)
	NotifySettlement(ctx context.Context, g *Group, fromUserID, toUserID string, amount float64)
}

// MemberDirectory resolves users when adding members by email.
type MemberDirectory interface {
	LookupByEmail(ctx context.Context, email string) (id, name string, err error)
}

// Service contains the business logic for group operations
type Service struct {
	repo         Repository
	transactions TransactionSource
	directory    MemberDirectory
	notifier     Notifier
}

func NewService(repo Repository, transactions TransactionSource, directory MemberDirectory, notifier Notifier) *Service {
	return &Service{
		repo:         repo,
		transactions: transactions,
		directory:    directory,
		notifier:     notifier,
	}
}

// Create creates a group owned by the caller with a fresh invite code.
func (s *Service) Create(ctx context.Context, params CreateGroupParams) (*Group, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	code, err := newInviteCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invite code: %w", err)
	}

	return s.repo.Create(ctx, params, code)
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]*Group, error) {
	if userID == "" {
		return nil, errors.New("user ID is required")
	}
	return s.repo.ListByUser(ctx, userID)
}

// Get returns a group, enforcing membership.
func (s *Service) Get(ctx context.Context, groupID, requesterID string) (*Group, error) {
	return s.memberGroup(ctx, groupID, requesterID)
}

// Update modifies group details. Owner only.
func (s *Service) Update(ctx context.Context, groupID, requesterID string, params UpdateGroupParams) (*Group, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	g, err := s.repo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g.OwnerID != requesterID {
		return nil, ErrOwnerOnly
	}

	return s.repo.Update(ctx, groupID, params)
}

// JoinByCode adds the caller to the group matching the invite code.
// Joining a group you already belong to is a no-op.
func (s *Service) JoinByCode(ctx context.Context, code, userID string) (*Group, error) {
	g, err := s.repo.GetByInviteCode(ctx, code)
	if err != nil {
		return nil, ErrInvalidInviteCode
	}

	if g.HasMember(userID) {
		return g, nil
	}

	if err := s.repo.AddMember(ctx, g.ID, userID); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, g.ID)
}

// AddMemberByEmail adds a registered user to the group. Owner only.
// Existing members stay untouched and trigger no notification.
func (s *Service) AddMemberByEmail(ctx context.Context, groupID, requesterID, email string) (*Group, error) {
	g, err := s.repo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g.OwnerID != requesterID {
		return nil, ErrOwnerOnly
	}

	memberID, memberName, err := s.directory.LookupByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if !g.HasMember(memberID) {
		if err := s.repo.AddMember(ctx, groupID, memberID); err != nil {
			return nil, err
		}
		if s.notifier != nil {
			// Detached from the request so a slow push never delays the response.
			go s.notifier.NotifyMemberAdded(context.Background(), g, memberName)
		}
	}

	return s.repo.GetByID(ctx, groupID)
}

// RemoveMember removes a member from the group. Owner only.
func (s *Service) RemoveMember(ctx context.Context, groupID, requesterID, memberID string) (*Group, error) {
	g, err := s.repo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g.OwnerID != requesterID {
		return nil, ErrOwnerOnly
	}

	if err := s.repo.RemoveMember(ctx, groupID, memberID); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, groupID)
}

// Balances folds all of the group's expenses into a ledger. Membership
// is enforced before any transaction is read.
func (s *Service) Balances(ctx context.Context, groupID, requesterID string) (*Ledger, error) {
	if _, err := s.memberGroup(ctx, groupID, requesterID); err != nil {
		return nil, err
	}

	expenses, err := s.transactions.ListExpenses(ctx, groupID)
	if err != nil {
		return nil, err
	}

	return BuildLedger(expenses), nil
}

// SuggestSettlements returns the greedy settlement plan for the group.
func (s *Service) SuggestSettlements(ctx context.Context, groupID, requesterID string) ([]Settlement, error) {
	ledger, err := s.Balances(ctx, groupID, requesterID)
	if err != nil {
		return nil, err
	}
	return ledger.SuggestSettlements(), nil
}

// Settle records a settlement payment from the caller to another member.
// The settlement is stored as a regular group expense whose shares move
// the paid amount from the payer to the recipient, so the next ledger
// fold picks it up with no special casing. Notification delivery is
// fire-and-forget.
func (s *Service) Settle(ctx context.Context, groupID, requesterID, toUserID string, amount float64) (string, error) {
	if toUserID == "" || amount <= 0 {
		return "", ErrInvalidSettlement
	}

	g, err := s.memberGroup(ctx, groupID, requesterID)
	if err != nil {
		return "", err
	}

	txID, err := s.transactions.CreateSettlement(ctx, SettlementParams{
		GroupID:    groupID,
		FromUserID: requesterID,
		ToUserID:   toUserID,
		Amount:     amount,
	})
	if err != nil {
		return "", err
	}

	if err := s.repo.TouchActivity(ctx, groupID, time.Now()); err != nil {
		log.Printf("Warning: failed to update activity for group %s: %v", groupID, err)
	}

	if s.notifier != nil {
		go s.notifier.NotifySettlement(context.Background(), g, requesterID, toUserID, amount)
	}

	return txID, nil
}

func (s *Service) memberGroup(ctx context.Context, groupID, requesterID string) (*Group, error) {
	g, err := s.repo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !g.HasMember(requesterID) {
		return nil, ErrForbidden
	}
	return g, nil
}

func newInviteCode() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
