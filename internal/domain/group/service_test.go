package group

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type mockRepository struct {
	CreateFunc          func(ctx context.Context, params CreateGroupParams, inviteCode string) (*Group, error)
	GetByIDFunc         func(ctx context.Context, id string) (*Group, error)
	GetByInviteCodeFunc func(ctx context.Context, code string) (*Group, error)
	ListByUserFunc      func(ctx context.Context, userID string) ([]*Group, error)
	UpdateFunc          func(ctx context.Context, id string, params UpdateGroupParams) (*Group, error)
	AddMemberFunc       func(ctx context.Context, groupID, userID string) error
	RemoveMemberFunc    func(ctx context.Context, groupID, userID string) error
	TouchActivityFunc   func(ctx context.Context, groupID string, at time.Time) error
	DeleteFunc          func(ctx context.Context, id string) error
}

func (m *mockRepository) Create(ctx context.Context, params CreateGroupParams, inviteCode string) (*Group, error) {
	return m.CreateFunc(ctx, params, inviteCode)
}

func (m *mockRepository) GetByID(ctx context.Context, id string) (*Group, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *mockRepository) GetByInviteCode(ctx context.Context, code string) (*Group, error) {
	return m.GetByInviteCodeFunc(ctx, code)
}

func (m *mockRepository) ListByUser(ctx context.Context, userID string) ([]*Group, error) {
	return m.ListByUserFunc(ctx, userID)
}

func (m *mockRepository) Update(ctx context.Context, id string, params UpdateGroupParams) (*Group, error) {
	return m.UpdateFunc(ctx, id, params)
}

func (m *mockRepository) AddMember(ctx context.Context, groupID, userID string) error {
	return m.AddMemberFunc(ctx, groupID, userID)
}

func (m *mockRepository) RemoveMember(ctx context.Context, groupID, userID string) error {
	return m.RemoveMemberFunc(ctx, groupID, userID)
}

func (m *mockRepository) TouchActivity(ctx context.Context, groupID string, at time.Time) error {
	if m.TouchActivityFunc != nil {
		return m.TouchActivityFunc(ctx, groupID, at)
	}
	return nil
}

func (m *mockRepository) Delete(ctx context.Context, id string) error {
	return m.DeleteFunc(ctx, id)
}

type mockTransactionSource struct {
	ListExpensesFunc     func(ctx context.Context, groupID string) ([]Expense, error)
	CreateSettlementFunc func(ctx context.Context, params SettlementParams) (string, error)
}

func (m *mockTransactionSource) ListExpenses(ctx context.Context, groupID string) ([]Expense, error) {
	return m.ListExpensesFunc(ctx, groupID)
}

func (m *mockTransactionSource) CreateSettlement(ctx context.Context, params SettlementParams) (string, error) {
	return m.CreateSettlementFunc(ctx, params)
}

type mockDirectory struct {
	LookupByEmailFunc func(ctx context.Context, email string) (string, string, error)
}

func (m *mockDirectory) LookupByEmail(ctx context.Context, email string) (string, string, error) {
	return m.LookupByEmailFunc(ctx, email)
}

// mockNotifier counts deliveries under a lock because the service hands
// them off to a goroutine, and signals each one so tests can wait.
type mockNotifier struct {
	mu          sync.Mutex
	memberAdded int
	settlements int
	delivered   chan struct{}
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{delivered: make(chan struct{}, 8)}
}

func (m *mockNotifier) NotifyMemberAdded(ctx context.Context, g *Group, memberName string) {
	m.mu.Lock()
	m.memberAdded++
	m.mu.Unlock()
	m.delivered <- struct{}{}
}

func (m *mockNotifier) NotifySettlement(ctx context.Context, g *Group, fromUserID, toUserID string, amount float64) {
	m.mu.Lock()
	m.settlements++
	m.mu.Unlock()
	m.delivered <- struct{}{}
}

func (m *mockNotifier) counts() (memberAdded, settlements int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.memberAdded, m.settlements
}

func (m *mockNotifier) waitDelivered(t *testing.T) {
	t.Helper()
	select {
	case <-m.delivered:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for notification delivery")
	}
}

func testGroup() *Group {
	return &Group{
		ID:        "group-1",
		Name:      "Flat 4B",
		Category:  CategoryRoommates,
		Currency:  "BDT",
		OwnerID:   "alice",
		MemberIDs: []string{"bob", "carol"},
	}
}

func TestCreate_GeneratesInviteCode(t *testing.T) {
	var gotCode string
	repo := &mockRepository{
		CreateFunc: func(ctx context.Context, params CreateGroupParams, inviteCode string) (*Group, error) {
			gotCode = inviteCode
			return &Group{ID: "group-1", Name: params.Name, InviteCode: inviteCode}, nil
		},
	}
	svc := NewService(repo, nil, nil, nil)

	g, err := svc.Create(context.Background(), CreateGroupParams{Name: "Trip", OwnerID: "alice"})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if len(gotCode) != 8 {
		t.Errorf("expected 8-char hex invite code, got %q", gotCode)
	}
	if g.InviteCode != gotCode {
		t.Errorf("invite code not propagated to group")
	}
}

func TestCreate_DefaultsApplied(t *testing.T) {
	repo := &mockRepository{
		CreateFunc: func(ctx context.Context, params CreateGroupParams, inviteCode string) (*Group, error) {
			if params.Category != CategoryOther {
				t.Errorf("expected default category %q, got %q", CategoryOther, params.Category)
			}
			if params.Currency != "BDT" {
				t.Errorf("expected default currency BDT, got %q", params.Currency)
			}
			if params.AllowMemberInvite == nil || !*params.AllowMemberInvite {
				t.Error("expected member invites to default on")
			}
			if params.AutoSplit == nil || *params.AutoSplit {
				t.Error("expected auto-split to default off")
			}
			if params.RequireApproval == nil || *params.RequireApproval {
				t.Error("expected approval requirement to default off")
			}
			return &Group{ID: "group-1"}, nil
		},
	}
	svc := NewService(repo, nil, nil, nil)

	if _, err := svc.Create(context.Background(), CreateGroupParams{Name: "Trip", OwnerID: "alice"}); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
}

func TestCreate_RequiresName(t *testing.T) {
	svc := NewService(&mockRepository{}, nil, nil, nil)
	if _, err := svc.Create(context.Background(), CreateGroupParams{OwnerID: "alice"}); err == nil {
		t.Error("expected error for missing name")
	}
}

func TestJoinByCode(t *testing.T) {
	added := 0
	repo := &mockRepository{
		GetByInviteCodeFunc: func(ctx context.Context, code string) (*Group, error) {
			if code != "abcd1234" {
				return nil, ErrNotFound
			}
			return testGroup(), nil
		},
		GetByIDFunc: func(ctx context.Context, id string) (*Group, error) {
			return testGroup(), nil
		},
		AddMemberFunc: func(ctx context.Context, groupID, userID string) error {
			added++
			return nil
		},
	}
	svc := NewService(repo, nil, nil, nil)

	// New member gets added
	if _, err := svc.JoinByCode(context.Background(), "abcd1234", "dave"); err != nil {
		t.Fatalf("JoinByCode() failed: %v", err)
	}
	if added != 1 {
		t.Errorf("expected 1 AddMember call, got %d", added)
	}

	// Existing member and owner are no-ops
	if _, err := svc.JoinByCode(context.Background(), "abcd1234", "bob"); err != nil {
		t.Fatalf("JoinByCode() failed for existing member: %v", err)
	}
	if _, err := svc.JoinByCode(context.Background(), "abcd1234", "alice"); err != nil {
		t.Fatalf("JoinByCode() failed for owner: %v", err)
	}
	if added != 1 {
		t.Errorf("expected no extra AddMember calls, got %d", added)
	}

	// Bad code
	if _, err := svc.JoinByCode(context.Background(), "wrong", "dave"); !errors.Is(err, ErrInvalidInviteCode) {
		t.Errorf("expected ErrInvalidInviteCode, got %v", err)
	}
}

func TestAddMemberByEmail_OwnerOnly(t *testing.T) {
	repo := &mockRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*Group, error) {
			return testGroup(), nil
		},
	}
	svc := NewService(repo, nil, &mockDirectory{}, nil)

	_, err := svc.AddMemberByEmail(context.Background(), "group-1", "bob", "dave@example.com")
	if !errors.Is(err, ErrOwnerOnly) {
		t.Errorf("expected ErrOwnerOnly, got %v", err)
	}
}

func TestAddMemberByEmail_NotifiesNewMember(t *testing.T) {
	notifier := newMockNotifier()
	added := 0
	repo := &mockRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*Group, error) {
			return testGroup(), nil
		},
		AddMemberFunc: func(ctx context.Context, groupID, userID string) error {
			added++
			return nil
		},
	}
	directory := &mockDirectory{
		LookupByEmailFunc: func(ctx context.Context, email string) (string, string, error) {
			return "dave", "Dave", nil
		},
	}
	svc := NewService(repo, nil, directory, notifier)

	if _, err := svc.AddMemberByEmail(context.Background(), "group-1", "alice", "dave@example.com"); err != nil {
		t.Fatalf("AddMemberByEmail() failed: %v", err)
	}
	notifier.waitDelivered(t)
	if memberAdded, _ := notifier.counts(); added != 1 || memberAdded != 1 {
		t.Errorf("expected 1 add and 1 notification, got %d and %d", added, memberAdded)
	}

	// Adding an existing member must not notify again
	directory.LookupByEmailFunc = func(ctx context.Context, email string) (string, string, error) {
		return "bob", "Bob", nil
	}
	if _, err := svc.AddMemberByEmail(context.Background(), "group-1", "alice", "bob@example.com"); err != nil {
		t.Fatalf("AddMemberByEmail() failed for existing member: %v", err)
	}
	if memberAdded, _ := notifier.counts(); added != 1 || memberAdded != 1 {
		t.Errorf("existing member must be a no-op, got %d adds and %d notifications", added, memberAdded)
	}
}

func TestBalances_MembersOnly(t *testing.T) {
	repo := &mockRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*Group, error) {
			return testGroup(), nil
		},
	}
	source := &mockTransactionSource{
		ListExpensesFunc: func(ctx context.Context, groupID string) ([]Expense, error) {
			return []Expense{
				{PayerID: "alice", Shares: []Share{
					{UserID: "alice", Amount: 50},
					{UserID: "bob", Amount: 50},
				}},
			}, nil
		},
	}
	svc := NewService(repo, source, nil, nil)

	ledger, err := svc.Balances(context.Background(), "group-1", "bob")
	if err != nil {
		t.Fatalf("Balances() failed: %v", err)
	}
	if ledger.Balance("bob") != -50 {
		t.Errorf("bob balance = %v, want -50", ledger.Balance("bob"))
	}

	if _, err := svc.Balances(context.Background(), "group-1", "mallory"); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for non-member, got %v", err)
	}
}

func TestSettle(t *testing.T) {
	notifier := newMockNotifier()
	touched := 0
	var recorded SettlementParams
	repo := &mockRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*Group, error) {
			return testGroup(), nil
		},
		TouchActivityFunc: func(ctx context.Context, groupID string, at time.Time) error {
			touched++
			return nil
		},
	}
	source := &mockTransactionSource{
		CreateSettlementFunc: func(ctx context.Context, params SettlementParams) (string, error) {
			recorded = params
			return "tx-1", nil
		},
	}
	svc := NewService(repo, source, nil, notifier)

	txID, err := svc.Settle(context.Background(), "group-1", "bob", "alice", 42.50)
	if err != nil {
		t.Fatalf("Settle() failed: %v", err)
	}
	if txID != "tx-1" {
		t.Errorf("expected tx-1, got %s", txID)
	}
	if recorded.FromUserID != "bob" || recorded.ToUserID != "alice" || recorded.Amount != 42.50 {
		t.Errorf("unexpected settlement params: %+v", recorded)
	}
	if touched != 1 {
		t.Errorf("expected group activity touch, got %d", touched)
	}
	notifier.waitDelivered(t)
	if _, settlements := notifier.counts(); settlements != 1 {
		t.Errorf("expected settlement notification, got %d", settlements)
	}
}

// A notifier stuck mid-send must not delay the settlement response,
// and the send should still land afterwards.
func TestSettle_DoesNotWaitForNotifier(t *testing.T) {
	notifier := &stuckNotifier{release: make(chan struct{}), done: make(chan struct{})}
	repo := &mockRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*Group, error) {
			return testGroup(), nil
		},
	}
	source := &mockTransactionSource{
		CreateSettlementFunc: func(ctx context.Context, params SettlementParams) (string, error) {
			return "tx-1", nil
		},
	}
	svc := NewService(repo, source, nil, notifier)

	start := time.Now()
	if _, err := svc.Settle(context.Background(), "group-1", "bob", "alice", 42.50); err != nil {
		t.Fatalf("Settle() failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Fatalf("Settle waited %v on notification delivery", elapsed)
	}

	close(notifier.release)
	select {
	case <-notifier.done:
	case <-time.After(time.Second):
		t.Fatal("notification was never delivered after Settle returned")
	}
}

type stuckNotifier struct {
	release chan struct{}
	done    chan struct{}
}

func (n *stuckNotifier) NotifyMemberAdded(ctx context.Context, g *Group, memberName string) {}

func (n *stuckNotifier) NotifySettlement(ctx context.Context, g *Group, fromUserID, toUserID string, amount float64) {
	<-n.release
	close(n.done)
}

func TestSettle_Validation(t *testing.T) {
	svc := NewService(&mockRepository{}, &mockTransactionSource{}, nil, nil)

	tests := []struct {
		name     string
		toUserID string
		amount   float64
	}{
		{"missing recipient", "", 10},
		{"zero amount", "alice", 0},
		{"negative amount", "alice", -5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Settle(context.Background(), "group-1", "bob", tt.toUserID, tt.amount); !errors.Is(err, ErrInvalidSettlement) {
				t.Errorf("expected ErrInvalidSettlement, got %v", err)
			}
		})
	}
}

func TestSettle_NonMemberForbidden(t *testing.T) {
	repo := &mockRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*Group, error) {
			return testGroup(), nil
		},
	}
	svc := NewService(repo, &mockTransactionSource{}, nil, nil)

	if _, err := svc.Settle(context.Background(), "group-1", "mallory", "alice", 10); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}
