// Package memory implements storage.Store in process memory. It mirrors the
// Mongo driver's semantics (deep-copied documents, version-checked group
// writes, unique transaction references) so service tests exercise the same
// behavior without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/PrinceDelali/kraloan-gobackend/internal/apperr"
	"github.com/PrinceDelali/kraloan-gobackend/internal/models"
)

type Store struct {
	mu           sync.RWMutex
	users        map[string]*models.User
	groups       map[string]*models.Group
	transactions map[string]*models.Transaction
}

func New() *Store {
	return &Store{
		users:        make(map[string]*models.User),
		groups:       make(map[string]*models.Group),
		transactions: make(map[string]*models.Transaction),
	}
}

func (s *Store) Close(ctx context.Context) error { return nil }

func (s *Store) CreateUser(ctx context.Context, user *models.User) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == user.Email {
			return "", apperr.New(apperr.Conflict, "email already registered")
		}
	}
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now()
	cp := copyUser(user)
	s.users[user.ID.Hex()] = cp
	return user.ID.Hex(), nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "user not found")
	}
	return copyUser(u), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, apperr.New(apperr.NotFound, "user not found")
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		cp := copyUser(u)
		cp.HPassword = ""
		users = append(users, *cp)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

func (s *Store) SaveRecipientCode(ctx context.Context, userID, key, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return apperr.New(apperr.NotFound, "user not found")
	}
	if u.RecipientCodes == nil {
		u.RecipientCodes = make(map[string]string)
	}
	u.RecipientCodes[key] = code
	return nil
}

func (s *Store) CreateGroup(ctx context.Context, group *models.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	group.ID = primitive.NewObjectID()
	group.Version = 1
	group.CreatedAt = time.Now()
	group.UpdatedAt = group.CreatedAt
	s.groups[group.ID.Hex()] = copyGroup(group)
	return nil
}

func (s *Store) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "group not found")
	}
	return copyGroup(g), nil
}

func (s *Store) GetGroupByInviteToken(ctx context.Context, token string) (*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, g := range s.groups {
		if g.InviteToken == token {
			return copyGroup(g), nil
		}
	}
	return nil, apperr.New(apperr.NotFound, "group not found")
}

func (s *Store) FindGroupByContributionReference(ctx context.Context, ref string) (*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, g := range s.groups {
		for i := range g.Contributions {
			if g.Contributions[i].Reference == ref {
				return copyGroup(g), nil
			}
		}
	}
	return nil, apperr.New(apperr.NotFound, "group not found")
}

func (s *Store) ListGroupsByMember(ctx context.Context, userID string) ([]models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var groups []models.Group
	for _, g := range s.groups {
		if g.IsMember(userID) {
			groups = append(groups, *copyGroup(g))
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].CreatedAt.After(groups[j].CreatedAt) })
	return groups, nil
}

func (s *Store) UpdateGroup(ctx context.Context, group *models.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.groups[group.ID.Hex()]
	if !ok {
		return apperr.New(apperr.NotFound, "group not found")
	}
	if current.Version != group.Version {
		return apperr.New(apperr.Conflict, "group was modified concurrently")
	}
	group.Version++
	group.UpdatedAt = time.Now()
	s.groups[group.ID.Hex()] = copyGroup(group)
	return nil
}

func (s *Store) DeleteGroup(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[id]; !ok {
		return apperr.New(apperr.NotFound, "group not found")
	}
	delete(s.groups, id)
	return nil
}

func (s *Store) InsertTransaction(ctx context.Context, txn *models.Transaction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.transactions[txn.Reference]; exists {
		return false, nil
	}
	txn.CreatedAt = time.Now()
	txn.UpdatedAt = txn.CreatedAt
	cp := *txn
	s.transactions[txn.Reference] = &cp
	return true, nil
}

func (s *Store) UpdateTransactionStatus(ctx context.Context, reference, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.transactions[reference]
	if !ok {
		return apperr.New(apperr.NotFound, "transaction %q not found", reference)
	}
	txn.Status = status
	txn.UpdatedAt = time.Now()
	return nil
}

func (s *Store) ListTransactionsByGroup(ctx context.Context, groupID string) ([]models.Transaction, error) {
	return s.listTransactions(func(t *models.Transaction) bool { return t.GroupID == groupID }), nil
}

func (s *Store) ListTransactionsByUser(ctx context.Context, userID string) ([]models.Transaction, error) {
	return s.listTransactions(func(t *models.Transaction) bool { return t.UserID == userID }), nil
}

func (s *Store) listTransactions(match func(*models.Transaction) bool) []models.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var txns []models.Transaction
	for _, t := range s.transactions {
		if match(t) {
			txns = append(txns, *t)
		}
	}
	sort.Slice(txns, func(i, j int) bool { return txns[i].CreatedAt.After(txns[j].CreatedAt) })
	return txns
}

func copyUser(u *models.User) *models.User {
	cp := *u
	if u.RecipientCodes != nil {
		cp.RecipientCodes = make(map[string]string, len(u.RecipientCodes))
		for k, v := range u.RecipientCodes {
			cp.RecipientCodes[k] = v
		}
	}
	return &cp
}

func copyGroup(g *models.Group) *models.Group {
	cp := *g
	cp.Members = append([]string(nil), g.Members...)
	cp.Admins = append([]string(nil), g.Admins...)
	cp.PendingRequests = append([]string(nil), g.PendingRequests...)
	cp.Contributions = append([]models.Contribution(nil), g.Contributions...)
	cp.Payouts = append([]models.Payout(nil), g.Payouts...)
	cp.Loans = make([]models.Loan, len(g.Loans))
	for i, l := range g.Loans {
		cp.Loans[i] = l
		cp.Loans[i].Repayments = append([]models.Repayment(nil), l.Repayments...)
	}
	return &cp
}
