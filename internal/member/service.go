package member

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Kalion254/vyg-member-portal/internal/models"
	"github.com/Kalion254/vyg-member-portal/internal/store"
)

// ErrNotFound is returned when a member or member number does not exist.
var ErrNotFound = errors.New("member not found")

const (
	membersPath     = "members"
	memberIndexPath = "memberIndex"
)

// Service creates and reads member records. Every member gets a number
// from the Issuer before anything is written, and the memberIndex path
// keeps number -> uid as a bijection for lookups by member number.
type Service struct {
	store  store.Store
	issuer *Issuer
}

func NewService(s store.Store, issuer *Issuer) *Service {
	return &Service{store: s, issuer: issuer}
}

// Create issues a member number and persists the member plus its index
// entry. The number is issued first; a store failure after that point
// burns the number but can never hand it to anyone else.
func (s *Service) Create(ctx context.Context, name, email string) (*models.Member, error) {
	memberNo, err := s.issuer.IssueMemberNumber(ctx)
	if err != nil {
		return nil, err
	}

	m := &models.Member{
		Name:      name,
		Email:     email,
		MemberNo:  memberNo,
		CreatedAt: time.Now().UTC(),
	}

	uid, err := s.store.Push(ctx, membersPath, m)
	if err != nil {
		return nil, fmt.Errorf("failed to create member: %w", err)
	}
	m.UID = uid

	if err := s.store.Set(ctx, memberIndexPath+"/"+memberNo, uid); err != nil {
		return nil, fmt.Errorf("failed to index member %s: %w", memberNo, err)
	}
	return m, nil
}

// Get reads a member by its store uid.
func (s *Service) Get(ctx context.Context, uid string) (*models.Member, error) {
	var m models.Member
	if err := s.store.Get(ctx, membersPath+"/"+uid, &m); err != nil {
		if errors.Is(err, store.ErrPathNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	m.UID = uid
	return &m, nil
}

// GetByNumber resolves a member number through the index.
func (s *Service) GetByNumber(ctx context.Context, memberNo string) (*models.Member, error) {
	var uid string
	if err := s.store.Get(ctx, memberIndexPath+"/"+memberNo, &uid); err != nil {
		if errors.Is(err, store.ErrPathNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.Get(ctx, uid)
}
