package store

import (
	"context"
	"fmt"
)

// User is a journal owner. Authentication happens upstream; the store only
// resolves identities for scoping and notification addressing.
type User struct {
	ID        int32
	Username  string
	Email     string
	CreatedTs int64
}

// FindUser is the find condition for users.
type FindUser struct {
	ID       *int32
	Username *string
}

func (s *Store) CreateUser(ctx context.Context, create *User) (*User, error) {
	user, err := s.driver.CreateUser(ctx, create)
	if err != nil {
		return nil, err
	}
	s.userCache.Set(userCacheKey(user.ID), user)
	return user, nil
}

// GetUser returns the user matching the find condition, or nil.
func (s *Store) GetUser(ctx context.Context, find *FindUser) (*User, error) {
	if find.ID != nil {
		if cached, ok := s.userCache.Get(userCacheKey(*find.ID)); ok {
			if user, ok := cached.(*User); ok {
				return user, nil
			}
		}
	}

	list, err := s.driver.ListUsers(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}

	user := list[0]
	s.userCache.Set(userCacheKey(user.ID), user)
	return user, nil
}

func (s *Store) ListUsers(ctx context.Context, find *FindUser) ([]*User, error) {
	return s.driver.ListUsers(ctx, find)
}

func userCacheKey(id int32) string {
	return fmt.Sprintf("user:%d", id)
}
