package domain

import "context"

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)

	// UpdateProfile stores the timezone and grace hour of the user.
	UpdateProfile(ctx context.Context, user *User) error

	// ListIDs returns every user ID, used by batch jobs.
	ListIDs(ctx context.Context) ([]string, error)
}
