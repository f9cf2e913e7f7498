package basic

import (
	"context"

	"github.com/bornholm/burpacl/internal/authn"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

type User struct {
	name         string
	passwordHash []byte
}

// UserName implements authn.User.
func (u *User) UserName() string {
	return u.name
}

func NewUser(name string, passwordHash string) *User {
	return &User{
		name:         name,
		passwordHash: []byte(passwordHash),
	}
}

var _ authn.User = &User{}

// Users authenticates against a static list of bcrypt hashed passwords.
type Users struct {
	users map[string]*User
}

// Authenticate implements UserProvider.
func (u *Users) Authenticate(ctx context.Context, username, password string) (authn.User, error) {
	user, exists := u.users[username]
	if !exists || len(user.passwordHash) == 0 {
		return nil, errors.WithStack(authn.ErrUnauthenticated)
	}

	if err := bcrypt.CompareHashAndPassword(user.passwordHash, []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, errors.WithStack(authn.ErrUnauthenticated)
		}

		return nil, errors.WithStack(err)
	}

	return user, nil
}

func NewUsers(users ...*User) *Users {
	indexed := make(map[string]*User, len(users))
	for _, u := range users {
		indexed[u.name] = u
	}

	return &Users{users: indexed}
}

var _ UserProvider = &Users{}
