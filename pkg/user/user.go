package user

import "time"

type User struct {
	Id             int
	Uid            string
	Email          string
	PasswordHash   []byte
	Name           string
	Phone          string
	ProfilePicture string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ProfileUpdate carries a partial profile change. Nil fields are left untouched.
type ProfileUpdate struct {
	Name           *string
	Phone          *string
	ProfilePicture *string
}

func (p ProfileUpdate) applyTo(u User) User {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.ProfilePicture != nil {
		u.ProfilePicture = *p.ProfilePicture
	}
	return u
}
