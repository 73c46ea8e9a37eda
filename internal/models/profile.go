package models

import "time"

// Defaults applied to account fields left unset at signup.
const (
	DefaultLocation    = "Location Undisclosed"
	DefaultDescription = "No description."
)

// Account is the authentication-relevant identity record, one per user.
// Email is the immutable identity key; Username is a secondary unique key.
// Both collections are persisted wholesale, so Password carries a json tag
// and survives the round trip through the accounts file. It is stripped
// before anything leaves the service layer (see Profile).
type Account struct {
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	Name        string    `json:"name"`
	Password    string    `json:"password"`
	IsAdmin     bool      `json:"isAdmin"`
	PhotoURL    string    `json:"photoURL"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	DateOfBirth *string   `json:"dateOfBirth"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ExtendedInfo holds the optional profile attributes that are not needed
// for authentication. Zero or one record per account, keyed by email and
// created lazily; a missing record is equivalent to all fields empty.
type ExtendedInfo struct {
	Email       string `json:"email"`
	Gender      string `json:"gender"`
	Nationality string `json:"nationality"`
	Category    string `json:"category"`
	BloodGroup  string `json:"bloodGroup"`
	TShirtSize  string `json:"tShirtSize"`
}

// Profile is the externally visible entity: the field-wise union of an
// account record and its extended-info record. It deliberately has no
// password field, so a credential can never be serialized out of the API.
// BloodGroup and TShirtSize use omitempty so that clearing them for public
// views removes the keys from the JSON encoding entirely.
type Profile struct {
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	Name        string    `json:"name"`
	IsAdmin     bool      `json:"isAdmin"`
	PhotoURL    string    `json:"photoURL"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	DateOfBirth *string   `json:"dateOfBirth"`
	CreatedAt   time.Time `json:"createdAt"`
	Gender      string    `json:"gender"`
	Nationality string    `json:"nationality"`
	Category    string    `json:"category"`
	BloodGroup  string    `json:"bloodGroup,omitempty"`
	TShirtSize  string    `json:"tShirtSize,omitempty"`
}

// MergeProfile combines an account record with its extended-info record.
// Account fields take precedence on overlap; in the defined schema the only
// shared key is email, which is identical on both sides by construction.
func MergeProfile(account Account, info ExtendedInfo) Profile {
	return Profile{
		Email:       account.Email,
		Username:    account.Username,
		Name:        account.Name,
		IsAdmin:     account.IsAdmin,
		PhotoURL:    account.PhotoURL,
		Location:    account.Location,
		Description: account.Description,
		DateOfBirth: account.DateOfBirth,
		CreatedAt:   account.CreatedAt,
		Gender:      info.Gender,
		Nationality: info.Nationality,
		Category:    info.Category,
		BloodGroup:  info.BloodGroup,
		TShirtSize:  info.TShirtSize,
	}
}

// Public returns a copy of the profile fit for non-owner, non-admin viewers:
// bloodGroup and tShirtSize are cleared so their keys disappear from the
// JSON encoding.
func (p Profile) Public() Profile {
	p.BloodGroup = ""
	p.TShirtSize = ""
	return p
}

// SignupRequest is the signup payload. Email, username, password and name
// are mandatory; everything else is optional and defaulted on the account
// side or copied into the extended-info record.
type SignupRequest struct {
	Email       string  `json:"email" validate:"required,email"`
	Username    string  `json:"username" validate:"required"`
	Password    string  `json:"password" validate:"required"`
	Name        string  `json:"name" validate:"required"`
	IsAdmin     bool    `json:"isAdmin"`
	PhotoURL    string  `json:"photoURL"`
	Location    string  `json:"location"`
	Description string  `json:"description"`
	DateOfBirth *string `json:"dateOfBirth"`
	Gender      string  `json:"gender"`
	Nationality string  `json:"nationality"`
	Category    string  `json:"category"`
	BloodGroup  string  `json:"bloodGroup"`
	TShirtSize  string  `json:"tShirtSize"`
}

// ProfileUpdate is a partial field map for profile updates. A nil field was
// absent from the request and leaves the stored value unchanged. IsAdmin is
// only honored on the admin update path.
type ProfileUpdate struct {
	Name        *string `json:"name"`
	Username    *string `json:"username"`
	PhotoURL    *string `json:"photoURL"`
	Location    *string `json:"location"`
	Description *string `json:"description"`
	DateOfBirth *string `json:"dateOfBirth"`
	IsAdmin     *bool   `json:"isAdmin"`
	Gender      *string `json:"gender"`
	Nationality *string `json:"nationality"`
	Category    *string `json:"category"`
	BloodGroup  *string `json:"bloodGroup"`
	TShirtSize  *string `json:"tShirtSize"`
}
