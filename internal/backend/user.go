package backend

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// User is the opaque profile object returned by the backend.
type User map[string]any

// Profile is the typed view of the fields the backend is known to send.
type Profile struct {
	ID           string `mapstructure:"id"`
	Email        string `mapstructure:"email"`
	Role         string `mapstructure:"role"`
	Subscription string `mapstructure:"subscription"`
}

const premium = "premium"

// Premium reports whether the backend marked the account as paid.
func (p *Profile) Premium() bool {
	return p.Subscription == premium || p.Role == premium
}

// Profile decodes the known fields. Unknown fields are ignored and numeric
// ids are accepted.
func (u User) Profile() (*Profile, error) {
	var profile Profile
	if u == nil {
		return &profile, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &profile,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(map[string]any(u)); err != nil {
		return nil, fmt.Errorf("decode user profile: %w", err)
	}

	return &profile, nil
}

// ID returns the user id or an empty string.
func (u User) ID() string {
	profile, err := u.Profile()
	if err != nil {
		return ""
	}
	return profile.ID
}

// Clone returns a deep copy of the JSON tree so callers can not mutate
// cached state, nested objects included.
func (u User) Clone() User {
	if u == nil {
		return nil
	}
	return cloneObject(u)
}

func cloneObject(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = cloneValue(value)
	}
	return dst
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return cloneObject(v)
	case User:
		return User(cloneObject(v))
	case []any:
		copied := make([]any, len(v))
		for i, item := range v {
			copied[i] = cloneValue(item)
		}
		return copied
	default:
		return v
	}
}
