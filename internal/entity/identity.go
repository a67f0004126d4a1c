package entity

import "strings"

// Identity is the canonical comparison key of a lead across stores. It is
// derived, never persisted.
type Identity struct {
	ID    string
	Name  string
	Phone string
	Email string
}

// Normalize canonicalizes a lead's identity. The id is mandatory; the other
// fields degrade to "" when empty or unusable.
func Normalize(l *Lead) (Identity, error) {
	if l == nil || l.ID == "" {
		return Identity{}, ErrMissingID
	}
	return Identity{
		ID:    l.ID,
		Name:  NormalizeName(l.Name),
		Phone: NormalizePhone(l.Phone),
		Email: NormalizeEmail(l.Email),
	}, nil
}

func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NormalizePhone strips everything but digits. "(555) 123-4567" and
// "555.123.4567" compare equal.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func NormalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") {
		return ""
	}
	return email
}

// Matches reports whether two identities belong to the same real-world lead.
// An id match is the strongest signal and short-circuits the rest.
func (i Identity) Matches(other Identity) bool {
	if i.ID != "" && i.ID == other.ID {
		return true
	}
	if i.Name != "" && i.Name == other.Name {
		return true
	}
	if i.Phone != "" && i.Phone == other.Phone {
		return true
	}
	if i.Email != "" && i.Email == other.Email {
		return true
	}
	return false
}
