package enrollment

import (
	"github.com/dalemusser/studentid/internal/domain/models"
)

// The list operations below never mutate their input. On error they return
// the input slice unchanged.

// AddGuardian appends a non-primary Parent guardian keyed by id.
func AddGuardian(list []Guardian, id string) ([]Guardian, error) {
	if len(list) >= MaxGuardians {
		return list, ErrGuardianLimit
	}
	out := make([]Guardian, len(list), len(list)+1)
	copy(out, list)
	return append(out, Guardian{
		ID:           id,
		Relationship: models.RelationshipParent,
	}), nil
}

// RemoveGuardian removes the entry at index. The caller must pass
// confirmed=true after the user has confirmed the removal.
func RemoveGuardian(list []Guardian, index int, confirmed bool) ([]Guardian, error) {
	if len(list) <= 1 {
		return list, ErrLastGuardian
	}
	if index < 0 || index >= len(list) {
		return list, ErrGuardianNotFound
	}
	if !confirmed {
		return list, ErrConfirmationRequired
	}
	out := make([]Guardian, 0, len(list)-1)
	out = append(out, list[:index]...)
	return append(out, list[index+1:]...), nil
}

// TogglePrimary clears the primary flag of a primary guardian, or sets it
// when fewer than MaxPrimaryGuardians are primary.
func TogglePrimary(list []Guardian, index int) ([]Guardian, error) {
	if index < 0 || index >= len(list) {
		return list, ErrGuardianNotFound
	}
	if !list[index].IsPrimary && PrimaryCount(list) >= MaxPrimaryGuardians {
		return list, ErrPrimaryLimit
	}
	out := make([]Guardian, len(list))
	copy(out, list)
	out[index].IsPrimary = !out[index].IsPrimary
	return out, nil
}

// GuardianPatch holds editable guardian fields; nil means unchanged.
type GuardianPatch struct {
	FullName     *string `json:"fullName,omitempty"`
	PhoneNumber  *string `json:"phoneNumber,omitempty"`
	Email        *string `json:"email,omitempty"`
	Relationship *string `json:"relationship,omitempty"`
	ProfileImage *string `json:"profileImage,omitempty"`
}

// UpdateGuardian applies p to the entry at index. The ID and primary flag
// are not editable here.
func UpdateGuardian(list []Guardian, index int, p GuardianPatch) ([]Guardian, error) {
	if index < 0 || index >= len(list) {
		return list, ErrGuardianNotFound
	}
	out := make([]Guardian, len(list))
	copy(out, list)
	g := &out[index]
	if p.FullName != nil {
		g.FullName = *p.FullName
	}
	if p.PhoneNumber != nil {
		g.PhoneNumber = *p.PhoneNumber
	}
	if p.Email != nil {
		g.Email = *p.Email
	}
	if p.Relationship != nil {
		g.Relationship = *p.Relationship
	}
	if p.ProfileImage != nil {
		g.ProfileImage = *p.ProfileImage
	}
	return out, nil
}

// PrimaryCount returns how many entries are primary.
func PrimaryCount(list []Guardian) int {
	n := 0
	for _, g := range list {
		if g.IsPrimary {
			n++
		}
	}
	return n
}

// AddGuardian appends a new guardian to f and returns it.
func (f *Form) AddGuardian(ids *Generator) (Guardian, error) {
	list, err := AddGuardian(f.Guardians, ids.LocalID())
	if err != nil {
		return Guardian{}, err
	}
	f.Guardians = list
	return list[len(list)-1], nil
}

// RemoveGuardian removes the guardian with local ID id from f.
func (f *Form) RemoveGuardian(id string, confirmed bool) error {
	i, err := f.GuardianIndex(id)
	if err != nil {
		return err
	}
	list, err := RemoveGuardian(f.Guardians, i, confirmed)
	if err != nil {
		return err
	}
	f.Guardians = list
	return nil
}

// TogglePrimary toggles the primary flag of the guardian with local ID id.
func (f *Form) TogglePrimary(id string) error {
	i, err := f.GuardianIndex(id)
	if err != nil {
		return err
	}
	list, err := TogglePrimary(f.Guardians, i)
	if err != nil {
		return err
	}
	f.Guardians = list
	return nil
}

// UpdateGuardian applies p to the guardian with local ID id.
func (f *Form) UpdateGuardian(id string, p GuardianPatch) error {
	i, err := f.GuardianIndex(id)
	if err != nil {
		return err
	}
	list, err := UpdateGuardian(f.Guardians, i, p)
	if err != nil {
		return err
	}
	f.Guardians = list
	return nil
}
