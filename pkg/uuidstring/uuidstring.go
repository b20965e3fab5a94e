package uuidstring

import (
	"github.com/google/uuid"
)

// ID is a UUID carried as a string so it can travel through JSON and
// redis stream values without conversion at every boundary.
type ID string

const Nil ID = ""

func NewID() ID {
	return ID(uuid.New().String())
}

func Parse(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return Nil, err
	}
	return ID(u.String()), nil
}

func (id ID) IsNil() bool {
	return id == Nil
}

func (id ID) UUID() (uuid.UUID, error) {
	if id == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(string(id))
}

func (id ID) String() string {
	return string(id)
}

func (id ID) MarshalBinary() (data []byte, err error) {
	return []byte(id), nil
}
