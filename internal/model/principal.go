package model

import "github.com/google/uuid"

// Principal is the authenticated caller, as decoded from the access
// token. Authorization policy beyond this lives in the web layer.
type Principal struct {
	UserID uuid.UUID
	Role   string
}

func (p Principal) IsValid() bool {
	return p.UserID != uuid.Nil
}
