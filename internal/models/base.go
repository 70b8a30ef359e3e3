package models

import (
	"realtyhub/backend/internal/utils"
)

type IBase interface {
	GenIDIfEmpty()
	GenID()
	SetID(id string)
}

// Base carries the string _id shared by every stored document.
type Base struct {
	ID string `bson:"_id,omitempty" json:"id,omitempty"`
}

func (m *Base) GenIDIfEmpty() {
	if m.ID == "" {
		m.GenID()
	}
}

func (m *Base) GenID() {
	m.ID = utils.NewRecordID()
}

func (m *Base) SetID(id string) {
	m.ID = id
}

func NewBase() Base {
	return Base{ID: utils.NewRecordID()}
}
