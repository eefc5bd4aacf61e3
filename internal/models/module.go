package models

import (
	"github.com/goccy/go-json"
)

// Module is an academic course unit. It is stored in the Modules collection
// under its ModuleCode.
type Module struct {
	// ModuleCode is the unique identifier of the module and doubles as the
	// storage key. It never changes once the module is created.
	ModuleCode string `json:"moduleCode"`

	// Admins are the users allowed to change results and post module messages.
	Admins []string `json:"admins"`

	// RegisteredStudents are the users enrolled in this module.
	RegisteredStudents []string `json:"registeredStudents"`

	// ResultAvailable is set the first time results are written and is never
	// cleared afterwards.
	ResultAvailable bool `json:"resultAvailable"`

	// Results are opaque per-student records owned by the caller.
	Results []json.RawMessage `json:"results"`

	// LastEditedBy is the admin that last wrote Results.
	LastEditedBy string `json:"lastEditedBy,omitempty"`

	// ReCorrectionRequested lists the students with an open re-correction
	// request. Absent until the first request is made.
	ReCorrectionRequested []string `json:"reCorrectionRequested,omitempty"`
}

// IsAdmin reports whether the user may modify this module.
func (m *Module) IsAdmin(userID string) bool {
	return contains(m.Admins, userID)
}

// IsRegistered reports whether the user is enrolled in this module.
func (m *Module) IsRegistered(userID string) bool {
	return contains(m.RegisteredStudents, userID)
}

// HasRequestedReCorrection reports whether the user already has an open
// re-correction request.
func (m *Module) HasRequestedReCorrection(userID string) bool {
	return contains(m.ReCorrectionRequested, userID)
}

// Normalize replaces nil rosters with empty ones so that the stored document
// always carries the arrays.
func (m *Module) Normalize() {
	if m.Admins == nil {
		m.Admins = []string{}
	}
	if m.RegisteredStudents == nil {
		m.RegisteredStudents = []string{}
	}
	if m.Results == nil {
		m.Results = []json.RawMessage{}
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
