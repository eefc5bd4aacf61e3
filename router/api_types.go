package router

import (
	"github.com/goccy/go-json"

	"github.com/priyxstudio/examination/internal/models"
)

// ErrorResponse represents the common error payload returned by the API.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// MessageResponse is returned by operations that only report success.
type MessageResponse struct {
	Message string `json:"message"`
}

// ModuleListResponse contains a list of module codes.
type ModuleListResponse struct {
	Data []string `json:"data"`
}

// ModuleExistsResponse reports whether a module code is taken.
type ModuleExistsResponse struct {
	Exists bool `json:"exists"`
}

// CreateModuleRequest is the body used to create a module.
type CreateModuleRequest = models.Module

// ResultsRequest replaces the results of a module. UserID must be an admin.
type ResultsRequest struct {
	UserID  string            `json:"userId" binding:"required"`
	Results []json.RawMessage `json:"results"`
}

// UserRequest identifies the user acting on a module.
type UserRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// RegisterResponse is returned after a successful registration.
type RegisterResponse struct {
	Registered bool `json:"registered"`
}

// ModuleMessageRequest is a message an admin sends to every registered student.
type ModuleMessageRequest struct {
	AuthorID string `json:"authorId" binding:"required"`
	Message  string `json:"message" binding:"required"`
}

// FileListResponse lists the files recorded for a module in upload order.
type FileListResponse struct {
	Data []string `json:"data"`
}

// UploadResponse lists the files stored by an upload request.
type UploadResponse struct {
	Files []UploadedFile `json:"files"`
}

// UploadedFile describes a single stored upload.
type UploadedFile struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Mimetype string `json:"mimetype"`
}

// InboxResponse contains the messages delivered to a user.
type InboxResponse struct {
	Data []models.Message `json:"data"`
}
