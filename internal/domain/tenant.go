package domain

import (
	"errors"
)

// Tenant identifies the account and chatbot a console view operates on.
// It is passed explicitly to every key constructor and request builder.
type Tenant struct {
	AccountID string `json:"accountId" validate:"required"`
	ChatbotID string `json:"chatbotId" validate:"required"`
}

// ErrMissingTenant is returned when a tenant lacks its account or chatbot id
var ErrMissingTenant = errors.New("tenant requires account and chatbot id")

// Validate checks both ids are present
func (t Tenant) Validate() error {
	if t.AccountID == "" || t.ChatbotID == "" {
		return ErrMissingTenant
	}
	return nil
}

// String returns a stable form usable as a map key
func (t Tenant) String() string {
	return t.AccountID + "/" + t.ChatbotID
}
