package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/helpdesk-gateway/internal/domain"
)

func TestExpandTemplateSubstitutesVariables(t *testing.T) {
	contact := &domain.Contact{Name: "Maria"}
	morning := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 8, 24, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, "Good morning Maria, welcome!",
		ExpandTemplate("{{ms}} {{name}}, welcome!", contact, morning))
	assert.Equal(t, "Good evening Maria",
		ExpandTemplate("{{ms}} {{name}}", contact, evening))
}

func TestExpandTemplateHandlesMissingContact(t *testing.T) {
	afternoon := time.Date(2026, 8, 24, 14, 0, 0, 0, time.UTC)
	assert.Equal(t, "Good afternoon ", ExpandTemplate("{{ms}} {{name}}", nil, afternoon))
	assert.Empty(t, ExpandTemplate("", nil, afternoon))
}
