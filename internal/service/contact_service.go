package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-gateway/internal/domain"
	"github.com/spec-kit/helpdesk-gateway/internal/provider"
	"github.com/spec-kit/helpdesk-gateway/internal/repository"
)

// Identity is a provider-supplied sender identity before normalization.
type Identity struct {
	JID  string
	Name string
}

// ContactService normalizes provider identities into durable Contact rows.
type ContactService struct {
	contacts    repository.ContactRepository
	logger      *zap.Logger
	frontendURL string
}

// NewContactService constructs the service.
func NewContactService(contacts repository.ContactRepository, logger *zap.Logger, frontendURL string) *ContactService {
	return &ContactService{contacts: contacts, logger: logger, frontendURL: frontendURL}
}

// Resolve creates or updates the Contact for an identity. The profile picture
// is fetched through the session when one is available; a fetch failure never
// fails resolution and falls back to the placeholder image.
func (s *ContactService) Resolve(ctx context.Context, session provider.Session, identity Identity) (*domain.Contact, error) {
	profilePicURL := s.frontendURL + "/nopicture.png"
	if session != nil {
		url, err := session.ProfilePictureURL(ctx, identity.JID)
		if err != nil {
			s.logger.Warn("profile picture fetch failed",
				zap.String("jid", identity.JID), zap.Error(err))
		} else if url != "" {
			profilePicURL = url
		}
	}

	number := provider.NumberFromJid(identity.JID)
	isGroup := provider.IsGroupJid(identity.JID)
	if isGroup {
		// Group jids carry the group id, not a phone number.
		number = identity.JID
	}
	name := identity.Name
	if name == "" {
		name = number
	}

	contact, err := s.contacts.GetByNumber(ctx, number)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		contact = &domain.Contact{
			Name:          name,
			Number:        number,
			ProfilePicURL: profilePicURL,
			IsGroup:       isGroup,
		}
		if err := s.contacts.Create(ctx, contact); err != nil {
			return nil, err
		}
		return contact, nil
	}

	if identity.Name != "" {
		contact.Name = identity.Name
	}
	contact.ProfilePicURL = profilePicURL
	if err := s.contacts.Update(ctx, contact); err != nil {
		return nil, err
	}
	return contact, nil
}
