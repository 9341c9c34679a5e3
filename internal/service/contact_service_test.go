package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newContactFixture() (*ContactService, *fakeContactRepo) {
	repo := newFakeContactRepo()
	return NewContactService(repo, zap.NewNop(), "http://frontend.local"), repo
}

func TestResolveCreatesContactWithPlaceholderPicture(t *testing.T) {
	svc, _ := newContactFixture()

	contact, err := svc.Resolve(context.Background(), nil, Identity{JID: "5511999990000@s.whatsapp.net", Name: "Maria"})
	require.NoError(t, err)

	assert.Equal(t, "Maria", contact.Name)
	assert.Equal(t, "5511999990000", contact.Number)
	assert.Equal(t, "http://frontend.local/nopicture.png", contact.ProfilePicURL)
	assert.False(t, contact.IsGroup)
}

func TestResolveUsesSessionProfilePicture(t *testing.T) {
	svc, _ := newContactFixture()
	session := newFakeSession(1)
	session.picURL = "https://cdn.example/pic.jpg"

	contact, err := svc.Resolve(context.Background(), session, Identity{JID: "5511999990000@s.whatsapp.net", Name: "Maria"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/pic.jpg", contact.ProfilePicURL)
}

func TestResolvePictureFailureFallsBack(t *testing.T) {
	svc, _ := newContactFixture()
	session := newFakeSession(1)
	session.picErr = errors.New("not allowed")

	contact, err := svc.Resolve(context.Background(), session, Identity{JID: "5511999990000@s.whatsapp.net", Name: "Maria"})
	require.NoError(t, err)
	assert.Equal(t, "http://frontend.local/nopicture.png", contact.ProfilePicURL)
}

func TestResolveFallsBackToNumberAsName(t *testing.T) {
	svc, _ := newContactFixture()

	contact, err := svc.Resolve(context.Background(), nil, Identity{JID: "5511999990000@s.whatsapp.net"})
	require.NoError(t, err)
	assert.Equal(t, "5511999990000", contact.Name)
}

func TestResolveKeepsStoredNameWhenIdentityIsAnonymous(t *testing.T) {
	svc, _ := newContactFixture()

	first, err := svc.Resolve(context.Background(), nil, Identity{JID: "5511999990000@s.whatsapp.net", Name: "Maria"})
	require.NoError(t, err)

	second, err := svc.Resolve(context.Background(), nil, Identity{JID: "5511999990000@s.whatsapp.net"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Maria", second.Name)
}

func TestResolveGroupKeepsFullJidAsNumber(t *testing.T) {
	svc, _ := newContactFixture()

	contact, err := svc.Resolve(context.Background(), nil, Identity{JID: "12036304@g.us", Name: "Project Team"})
	require.NoError(t, err)

	assert.True(t, contact.IsGroup)
	assert.Equal(t, "12036304@g.us", contact.Number)
}
