package services_test

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"profilex/internal/models"
	"profilex/internal/repositories"
	"profilex/internal/services"
)

// MockEventPublisher is a mock implementation of services.EventPublisher.
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishProfileEvent(eventType string, body []byte) error {
	args := m.Called(eventType, body)
	return args.Error(0)
}

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func newService() (*services.ProfileService, *repositories.MockAccountRepository, *repositories.MockExtendedInfoRepository) {
	accounts := repositories.NewMockAccountRepository()
	info := repositories.NewMockExtendedInfoRepository()
	return services.NewProfileService(accounts, info, nil), accounts, info
}

func signup(email, username string) models.SignupRequest {
	return models.SignupRequest{
		Email:    email,
		Username: username,
		Password: "secret",
		Name:     "Name " + username,
	}
}

func TestCreateProfile(t *testing.T) {
	svc, accounts, info := newService()

	req := signup("a@x.com", "a")
	req.Gender = "female"
	req.BloodGroup = "O+"

	profile, err := svc.CreateProfile(req)
	assert.NoError(t, err)
	assert.Equal(t, "a@x.com", profile.Email)
	assert.Equal(t, "a", profile.Username)
	assert.Equal(t, models.DefaultLocation, profile.Location)
	assert.Equal(t, models.DefaultDescription, profile.Description)
	assert.False(t, profile.IsAdmin)
	assert.Nil(t, profile.DateOfBirth)
	assert.False(t, profile.CreatedAt.IsZero())
	assert.Equal(t, "female", profile.Gender)
	assert.Equal(t, "O+", profile.BloodGroup)

	stored, err := accounts.Load()
	assert.NoError(t, err)
	assert.Len(t, stored, 1)
	assert.Equal(t, "secret", stored[0].Password)

	records, err := info.Load()
	assert.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, "a@x.com", records[0].Email)
	assert.Equal(t, "O+", records[0].BloodGroup)
}

func TestCreateProfileConflicts(t *testing.T) {
	svc, accounts, _ := newService()

	_, err := svc.CreateProfile(signup("a@x.com", "a"))
	assert.NoError(t, err)

	// Same email, different username.
	_, err = svc.CreateProfile(signup("a@x.com", "b"))
	assert.ErrorIs(t, err, services.ErrEmailTaken)

	// Same username, different email.
	_, err = svc.CreateProfile(signup("b@x.com", "a"))
	assert.ErrorIs(t, err, services.ErrUsernameTaken)

	stored, err := accounts.Load()
	assert.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestProfileNeverContainsPassword(t *testing.T) {
	svc, _, _ := newService()

	profile, err := svc.CreateProfile(signup("a@x.com", "a"))
	assert.NoError(t, err)

	data, err := json.Marshal(profile)
	assert.NoError(t, err)

	var asMap map[string]interface{}
	assert.NoError(t, json.Unmarshal(data, &asMap))
	assert.NotContains(t, asMap, "password")
	assert.NotContains(t, asMap, "Password")
}

func TestMergePrecedence(t *testing.T) {
	svc, accounts, info := newService()

	dob := "1990-01-02"
	assert.NoError(t, accounts.Replace([]models.Account{{
		Email:       "a@x.com",
		Username:    "a",
		Name:        "A",
		Password:    "secret",
		Location:    "A-Town",
		DateOfBirth: &dob,
		CreatedAt:   time.Now().UTC(),
	}}))
	assert.NoError(t, info.Replace([]models.ExtendedInfo{{
		Email:  "a@x.com",
		Gender: "male",
	}}))

	profile, err := svc.GetProfileByEmail("a@x.com")
	assert.NoError(t, err)
	// Account-side fields surface unchanged; extended-info fields fill the rest.
	assert.Equal(t, "A-Town", profile.Location)
	assert.Equal(t, "male", profile.Gender)
	assert.Equal(t, &dob, profile.DateOfBirth)
}

func TestGetProfileByEmail(t *testing.T) {
	svc, _, _ := newService()

	_, err := svc.GetProfileByEmail("missing@x.com")
	assert.ErrorIs(t, err, services.ErrAccountNotFound)

	_, err = svc.CreateProfile(signup("a@x.com", "a"))
	assert.NoError(t, err)

	// Re-reads with no intervening writes are identical.
	first, err := svc.GetProfileByEmail("a@x.com")
	assert.NoError(t, err)
	second, err := svc.GetProfileByEmail("a@x.com")
	assert.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPublicViewRedaction(t *testing.T) {
	svc, _, _ := newService()

	req := signup("a@x.com", "a")
	req.BloodGroup = "O+"
	req.TShirtSize = "L"
	req.Gender = "female"
	_, err := svc.CreateProfile(req)
	assert.NoError(t, err)

	// The owner view keeps the sensitive extended fields.
	own, err := svc.GetProfileByEmail("a@x.com")
	assert.NoError(t, err)
	assert.Equal(t, "O+", own.BloodGroup)
	assert.Equal(t, "L", own.TShirtSize)

	// The public view drops the keys entirely, not just their values.
	public, err := svc.GetPublicProfileByUsername("a")
	assert.NoError(t, err)
	assert.Equal(t, "female", public.Gender)

	data, err := json.Marshal(public)
	assert.NoError(t, err)
	var asMap map[string]interface{}
	assert.NoError(t, json.Unmarshal(data, &asMap))
	assert.NotContains(t, asMap, "bloodGroup")
	assert.NotContains(t, asMap, "tShirtSize")
	assert.NotContains(t, asMap, "password")

	listed, err := svc.ListPublicProfiles()
	assert.NoError(t, err)
	assert.Len(t, listed, 1)
	assert.Empty(t, listed[0].BloodGroup)
	assert.Empty(t, listed[0].TShirtSize)

	_, err = svc.GetPublicProfileByUsername("nobody")
	assert.ErrorIs(t, err, services.ErrAccountNotFound)
}

func TestListPublicProfilesKeepsInsertionOrder(t *testing.T) {
	svc, _, _ := newService()

	for _, u := range []string{"first", "second", "third"} {
		_, err := svc.CreateProfile(signup(u+"@x.com", u))
		assert.NoError(t, err)
	}

	listed, err := svc.ListPublicProfiles()
	assert.NoError(t, err)
	assert.Len(t, listed, 3)
	assert.Equal(t, "first", listed[0].Username)
	assert.Equal(t, "second", listed[1].Username)
	assert.Equal(t, "third", listed[2].Username)
}

func strptr(s string) *string { return &s }

func TestUpdateOwnProfile(t *testing.T) {
	svc, _, _ := newService()

	_, err := svc.CreateProfile(signup("a@x.com", "a"))
	assert.NoError(t, err)

	profile, err := svc.UpdateOwnProfile("a@x.com", models.ProfileUpdate{
		Location: strptr("Pune"),
		Gender:   strptr("female"),
	})
	assert.NoError(t, err)
	assert.Equal(t, "Pune", profile.Location)
	assert.Equal(t, "female", profile.Gender)

	// The change is durable, not just reflected in the return value.
	reread, err := svc.GetProfileByEmail("a@x.com")
	assert.NoError(t, err)
	assert.Equal(t, "Pune", reread.Location)
	assert.Equal(t, "female", reread.Gender)

	_, err = svc.UpdateOwnProfile("missing@x.com", models.ProfileUpdate{Location: strptr("X")})
	assert.ErrorIs(t, err, services.ErrAccountNotFound)
}

func TestUpdateOwnProfileUsernameCollisionAbortsWholeUpdate(t *testing.T) {
	svc, _, _ := newService()

	_, err := svc.CreateProfile(signup("a@x.com", "a"))
	assert.NoError(t, err)
	_, err = svc.CreateProfile(signup("b@x.com", "b"))
	assert.NoError(t, err)

	before, err := svc.GetProfileByEmail("a@x.com")
	assert.NoError(t, err)

	// The name change must not slip through when the username collides.
	_, err = svc.UpdateOwnProfile("a@x.com", models.ProfileUpdate{
		Name:     strptr("New Name"),
		Username: strptr("b"),
		Gender:   strptr("female"),
	})
	assert.ErrorIs(t, err, services.ErrUsernameTaken)

	after, err := svc.GetProfileByEmail("a@x.com")
	assert.NoError(t, err)
	assert.Equal(t, before, after)

	// Changing the username to its current value is not a collision.
	_, err = svc.UpdateOwnProfile("a@x.com", models.ProfileUpdate{Username: strptr("a")})
	assert.NoError(t, err)
}

func TestUpdateOwnProfileIgnoresAdminFlag(t *testing.T) {
	svc, _, _ := newService()

	_, err := svc.CreateProfile(signup("a@x.com", "a"))
	assert.NoError(t, err)

	isAdmin := true
	profile, err := svc.UpdateOwnProfile("a@x.com", models.ProfileUpdate{IsAdmin: &isAdmin})
	assert.NoError(t, err)
	assert.False(t, profile.IsAdmin)
}

func TestUpdateLazilyCreatesExtendedInfo(t *testing.T) {
	svc, accounts, info := newService()

	// An account without its extended-info counterpart, as a crash between
	// the two signup writes would leave behind.
	assert.NoError(t, accounts.Replace([]models.Account{{
		Email:     "a@x.com",
		Username:  "a",
		Name:      "A",
		Password:  "secret",
		CreatedAt: time.Now().UTC(),
	}}))

	profile, err := svc.UpdateOwnProfile("a@x.com", models.ProfileUpdate{Gender: strptr("male")})
	assert.NoError(t, err)
	assert.Equal(t, "male", profile.Gender)

	records, err := info.Load()
	assert.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, "a@x.com", records[0].Email)
}

func TestAdminUpdateUser(t *testing.T) {
	svc, _, _ := newService()

	admin := signup("admin@x.com", "admin")
	admin.IsAdmin = true
	_, err := svc.CreateProfile(admin)
	assert.NoError(t, err)
	_, err = svc.CreateProfile(signup("user@x.com", "user"))
	assert.NoError(t, err)

	// Non-admin and unknown actors are both rejected.
	_, err = svc.AdminUpdateUser("user@x.com", "admin@x.com", models.ProfileUpdate{Name: strptr("X")})
	assert.ErrorIs(t, err, services.ErrAdminRequired)
	_, err = svc.AdminUpdateUser("ghost@x.com", "user@x.com", models.ProfileUpdate{Name: strptr("X")})
	assert.ErrorIs(t, err, services.ErrAdminRequired)

	_, err = svc.AdminUpdateUser("admin@x.com", "ghost@x.com", models.ProfileUpdate{Name: strptr("X")})
	assert.ErrorIs(t, err, services.ErrAccountNotFound)

	// Admins may promote and may patch extended fields.
	isAdmin := true
	profile, err := svc.AdminUpdateUser("admin@x.com", "user@x.com", models.ProfileUpdate{
		IsAdmin:    &isAdmin,
		BloodGroup: strptr("AB+"),
	})
	assert.NoError(t, err)
	assert.True(t, profile.IsAdmin)
	assert.Equal(t, "AB+", profile.BloodGroup)

	// Username collisions abort the whole admin update as well.
	before, err := svc.GetProfileByEmail("user@x.com")
	assert.NoError(t, err)
	_, err = svc.AdminUpdateUser("admin@x.com", "user@x.com", models.ProfileUpdate{
		Username: strptr("admin"),
		Name:     strptr("Should Not Stick"),
	})
	assert.ErrorIs(t, err, services.ErrUsernameTaken)
	after, err := svc.GetProfileByEmail("user@x.com")
	assert.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestAdminDemotionTakesEffectOnNextCall(t *testing.T) {
	svc, _, _ := newService()

	admin := signup("admin@x.com", "admin")
	admin.IsAdmin = true
	_, err := svc.CreateProfile(admin)
	assert.NoError(t, err)
	_, err = svc.CreateProfile(signup("user@x.com", "user"))
	assert.NoError(t, err)

	// The admin demotes themselves; the gate re-reads the store, so the
	// very next call is rejected.
	isAdmin := false
	_, err = svc.AdminUpdateUser("admin@x.com", "admin@x.com", models.ProfileUpdate{IsAdmin: &isAdmin})
	assert.NoError(t, err)

	_, err = svc.AdminUpdateUser("admin@x.com", "user@x.com", models.ProfileUpdate{Name: strptr("X")})
	assert.ErrorIs(t, err, services.ErrAdminRequired)
}

func TestAdminDeleteUser(t *testing.T) {
	svc, accounts, info := newService()

	admin := signup("admin@x.com", "admin")
	admin.IsAdmin = true
	_, err := svc.CreateProfile(admin)
	assert.NoError(t, err)
	target := signup("user@x.com", "user")
	target.BloodGroup = "O-"
	_, err = svc.CreateProfile(target)
	assert.NoError(t, err)

	assert.ErrorIs(t, svc.AdminDeleteUser("user@x.com", "admin@x.com"), services.ErrAdminRequired)
	assert.ErrorIs(t, svc.AdminDeleteUser("admin@x.com", "ghost@x.com"), services.ErrAccountNotFound)

	// Self-deletion is rejected and leaves the store unchanged.
	assert.ErrorIs(t, svc.AdminDeleteUser("admin@x.com", "admin@x.com"), services.ErrSelfDelete)
	stored, err := accounts.Load()
	assert.NoError(t, err)
	assert.Len(t, stored, 2)

	// Deletion cascades to the extended-info record.
	assert.NoError(t, svc.AdminDeleteUser("admin@x.com", "user@x.com"))
	_, err = svc.GetProfileByEmail("user@x.com")
	assert.ErrorIs(t, err, services.ErrAccountNotFound)
	records, err := info.Load()
	assert.NoError(t, err)
	for _, rec := range records {
		assert.NotEqual(t, "user@x.com", rec.Email)
	}
}

func TestCreateProfilePartialWriteKeepsAccount(t *testing.T) {
	svc, accounts, info := newService()

	info.ReplaceErr = errors.New("disk full")

	_, err := svc.CreateProfile(signup("a@x.com", "a"))
	assert.ErrorIs(t, err, services.ErrExtendedInfoPending)

	// Degraded success: the account write is committed, never rolled back.
	stored, loadErr := accounts.Load()
	assert.NoError(t, loadErr)
	assert.Len(t, stored, 1)
	assert.Equal(t, "a@x.com", stored[0].Email)
}

func TestUpdatePartialWriteKeepsAccountChange(t *testing.T) {
	svc, accounts, info := newService()

	_, err := svc.CreateProfile(signup("a@x.com", "a"))
	assert.NoError(t, err)

	info.ReplaceErr = errors.New("disk full")

	_, err = svc.UpdateOwnProfile("a@x.com", models.ProfileUpdate{
		Name:   strptr("New Name"),
		Gender: strptr("female"),
	})
	assert.ErrorIs(t, err, services.ErrExtendedInfoPending)

	stored, loadErr := accounts.Load()
	assert.NoError(t, loadErr)
	assert.Equal(t, "New Name", stored[0].Name)
}

func TestDeletePartialWriteKeepsAccountDeletion(t *testing.T) {
	svc, accounts, info := newService()

	admin := signup("admin@x.com", "admin")
	admin.IsAdmin = true
	_, err := svc.CreateProfile(admin)
	assert.NoError(t, err)
	_, err = svc.CreateProfile(signup("user@x.com", "user"))
	assert.NoError(t, err)

	info.ReplaceErr = errors.New("disk full")

	err = svc.AdminDeleteUser("admin@x.com", "user@x.com")
	assert.ErrorIs(t, err, services.ErrExtendedInfoPending)

	stored, loadErr := accounts.Load()
	assert.NoError(t, loadErr)
	assert.Len(t, stored, 1)
	assert.Equal(t, "admin@x.com", stored[0].Email)
}

func TestProfileEventsArePublished(t *testing.T) {
	accounts := repositories.NewMockAccountRepository()
	info := repositories.NewMockExtendedInfoRepository()
	pub := new(MockEventPublisher)
	svc := services.NewProfileService(accounts, info, pub)

	adminReq := signup("admin@x.com", "admin")
	adminReq.IsAdmin = true
	pub.On("PublishProfileEvent", services.EventProfileCreated, mock.Anything).Return(nil).Twice()
	_, err := svc.CreateProfile(adminReq)
	assert.NoError(t, err)
	_, err = svc.CreateProfile(signup("user@x.com", "user"))
	assert.NoError(t, err)

	// Publish failures are logged, not surfaced.
	pub.On("PublishProfileEvent", services.EventProfileUpdated, mock.Anything).Return(errors.New("mq down")).Once()
	_, err = svc.UpdateOwnProfile("user@x.com", models.ProfileUpdate{Location: strptr("Pune")})
	assert.NoError(t, err)

	// A no-op update publishes nothing.
	_, err = svc.UpdateOwnProfile("user@x.com", models.ProfileUpdate{Location: strptr("Pune")})
	assert.NoError(t, err)

	pub.On("PublishProfileEvent", services.EventProfileDeleted, mock.Anything).Return(nil).Once()
	assert.NoError(t, svc.AdminDeleteUser("admin@x.com", "user@x.com"))

	pub.AssertExpectations(t)
}

func TestSignupUpdatePublicViewFlow(t *testing.T) {
	svc, _, _ := newService()

	profile, err := svc.CreateProfile(models.SignupRequest{
		Email:    "a@x.com",
		Username: "a",
		Password: "p",
		Name:     "A",
	})
	assert.NoError(t, err)
	assert.Equal(t, "a@x.com", profile.Email)

	_, err = svc.CreateProfile(models.SignupRequest{
		Email:    "a@x.com",
		Username: "other",
		Password: "p",
		Name:     "A2",
	})
	assert.ErrorIs(t, err, services.ErrEmailTaken)

	updated, err := svc.UpdateOwnProfile("a@x.com", models.ProfileUpdate{Location: strptr("Pune")})
	assert.NoError(t, err)
	assert.Equal(t, "Pune", updated.Location)

	public, err := svc.GetPublicProfileByUsername("a")
	assert.NoError(t, err)
	assert.Equal(t, "Pune", public.Location)

	data, err := json.Marshal(public)
	assert.NoError(t, err)
	var asMap map[string]interface{}
	assert.NoError(t, json.Unmarshal(data, &asMap))
	assert.NotContains(t, asMap, "bloodGroup")
	assert.NotContains(t, asMap, "tShirtSize")
	assert.NotContains(t, asMap, "password")
}
