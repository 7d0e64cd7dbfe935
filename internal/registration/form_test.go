package registration

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Revology-Analytics/revify-portal/internal/auth"
	"github.com/Revology-Analytics/revify-portal/internal/logging"
	"github.com/Revology-Analytics/revify-portal/internal/models"
	"github.com/Revology-Analytics/revify-portal/internal/toast"
)

// mockRegistrar counts calls; registerFunc overrides the default success.
type mockRegistrar struct {
	calls        int32
	last         models.RegistrationInput
	registerFunc func(ctx context.Context, input models.RegistrationInput) error
}

func (m *mockRegistrar) Register(ctx context.Context, input models.RegistrationInput) error {
	atomic.AddInt32(&m.calls, 1)
	m.last = input
	if m.registerFunc != nil {
		return m.registerFunc(ctx, input)
	}
	return nil
}

func validInput() models.RegistrationInput {
	return models.RegistrationInput{
		Name:     "John Doe",
		Email:    "john@example.com",
		Password: "correct-horse",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *models.RegistrationInput)
		field  string
		msg    string
	}{
		{"one-char name", func(in *models.RegistrationInput) { in.Name = "J" }, FieldName, "Name must be at least 2 characters"},
		{"empty name", func(in *models.RegistrationInput) { in.Name = "" }, FieldName, "Name must be at least 2 characters"},
		{"missing at", func(in *models.RegistrationInput) { in.Email = "john.example.com" }, FieldEmail, "Invalid email address"},
		{"missing domain dot", func(in *models.RegistrationInput) { in.Email = "john@localhost" }, FieldEmail, "Invalid email address"},
		{"display name", func(in *models.RegistrationInput) { in.Email = "John <john@example.com>" }, FieldEmail, "Invalid email address"},
		{"padded", func(in *models.RegistrationInput) { in.Email = " john@example.com" }, FieldEmail, "Invalid email address"},
		{"seven-char password", func(in *models.RegistrationInput) { in.Password = "1234567" }, FieldPassword, "Password must be at least 8 characters"},
		{"73-byte password", func(in *models.RegistrationInput) { in.Password = strings.Repeat("a", 73) }, FieldPassword, "Password must be at most 72 bytes"},
		{"multibyte past 72 bytes", func(in *models.RegistrationInput) { in.Password = strings.Repeat("é", 37) }, FieldPassword, "Password must be at most 72 bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)

			errs := Validate(in)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.msg, errs[tt.field])
		})
	}
}

func TestValidate_Valid(t *testing.T) {
	assert.Nil(t, Validate(validInput()))

	in := validInput()
	in.Name = "Zoë"
	in.Password = "pässwörd"
	assert.Nil(t, Validate(in))

	in.Password = strings.Repeat("a", 72)
	assert.Nil(t, Validate(in))

	in.Name = "é"
	assert.Contains(t, Validate(in), FieldName)
}

func TestForm_LongPasswordNeverReachesRegistrar(t *testing.T) {
	reg := &mockRegistrar{}
	form := NewForm(reg, logging.Discard())

	in := validInput()
	in.Password = strings.Repeat("x", 80)
	require.NoError(t, form.Fill(in))

	var fieldErrs FieldErrors
	require.ErrorAs(t, form.Submit(context.Background(), toast.Discard), &fieldErrs)
	assert.Equal(t, "Password must be at most 72 bytes", fieldErrs[FieldPassword])
	assert.Equal(t, int32(0), atomic.LoadInt32(&reg.calls))
	assert.Equal(t, Editing, form.State())
}

func TestFieldErrors_Error(t *testing.T) {
	errs := FieldErrors{FieldPassword: "too short", FieldName: "too short"}
	assert.Equal(t, "invalid registration: name: too short; password: too short", errs.Error())
}

func TestForm_InvalidInputNeverCallsRegistrar(t *testing.T) {
	reg := &mockRegistrar{}
	form := NewForm(reg, logging.Discard())
	rec := &toast.Recorder{}

	in := validInput()
	in.Name = "J"
	require.NoError(t, form.Fill(in))

	err := form.Submit(context.Background(), rec)

	var fieldErrs FieldErrors
	require.True(t, errors.As(err, &fieldErrs))
	assert.Equal(t, "Name must be at least 2 characters", fieldErrs[FieldName])
	assert.Equal(t, int32(0), atomic.LoadInt32(&reg.calls))
	assert.Equal(t, Editing, form.State())
	assert.Empty(t, rec.Toasts())
}

func TestForm_SubmitSuccess(t *testing.T) {
	reg := &mockRegistrar{}
	form := NewForm(reg, logging.Discard())
	rec := &toast.Recorder{}

	require.NoError(t, form.Set(FieldName, "John Doe"))
	require.NoError(t, form.Set(FieldEmail, "john@example.com"))
	require.NoError(t, form.Set(FieldPassword, "correct-horse"))
	assert.Nil(t, form.Validate())

	require.NoError(t, form.Submit(context.Background(), rec))

	assert.Equal(t, int32(1), atomic.LoadInt32(&reg.calls))
	assert.Equal(t, validInput(), reg.last)
	assert.Equal(t, Complete, form.State())
	assert.Equal(t, models.RegistrationInput{}, form.Values())
	assert.Equal(t, []toast.Toast{
		toast.Success("Registration successful", "Account created successfully. Awaiting approval."),
	}, rec.Toasts())

	// Complete is terminal.
	assert.ErrorIs(t, form.Set(FieldName, "Someone Else"), ErrFormComplete)
	assert.ErrorIs(t, form.Fill(validInput()), ErrFormComplete)
	assert.ErrorIs(t, form.Submit(context.Background(), rec), ErrFormComplete)
	assert.Equal(t, int32(1), atomic.LoadInt32(&reg.calls))
	assert.Len(t, rec.Toasts(), 1)
}

func TestForm_SubmitFailure(t *testing.T) {
	reg := &mockRegistrar{
		registerFunc: func(context.Context, models.RegistrationInput) error {
			return auth.ErrEmailTaken
		},
	}
	form := NewForm(reg, logging.Discard())
	rec := &toast.Recorder{}
	require.NoError(t, form.Fill(validInput()))

	err := form.Submit(context.Background(), rec)

	assert.ErrorIs(t, err, auth.ErrEmailTaken)
	assert.Equal(t, Editing, form.State())
	assert.Equal(t, "an account with this email already exists", form.LastError())
	assert.Equal(t, []toast.Toast{
		toast.Failure("Registration failed", "There was an error creating your account. Please try again."),
	}, rec.Toasts())

	// Input survives the failure and the form is editable again.
	assert.Equal(t, "john@example.com", form.Values().Email)
	assert.Empty(t, form.Values().Password)
	require.NoError(t, form.Set(FieldEmail, "john.doe@example.com"))

	reg.registerFunc = nil
	require.NoError(t, form.Submit(context.Background(), rec))
	assert.Empty(t, form.LastError())
	assert.Equal(t, Complete, form.State())
}

func TestForm_InternalErrorsAreNotEchoed(t *testing.T) {
	cause := errors.New("create user: database is locked")
	reg := &mockRegistrar{
		registerFunc: func(context.Context, models.RegistrationInput) error { return cause },
	}
	form := NewForm(reg, logging.Discard())
	require.NoError(t, form.Fill(validInput()))

	err := form.Submit(context.Background(), toast.Discard)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "There was an error creating your account. Please try again.", form.LastError())
	assert.NotContains(t, form.LastError(), "database")
}

func TestForm_DoubleSubmitBlocked(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	reg := &mockRegistrar{
		registerFunc: func(context.Context, models.RegistrationInput) error {
			close(entered)
			<-release
			return nil
		},
	}
	form := NewForm(reg, logging.Discard())
	require.NoError(t, form.Fill(validInput()))

	done := make(chan error, 1)
	go func() { done <- form.Submit(context.Background(), toast.Discard) }()

	<-entered
	assert.Equal(t, Submitting, form.State())
	assert.ErrorIs(t, form.Submit(context.Background(), toast.Discard), ErrSubmitInProgress)
	assert.ErrorIs(t, form.Set(FieldName, "Other"), ErrSubmitInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), atomic.LoadInt32(&reg.calls))
	assert.Equal(t, Complete, form.State())
}

func TestForm_UnknownField(t *testing.T) {
	form := NewForm(&mockRegistrar{}, logging.Discard())
	assert.ErrorIs(t, form.Set("phone", "555"), ErrUnknownField)
}

func TestRegistry_GetAndSweep(t *testing.T) {
	reg := NewRegistry(&mockRegistrar{}, logging.Discard())
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	key, form := reg.Get("")
	require.NotEmpty(t, key)

	sameKey, same := reg.Get(key)
	assert.Equal(t, key, sameKey)
	assert.Same(t, form, same)

	otherKey, other := reg.Get("unknown")
	assert.NotEqual(t, "unknown", otherKey)
	assert.NotSame(t, form, other)
	assert.Equal(t, 2, reg.Len())

	now = now.Add(time.Hour)
	reg.Get(key)

	assert.Equal(t, 1, reg.Sweep(30*time.Minute))
	assert.Equal(t, 1, reg.Len())
	_, kept := reg.Get(key)
	assert.Same(t, form, kept)
}
