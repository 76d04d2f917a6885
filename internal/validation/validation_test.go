package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/quill/internal/model"
)

type signUp struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8,max=72"`
}

func TestStructValid(t *testing.T) {
	v := New()
	assert.NoError(t, v.Struct(signUp{Email: "a@example.com", Password: "password1"}))
}

func TestStructCollectsFieldErrors(t *testing.T) {
	v := New()
	err := v.Struct(signUp{Email: "nope", Password: "short"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))

	var verr *Error
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 2)
	assert.Equal(t, FieldError{Field: "email", Message: "must be a valid email address"}, verr.Fields[0])
	assert.Equal(t, FieldError{Field: "password", Message: "must be at least 8 characters"}, verr.Fields[1])
}

func TestProfileUpdatePointers(t *testing.T) {
	v := New()
	empty := ""
	bad := "not a url"
	long := string(make([]byte, 501))

	assert.NoError(t, v.Struct(model.ProfileUpdate{}))
	assert.NoError(t, v.Struct(model.ProfileUpdate{Website: &empty, AvatarURL: &empty}))
	assert.NoError(t, v.Struct(model.PostPatch{CoverImage: &empty}))
	assert.NoError(t, v.Struct(model.PostInput{Title: "t"}))

	err := v.Struct(model.ProfileUpdate{DisplayName: &empty})
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "display_name", verr.Fields[0].Field)

	err = v.Struct(model.ProfileUpdate{AvatarURL: &bad})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "avatar_url", verr.Fields[0].Field)
	assert.Equal(t, "must be a valid URL", verr.Fields[0].Message)
	require.Error(t, v.Struct(model.PostPatch{CoverImage: &bad}))
	require.Error(t, v.Struct(model.ProfileUpdate{Bio: &long}))
}

func TestSnake(t *testing.T) {
	assert.Equal(t, "display_name", snake("DisplayName"))
	assert.Equal(t, "title", snake("Title"))
	assert.Equal(t, "avatar_url", snake("AvatarURL"))
	assert.Equal(t, "url_path", snake("URLPath"))
}
