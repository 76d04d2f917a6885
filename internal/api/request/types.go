package request

// SignUpRequest is the request body for signing up
type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInRequest is the request body for signing in
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ConfirmRequest is the request body for confirming an email
type ConfirmRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// SignOutRequest is the request body for signing out. An empty scope means local.
type SignOutRequest struct {
	Scope string `json:"scope,omitempty"`
}

// UpdateProfileRequest is the request body for a profile update.
// Omitted fields are left unchanged.
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	Website     *string `json:"website,omitempty"`
}

// PostRequest is the request body for creating or replacing a post
type PostRequest struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	CoverImage string `json:"cover_image,omitempty"`
	Publish    bool   `json:"publish,omitempty"`
}

// PatchPostRequest is the request body for a partial post update
type PatchPostRequest struct {
	Title      *string `json:"title,omitempty"`
	Content    *string `json:"content,omitempty"`
	CoverImage *string `json:"cover_image,omitempty"`
}
