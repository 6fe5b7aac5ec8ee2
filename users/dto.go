package users

import (
	"strings"

	"github.com/user/blogdesk-go/apperror"
)

// UpdateProfileRequest carries the profile fields to change. Nil fields are
// left as they are.
type UpdateProfileRequest struct {
	Name   *string `json:"name,omitempty" validate:"omitempty,min=2,max=50"`
	Email  *string `json:"email,omitempty" validate:"omitempty,email"`
	Bio    *string `json:"bio,omitempty" validate:"omitempty,max=500"`
	Avatar *string `json:"avatar,omitempty" validate:"omitempty,url"`
}

// Stats are the account totals shown on the profile page.
type Stats struct {
	TotalBlogs    int `json:"totalBlogs"`
	TotalViews    int `json:"totalViews"`
	TotalLikes    int `json:"totalLikes"`
	TotalComments int `json:"totalComments"`
}

var updateProfileMessages = map[string]string{
	"Name.min":    "Name must be at least 2 characters",
	"Name.max":    "Name cannot exceed 50 characters",
	"Email.email": "Please enter a valid email address",
	"Bio.max":     "Bio cannot exceed 500 characters",
	"Avatar.url":  "Avatar must be a valid URL",
}

func (r *UpdateProfileRequest) validate() error {
	for _, f := range []*string{r.Name, r.Email, r.Bio, r.Avatar} {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
	if r.Name == nil && r.Email == nil && r.Bio == nil && r.Avatar == nil {
		return apperror.NewValidationError("No fields provided for update", nil)
	}
	return apperror.Validate(r, updateProfileMessages)
}
