package service

import "familytodo/internal/apperr"

var (
	ErrCredentialsRequired = apperr.Validation("Email & username & password required")
	ErrInvalidCredentials  = apperr.Unauthorized("Invalid credentials")
	ErrUseExternalLogin    = apperr.Unauthorized(`This account uses Google login. Please use "Continue with Google" to login.`)
	ErrRegisteredExternal  = apperr.Conflict(`This email is already registered with Google. Please use "Continue with Google" to login.`)
	ErrEmailTaken          = apperr.Conflict("Email already in use")
	ErrUsernameTaken       = apperr.Conflict("Username already in use")
	ErrUnknownAuthMethod   = apperr.Unauthorized("Unsupported sign-in method")

	ErrFamilyNameRequired = apperr.Validation("Family name is required")
	ErrReferralCollision  = apperr.Conflict("Referral code collision, please retry")
	ErrFamilyNotFound     = apperr.NotFound("Family not found")
	ErrNoFamily           = apperr.NotFound("No family found")
	ErrReferralRequired   = apperr.Validation("Referral code is required")
	ErrInviteEmailInvalid = apperr.Validation("Valid email is required")
	ErrEmailDisabled      = apperr.Unavailable("Email delivery is not configured")

	ErrTodoNotFound       = apperr.NotFound("Not found")
	ErrFamilyTodoNotFound = apperr.NotFound("Todo not found")

	ErrForbiddenView   = apperr.Forbidden("Not authorized to view this family's todos")
	ErrForbiddenCreate = apperr.Forbidden("Not authorized to add todos to this family")
	ErrForbidden       = apperr.Forbidden("Not authorized")
)
