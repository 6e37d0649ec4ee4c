package handler

import (
	"errors"
	"log/slog"

	"github.com/renunganku/api/internal/database"
	"github.com/renunganku/api/internal/model"
	"github.com/renunganku/api/internal/service"
)

// MapServiceError converts a service error to a ProblemDetails response.
// This centralizes error handling logic for all handlers, ensuring consistent
// HTTP status codes and error messages across the API.
func MapServiceError(err error) *model.ProblemDetails {
	if err == nil {
		return nil
	}

	switch {
	// ===== Authentication Errors → 401 =====
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrEmailNotVerified),
		errors.Is(err, service.ErrUnauthorized):
		return model.NewUnauthorizedError(err.Error())

	// ===== Authorization Errors → 403 =====
	case errors.Is(err, service.ErrNotPostOwner),
		errors.Is(err, service.ErrNotCommentOwner),
		errors.Is(err, service.ErrNotFollowTarget),
		errors.Is(err, service.ErrNotParticipant),
		errors.Is(err, service.ErrNotMutual),
		errors.Is(err, service.ErrNotMessageSender),
		errors.Is(err, service.ErrNotStoryOwner),
		errors.Is(err, service.ErrUnderage),
		errors.Is(err, service.ErrCannotDemoteSelf),
		errors.Is(err, service.ErrCannotDeleteSelf):
		return model.NewForbiddenError(err.Error())

	// ===== Not Found Errors → 404 =====
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrProfileNotFound),
		errors.Is(err, service.ErrPostNotFound),
		errors.Is(err, service.ErrBookmarkNotFound),
		errors.Is(err, service.ErrCommentNotFound),
		errors.Is(err, service.ErrInvalidParent),
		errors.Is(err, service.ErrFollowRequestMissing),
		errors.Is(err, service.ErrFollowNotFound),
		errors.Is(err, service.ErrNotificationNotFound),
		errors.Is(err, service.ErrConversationNotFound),
		errors.Is(err, service.ErrMessageNotFound),
		errors.Is(err, service.ErrStoryNotFound),
		errors.Is(err, service.ErrStoryExpired),
		errors.Is(err, service.ErrVideoNotFound),
		errors.Is(err, service.ErrBookNotFound),
		errors.Is(err, service.ErrChapterNotFound),
		errors.Is(err, service.ErrVerseNotFound),
		errors.Is(err, service.ErrBlogNotFound),
		errors.Is(err, service.ErrMediaNotFound):
		return model.NewNotFoundError(err.Error())

	// ===== Conflict Errors → 409 =====
	case errors.Is(err, service.ErrEmailAlreadyExists),
		errors.Is(err, service.ErrUsernameTaken),
		errors.Is(err, service.ErrAlreadyBookmark),
		errors.Is(err, service.ErrAlreadyFollowing),
		errors.Is(err, service.ErrFollowNotPending),
		errors.Is(err, service.ErrSlugTaken):
		return model.NewConflictError(err.Error())

	// ===== Payload Errors → 413 =====
	case errors.Is(err, service.ErrFileTooLarge):
		return model.NewPayloadTooLargeError(err.Error())

	// ===== Validation Errors → 422 =====
	case errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrPasswordTooShort),
		errors.Is(err, service.ErrPasswordTooLong):
		return model.NewValidationError([]model.FieldError{{Field: "credentials", Message: err.Error()}})

	case errors.Is(err, service.ErrNameRequired):
		return model.NewValidationError([]model.FieldError{{Field: "namaLengkap", Message: err.Error()}})

	case errors.Is(err, service.ErrContentRequired),
		errors.Is(err, service.ErrContentTooLong),
		errors.Is(err, service.ErrInvalidPostType):
		return model.NewValidationError([]model.FieldError{{Field: "content", Message: err.Error()}})

	case errors.Is(err, service.ErrPostTitleTooLong):
		return model.NewValidationError([]model.FieldError{{Field: "title", Message: err.Error()}})

	case errors.Is(err, service.ErrCommentRequired),
		errors.Is(err, service.ErrCommentTooLong):
		return model.NewValidationError([]model.FieldError{{Field: "content", Message: err.Error()}})

	case errors.Is(err, service.ErrUnsupportedMedia),
		errors.Is(err, service.ErrTooManyFiles),
		errors.Is(err, service.ErrInvalidMediaURL),
		errors.Is(err, service.ErrStoryTooLong),
		errors.Is(err, service.ErrCaptionTooLong):
		return model.NewValidationError([]model.FieldError{{Field: "media", Message: err.Error()}})

	case errors.Is(err, service.ErrVideoTitleLength):
		return model.NewValidationError([]model.FieldError{{Field: "title", Message: err.Error()}})
	case errors.Is(err, service.ErrVideoDescLength):
		return model.NewValidationError([]model.FieldError{{Field: "description", Message: err.Error()}})
	case errors.Is(err, service.ErrVideoTags):
		return model.NewValidationError([]model.FieldError{{Field: "tags", Message: err.Error()}})

	case errors.Is(err, service.ErrInvalidSlug):
		return model.NewValidationError([]model.FieldError{{Field: "slug", Message: err.Error()}})
	case errors.Is(err, service.ErrPublishedAtRequired):
		return model.NewValidationError([]model.FieldError{{Field: "publishedAt", Message: err.Error()}})
	case errors.Is(err, service.ErrInvalidBlogCategory):
		return model.NewValidationError([]model.FieldError{{Field: "category", Message: err.Error()}})
	case errors.Is(err, service.ErrInvalidBlogStatus):
		return model.NewValidationError([]model.FieldError{{Field: "status", Message: err.Error()}})
	case errors.Is(err, service.ErrInvalidReadTime):
		return model.NewValidationError([]model.FieldError{{Field: "readTimeMinutes", Message: err.Error()}})
	case errors.Is(err, service.ErrBlogTitleRequired):
		return model.NewValidationError([]model.FieldError{{Field: "title", Message: err.Error()}})

	// ===== Bad Request Errors → 400 =====
	case errors.Is(err, service.ErrPasswordMismatch),
		errors.Is(err, service.ErrCurrentPasswordWrong),
		errors.Is(err, service.ErrCurrentPasswordNeeded),
		errors.Is(err, service.ErrAlreadyVerified),
		errors.Is(err, service.ErrInvalidVerification),
		errors.Is(err, service.ErrInvalidOTP),
		errors.Is(err, service.ErrInvalidResetToken),
		errors.Is(err, service.ErrSessionRequired):
		return model.NewBadRequestError(err.Error())

	case errors.Is(err, service.ErrInvalidOAuthState),
		errors.Is(err, service.ErrInvalidAuthCode),
		errors.Is(err, service.ErrInvalidIDToken),
		errors.Is(err, service.ErrNoPasswordToUnlink),
		errors.Is(err, service.ErrGoogleNotLinked),
		errors.Is(err, service.ErrOAuthNotConfigured):
		return model.NewBadRequestError(err.Error())

	case errors.Is(err, service.ErrSearchQueryEmpty),
		errors.Is(err, service.ErrKeywordRequired),
		errors.Is(err, service.ErrInvalidDate),
		errors.Is(err, service.ErrFileRequired),
		errors.Is(err, service.ErrInvalidNotifType):
		return model.NewBadRequestError(err.Error())

	case errors.Is(err, service.ErrCannotFollowSelf),
		errors.Is(err, service.ErrSelfConversation),
		errors.Is(err, service.ErrRecipientRequired),
		errors.Is(err, service.ErrMessageEmpty):
		return model.NewBadRequestError(err.Error())

	// ===== Provider/External Errors → 502 =====
	case errors.Is(err, service.ErrProviderError),
		errors.Is(err, service.ErrMailDelivery):
		return model.NewBadGatewayError(err.Error())

	// ===== Store Errors =====
	case errors.Is(err, database.ErrNotFound):
		return model.NewNotFoundError("")
	case errors.Is(err, database.ErrDuplicate):
		return model.NewConflictError("Data sudah ada")

	// ===== Default → 500 =====
	default:
		slog.Error("unmapped service error", slog.String("error", err.Error()))
		return model.NewInternalError("")
	}
}

// MapServiceErrorWithContext converts a service error to a ProblemDetails response
// with additional context about the operation that failed.
func MapServiceErrorWithContext(err error, operation string) *model.ProblemDetails {
	pd := MapServiceError(err)
	if pd != nil && pd.Status == 500 && operation != "" {
		pd.Detail = "Gagal " + operation
	}
	return pd
}
