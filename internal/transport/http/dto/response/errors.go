package response

// Ошибки клиентского портала. Неверный код, неизвестная сущность и неизвестный
// медиафайл отдаются одним и тем же ErrAccessDenied.
var (
	ErrInvalidRequestFormat = ErrorResponse{
		Status:  "error",
		Error:   "invalid_request",
		Details: "Invalid request format",
	}

	ErrAccessDenied = ErrorResponse{
		Status:  "error",
		Error:   "access_denied",
		Details: "Invalid access code or link",
	}

	ErrExpired = ErrorResponse{
		Status:  "error",
		Error:   "expired",
		Details: "This gallery has expired",
	}

	ErrDownloadsDisabled = ErrorResponse{
		Status:  "error",
		Error:   "downloads_disabled",
		Details: "Downloads are disabled for this gallery",
	}

	ErrRateLimited = ErrorResponse{
		Status:  "error",
		Error:   "rate_limited",
		Details: "Download limit reached, try again later",
	}

	ErrNotPermitted = ErrorResponse{
		Status:  "error",
		Error:   "not_permitted",
		Details: "This action is disabled for this project",
	}

	ErrUpstreamFetch = ErrorResponse{
		Status:  "error",
		Error:   "upstream_unavailable",
		Details: "Media storage is unavailable",
	}

	ErrAdminRequired = ErrorResponse{
		Status:  "error",
		Error:   "admin_required",
		Details: "Valid admin bearer token required",
	}

	ErrNotFound = ErrorResponse{
		Status: "error",
		Error:  "not_found",
	}

	ErrConflict = ErrorResponse{
		Status: "error",
		Error:  "conflict",
	}

	ErrInternal = ErrorResponse{
		Status:  "error",
		Error:   "internal_error",
		Details: "Internal server error",
	}
)
