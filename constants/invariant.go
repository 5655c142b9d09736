package constants

import "time"

const (
	APP_NAME = "Inkwell"

	// shown instead of the body of a post the viewer may not read
	UNPUBLISHED_PLACEHOLDER = "This post is not published yet!"

	AUTH_COOKIE_NAME = "auth-token"
	AUTH_TOKEN_TTL   = time.Hour

	DEFAULT_PAGE_SIZE = 10
	MAX_PAGE_SIZE     = 100

	MAX_POST_LENGTH   = 10 << 20
	MAX_SLUG_ATTEMPTS = 5
)
