package response

import "github.com/gin-gonic/gin"

// Error bodies carry a single human-readable detail string.
type ErrorBody struct {
	Detail string `json:"detail"`
}

const (
	DetailInvalidPayload     = "invalid request payload"
	DetailNotAuthenticated   = "Not authenticated"
	DetailInvalidCredentials = "Invalid authentication credentials"
	DetailInternal           = "internal server error"
)

func OK(c *gin.Context, data interface{}) {
	c.JSON(200, data)
}

func Error(c *gin.Context, httpStatus int, detail string) {
	c.JSON(httpStatus, ErrorBody{Detail: detail})
}
