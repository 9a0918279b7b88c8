package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSON writes payload as a JSON response with the given status.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// OK writes payload as a 200 OK JSON response; success responses like the
// review envelope go through here.
func OK(c *gin.Context, payload any) {
	JSON(c, http.StatusOK, payload)
}
