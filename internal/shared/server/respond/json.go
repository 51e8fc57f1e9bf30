package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSON writes payload with the given status.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// OK writes payload with 200 OK.
func OK(c *gin.Context, payload any) {
	JSON(c, http.StatusOK, payload)
}

// Created writes payload with 201 Created, for freshly ingested resources.
func Created(c *gin.Context, payload any) {
	JSON(c, http.StatusCreated, payload)
}
