package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	intconfig "stayhub/internal/config"
)

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func DBCheck(c *gin.Context) {
	if err := intconfig.EnsureDB(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database unavailable: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "database OK"})
}
