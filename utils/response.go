package utils

import "github.com/gin-gonic/gin"

func JSONSuccess(c *gin.Context, code int, data interface{}) {
	c.JSON(code, gin.H{"status": "success", "data": data})
}

func JSONError(c *gin.Context, code int, kind, message string) {
	c.AbortWithStatusJSON(code, gin.H{"status": "error", "code": kind, "message": message})
}
