package http

import (
	"fmt"
	"net/http"

	"publish-scheduler/domain/dto"

	"github.com/gin-gonic/gin"
)

const (
	ErrorUnmarshal = "Error while unmarshal"
)

func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, dto.Res{ResponseCode: fmt.Sprintf("%d", status), ResponseMessage: message, Data: data})
}

func ok(c *gin.Context, data interface{}) {
	respond(c, http.StatusOK, "OK", data)
}

func userID(c *gin.Context) string {
	return c.GetString("user_id")
}
