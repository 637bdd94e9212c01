package controllers

import (
	"net/http"
	"strconv"

	"github.com/3bube/Dormhub-sub000/services"
	"github.com/3bube/Dormhub-sub000/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

var statusByKind = map[services.Kind]int{
	services.KindNotFound:         http.StatusNotFound,
	services.KindValidation:       http.StatusBadRequest,
	services.KindCapacityConflict: http.StatusConflict,
	services.KindConflict:         http.StatusConflict,
	services.KindUnauthorized:     http.StatusUnauthorized,
	services.KindForbidden:        http.StatusForbidden,
}

// respondError writes a service error as {"status":"error","code":kind,...}.
// Internal errors keep their cause out of the response body.
func respondError(c *gin.Context, err error) {
	kind := services.KindOf(err)
	code, ok := statusByKind[kind]
	if !ok {
		_ = c.Error(err)
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("internal error")
		utils.JSONError(c, http.StatusInternalServerError, string(services.KindInternal), "internal error")
		return
	}
	utils.JSONError(c, code, string(kind), err.Error())
}

func badRequest(c *gin.Context, message string) {
	utils.JSONError(c, http.StatusBadRequest, string(services.KindValidation), message)
}

// paramID parses a positive numeric path parameter.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}
