package utils

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"communehub-api/apperrors"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Ref     string `json:"ref,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// SendAppError maps a coded error onto its HTTP status. Internal errors are
// logged with their correlation ref; the cause never reaches the client.
func SendAppError(c *gin.Context, err error) {
	code := apperrors.CodeOf(err)
	resp := ErrorResponse{Error: string(code)}

	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		resp.Message = appErr.Message
		resp.Ref = appErr.Ref
		if code == apperrors.CodeInternal {
			log.Printf("internal error ref=%s: %v", appErr.Ref, appErr.Err)
		}
	} else {
		log.Printf("uncoded error: %v", err)
		resp.Message = "an unexpected error occurred"
	}

	c.JSON(apperrors.HTTPStatus(code), resp)
}

func SendValidationError(c *gin.Context, err string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   string(apperrors.CodeBadRequestInput),
		Message: err,
	})
}

func SendSuccess(c *gin.Context, message string, data interface{}) {
	response := SuccessResponse{Message: message}
	if data != nil {
		response.Data = data
	}
	c.JSON(http.StatusOK, response)
}
