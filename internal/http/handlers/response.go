package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var tagNamesOnce sync.Once

// useJSONFieldNames makes validation errors report json field names
func useJSONFieldNames() {
	tagNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

func respond(c *gin.Context, status int, message string, data interface{}) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

// bind decodes and validates the JSON body, answering 422 on failure
func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"success": false,
			"message": "Validation failed",
			"errors":  validationMessages(err),
		})
		return false
	}
	return true
}

func validationMessages(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{"request body must be valid JSON"}
	}

	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			out = append(out, field+" is required")
		case "email":
			out = append(out, field+" must be a valid email")
		case "min":
			out = append(out, fmt.Sprintf("%s length must be at least %s characters long", field, fe.Param()))
		case "max":
			out = append(out, fmt.Sprintf("%s length must be less than or equal to %s characters long", field, fe.Param()))
		case "len":
			out = append(out, fmt.Sprintf("%s length must be %s characters long", field, fe.Param()))
		case "alphanum":
			out = append(out, field+" must only contain alpha-numeric characters")
		case "oneof":
			out = append(out, fmt.Sprintf("%s must be one of [%s]", field, strings.ReplaceAll(fe.Param(), " ", ", ")))
		case "eqfield":
			out = append(out, "Passwords do not match.")
		default:
			out = append(out, field+" is invalid")
		}
	}
	return out
}
