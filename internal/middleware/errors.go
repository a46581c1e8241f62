package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/cinematch/cinematch/pkg/apperror"
	"github.com/cinematch/cinematch/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// ErrorHandler renders the last error a handler attached with c.Error as
// {"error": message}. Server errors are logged with their cause.
func ErrorHandler(logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		appErr := apperror.From(c.Errors.Last().Err)
		if appErr.Status >= 500 {
			logger.WithError(appErr.Err).WithFields(map[string]interface{}{
				"method":     c.Request.Method,
				"path":       c.Request.URL.Path,
				"request_id": c.GetString(requestIDKey),
			}).Error("Request failed")
		}

		if !c.Writer.Written() {
			c.JSON(appErr.Status, gin.H{"error": appErr.Message})
		}
	}
}

// UseJSONFieldNames makes validation errors report json/form keys instead
// of Go field names.
func UseJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
}

// BindingError turns a ShouldBind failure into a 400.
func BindingError(err error) *apperror.Error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Tag() == "required" {
			return apperror.BadRequest("Missing key in body: " + fe.Field())
		}
		return apperror.BadRequest(fmt.Sprintf("Invalid value for %s", fe.Field()))
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		return apperror.BadRequest("Malformed JSON body")
	case errors.As(err, &typeErr):
		return apperror.BadRequest(fmt.Sprintf("Invalid value for %s", typeErr.Field))
	}
	return apperror.BadRequest(err.Error())
}
