package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"rentbook/internal/middleware"
	"rentbook/internal/models"
	"rentbook/internal/services"
	"rentbook/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidation 校验错误使用 json 字段名
func RegisterValidation() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return fld.Name
		})
	})
}

// currentUser 当前登录用户，由 RequireLogin 写入
func currentUser(c *gin.Context) *models.User {
	value, _ := c.Get(middleware.ContextUser)
	user, _ := value.(*models.User)
	return user
}

// currentScope 当前用户可见的业主范围，缺失时为空集
func currentScope(c *gin.Context) services.OwnerScope {
	value, ok := c.Get(middleware.ContextOwnerScope)
	if !ok {
		return services.RestrictedTo()
	}
	scope, _ := value.(services.OwnerScope)
	return scope
}

func currentActor(c *gin.Context) *services.Actor {
	return services.NewActor(currentUser(c), currentScope(c))
}

// parseID 解析路径中的 id，失败时直接返回400
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid id")
		return 0, false
	}
	return uint(id), true
}

// bindFailed 将绑定错误转为字段级错误
func bindFailed(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = validationMessage(fe)
		}
		response.ValidationFailed(c, fields)
		return
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		response.ValidationFailed(c, map[string]string{typeErr.Field: "invalid value"})
		return
	}

	var fe *fieldError
	if errors.As(err, &fe) {
		response.ValidationFailed(c, map[string]string{fe.field: fe.message})
		return
	}

	response.BadRequest(c, "malformed request body")
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "enter a valid email address"
	case "min":
		return "ensure this value is at least " + fe.Param()
	case "max":
		return "ensure this value is at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gte", "lte":
		return "value out of range"
	}
	return "invalid value"
}

// fieldError 单字段的请求错误
type fieldError struct {
	field   string
	message string
}

func (e *fieldError) Error() string {
	return e.field + ": " + e.message
}

// queryBool 解析布尔查询参数，未提供时返回 nil
func queryBool(c *gin.Context, key string) (*bool, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(strings.ToLower(raw))
	if err != nil {
		return nil, &fieldError{field: key, message: "must be true or false"}
	}
	return &v, nil
}

// queryUint 解析正整数查询参数，未提供时返回0
func queryUint(c *gin.Context, key string) (uint, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, &fieldError{field: key, message: "must be a positive integer"}
	}
	return uint(v), nil
}

// queryInt 解析整数查询参数，未提供时返回0
func queryInt(c *gin.Context, key string) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &fieldError{field: key, message: "must be an integer"}
	}
	return v, nil
}

// NullableString 区分未提供、null 和字符串值
type NullableString struct {
	Set   bool
	Value *string
}

func (n *NullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

// parseDateField 解析 YYYY-MM-DD 字段，nil 保持 nil
func parseDateField(field string, raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	d, err := models.ParseDate(strings.TrimSpace(*raw))
	if err != nil {
		return nil, &fieldError{field: field, message: "date has wrong format, use YYYY-MM-DD"}
	}
	return &d, nil
}
