package service

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	msgRequired   = "this field is required"
	msgBlank      = "this field may not be blank"
	msgNull       = "this field may not be null"
	msgNotString  = "not a valid string"
	msgNotBoolean = "must be a valid boolean"
	msgDate       = "date has wrong format, use YYYY-MM-DD"
	msgEmail      = "enter a valid email address"
	msgUsername   = "enter a valid username; it may contain only letters, numbers, and @/./+/-/_ characters"
	msgEmailTaken = "a user with this email is already registered"
	msgNameTaken  = "a user with that username already exists"
)

const (
	maxUsernameLen = 150
	maxEmailLen    = 254
	maxTitleLen    = 100
)

var (
	validate      = validator.New()
	usernameRegex = regexp.MustCompile(`^[\w.@+-]+$`)
)

func isEmail(s string) bool {
	return validate.Var(s, "required,email") == nil
}

func maxLenMsg(n int) string {
	return "ensure this field has no more than " + strconv.Itoa(n) + " characters"
}

func tooLong(s string, n int) bool {
	return utf8.RuneCountInString(s) > n
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
