package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

var (
	// ErrNotAuthenticated is returned when a protected call has no token or the service answers 401.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrInvalidCredentials groups the login rejections.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNoSuchUser is returned when the addressed user does not exist.
	ErrNoSuchUser = fmt.Errorf("%w: no such user", ErrInvalidCredentials)
	// ErrWrongPassword is returned when a password (login or old password) does not match.
	ErrWrongPassword = fmt.Errorf("%w: wrong password", ErrInvalidCredentials)
	// ErrInvalidFields is matched by every [*InvalidFieldsError].
	ErrInvalidFields = errors.New("invalid fields")
	// ErrInvalidSearch is returned when the service rejects a search query.
	ErrInvalidSearch = errors.New("invalid search")
	// ErrAlreadyVerified is returned when a verification code targets an already verified user or email.
	ErrAlreadyVerified = errors.New("already verified")
	// ErrConnection is the catch-all for transport failures and unexpected responses.
	ErrConnection = errors.New("connection failure")
)

// Service error codes carried in the errorCode field of 400 responses.
const (
	CodeInvalidFields        = 102
	CodeInvalidSearch        = 111
	CodeNoSuchUser           = 201
	CodeAlreadyVerified      = 210
	CodeEmailAlreadyVerified = 212
	CodeWrongPassword        = 215
)

// InvalidFieldsError maps field names to message keys describing why each field was rejected.
type InvalidFieldsError struct {
	Fields map[string][]string
}

// NewInvalidFieldsError returns an error for fields, or nil when fields is empty.
func NewInvalidFieldsError(fields map[string][]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &InvalidFieldsError{Fields: fields}
}

func (e *InvalidFieldsError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "invalid fields: " + strings.Join(names, ", ")
}

// Is makes errors.Is(err, ErrInvalidFields) hold.
func (e *InvalidFieldsError) Is(target error) bool {
	return target == ErrInvalidFields
}

// Field returns the message keys for name.
func (e *InvalidFieldsError) Field(name string) []string {
	if e == nil {
		return nil
	}
	return e.Fields[name]
}

type errorBody struct {
	ErrorCode         int                 `json:"errorCode"`
	InvalidProperties map[string][]string `json:"invalidProperties"`
}

// decodeError maps a non-2xx response to the error taxonomy.
func decodeError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrNotAuthenticated
	case http.StatusBadRequest:
		var body errorBody
		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return fmt.Errorf("%w: read error body: %v", ErrConnection, err)
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return fmt.Errorf("%w: status 400 with undecodable body", ErrConnection)
		}
		switch body.ErrorCode {
		case CodeInvalidFields:
			fields := body.InvalidProperties
			if fields == nil {
				fields = map[string][]string{}
			}
			return &InvalidFieldsError{Fields: fields}
		case CodeInvalidSearch:
			return ErrInvalidSearch
		case CodeNoSuchUser:
			return ErrNoSuchUser
		case CodeAlreadyVerified, CodeEmailAlreadyVerified:
			return ErrAlreadyVerified
		case CodeWrongPassword:
			return ErrWrongPassword
		}
		return fmt.Errorf("%w: status 400 with error code %d", ErrConnection, body.ErrorCode)
	}
	return fmt.Errorf("%w: unexpected status %d", ErrConnection, resp.StatusCode)
}
