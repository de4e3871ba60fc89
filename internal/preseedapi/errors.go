package preseedapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/osbuild/preseed-composer/internal/common"
	"github.com/osbuild/preseed-composer/internal/prometheus"
)

const (
	ErrorCodePrefix = "PRESEED-COMPOSER-"
	ErrorHREF       = "/api/preseed-composer/v1/errors"

	ErrorUnsupportedMediaType  ServiceErrorCode = 3
	ErrorBodyDecodingError     ServiceErrorCode = 20
	ErrorResourceNotFound      ServiceErrorCode = 21
	ErrorMethodNotAllowed      ServiceErrorCode = 22
	ErrorNotAcceptable         ServiceErrorCode = 23
	ErrorRequestEntityTooLarge ServiceErrorCode = 24
	ErrorInvalidInstallConfig  ServiceErrorCode = 30
	ErrorPreseedNotFound       ServiceErrorCode = 31

	// Internal errors, these are bugs or broken backends
	ErrorRenderingPreseed        ServiceErrorCode = 1000
	ErrorStoringPreseed          ServiceErrorCode = 1001
	ErrorRetrievingPreseed       ServiceErrorCode = 1002
	ErrorFailedToLoadOpenAPISpec ServiceErrorCode = 1003

	// Errors contained within this file
	ErrorUnspecified          ServiceErrorCode = 10000
	ErrorNotHTTPError         ServiceErrorCode = 10001
	ErrorServiceErrorNotFound ServiceErrorCode = 10002
	ErrorMalformedOperationID ServiceErrorCode = 10003
)

type ServiceErrorCode int

type serviceError struct {
	code       ServiceErrorCode
	httpStatus int
	reason     string
}

type serviceErrors []serviceError

// Maps ServiceErrorcode to a reason and http code
func getServiceErrors() serviceErrors {
	return serviceErrors{
		serviceError{ErrorUnsupportedMediaType, http.StatusUnsupportedMediaType, "Only 'application/json' content is supported"},
		serviceError{ErrorBodyDecodingError, http.StatusBadRequest, "Malformed json, unable to decode body"},
		serviceError{ErrorResourceNotFound, http.StatusNotFound, "Requested resource doesn't exist"},
		serviceError{ErrorMethodNotAllowed, http.StatusMethodNotAllowed, "Requested method isn't supported for resource"},
		serviceError{ErrorNotAcceptable, http.StatusNotAcceptable, "Only 'application/json' content is supported"},
		serviceError{ErrorRequestEntityTooLarge, http.StatusRequestEntityTooLarge, "Request body is too large"},
		serviceError{ErrorInvalidInstallConfig, http.StatusUnprocessableEntity, "Install configuration is invalid"},
		serviceError{ErrorPreseedNotFound, http.StatusNotFound, "Preseed with given id not found"},

		serviceError{ErrorRenderingPreseed, http.StatusInternalServerError, "Failed to render preseed"},
		serviceError{ErrorStoringPreseed, http.StatusInternalServerError, "Failed to store preseed"},
		serviceError{ErrorRetrievingPreseed, http.StatusInternalServerError, "Failed to retrieve preseed"},
		serviceError{ErrorFailedToLoadOpenAPISpec, http.StatusInternalServerError, "Unable to load openapi spec"},

		serviceError{ErrorUnspecified, http.StatusInternalServerError, "Unspecified internal error "},
		serviceError{ErrorNotHTTPError, http.StatusInternalServerError, "Error is not an instance of HTTPError"},
		serviceError{ErrorServiceErrorNotFound, http.StatusInternalServerError, "Error does not exist"},
		serviceError{ErrorMalformedOperationID, http.StatusInternalServerError, "OperationID is empty or is not a string"},
	}
}

func find(code ServiceErrorCode) *serviceError {
	for _, e := range getServiceErrors() {
		if e.code == code {
			return &e
		}
	}
	return &serviceError{ErrorServiceErrorNotFound, http.StatusInternalServerError, "Error does not exist"}
}

// detailsError is the message of the echo errors built here. It carries the
// service error code and optional details for the response body.
type detailsError struct {
	errorCode ServiceErrorCode
	details   interface{}
}

func (e detailsError) String() string {
	return fmt.Sprintf("%s%d", ErrorCodePrefix, e.errorCode)
}

// Make an echo compatible error out of a service error
func HTTPError(code ServiceErrorCode) error {
	return HTTPErrorWithDetails(code, nil, nil)
}

// echo.HTTPError has a message interface{} field, which can be used to include the ServiceErrorCode
func HTTPErrorWithInternal(code ServiceErrorCode, internalErr error) error {
	return HTTPErrorWithDetails(code, internalErr, nil)
}

// HTTPErrorWithDetails also attaches details that are returned to the
// client, such as the rejected fields of an install configuration.
func HTTPErrorWithDetails(code ServiceErrorCode, internalErr error, details interface{}) error {
	se := find(code)
	he := echo.NewHTTPError(se.httpStatus, detailsError{se.code, details})
	if internalErr != nil {
		he.Internal = internalErr
	}
	return he
}

// Convert a serviceError into an Error as defined in openapi.yml
func APIError(se *serviceError, c echo.Context, details interface{}) *Error {
	operationID, ok := c.Get(common.OperationIDKey).(string)
	if !ok || operationID == "" {
		se = find(ErrorMalformedOperationID)
	}

	return &Error{
		ObjectReference: ObjectReference{
			Href: fmt.Sprintf("%s/%d", ErrorHREF, se.code),
			Id:   fmt.Sprintf("%d", se.code),
			Kind: "Error",
		},
		Code:        fmt.Sprintf("%s%d", ErrorCodePrefix, se.code),
		OperationId: operationID, // set operation id from context
		Reason:      se.reason,
		Details:     details,
	}
}

func apiErrorFromEchoError(echoError *echo.HTTPError) ServiceErrorCode {
	switch echoError.Code {
	case http.StatusNotFound:
		return ErrorResourceNotFound
	case http.StatusMethodNotAllowed:
		return ErrorMethodNotAllowed
	case http.StatusNotAcceptable:
		return ErrorNotAcceptable
	case http.StatusRequestEntityTooLarge:
		return ErrorRequestEntityTooLarge
	case http.StatusUnsupportedMediaType:
		return ErrorUnsupportedMediaType
	default:
		return ErrorUnspecified
	}
}

// Convert an echo error into an API compliant one so we send a correct json error response
func (s *Server) HTTPErrorHandler(echoError error, c echo.Context) {
	logger := common.RequestLogger(c)

	doResponse := func(code ServiceErrorCode, details interface{}) {
		if c.Response().Committed {
			logger.Infof("Failed to return error response, response already committed: %d", code)
			return
		}

		sec := find(code)
		apiErr := APIError(sec, c, details)

		if sec.httpStatus == http.StatusInternalServerError {
			errMsg := fmt.Sprintf("Internal server error. Code: %s, OperationId: %s", apiErr.Code, apiErr.OperationId)
			if he, ok := echoError.(*echo.HTTPError); ok && he.Internal != nil {
				errMsg += fmt.Sprintf(", InternalError: %v", he.Internal)
			}
			logger.Error(errMsg)
		}

		var err error
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(sec.httpStatus)
		} else {
			err = c.JSON(sec.httpStatus, apiErr)
		}
		if err != nil {
			logger.Errorf("Failed to return error response: %v", err)
		}
	}

	he, ok := echoError.(*echo.HTTPError)
	if !ok {
		logger.Errorf("ErrorNotHTTPError %v", echoError)
		doResponse(ErrorNotHTTPError, nil)
		return
	}

	internalError := he.Code >= http.StatusInternalServerError && he.Code <= http.StatusNetworkAuthenticationRequired
	if internalError && c.Request().Method == http.MethodPost && strings.HasSuffix(c.Path(), "/preseed") {
		prometheus.StoreFailures.Inc()
	}

	de, ok := he.Message.(detailsError)
	if !ok {
		// No service code was set, so Echo threw this error
		doResponse(apiErrorFromEchoError(he), nil)
		return
	}
	doResponse(de.errorCode, de.details)
}
