// Package test contains helpers for exercising HTTP handlers in tests.
package test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExternal is the base URL of a running preseed-composer. When set,
// routes marked external are tested against it instead of in-process.
var TestExternal = os.Getenv("PRESEED_COMPOSER_TEST_EXTERNAL")

func externalRequest(method, path string, body RequestBody) *http.Response {
	req, err := http.NewRequest(method, strings.TrimSuffix(TestExternal, "/")+path, bytes.NewReader(body.Body()))
	if err != nil {
		panic(err)
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", body.ContentType())
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		panic(err)
	}

	return resp
}

func internalRequest(api http.Handler, method, path string, body RequestBody) *http.Response {
	req := httptest.NewRequest(method, path, bytes.NewReader(body.Body()))
	req.Header.Set("Content-Type", body.ContentType())
	resp := httptest.NewRecorder()
	api.ServeHTTP(resp, req)

	return resp.Result()
}

func SendHTTPWithBody(api http.Handler, external bool, method, path string, body RequestBody) *http.Response {
	if len(TestExternal) > 0 {
		if !external {
			return nil
		}
		return externalRequest(method, path, body)
	}
	return internalRequest(api, method, path, body)
}

func SendHTTP(api http.Handler, external bool, method, path, body string) *http.Response {
	return SendHTTPWithBody(api, external, method, path, JSONRequestBody(body))
}

// this function serves to drop fields that shouldn't be tested from the unmarshalled json objects
func dropFields(obj interface{}, fields ...string) {
	switch v := obj.(type) {
	// if the interface type is a map attempt to delete the fields
	case map[string]interface{}:
		for _, field := range fields {
			delete(v, field)
		}
		// call dropFields on the remaining elements since they may contain a map containing the field
		for _, val := range v {
			dropFields(val, fields...)
		}
	// if the type is a list of interfaces call dropFields on each interface
	case []interface{}:
		for _, element := range v {
			dropFields(element, fields...)
		}
	}
}

type TestingT interface {
	Errorf(format string, args ...any)
	FailNow()
	Skip(args ...any)
	Helper()
}

func TestRoute(t TestingT, api http.Handler, external bool, method, path, body string, expectedStatus int, expectedJSON string, ignoreFields ...string) {
	t.Helper()
	_ = TestRouteWithReply(t, api, external, method, path, body, expectedStatus, expectedJSON, ignoreFields...)
}

// TestRouteWithReply tests the given API endpoint and if the test passes, it returns the raw JSON reply.
//
// expectedJSON "" asserts an empty body, "?" accepts any body and "*" any
// valid JSON.
func TestRouteWithReply(t TestingT, api http.Handler, external bool, method, path, body string, expectedStatus int, expectedJSON string, ignoreFields ...string) (replyJSON []byte) {
	t.Helper()

	resp := SendHTTP(api, external, method, path, body)
	if resp == nil {
		t.Skip("This test is for internal testing only")
		return
	}
	defer resp.Body.Close()

	var err error
	replyJSON, err = io.ReadAll(resp.Body)
	require.NoErrorf(t, err, "%s: could not read response body", path)

	assert.Equalf(t, expectedStatus, resp.StatusCode, "SendHTTP failed for path %s: %v", path, string(replyJSON))

	if expectedJSON == "" {
		require.Lenf(t, replyJSON, 0, "%s: expected no response body, but got:\n%s", path, replyJSON)
		return
	}

	if expectedJSON == "?" {
		return
	}

	var reply, expected interface{}
	err = json.Unmarshal(replyJSON, &reply)
	require.NoErrorf(t, err, "%s: json.Unmarshal failed for\n%s", path, string(replyJSON))

	if expectedJSON == "*" {
		return
	}

	err = json.Unmarshal([]byte(expectedJSON), &expected)
	require.NoErrorf(t, err, "%s: expected JSON is invalid", path)

	if len(ignoreFields) > 0 {
		dropFields(reply, ignoreFields...)
		dropFields(expected, ignoreFields...)
	}

	require.Equal(t, expected, reply)

	return
}

// TestNonJsonRoute tests an endpoint answering with something other than
// JSON and returns the response headers.
func TestNonJsonRoute(t TestingT, api http.Handler, external bool, method, path, body string, expectedStatus int, expectedResponse string) http.Header {
	t.Helper()

	resp := SendHTTP(api, external, method, path, body)
	if resp == nil {
		t.Skip("This test is for internal testing only")
		return nil
	}
	defer resp.Body.Close()

	assert.Equalf(t, expectedStatus, resp.StatusCode, "%s: status mismatch", path)

	responseBodyBytes, err := io.ReadAll(resp.Body)
	require.NoErrorf(t, err, "%s: could not read response body", path)
	require.Equalf(t, expectedResponse, string(responseBodyBytes), "%s: body mismatch", path)

	return resp.Header
}

func IgnoreDates() cmp.Option {
	return cmp.Comparer(func(a, b time.Time) bool { return true })
}

func IgnoreUuids() cmp.Option {
	return cmp.Comparer(func(a, b uuid.UUID) bool { return true })
}
