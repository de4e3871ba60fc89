// Package schema validates install configurations before they are
// rendered. Previewing and storing a preseed share this one schema, so an
// input accepted by one is accepted by the other.
package schema

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/osbuild/preseed-composer/internal/preseed"
)

//go:embed openapi.yml
var openapiDocument []byte

// ErrMalformedInput is returned when the input is not a JSON object.
var ErrMalformedInput = errors.New("malformed install config")

// FieldErrors maps input field names to the reasons they were rejected.
type FieldErrors map[string][]string

func (fe FieldErrors) add(field, reason string) {
	fe[field] = append(fe[field], reason)
}

// ValidationError is returned when the input is well-formed JSON but
// violates the schema.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return "invalid install config: " + strings.Join(fields, ", ")
}

// Password fields keep surrounding whitespace; every other string is
// trimmed before validation.
var untrimmedFields = map[string]bool{
	"root_password":              true,
	"root_password_confirmation": true,
	"user_password":              true,
	"user_password_confirmation": true,
}

// Fields dropped from hardened configurations before validation.
var hardeningExcludedFields = []string{
	"root_password",
	"root_password_confirmation",
	"partitioning_method",
	"separate_home",
}

type Validator struct {
	document      *openapi3.T
	installConfig *openapi3.Schema
}

func NewValidator() (*Validator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openapiDocument)
	if err != nil {
		return nil, fmt.Errorf("cannot load openapi document: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}

	ref, ok := doc.Components.Schemas["InstallConfig"]
	if !ok || ref.Value == nil {
		return nil, errors.New("openapi document has no InstallConfig schema")
	}

	return &Validator{
		document:      doc,
		installConfig: ref.Value,
	}, nil
}

// Document returns the OpenAPI document describing the API.
func (v *Validator) Document() *openapi3.T {
	return v.document
}

// Validate decodes a JSON install configuration and checks it. It returns
// a *ValidationError listing every rejected field, or an error wrapping
// ErrMalformedInput if data is not a JSON object.
func (v *Validator) Validate(data []byte) (*preseed.InstallConfig, error) {
	var input map[string]interface{}
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if input == nil {
		input = map[string]interface{}{}
	}

	normalize(input)

	if cis, _ := input["cis_compliant"].(bool); cis {
		for _, f := range hardeningExcludedFields {
			delete(input, f)
		}
	}

	fieldErrors := FieldErrors{}
	if err := v.installConfig.VisitJSON(input, openapi3.MultiErrors()); err != nil {
		collectSchemaErrors(fieldErrors, err)
	}
	checkRules(fieldErrors, input)

	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Fields: fieldErrors}
	}

	// the input is known to match the struct now
	buf, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}
	var config preseed.InstallConfig
	if err := json.Unmarshal(buf, &config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	return &config, nil
}

// normalize trims strings and drops null and empty values, so optional
// fields sent as "" count as absent.
func normalize(input map[string]interface{}) {
	for k, val := range input {
		switch value := val.(type) {
		case nil:
			delete(input, k)
		case string:
			if !untrimmedFields[k] {
				value = strings.TrimSpace(value)
			}
			if value == "" {
				delete(input, k)
				continue
			}
			input[k] = value
		case []interface{}:
			for i, item := range value {
				if s, ok := item.(string); ok {
					value[i] = strings.TrimSpace(s)
				}
			}
		}
	}
}

func collectSchemaErrors(fe FieldErrors, err error) {
	switch e := err.(type) {
	case openapi3.MultiError:
		for _, inner := range e {
			collectSchemaErrors(fe, inner)
		}
	case *openapi3.SchemaError:
		field := "body"
		if pointer := e.JSONPointer(); len(pointer) > 0 {
			field = pointer[0]
		}
		fe.add(field, e.Reason)
	default:
		fe.add("body", err.Error())
	}
}

// checkRules enforces the constraints that span several fields.
func checkRules(fe FieldErrors, input map[string]interface{}) {
	has := func(field string) bool {
		_, ok := input[field]
		return ok
	}
	isTrue := func(field string) bool {
		b, _ := input[field].(bool)
		return b
	}

	if method, _ := input["network_method"].(string); method == string(preseed.NetworkStatic) {
		for _, f := range []string{"static_ip", "static_netmask", "static_gateway", "static_dns"} {
			if !has(f) {
				fe.add(f, "required when network_method is static")
			}
		}
	}

	for _, f := range []string{"static_ip", "static_netmask", "static_gateway"} {
		if s, ok := input[f].(string); ok {
			if _, err := netip.ParseAddr(s); err != nil {
				fe.add(f, "must be a valid IP address")
			}
		}
	}

	if s, ok := input["mirror_proxy"].(string); ok && !isURL(s) {
		fe.add("mirror_proxy", "must be a valid URL")
	}

	if isTrue("create_user") {
		for _, f := range []string{"username", "user_fullname"} {
			if !has(f) {
				fe.add(f, "required when create_user is true")
			}
		}
	}

	if !isTrue("cis_compliant") {
		for _, f := range []string{"partitioning_method", "separate_home"} {
			if !has(f) {
				fe.add(f, "required unless cis_compliant is true")
			}
		}
	}

	for _, f := range []string{"root_password", "user_password"} {
		confirmation, ok := input[f+"_confirmation"]
		if ok && confirmation != input[f] {
			fe.add(f, "confirmation does not match")
		}
	}
}

func isURL(s string) bool {
	u, err := url.ParseRequestURI(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}
