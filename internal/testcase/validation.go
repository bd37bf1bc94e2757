package testcase

import (
	"errors"
	"fmt"
	"strings"

	"tcrun/internal/jsonpath"
)

// IsSupported reports whether m is one of the five supported methods.
func (m Method) IsSupported() bool {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete:
		return true
	}
	return false
}

// Normalize returns the upper-case form of m.
func (m Method) Normalize() Method {
	return Method(strings.ToUpper(strings.TrimSpace(string(m))))
}

// Validate reports structural problems that would make the test case fail
// before any call is made. All problems are returned joined together.
func (tc *TestCase) Validate() error {
	var errs []error

	if tc.TestName == "" {
		errs = append(errs, fmt.Errorf("testName is required"))
	}
	if tc.URL == "" {
		errs = append(errs, fmt.Errorf("url is required"))
	}
	if !tc.Method.Normalize().IsSupported() {
		errs = append(errs, fmt.Errorf("method %q is not one of GET, POST, PUT, PATCH, DELETE", tc.Method))
	}

	if tc.Request != nil {
		if tc.Request.RequestResource == "" {
			errs = append(errs, fmt.Errorf("request.requestResource is required when request is set"))
		}
		for _, e := range Entries(tc.Request.RequestModificationBody) {
			if _, err := jsonpath.ToPointer(e.Key); err != nil {
				errs = append(errs, fmt.Errorf("request.requestModificationBody: %w", err))
			}
		}
	}

	if tc.Verify != nil {
		for _, e := range Entries(tc.Verify.ResponseAssertions) {
			if !jsonpath.IsPath(e.Key) {
				errs = append(errs, fmt.Errorf("verify.responseAssertions: key %q must start with $", e.Key))
			}
		}
		if tc.Verify.HTTPStatus != 0 && (tc.Verify.HTTPStatus < 100 || tc.Verify.HTTPStatus > 599) {
			errs = append(errs, fmt.Errorf("verify.httpStatus %d is not a valid status code", tc.Verify.HTTPStatus))
		}
	}

	for i, ref := range tc.Prerequisite {
		if strings.TrimSpace(ref) == "" {
			errs = append(errs, fmt.Errorf("prerequisite %d is empty", i+1))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("test case %q: %w", tc.TestName, errors.Join(errs...))
}
