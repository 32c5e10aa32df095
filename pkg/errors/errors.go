// Package errors defines the structured error type shared by every
// tokengate package. Errors carry a machine-readable [Code], a short
// message that is safe to show to callers, an optional cause, and
// optional structured details for logs.
//
// Codes follow the CATEGORY_NNN pattern. The category decides the HTTP
// status a transport layer should answer with (see [Error.HTTPStatus]):
//
//   - VAL     malformed input that is not a credential problem (400)
//   - AUTH    credential problems: malformed or unverifiable tokens (401)
//   - INT     operator misconfiguration or unexpected failures (500)
//   - UNAVAIL a dependency such as a key-discovery endpoint failed (503)
//   - TIMEOUT a dependency did not answer in time (504)
//
// Typical use:
//
//	if err := cfg.Validate(); err != nil {
//	    return sserr.Wrap(err, sserr.CodeValidation, "auth: invalid validator config")
//	}
//
//	if sserr.IsServerError(err) {
//	    logger.Error("validation failed", "code", sserr.GetCode(err), "error", err)
//	}
package errors
