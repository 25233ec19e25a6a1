// Package utils provides shared utility functions and constants
package utils

// ContextKeyCSRF is the key echo's CSRF middleware stores the token under
const ContextKeyCSRF = "csrf"

// CSRFCookieName is the name of the CSRF cookie
const CSRFCookieName = "csrf"

// CSRFHeader carries the token on state-changing requests
const CSRFHeader = "X-CSRF-Token"
