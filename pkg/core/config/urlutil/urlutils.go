/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package urlutil interprets the grpc:// and grpcs:// endpoint URLs of
// peers and orderers.
package urlutil

import "strings"

// scheme returns the lower-cased scheme of url and the remainder after
// "://". ok is false when url has no scheme.
func scheme(url string) (s, rest string, ok bool) {
	i := strings.Index(url, "://")
	if i < 0 {
		return "", url, false
	}
	return strings.ToLower(url[:i]), url[i+3:], true
}

// IsTLSEnabled reports whether url names a secure scheme (grpcs or https).
func IsTLSEnabled(url string) bool {
	s, _, _ := scheme(url)
	return s == "grpcs" || s == "https"
}

// ToAddress strips a grpc:// or grpcs:// prefix, giving the host:port form
// grpc dials. Other URLs are returned unchanged.
func ToAddress(url string) string {
	if s, rest, ok := scheme(url); ok && (s == "grpc" || s == "grpcs") {
		return rest
	}
	return url
}

// AttemptSecured reports whether TLS should be used for url. An explicit
// scheme decides; without one, TLS is used unless allowInsecure is set.
func AttemptSecured(url string, allowInsecure bool) bool {
	if s, _, ok := scheme(url); ok {
		return strings.HasSuffix(s, "s")
	}
	return !allowInsecure
}
