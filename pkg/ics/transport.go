package ics

import (
	"crypto/tls"
	"net/http"
)

// insecureTransport disables TLS certificate verification. Field-appliance
// constraint: the FPP host this feed is typically proxied through presents
// a self-signed certificate and has no path to a trusted CA.
func insecureTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	return t
}
