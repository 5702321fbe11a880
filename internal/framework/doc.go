// Package framework provides the built-in action group and stores that
// every application gets, plus the App composition root.
//
// The "Vuo" group publishes setAuthToken and names the request lifecycle
// identifiers (requestBegin, requestEnd, requestProgress, requestError)
// that request.Issuer broadcasts. The Session store keeps the auth token and serves it to the
// request Issuer; the Pending store counts in-flight requests.
package framework
