// Package credentials obtains service account credentials from the camera's
// privileged credential service.
//
// The service is reached over the D-Bus system bus and answers a single
// call: given an account name, return "id:secret". Callers depend on the
// one-method Provider interface so that tests and development setups can
// swap in a StaticProvider.
//
// Credentials are short-lived: fetch, build one request, discard. Never log
// Credential.Secret.
package credentials
