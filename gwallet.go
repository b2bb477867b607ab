// Package gwallet provides a typed client for the Google Wallet objects API:
// https://developers.google.com/wallet/reference/rest
//
// Features:
// - A registry of pass resource types with per-type capabilities.
// - Create, read, update, disable, message and iterator-based listing of typed resources.
// - Pooled OAuth 2.0 service-account clients, keyed by credential identity.
// - Signed save-to-wallet links.
//
// Inbound callback verification lives in the callback sub-package.
package gwallet
