// Package directory resolves cluster accounts and group membership
// from LDAP. Access is gated on one configured posix group: accounts
// outside it do not exist as far as the query API is concerned.
package directory
