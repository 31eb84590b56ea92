// Package server implements the HTTP query API over the published
// documents and the account directory.
//
// Endpoints:
//
//	GET /pbs                            known sites
//	GET /pbs/{site}                     full site document
//	GET /pbs/{site}/{subject}           identifiers within a subject
//	GET /pbs/{site}/{subject}/{name}    one record, optionally narrowed
//	                                    with repeated ?item= selectors
//	GET /user                           accounts in the access group
//	GET /user/{username}                one account
//	GET /user/{username}/jobs           the account's jobs across sites
//	GET /app                            registered application names
//	GET /app/{name}                     one application descriptor
//	GET /health, /ready, /metrics       operational endpoints
//
// Subjects are Server, Queue, Jobs and nodes. Every data endpoint
// refuses documents older than the freshness threshold: a stale answer
// is treated as no answer.
//
// All API endpoints sit behind basic auth (when configured), token
// bucket rate limiting, panic recovery and request ID propagation.
// Responses carry a {"result": bool} envelope; failures add a
// structured code, message and request ID.
package server
