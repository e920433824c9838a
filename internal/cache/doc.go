// Package cache provides a short-TTL key-value cache in front of rate-limited
// external lookups.
//
// The live-lookup HTTP handler consults it before calling the YouTube Data API
// and populates it on a fresh result, so repeated discovery requests for the
// same channel cost one quota unit per TTL window instead of one per request.
package cache
