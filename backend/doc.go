// Package backend is the REST client of the identity backend.
//
// Every endpoint takes a JSON body over POST and answers with the envelope
//
//	{"success": bool, "data": {...}, "message": string}
//
// An envelope with success=false is reported as a [goPortal.RejectedError]
// carrying the message; anything that prevents reading an envelope
// (network failure, non-JSON body, throttle wait cancelled) is returned as a
// plain error, which the Portal treats as a transport failure.
//
// Calls are throttled client-side with a token bucket so a burst of flow
// submissions cannot flood the backend. There is no retry.
package backend
