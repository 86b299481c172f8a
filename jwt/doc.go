// Package jwt issues and verifies short-lived request assertions that let a mediator
// authenticate the relying party behind each SDK call.
//
// Every assertion binds the route and a digest of the exact request body, so a captured
// token cannot be replayed against another route or with a different body.
package jwt
