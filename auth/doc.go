// Package auth authenticates callers of the faultline HTTP API.
//
// Two credentials are accepted. Bearer JWTs are verified with the jwt
// subpackage, for browser apps that receive a short-lived token from their
// backend. API keys are compared against bcrypt hashes from the
// configuration, for services that report errors server-side. Either way
// the request carries a *Principal in its context (see authctx).
//
// # Configuration
//
//	auth:
//	  enabled: true
//	  jwt:
//	    method: "HS256"
//	    secret: "${FAULTLINE_AUTH_JWT_SECRET}"
//	    issuer: "faultline"
//	  api_key_hashes:
//	    - "$2a$12$..."
//
// `faultline token` issues JWTs and `faultline apikey` generates a key and
// its hash.
package auth
