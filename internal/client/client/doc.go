// Package client talks to the authkeeper.v1.TokenService over gRPC.
//
// GRPCClient keeps the current access and refresh tokens. Every call carries
// the access token in the "access_token" metadata key. When the server
// answers Unauthenticated with "token expired", the client rotates the pair
// through Refresh once and repeats the call with the new access token.
//
// gRPC status codes are mapped to ErrUnauthorized and ErrUnavailable, which
// callers match with errors.Is.
package client
