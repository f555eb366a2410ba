// Package cli implements authctl, a small command-line client for the token
// service.
//
//	authctl [-a addr] [-t seconds] login [email]
//	authctl [-a addr] refresh <refresh-token>
//	authctl [-a addr] whoami <access-token> [refresh-token]
//
// login prompts for the password without echo. whoami refreshes the pair
// once when the access token has expired and a refresh token was given; the
// new pair is printed because the old refresh token is spent.
package cli
