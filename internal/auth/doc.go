// Package auth implements OAuth2 authorization-code-grant authentication and
// token lifecycle management for the TradeStation API.
//
// # Authorization flow
//
// Use Authorizer for the one-time manual flow that obtains the initial token:
//
//	authorizer := auth.NewAuthorizer(creds, auth.Endpoint)
//	state := oauth2.GenerateVerifier() // fresh random state per invocation
//	fmt.Println(authorizer.AuthCodeURL(state))
//	// User visits the URL, authorizes, and pastes the redirect URL back.
//	code, _, err := auth.ParseRedirect(redirectURL)
//	token, err := authorizer.Exchange(ctx, code)
//
// # Token lifecycle
//
// Session keeps the token fresh across API calls:
//
//	session := auth.NewSession(creds, auth.Endpoint, logger,
//		auth.WithSaveFunc(store.Save))
//	session.SetToken(token)
//	if !session.Valid(ctx, 5*time.Second) { ... }
//
// Valid transparently refreshes a stale token; a successful refresh is
// persisted through the configured SaveFunc. The expiry timestamp is always
// derived at response receipt (now + expires_in), never trusted from storage
// or the wire.
package auth
