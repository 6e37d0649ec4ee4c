// Package jwt signs and validates the RS256 access tokens issued by the
// Renunganku API.
//
// Signing and parsing are delegated to github.com/golang-jwt/jwt/v5. The
// package narrows its error surface to a few sentinels so middleware can
// answer with a precise 401:
//
//	svc, err := jwt.NewService(jwt.Config{
//	    PrivateKeyPath: "./keys/private.pem",
//	    Issuer:         "renunganku",
//	    ExpirationMins: 60 * 24 * 7,
//	})
//
//	token, err := svc.Sign(jwt.Claims{UserID: "user:abc", Email: "a@b.c"})
//	claims, err := svc.Validate(token)
//	if errors.Is(err, jwt.ErrTokenExpired) {
//	    // ask the client to log in again
//	}
//
// The subject claim always carries the user record ID.
package jwt
