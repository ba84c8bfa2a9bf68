package model

import "github.com/golang-jwt/jwt"

type UserClaims struct {
	UserName string `json:"user_name"`
	jwt.StandardClaims
}

// UserID returns the user id carried by the token.
func (c UserClaims) UserID() string {
	if c.StandardClaims.Subject != "" {
		return c.StandardClaims.Subject
	}
	return c.Issuer
}
