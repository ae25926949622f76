package jwt

import "github.com/golang-jwt/jwt/v5"

type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

type Role string

const (
	// RoleCitizen is a registered end user: may enter rounds and read
	// their own wallet.
	RoleCitizen Role = "citizen"
	// RoleOperator may open and cancel rounds.
	RoleOperator Role = "operator"
)
