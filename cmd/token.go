package main

import (
	"fmt"
	"log"
	"strings"

	"postboard/pkg/user"
)

// issueToken prints a bearer token for a principal given as id:username.
// Accounts live elsewhere, this is for local testing.
func issueToken(sm interface {
	CreateToken(*user.User) (string, error)
}, principal string) {
	id, username, ok := strings.Cut(principal, ":")
	if !ok || id == "" {
		log.Fatalf("token: expected id:username, got %q", principal)
	}

	token, err := sm.CreateToken(&user.User{Id: id, Username: username})
	if err != nil {
		log.Fatalln("token: can't create token:", err)
	}
	fmt.Println("Bearer " + token)
}
