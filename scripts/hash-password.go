package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
)

// Prints an admin bearer token and the ADMIN_TOKEN_HASH value for it.
// With an argument the given token is hashed instead of a generated one.
func main() {
	token := ""
	if len(os.Args) > 1 {
		token = os.Args[1]
	} else {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		token = hex.EncodeToString(buf)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(token), 12)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("token:            %s\n", token)
	fmt.Printf("ADMIN_TOKEN_HASH: %s\n", hash)
}
