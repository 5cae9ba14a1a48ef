package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"qrbook.backend/pkg/crypto"
	"qrbook.backend/pkg/validation"
)

var (
	printfFn       = fmt.Printf
	generateHashFn = generateHash
	fatalfFn       = log.Fatalf
)

// resolvePassword takes the first argument, then $ADMIN_PASSWORD.
func resolvePassword(args []string, getenv func(string) string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if pw := getenv("ADMIN_PASSWORD"); pw != "" {
		return pw, nil
	}
	return "", errors.New("usage: hash-gen <password> (or set ADMIN_PASSWORD)")
}

// generateHash applies the same password rules as registration before hashing.
func generateHash(password string) (string, error) {
	if err := validation.Var(password, "min=8"); err != nil {
		return "", errors.New("password rejected: must be at least 8 characters")
	}
	return crypto.HashPassword(password)
}

func main() {
	password, err := resolvePassword(os.Args[1:], os.Getenv)
	if err != nil {
		fatalfFn("%v", err)
		return
	}

	printfFn("Generating hash for a %d character password\n", len(password))

	hash, err := generateHashFn(password)
	if err != nil {
		fatalfFn("Failed to hash password: %v", err)
		return
	}

	printfFn("Bcrypt Hash: %s\n", hash)
	printfFn("Verified: %t\n", crypto.CheckPassword(password, hash))
}
