package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Generates the bcrypt hash to put in ADMIN_API_KEY_HASH.
func main() {
	keyFlag := flag.String("key", "", "Admin API key to hash (save the key; it cannot be recovered from the hash)")
	flag.Parse()

	key := strings.TrimSpace(*keyFlag)
	if key == "" && flag.NArg() >= 1 {
		key = strings.TrimSpace(flag.Arg(0))
	}
	if key == "" {
		fmt.Println("Usage: go run cmd/hash-admin-key/main.go --key \"your-admin-key\"")
		os.Exit(1)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(key), 10)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to hash key: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Add this to your environment:")
	fmt.Printf("ADMIN_API_KEY_HASH=%s\n", string(hash))
}
