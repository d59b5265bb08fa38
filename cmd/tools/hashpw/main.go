// Command hashpw prints the bcrypt hash of an operator password, for use as
// ADMIN_PASSWORD_HASH with the review server. It reads the same BCRYPT_COST
// and PASSWORD_PEPPER environment variables the server does, so the produced
// hash verifies under the server's configuration.
//
// Usage:
//
//	go run cmd/tools/hashpw/main.go <password>
package main

import (
	"fmt"
	"os"

	"github.com/jonathan/a11y-remediator/internal/config"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "Usage: hashpw <password>")
		os.Exit(1)
	}

	cfg, err := config.NewPasswordConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}

	hash, err := cfg.HashPassword(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(hash)
}
