// Command certgen looks certificates up and exports them from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/JonMunkholm/certgen/internal/certificate"
	"github.com/joho/godotenv"
)

func main() {
	// .env values never override the environment here
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", certificate.FormatUserError(err))
		os.Exit(1)
	}
}
