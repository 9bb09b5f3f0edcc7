// Command hashpw prints a bcrypt hash for use in AUTH_USERS, AUTH_USERS_FILE
// or the clinicians table.
//
//	hashpw -user doctor < password.txt
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/Skufu/healthrisk/internal/auth"
)

func main() {
	user := flag.String("user", "", "username to prefix the hash with (user:hash)")
	cost := flag.Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	password, err := readPassword(bufio.NewReader(os.Stdin))
	if err != nil {
		log.Fatal().Err(err).Msg("read password")
	}

	hash, err := auth.HashPassword(password, *cost)
	if err != nil {
		log.Fatal().Err(err).Msg("hash password")
	}

	if *user != "" {
		fmt.Printf("%s:%s\n", *user, hash)
		return
	}
	fmt.Println(hash)
}

func readPassword(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("no password on stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
