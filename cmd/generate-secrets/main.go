package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/grandstand-travel/backoffice/internal/utils"
	"github.com/grandstand-travel/backoffice/pkg/jwt"
)

// Prints a fresh JWT_SECRET, or with -team a development access token signed with -secret.
func main() {
	secret := flag.String("secret", "", "sign a development token with this JWT_SECRET")
	issuer := flag.String("issuer", "grandstand-backoffice", "token issuer (JWT_ISSUER)")
	team := flag.String("team", "", "team UUID to scope the development token to")
	user := flag.String("user", "", "user UUID (random when empty)")
	email := flag.String("email", "dev@grandstand.travel", "agent email")
	roles := flag.String("roles", "agent", "comma separated roles")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *team == "" {
		generated, err := utils.GenerateSecret(32)
		if err != nil {
			log.Fatalf("Failed to generate secret: %v", err)
		}
		fmt.Println("Add this to your .env file:")
		fmt.Printf("JWT_SECRET=%s\n", generated)
		return
	}

	if *secret == "" {
		log.Fatal("-secret is required when -team is set")
	}

	teamID, err := uuid.Parse(*team)
	if err != nil {
		log.Fatalf("Invalid team UUID: %v", err)
	}
	userID := uuid.New()
	if *user != "" {
		if userID, err = uuid.Parse(*user); err != nil {
			log.Fatalf("Invalid user UUID: %v", err)
		}
	}

	token, err := jwt.NewService(*secret, *issuer, *ttl).GenerateAccessToken(userID, teamID, *email, strings.Split(*roles, ","))
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(token)
}
