package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"sharetrack/backend/internal/api/client"
	"sharetrack/backend/internal/auth"
	"sharetrack/backend/internal/config"
	"sharetrack/backend/internal/models"
)

// Session commands go through the running server so that connected
// clients are told about every change. Expiry is left to the server's
// sweeper for the same reason.
const usage = `Usage: admin <command> [args]

Commands:
  list-sessions <user_id>             list a user's live sessions
  revoke-session <session_id> <user_id>
                                      end a session on behalf of a participant
  issue-token <user_id> [display_name]
                                      print an identity token

The session commands call the server at SERVER_URL.`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	api := client.New(cfg.ServerURL, issuer, nil)

	switch os.Args[1] {
	case "issue-token":
		if len(os.Args) < 3 {
			fmt.Println("Usage: admin issue-token <user_id> [display_name]")
			os.Exit(1)
		}
		id := models.Identity{ID: os.Args[2]}
		if len(os.Args) > 3 {
			id.DisplayName = os.Args[3]
		}
		token, expires, err := issuer.Issue(id)
		if err != nil {
			log.Fatalf("Error issuing token: %v", err)
		}
		fmt.Printf("%s\n(expires %s)\n", token, expires.Format(time.RFC3339))
	case "list-sessions":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin list-sessions <user_id>")
			os.Exit(1)
		}
		active, err := api.ListSessions(ctx, os.Args[2])
		if err != nil {
			log.Fatalf("Error listing sessions: %v", err)
		}
		for _, s := range active {
			fmt.Printf("%s\t%v\tuntil %s\n", s.ID, []string(s.Participants), s.ExpiresAt.Format(time.RFC3339))
		}
		fmt.Printf("%d live session(s).\n", len(active))
	case "revoke-session":
		if len(os.Args) != 4 {
			fmt.Println("Usage: admin revoke-session <session_id> <user_id>")
			os.Exit(1)
		}
		sess, err := api.RevokeSession(ctx, os.Args[2], os.Args[3])
		if err != nil {
			log.Fatalf("Error revoking session: %v", err)
		}
		fmt.Printf("Session %s is now inactive (%s).\n", sess.ID, sess.EndReason)
	default:
		fmt.Println("Unknown command")
		fmt.Println(usage)
		os.Exit(1)
	}
}
