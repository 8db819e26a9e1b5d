// FILE: lixenwraith/chessassist/internal/client/commands/auth.go
package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"chessassist/internal/client/display"

	"golang.org/x/term"
)

// Accounts only matter for ownership: sessions opened while logged in are
// private to that account, anonymous sessions stay open to anyone with the id.
func (r *Registry) registerAuthCommands() {
	r.Register(&Command{
		Name:        "register",
		ShortName:   "r",
		Description: "Create an account to own editing sessions",
		Usage:       "register",
		Handler:     registerHandler,
	})

	r.Register(&Command{
		Name:        "login",
		ShortName:   "l",
		Description: "Log in; boards opened afterwards are private",
		Usage:       "login",
		Handler:     loginHandler,
	})

	r.Register(&Command{
		Name:        "logout",
		ShortName:   "o",
		Description: "Revoke the token; new boards are anonymous",
		Usage:       "logout",
		Handler:     logoutHandler,
	})

	r.Register(&Command{
		Name:        "whoami",
		ShortName:   "i",
		Description: "Show the account and the board in use",
		Usage:       "whoami",
		Handler:     whoamiHandler,
	})
}

func prompt(scanner *bufio.Scanner, label string) string {
	fmt.Print(display.Yellow + label + ": " + display.Reset)
	scanner.Scan()
	return strings.TrimSpace(scanner.Text())
}

func readPassword() (string, error) {
	fmt.Print(display.Yellow + "Password: " + display.Reset)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// adopt installs credentials on both the REPL state and the API client
func adopt(s Session, token, userID, username string) {
	s.SetAuthToken(token)
	s.SetCurrentUser(userID)
	s.SetUsername(username)
	s.GetClient().SetToken(token)
}

func ownershipNote(s Session) {
	if id := s.GetCurrentSession(); id != "" {
		fmt.Printf("Board %s was opened before login and stays shared\n", id)
	}
}

func registerHandler(s Session, args []string) error {
	scanner := bufio.NewScanner(os.Stdin)

	username := prompt(scanner, "Username")
	password, err := readPassword()
	if err != nil {
		return err
	}
	email := prompt(scanner, "Email (optional)")

	resp, err := s.GetClient().Register(username, password, email)
	if err != nil {
		return err
	}
	adopt(s, resp.Token, resp.UserID, resp.Username)

	fmt.Printf("%sAccount %s created, new boards are yours%s\n", display.Green, resp.Username, display.Reset)
	ownershipNote(s)
	return nil
}

func loginHandler(s Session, args []string) error {
	scanner := bufio.NewScanner(os.Stdin)

	identifier := prompt(scanner, "Username or email")
	password, err := readPassword()
	if err != nil {
		return err
	}

	resp, err := s.GetClient().Login(identifier, password)
	if err != nil {
		return err
	}
	adopt(s, resp.Token, resp.UserID, resp.Username)

	fmt.Printf("%sLogged in as %s%s\n", display.Green, resp.Username, display.Reset)
	ownershipNote(s)
	return nil
}

func logoutHandler(s Session, args []string) error {
	if s.GetAuthToken() != "" {
		// Local credentials go regardless of the server's answer
		if err := s.GetClient().Logout(); err != nil {
			fmt.Printf("%sServer logout failed: %s%s\n", display.Yellow, err.Error(), display.Reset)
		}
	}
	adopt(s, "", "", "")

	fmt.Printf("%sLogged out%s\n", display.Green, display.Reset)
	if id := s.GetCurrentSession(); id != "" {
		fmt.Printf("Board %s keeps its owner; log in again to edit it\n", id)
	}
	return nil
}

func whoamiHandler(s Session, args []string) error {
	board := s.GetCurrentSession()
	if board == "" {
		board = "(none)"
	}

	if s.GetAuthToken() == "" {
		fmt.Printf("%sAnonymous%s, board: %s\n", display.Yellow, display.Reset, board)
		return nil
	}

	user, err := s.GetClient().GetCurrentUser()
	if err != nil {
		return err
	}

	fmt.Printf("%s%s%s (%s)\n", display.Cyan, user.Username, display.Reset, user.UserID)
	if user.Email != "" {
		fmt.Printf("  Email: %s\n", user.Email)
	}
	fmt.Printf("  Since: %s\n", user.CreatedAt.Format("2006-01-02"))
	fmt.Printf("  Board: %s\n", board)
	return nil
}
