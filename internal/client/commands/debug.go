// FILE: lixenwraith/chessassist/internal/client/commands/debug.go
package commands

import (
	"fmt"
	"strings"
	"time"

	"chessassist/internal/client/display"
)

const apiPrefix = "/api/v1"

func (r *Registry) registerDebugCommands() {
	r.Register(&Command{
		Name:        "health",
		ShortName:   ".",
		Description: "Show service status, storage and open boards",
		Usage:       "health",
		Handler:     healthHandler,
	})

	r.Register(&Command{
		Name:        "url",
		ShortName:   "/",
		Description: "Show or change the editor service address",
		Usage:       "url [address]",
		Handler:     urlHandler,
	})

	r.Register(&Command{
		Name:        "raw",
		ShortName:   ":",
		Description: "Send a request; @ expands to the current board",
		Usage:       "raw <method> <path> [json-body]",
		Handler:     rawRequestHandler,
	})

	r.Register(&Command{
		Name:        "clear",
		ShortName:   "-",
		Description: "Clear the terminal",
		Usage:       "clear",
		Handler:     clearHandler,
	})
}

func healthHandler(s Session, args []string) error {
	resp, err := s.GetClient().Health()
	if err != nil {
		return err
	}

	storage := resp.Storage
	if storage == "" {
		storage = "disabled"
	}
	fmt.Printf("%s%s%s at %s\n", display.Cyan, resp.Status, display.Reset,
		time.Unix(resp.Time, 0).Format("15:04:05"))
	fmt.Printf("  Open boards: %d\n", resp.Sessions)
	fmt.Printf("  History:     %s\n", storage)
	return nil
}

func urlHandler(s Session, args []string) error {
	if len(args) == 0 {
		fmt.Printf("Editor service: %s\n", s.GetAPIBaseURL())
		return nil
	}

	addr := args[0]
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}
	addr = strings.TrimSuffix(addr, "/")

	s.SetAPIBaseURL(addr)
	s.GetClient().SetBaseURL(addr)
	if id := s.GetCurrentSession(); id != "" {
		// Session ids are per server
		s.SetCurrentSession("")
		s.SetState(nil)
		fmt.Printf("Dropped board %s\n", id)
	}

	fmt.Printf("%sEditor service: %s%s\n", display.Cyan, addr, display.Reset)
	return nil
}

// expandPath resolves a raw request path: "@" becomes the current board's
// resource and paths outside the API gain its prefix
func expandPath(path, board string) (string, error) {
	if strings.HasPrefix(path, "@") {
		if board == "" {
			return "", fmt.Errorf("no current board for @")
		}
		path = "/sessions/" + board + strings.TrimPrefix(path, "@")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if path == "/health" || strings.HasPrefix(path, apiPrefix+"/") {
		return path, nil
	}
	return apiPrefix + path, nil
}

func rawRequestHandler(s Session, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: raw <method> <path> [json-body]")
	}

	method := strings.ToUpper(args[0])
	switch method {
	case "GET", "POST", "PUT", "DELETE":
	default:
		return fmt.Errorf("unsupported method %s", method)
	}

	path, err := expandPath(args[1], s.GetCurrentSession())
	if err != nil {
		return err
	}

	return s.GetClient().RawRequest(method, path, strings.Join(args[2:], " "))
}

func clearHandler(s Session, args []string) error {
	fmt.Print("\033[H\033[2J")
	if id := s.GetCurrentSession(); id != "" {
		fmt.Printf("Board %s\n", id)
	}
	return nil
}
