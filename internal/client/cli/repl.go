package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	LoginGoogle(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Refresh(ctx context.Context) error
	Available(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	AddFood(ctx context.Context) error
	MyFoods(ctx context.Context) error
	UpdateFood(ctx context.Context, args []string) error
	DeleteFood(ctx context.Context, args []string) error
	RequestFood(ctx context.Context, args []string) error
	MyRequests(ctx context.Context) error
	CancelRequest(ctx context.Context, args []string) error
	Membership(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the FoodShare CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a' with the remaining tokens as
// arguments. Unknown commands are reported back to the user. The loop exits
// on scanner EOF or when the user types "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Always:
//	  - help                          show available commands
//	  - available [text] [asc|desc] [page]
//	  - show <id>                     show a single listing
//	  - exit | quit                   leave the program
//
//	Not logged in:
//	  - register, login, google
//
//	Logged in:
//	  - whoami                        profile and quota
//	  - refresh                       reload profile and quota
//	  - addfood                       share food
//	  - myfoods                       own listings ('*' = not yet saved)
//	  - updatefood <id>, deletefood <id>
//	  - request <id>                  ask for a listing
//	  - myrequests, cancel <id>
//	  - membership                    lift the listing limit
//	  - logout
//
// Errors returned by command handlers are ignored here; handlers print
// their own messages. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("fs> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: (a)vailable, show, addfood, myfoods, updatefood, deletefood, request, myrequests, cancel, membership, whoami, refresh, logout, exit")
			} else {
				printlnFn("Available commands: (a)vailable, show, register, login, google, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "google":
			_ = a.LoginGoogle(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "whoami":
			_ = a.WhoAmI(ctx)

		case "refresh":
			_ = a.Refresh(ctx)

		case "a", "available":
			_ = a.Available(ctx, args)

		case "show":
			_ = a.Show(ctx, args)

		case "addfood":
			_ = a.AddFood(ctx)

		case "myfoods":
			_ = a.MyFoods(ctx)

		case "updatefood":
			_ = a.UpdateFood(ctx, args)

		case "deletefood":
			_ = a.DeleteFood(ctx, args)

		case "request":
			_ = a.RequestFood(ctx, args)

		case "myrequests":
			_ = a.MyRequests(ctx)

		case "cancel":
			_ = a.CancelRequest(ctx, args)

		case "membership":
			_ = a.Membership(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
