package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/spec-kit/helpdesk-service/pkg/client"
)

type command struct {
	summary string
	run     func(ctx context.Context, api *client.Client, args []string, stderr io.Writer) (any, error)
}

var commandOrder = []string{
	"register", "login", "logout", "whoami",
	"tickets", "ticket", "create", "update", "delete",
	"users", "set-role",
}

var commands = map[string]command{
	"register": {"register <username> <password>", runRegister},
	"login":    {"login <username> <password>; prints the token", runLogin},
	"logout":   {"end the current session", runLogout},
	"whoami":   {"show the authenticated account", runWhoami},
	"tickets":  {"list visible tickets [--status s]", runTickets},
	"ticket":   {"ticket <id>", runTicket},
	"create":   {"create --title t --description d", runCreate},
	"update":   {"update <id> --title t --description d --status s", runUpdate},
	"delete":   {"delete <id>", runDelete},
	"users":    {"list accounts (admin)", runUsers},
	"set-role": {"set-role <user-id> <admin|user> (admin)", runSetRole},
}

func positional(args []string, n int, usage string) ([]string, error) {
	if len(args) != n {
		return nil, fmt.Errorf("%w: expected %s", errUsage, usage)
	}
	return args, nil
}

func runRegister(ctx context.Context, api *client.Client, args []string, _ io.Writer) (any, error) {
	args, err := positional(args, 2, "<username> <password>")
	if err != nil {
		return nil, err
	}
	return api.Register(ctx, args[0], args[1])
}

func runLogin(ctx context.Context, api *client.Client, args []string, _ io.Writer) (any, error) {
	args, err := positional(args, 2, "<username> <password>")
	if err != nil {
		return nil, err
	}
	user, session, err := api.Login(ctx, args[0], args[1])
	if err != nil {
		return nil, err
	}
	return map[string]any{"user": user, "auth": session}, nil
}

func runLogout(ctx context.Context, api *client.Client, _ []string, _ io.Writer) (any, error) {
	if err := api.Logout(ctx); err != nil {
		return nil, err
	}
	return map[string]bool{"logged_out": true}, nil
}

func runWhoami(ctx context.Context, api *client.Client, _ []string, _ io.Writer) (any, error) {
	return api.Me(ctx)
}

func runTickets(ctx context.Context, api *client.Client, args []string, stderr io.Writer) (any, error) {
	flagSet := pflag.NewFlagSet("tickets", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	status := flagSet.String("status", "", "only tickets with this status")
	if err := flagSet.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	return api.ListTickets(ctx, *status)
}

func runTicket(ctx context.Context, api *client.Client, args []string, _ io.Writer) (any, error) {
	args, err := positional(args, 1, "<id>")
	if err != nil {
		return nil, err
	}
	return api.GetTicket(ctx, args[0])
}

func ticketFlags(name string, stderr io.Writer) (*pflag.FlagSet, *string, *string) {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	title := flagSet.String("title", "", "ticket title")
	description := flagSet.String("description", "", "ticket description")
	return flagSet, title, description
}

func runCreate(ctx context.Context, api *client.Client, args []string, stderr io.Writer) (any, error) {
	flagSet, title, description := ticketFlags("create", stderr)
	if err := flagSet.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	return api.CreateTicket(ctx, client.TicketInput{Title: *title, Description: *description})
}

func runUpdate(ctx context.Context, api *client.Client, args []string, stderr io.Writer) (any, error) {
	flagSet, title, description := ticketFlags("update", stderr)
	status := flagSet.String("status", "", "open, in_progress or closed")
	if err := flagSet.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	rest, err := positional(flagSet.Args(), 1, "<id>")
	if err != nil {
		return nil, err
	}
	return api.UpdateTicket(ctx, rest[0], client.TicketUpdate{
		Title:       *title,
		Description: *description,
		Status:      *status,
	})
}

func runDelete(ctx context.Context, api *client.Client, args []string, _ io.Writer) (any, error) {
	args, err := positional(args, 1, "<id>")
	if err != nil {
		return nil, err
	}
	if err := api.DeleteTicket(ctx, args[0]); err != nil {
		return nil, err
	}
	return map[string]any{"id": args[0], "deleted": true}, nil
}

func runUsers(ctx context.Context, api *client.Client, _ []string, _ io.Writer) (any, error) {
	return api.ListUsers(ctx)
}

func runSetRole(ctx context.Context, api *client.Client, args []string, _ io.Writer) (any, error) {
	args, err := positional(args, 2, "<user-id> <role>")
	if err != nil {
		return nil, err
	}
	return api.SetRole(ctx, args[0], args[1])
}
