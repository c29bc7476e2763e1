// petchat is a terminal client for the PetReunite conversation backend.
//
//	petchat register                     create the account named by --username
//	petchat contact --post 7 --owner 2   contact a pet owner, greeting on first contact
//	petchat inbox                        list conversations
//	petchat chat [--convo 5]             open a conversation and chat; /find NAME searches, /open N switches, /quit exits
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"petreunite-chat/internal/client"
	"petreunite-chat/internal/messaging"
	"petreunite-chat/internal/models"
	"petreunite-chat/internal/utils"

	"github.com/spf13/pflag"
)

type options struct {
	backendURL  string
	username    string
	password    string
	timeout     time.Duration
	poll        time.Duration
	concurrency int
	avatarBase  string
	logLevel    string

	postID  int64
	ownerID int64
	convoID int64
	search  string
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	_ = utils.LoadEnv()

	var opts options
	flagSet := pflag.NewFlagSet("petchat", pflag.ContinueOnError)
	flagSet.StringVar(&opts.backendURL, "backend", utils.GetEnv("PETCHAT_BACKEND_URL", "http://localhost:3001"), "backend base URL")
	flagSet.StringVarP(&opts.username, "username", "u", utils.GetEnv("PETCHAT_USERNAME", ""), "account username")
	flagSet.StringVarP(&opts.password, "password", "p", utils.GetEnv("PETCHAT_PASSWORD", ""), "account password")
	flagSet.DurationVar(&opts.timeout, "timeout", utils.GetEnvDuration("REQUEST_TIMEOUT", 10*time.Second), "per-request timeout")
	flagSet.DurationVar(&opts.poll, "poll", utils.GetEnvDuration("POLL_INTERVAL", messaging.DefaultPollInterval), "message poll interval")
	flagSet.IntVar(&opts.concurrency, "concurrency", utils.GetEnvInt("LIST_CONCURRENCY", messaging.DefaultListConcurrency), "concurrent conversation loads when listing")
	flagSet.StringVar(&opts.avatarBase, "avatar-base", utils.GetEnv("AVATAR_BASE_URL", messaging.DefaultAvatarBaseURL), "avatar URL prefix")
	flagSet.StringVar(&opts.logLevel, "log-level", utils.GetEnv("LOG_LEVEL", "warn"), "log level (debug, info, warn, error)")
	flagSet.Int64Var(&opts.postID, "post", 0, "pet post id (contact)")
	flagSet.Int64Var(&opts.ownerID, "owner", 0, "pet post owner id (contact)")
	flagSet.Int64Var(&opts.convoID, "convo", 0, "conversation to open (chat)")
	flagSet.StringVar(&opts.search, "search", "", "only list contacts whose name contains this (inbox)")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help || flagSet.NArg() == 0 {
		printHelp(flagSet)
		return nil
	}

	utils.SetupLogger("cli", opts.logLevel, os.Stderr)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rpc := client.New(opts.backendURL, client.WithTimeout(opts.timeout))

	command := flagSet.Arg(0)
	if command == "register" {
		user, err := rpc.Register(ctx, opts.username, opts.password)
		if err != nil {
			return err
		}
		fmt.Printf("registered %s with id %d\n", user.Username, user.ID)
		return nil
	}

	if opts.username == "" {
		return errors.New("--username (or PETCHAT_USERNAME) is required")
	}
	session, err := rpc.Login(ctx, opts.username, opts.password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	rpc = rpc.WithSession(session)

	cfg := messaging.Config{
		PollInterval:    opts.poll,
		ListConcurrency: opts.concurrency,
		AvatarBaseURL:   opts.avatarBase,
		Notifier: messaging.NotifierFunc(func(n messaging.Notice) {
			fmt.Fprintf(os.Stderr, "! %s\n", n.Text)
		}),
		Logger: slog.Default(),
	}

	switch command {
	case "contact":
		return runContact(ctx, rpc, session, cfg, opts)
	case "inbox":
		return runInbox(ctx, rpc, session, cfg, opts)
	case "chat":
		return runChat(ctx, rpc, session, cfg, opts)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func runContact(ctx context.Context, rpc *client.Client, session models.Session, cfg messaging.Config, opts options) error {
	if opts.ownerID == 0 || opts.postID == 0 {
		return errors.New("contact needs --post and --owner")
	}
	contact := messaging.NewContact(rpc, cfg.Notifier, cfg.Logger)
	id, err := contact.Start(ctx, session, models.PetPost{ID: models.ID(opts.postID), UserID: models.ID(opts.ownerID)})
	if err != nil {
		// the notifier already told the user
		return nil
	}
	fmt.Printf("conversation %d\n", id)
	return nil
}

func runInbox(ctx context.Context, rpc *client.Client, session models.Session, cfg messaging.Config, opts options) error {
	summaries, err := messaging.NewListBuilder(rpc, cfg).Build(ctx, session.UserID)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("No conversations yet. Start a conversation by contacting a pet owner.")
		return nil
	}
	for _, s := range messaging.FilterSummaries(summaries, opts.search) {
		printSummary(s)
	}
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `petchat: terminal client for PetReunite messages.

Usage:
  petchat [flags] register
  petchat [flags] contact --post ID --owner ID
  petchat [flags] inbox [--search TERM]
  petchat [flags] chat [--convo ID]

Flags:
%s`, flagSet.FlagUsages())
}
