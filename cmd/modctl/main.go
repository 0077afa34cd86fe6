package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/DevRickLin/feishu-modbot/internal/biz/domain"
	"github.com/DevRickLin/feishu-modbot/internal/biz/repo"
	"github.com/DevRickLin/feishu-modbot/internal/data"
)

func main() {
	_ = godotenv.Load()
	newApp().RunAndExitOnError()
}

func defaultDBPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".feishu-modbot", "modbot.db")
}

func newApp() *cli.App {
	app := &cli.App{
		Name:  "modctl",
		Usage: "offline administration of the moderation bot's store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db",
				Usage:   "path to the SQLite database",
				Value:   defaultDBPath(),
				EnvVars: []string{"DB_PATH"},
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "redis URL holding warnings and user sets, when the bot runs with redis",
				EnvVars: []string{"REDIS_URL"},
			},
		},
	}
	app.Commands = []*cli.Command{
		{
			Name:  "state",
			Usage: "show a user's warnings, jail and exempt state",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "json", Usage: "print as JSON"},
			},
			ArgsUsage: "<user_id>",
			Action:    runState,
		},
		{
			Name:      "reset-warnings",
			Usage:     "reset a user's warning count",
			ArgsUsage: "<user_id>",
			Action:    runResetWarnings,
		},
		{
			Name:  "whitelist",
			Usage: "manage whitelisted phrases",
			Subcommands: []*cli.Command{
				{Name: "list", Usage: "list phrases", Action: runWhitelistList},
				{Name: "add", Usage: "add a phrase", ArgsUsage: "<phrase>", Action: runWhitelistAdd},
				{Name: "remove", Usage: "remove a phrase", ArgsUsage: "<phrase>", Action: runWhitelistRemove},
			},
		},
		{
			Name:  "exempt",
			Usage: "manage exempt users",
			Subcommands: []*cli.Command{
				{Name: "list", Usage: "list exempt users", Action: runSetList(domain.SetExempt)},
				{Name: "add", Usage: "exempt a user", ArgsUsage: "<user_id>", Action: runExemptAdd},
				{Name: "remove", Usage: "remove an exemption", ArgsUsage: "<user_id>", Action: runExemptRemove},
			},
		},
		{
			Name:   "jailed",
			Usage:  "list jailed users",
			Action: runSetList(domain.SetJailed),
		},
		{
			Name:  "reviews",
			Usage: "inspect jail reviews",
			Subcommands: []*cli.Command{
				{Name: "pending", Usage: "list open reviews", Action: runReviewsPending},
				{
					Name:      "history",
					Usage:     "list past decisions for a user",
					ArgsUsage: "<user_id>",
					Flags: []cli.Flag{
						&cli.IntFlag{Name: "limit", Value: 20, Usage: "maximum number of decisions"},
					},
					Action: runReviewsHistory,
				},
			},
		},
	}
	return app
}

// stores opens the SQLite store, and redis for the moderation state when configured
type stores struct {
	sqlite     *data.Store
	moderation repo.ModerationRepo
	redis      bool
}

func openStores(cctx *cli.Context) (*stores, error) {
	st, err := data.NewStore(cctx.String("db"))
	if err != nil {
		return nil, err
	}
	s := &stores{sqlite: st, moderation: st}
	if url := cctx.String("redis-url"); url != "" {
		client, err := data.NewRedisClient(cctx.Context, url)
		if err != nil {
			st.Close()
			return nil, err
		}
		s.moderation = data.NewRedisModerationStore(client)
		s.redis = true
	}
	return s, nil
}

func (s *stores) Close() {
	if s.redis {
		s.moderation.Close()
	}
	s.sqlite.Close()
}

func withStores(fn func(ctx context.Context, cctx *cli.Context, s *stores) error) cli.ActionFunc {
	return func(cctx *cli.Context) error {
		s, err := openStores(cctx)
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(cctx.Context, cctx, s)
	}
}

func requireArg(cctx *cli.Context, name string) (string, error) {
	v := cctx.Args().First()
	if v == "" {
		return "", fmt.Errorf("need to provide %s as an argument", name)
	}
	return v, nil
}

var runState = withStores(func(ctx context.Context, cctx *cli.Context, s *stores) error {
	userID, err := requireArg(cctx, "user_id")
	if err != nil {
		return err
	}
	count, err := s.moderation.GetWarnings(ctx, userID)
	if err != nil {
		return err
	}
	jailed, err := s.moderation.SetContains(ctx, domain.SetJailed, userID)
	if err != nil {
		return err
	}
	exempt, err := s.moderation.SetContains(ctx, domain.SetExempt, userID)
	if err != nil {
		return err
	}
	state := domain.UserState{UserID: userID, WarningCount: count, Jailed: jailed, Exempt: exempt}

	w := cctx.App.Writer
	if cctx.Bool("json") {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	}
	fmt.Fprintf(w, "user:     %s\n", state.UserID)
	fmt.Fprintf(w, "warnings: %d/%d\n", state.WarningCount, domain.WarningThreshold)
	fmt.Fprintf(w, "jailed:   %t\n", state.Jailed)
	fmt.Fprintf(w, "exempt:   %t\n", state.Exempt)
	return nil
})

var runResetWarnings = withStores(func(ctx context.Context, cctx *cli.Context, s *stores) error {
	userID, err := requireArg(cctx, "user_id")
	if err != nil {
		return err
	}
	if err := s.moderation.SetWarnings(ctx, userID, 0); err != nil {
		return err
	}
	fmt.Fprintf(cctx.App.Writer, "warnings reset for %s\n", userID)
	return nil
})

var runWhitelistList = withStores(func(ctx context.Context, cctx *cli.Context, s *stores) error {
	phrases, err := s.sqlite.ListPhrases(ctx)
	if err != nil {
		return err
	}
	for _, p := range phrases {
		fmt.Fprintln(cctx.App.Writer, p)
	}
	return nil
})

var runWhitelistAdd = withStores(func(ctx context.Context, cctx *cli.Context, s *stores) error {
	phrase, err := requireArg(cctx, "phrase")
	if err != nil {
		return err
	}
	added, err := s.sqlite.AddPhrase(ctx, phrase)
	if err != nil {
		return err
	}
	if !added {
		fmt.Fprintf(cctx.App.Writer, "%q is already whitelisted\n", phrase)
		return nil
	}
	fmt.Fprintf(cctx.App.Writer, "added %q\n", phrase)
	return nil
})

var runWhitelistRemove = withStores(func(ctx context.Context, cctx *cli.Context, s *stores) error {
	phrase, err := requireArg(cctx, "phrase")
	if err != nil {
		return err
	}
	removed, err := s.sqlite.RemovePhrase(ctx, phrase)
	if err != nil {
		return err
	}
	if !removed {
		fmt.Fprintf(cctx.App.Writer, "%q is not whitelisted\n", phrase)
		return nil
	}
	fmt.Fprintf(cctx.App.Writer, "removed %q\n", phrase)
	return nil
})

func runSetList(set domain.UserSet) cli.ActionFunc {
	return withStores(func(ctx context.Context, cctx *cli.Context, s *stores) error {
		ids, err := s.moderation.ListSet(ctx, set)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(cctx.App.Writer, id)
		}
		return nil
	})
}

var runExemptAdd = withStores(func(ctx context.Context, cctx *cli.Context, s *stores) error {
	userID, err := requireArg(cctx, "user_id")
	if err != nil {
		return err
	}
	if err := s.moderation.AddToSet(ctx, domain.SetExempt, userID); err != nil {
		return err
	}
	fmt.Fprintf(cctx.App.Writer, "%s is now exempt\n", userID)
	return nil
})

var runExemptRemove = withStores(func(ctx context.Context, cctx *cli.Context, s *stores) error {
	userID, err := requireArg(cctx, "user_id")
	if err != nil {
		return err
	}
	if err := s.moderation.RemoveFromSet(ctx, domain.SetExempt, userID); err != nil {
		return err
	}
	fmt.Fprintf(cctx.App.Writer, "%s is no longer exempt\n", userID)
	return nil
})

var runReviewsPending = withStores(func(ctx context.Context, cctx *cli.Context, s *stores) error {
	pending, err := s.sqlite.ListPending(ctx)
	if err != nil {
		return err
	}
	for _, p := range pending {
		fmt.Fprintf(cctx.App.Writer, "%s\t%s\t%s\n", p.CaseID, p.UserID, p.OpenedAt.Format("2006-01-02 15:04"))
	}
	return nil
})

var runReviewsHistory = withStores(func(ctx context.Context, cctx *cli.Context, s *stores) error {
	userID, err := requireArg(cctx, "user_id")
	if err != nil {
		return err
	}
	records, err := s.sqlite.ListDecisions(ctx, userID, cctx.Int("limit"))
	if err != nil {
		return err
	}
	for _, r := range records {
		fmt.Fprintf(cctx.App.Writer, "%s\t%s\t%s\t%s\t%s\n",
			r.DecidedAt.Format("2006-01-02 15:04"), r.CaseID, r.Decision, r.Outcome, r.ActorID)
	}
	return nil
})
