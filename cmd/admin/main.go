package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"sampark/backend/internal/config"
	"sampark/backend/internal/grievance"
	"sampark/backend/internal/localization"
	"sampark/backend/internal/models"
	"sampark/backend/internal/storage"
	"sampark/backend/internal/telegram"
	"sampark/backend/internal/tracker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const cliActor = "admin-cli"

type app struct {
	store      *storage.Service
	grievances *grievance.Service
	notifier   *telegram.Notifier
}

// newApp wires the lifecycle the way the API server does, so a change made
// here invalidates owner lists and reaches live trackers through Redis.
func newApp(s *storage.Service, rdb *redis.Client, cfg *config.Config) *app {
	cache := storage.NewCache(rdb, cfg.CacheTTL)
	cache.Timeout = cfg.CacheTimeout

	a := &app{store: s, grievances: grievance.NewService(s, cache, prometheus.NewRegistry())}
	if rdb != nil {
		// Трекери слухають канал у процесі API, хаб тут лише публікує
		a.grievances.Subscribe(tracker.NewHub(rdb))
	} else {
		log.Println("WARNING: REDIS_ADDR not set, live trackers will not see changes made here")
	}
	return a
}

func connect(cfg *config.Config) (*app, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	var rdb *redis.Client
	if cfg.CacheConfigured() {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	}
	a := newApp(storage.NewStorageService(db), rdb, cfg)

	if cfg.TelegramBotToken != "" {
		loc, err := localization.Default()
		if err != nil {
			return nil, fmt.Errorf("failed to load locales: %w", err)
		}
		notifier, _, err := telegram.NewNotifier(cfg.TelegramBotToken, cfg.TelegramChatID, loc, cfg.TelegramLang)
		if err != nil {
			log.Printf("WARNING: Telegram notifier disabled: %v", err)
		} else {
			a.notifier = notifier
			a.grievances.Subscribe(notifier)
		}
	}
	return a, nil
}

// flush delivers queued notifications before the process exits.
func (a *app) flush(ctx context.Context) {
	if a != nil && a.notifier != nil {
		a.notifier.Flush(ctx)
	}
}

// resolve accepts either an internal id or a tracking code.
func (a *app) resolve(ctx context.Context, ref string) (*models.Grievance, error) {
	if strings.HasPrefix(strings.ToUpper(ref), config.TrackingIDPrefix) {
		return a.grievances.TrackByCode(ctx, ref)
	}
	return a.grievances.Get(ctx, ref)
}

func listCommand(a **app) *cobra.Command {
	var filter storage.GrievanceFilter
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List grievances, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if status != "" {
				parsed, ok := models.ParseStatus(status)
				if !ok {
					return fmt.Errorf("unknown status %q", status)
				}
				filter.Status = parsed
			}
			filter.Category = models.Category(strings.ToUpper(string(filter.Category)))
			page, err := (*a).grievances.List(cmd.Context(), filter)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TRACKING ID\tSTATUS\tCATEGORY\tPRIORITY\tTITLE")
			for _, g := range page.Grievances {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", g.TrackingID, g.CurrentStatus, g.Category, g.Priority, g.Title)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "page %d of %d (%d total)\n",
				page.Pagination.CurrentPage, page.Pagination.TotalPages, page.Pagination.TotalCount)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by current status")
	cmd.Flags().StringVar((*string)(&filter.Category), "category", "", "filter by category")
	cmd.Flags().StringVar(&filter.Search, "search", "", "match title, description or tracking code")
	cmd.Flags().IntVar(&filter.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&filter.Limit, "limit", config.DefaultPageSize, "page size")
	return cmd
}

func transitionCommand(a **app) *cobra.Command {
	var comment string
	cmd := &cobra.Command{
		Use:   "transition <id|tracking-code> <status>",
		Short: "Record a new status for a grievance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := (*a).resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			entry, _, err := (*a).grievances.Transition(cmd.Context(), g.ID, args[1], comment, cliActor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Grievance %s is now %s\n", g.TrackingID, entry.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&comment, "comment", "", "comment stored with the status")
	return cmd
}

func deleteCommand(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id|tracking-code>",
		Short: "Delete a grievance and its status history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := (*a).resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := (*a).grievances.Delete(cmd.Context(), g.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Grievance %s has been deleted.\n", g.TrackingID)
			return nil
		},
	}
}

func roleCommand(a **app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-role <email> <USER|ADMIN>",
		Short: "Change the role of an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, ok := models.ParseRole(args[1])
			if !ok {
				return fmt.Errorf("unknown role %q", args[1])
			}
			user, err := (*a).store.GetUserByEmail(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if _, err := (*a).store.UpdateUserRole(cmd.Context(), user.ID, role); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %s is now %s.\n", user.Email, role)
			return nil
		},
	}
}

func main() {
	var a *app
	rootCmd := &cobra.Command{
		Use:           "admin",
		Short:         "Sampark maintenance commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a, err = connect(cfg)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.flush(cmd.Context())
		},
	}
	rootCmd.AddCommand(
		listCommand(&a),
		transitionCommand(&a),
		deleteCommand(&a),
		roleCommand(&a),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Printf("ERROR: %v", err)
		os.Exit(1)
	}
}
