package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"
	"github.com/gen2brain/beeep"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"hourglass/internal/analytics"
	"hourglass/internal/app"
	"hourglass/internal/db"
	"hourglass/internal/engine"
	"hourglass/internal/migrate"
	"hourglass/internal/repo"
	"hourglass/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "hg",
	Short: "Hourglass CLI",
	Long: `Hourglass tracks where your hours go: log activities against categories,
set weekly/monthly/custom goals, and read streaks, trends and dashboards
computed from what you actually logged.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("HOURGLASS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("user", "", "acting user email for local commands")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("user", rootCmd.PersistentFlags().Lookup("user"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(categoryCmd())
	rootCmd.AddCommand(activityCmd())
	rootCmd.AddCommand(goalCmd())
	rootCmd.AddCommand(dashboardCmd())
	rootCmd.AddCommand(trendCmd())
	rootCmd.AddCommand(streaksCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(eventsCmd())
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := app.ResolveConfig(workspace)
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg)
	return fn(ctx, e)
}

func withOwner(ctx context.Context, fn func(context.Context, engine.Engine, int64) error) error {
	return withEngine(ctx, func(ctx context.Context, e engine.Engine) error {
		ownerID, err := app.ResolveUser(ctx, e, viper.GetString("user"))
		if err != nil {
			return err
		}
		return fn(ctx, e, ownerID)
	})
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfg, err := app.ResolveConfig(workspace)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			if basePath == "" {
				basePath = cfg.Server.BasePath
			}
			e := engine.New(conn, cfg)
			authCfg := server.AuthConfig{
				JWTSecret:    os.Getenv("HOURGLASS_JWT_SECRET"),
				TokenTTL:     time.Duration(cfg.Auth.TokenTTLMinutes) * time.Minute,
				AllowAPIKeys: cfg.Auth.AllowAPIKeys,
			}
			if authCfg.JWTSecret == "" {
				return fmt.Errorf("HOURGLASS_JWT_SECRET is required for bearer auth")
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Hourglass API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (default from config)")
	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "user", Short: "Manage users"}
	cmd.AddCommand(userRegisterCmd())
	return cmd
}

func userRegisterCmd() *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.RegisterUser(ctx, name, email, password)
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func categoryCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "category", Short: "Manage categories"}
	cmd.AddCommand(categoryAddCmd(), categoryListCmd(), categoryRmCmd())
	return cmd
}

func categoryAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOwner(cmd.Context(), func(ctx context.Context, e engine.Engine, ownerID int64) error {
				c, err := e.CreateCategory(ctx, ownerID, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	return cmd
}

func categoryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOwner(cmd.Context(), func(ctx context.Context, e engine.Engine, ownerID int64) error {
				items, err := e.Repo.ListCategories(ctx, ownerID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Created"})
				for _, c := range items {
					tw.AppendRow(table.Row{c.ID, c.Name, c.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func categoryRmCmd() *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "rm",
		Short: "Delete a category",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOwner(cmd.Context(), func(ctx context.Context, e engine.Engine, ownerID int64) error {
				return e.DeleteCategory(ctx, ownerID, id)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "category id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func activityCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "activity", Short: "Log and inspect activities"}
	cmd.AddCommand(activityLogCmd(), activityListCmd(), activityRmCmd(), activitySummaryCmd())
	return cmd
}

func activityLogCmd() *cobra.Command {
	var categoryID int64
	var date string
	var hours float64
	var notify bool
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Log hours against a category",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOwner(cmd.Context(), func(ctx context.Context, e engine.Engine, ownerID int64) error {
				if date == "" {
					date = time.Now().UTC().Format(time.DateOnly)
				}
				var completedBefore map[int64]bool
				if notify {
					var err error
					if completedBefore, err = completedGoals(ctx, e, ownerID); err != nil {
						return err
					}
				}
				a, err := e.LogActivity(ctx, engine.ActivityOptions{
					OwnerID:       ownerID,
					CategoryID:    categoryID,
					Date:          date,
					DurationHours: hours,
				})
				if err != nil {
					return err
				}
				if notify {
					notifyNewCompletions(ctx, e, ownerID, completedBefore)
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().Int64Var(&categoryID, "category", 0, "category id")
	cmd.Flags().StringVar(&date, "date", "", "day YYYY-MM-DD (default today)")
	cmd.Flags().Float64Var(&hours, "hours", 0, "duration in hours")
	cmd.Flags().BoolVar(&notify, "notify", false, "desktop notification when this log completes a goal")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("hours")
	return cmd
}

func completedGoals(ctx context.Context, e engine.Engine, ownerID int64) (map[int64]bool, error) {
	goals, err := e.Repo.ListGoals(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	done := make(map[int64]bool, len(goals))
	for _, g := range goals {
		p, err := e.Analytics().Progress(ctx, g)
		if err != nil {
			return nil, err
		}
		if p.Status == analytics.GoalCompleted {
			done[g.ID] = true
		}
	}
	return done, nil
}

func notifyNewCompletions(ctx context.Context, e engine.Engine, ownerID int64, before map[int64]bool) {
	goals, err := e.Repo.ListGoals(ctx, ownerID)
	if err != nil {
		return
	}
	beeep.AppName = "Hourglass"
	for _, g := range goals {
		if before[g.ID] {
			continue
		}
		p, err := e.Analytics().Progress(ctx, g)
		if err != nil || p.Status != analytics.GoalCompleted {
			continue
		}
		_ = beeep.Notify("Goal completed", fmt.Sprintf("%s: %.1f/%.1f hours", g.Title, p.CurrentHours, p.TargetHours), "")
	}
}

func activityListCmd() *cobra.Command {
	var from, to string
	var categoryID int64
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List activities",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOwner(cmd.Context(), func(ctx context.Context, e engine.Engine, ownerID int64) error {
				items, err := e.Repo.ListActivities(ctx, repo.ActivityFilters{
					OwnerID:    ownerID,
					From:       from,
					To:         to,
					CategoryID: categoryID,
					Limit:      limit,
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Date", "Category", "Hours"})
				for _, a := range items {
					tw.AppendRow(table.Row{a.ID, a.Date, a.CategoryName, fmt.Sprintf("%.2f", a.DurationHours)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "start day YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "end day YYYY-MM-DD")
	cmd.Flags().Int64Var(&categoryID, "category", 0, "category filter")
	cmd.Flags().IntVar(&limit, "limit", 50, "max rows")
	return cmd
}

func activityRmCmd() *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "rm",
		Short: "Delete an activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOwner(cmd.Context(), func(ctx context.Context, e engine.Engine, ownerID int64) error {
				return e.DeleteActivity(ctx, ownerID, id)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "activity id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func activitySummaryCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Total hours for one day",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOwner(cmd.Context(), func(ctx context.Context, e engine.Engine, ownerID int64) error {
				if date == "" {
					date = time.Now().UTC().Format(time.DateOnly)
				}
				day, err := analytics.ParseDay(date)
				if err != nil {
					return fmt.Errorf("date must be YYYY-MM-DD")
				}
				hours, err := e.Analytics().DailyDuration(ctx, ownerID, day)
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"date": date, "hours": hours})
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day YYYY-MM-DD (default today)")
	return cmd
}

func goalCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "goal", Short: "Manage goals"}
	cmd.AddCommand(goalAddCmd(), goalListCmd(), goalRmCmd(), goalProgressCmd())
	return cmd
}

func goalAddCmd() *cobra.Command {
	var opts engine.GoalCreateOptions
	var categoryID int64
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a goal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOwner(cmd.Context(), func(ctx context.Context, e engine.Engine, ownerID int64) error {
				opts.OwnerID = ownerID
				if categoryID > 0 {
					opts.CategoryID = &categoryID
				}
				g, err := e.CreateGoal(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(g)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Title, "title", "", "goal title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "goal description")
	cmd.Flags().StringVar(&opts.Type, "type", "weekly", "weekly|monthly|custom")
	cmd.Flags().Float64Var(&opts.TargetHours, "target", 0, "target hours")
	cmd.Flags().Int64Var(&categoryID, "category", 0, "restrict to category id")
	cmd.Flags().StringVar(&opts.StartDate, "start", "", "custom goal start YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.EndDate, "end", "", "custom goal end YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func goalListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List goals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOwner(cmd.Context(), func(ctx context.Context, e engine.Engine, ownerID int64) error {
				goals, err := e.Repo.ListGoals(ctx, ownerID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(goals)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Type", "Target", "Window", "Category"})
				for _, g := range goals {
					tw.AppendRow(table.Row{g.ID, g.Title, g.Type, fmt.Sprintf("%.1f", g.TargetHours), g.StartDate + ".." + g.EndDate, g.CategoryName})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func goalRmCmd() *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "rm",
		Short: "Delete a goal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOwner(cmd.Context(), func(ctx context.Context, e engine.Engine, ownerID int64) error {
				return e.DeleteGoal(ctx, ownerID, id)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "goal id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func goalProgressCmd() *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show goal progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOwner(cmd.Context(), func(ctx context.Context, e engine.Engine, ownerID int64) error {
				p, err := e.GoalProgress(ctx, ownerID, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "goal id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Summary of recent activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOwner(cmd.Context(), func(ctx context.Context, e engine.Engine, ownerID int64) error {
				d, err := e.Analytics().DashboardSummary(ctx, ownerID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(d)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendRow(table.Row{"Today", fmt.Sprintf("%.2f h", d.TodayHours)})
				tw.AppendRow(table.Row{"Last 7 days", fmt.Sprintf("%.2f h", d.WeekHours)})
				tw.AppendRow(table.Row{"Last 30 days", fmt.Sprintf("%.2f h", d.MonthHours)})
				tw.AppendRow(table.Row{"Current streak", fmt.Sprintf("%d days", d.CurrentStreak)})
				tw.AppendRow(table.Row{"Longest streak", fmt.Sprintf("%d days", d.LongestStreak)})
				tw.AppendRow(table.Row{"Avg active day", fmt.Sprintf("%.2f h", d.AverageDailyHours)})
				if d.MostActiveDay != "" {
					tw.AppendRow(table.Row{"Most active day", fmt.Sprintf("%s (%.2f h)", d.MostActiveDay, d.MostActiveHours)})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func trendCmd() *cobra.Command {
	var period, start, end string
	var chart bool
	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Daily hours over a window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOwner(cmd.Context(), func(ctx context.Context, e engine.Engine, ownerID int64) error {
				var startPtr, endPtr *time.Time
				if period == analytics.PeriodCustom {
					s, err := analytics.ParseDay(start)
					if err != nil {
						return fmt.Errorf("--start must be YYYY-MM-DD")
					}
					t, err := analytics.ParseDay(end)
					if err != nil {
						return fmt.Errorf("--end must be YYYY-MM-DD")
					}
					startPtr, endPtr = &s, &t
				}
				report, err := e.Analytics().Trend(ctx, ownerID, period, startPtr, endPtr)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(report)
				}
				if chart {
					fmt.Println(renderTrendChart(report))
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendRow(table.Row{"Window", report.StartDate + ".." + report.EndDate})
				tw.AppendRow(table.Row{"Total", fmt.Sprintf("%.2f h", report.TotalHours)})
				tw.AppendRow(table.Row{"Average/day", fmt.Sprintf("%.2f h", report.AverageHours)})
				if report.PeakDay != "" {
					tw.AppendRow(table.Row{"Peak day", fmt.Sprintf("%s (%.2f h)", report.PeakDay, report.PeakHours)})
				}
				tw.AppendRow(table.Row{"Active days", fmt.Sprintf("%d/%d", report.ActiveDays, report.TotalDays)})
				tw.AppendRow(table.Row{"Completion", fmt.Sprintf("%.0f%%", report.CompletionRate*100)})
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&period, "period", analytics.PeriodWeekly, "weekly|monthly|custom")
	cmd.Flags().StringVar(&start, "start", "", "custom start YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "end", "", "custom end YYYY-MM-DD")
	cmd.Flags().BoolVar(&chart, "chart", false, "render a bar chart")
	return cmd
}

func renderTrendChart(report analytics.TrendReport) string {
	width := 4 * len(report.Buckets)
	if width < 20 {
		width = 20
	}
	if width > 120 {
		width = 120
	}
	bc := barchart.New(width, 12)
	barStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	for _, b := range report.Buckets {
		day, err := analytics.ParseDay(b.Date)
		label := b.Date
		if err == nil {
			label = day.Format("02")
		}
		bc.Push(barchart.BarData{
			Label:  label,
			Values: []barchart.BarValue{{Name: b.Date, Value: b.Hours, Style: barStyle}},
		})
	}
	bc.Draw()
	return bc.View()
}

func streaksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "streaks",
		Short: "Current and longest streak",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOwner(cmd.Context(), func(ctx context.Context, e engine.Engine, ownerID int64) error {
				svc := e.Analytics()
				current, err := svc.CurrentStreak(ctx, ownerID)
				if err != nil {
					return err
				}
				longest, err := svc.LongestStreak(ctx, ownerID)
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]int{"current_streak": current, "longest_streak": longest})
			})
		},
	}
}

func apikeyCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOwner(cmd.Context(), func(ctx context.Context, e engine.Engine, ownerID int64) error {
				name, _ := cmd.Flags().GetString("name")
				key, raw, err := e.CreateAPIKey(ctx, ownerID, name)
				if err != nil {
					return err
				}
				fmt.Printf("key: %s (shown once)\n", raw)
				return printJSONOrTable(key)
			})
		},
	}
	create.Flags().String("name", "", "key name")
	list := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOwner(cmd.Context(), func(ctx context.Context, e engine.Engine, ownerID int64) error {
				keys, err := e.Repo.ListAPIKeys(ctx, ownerID)
				if err != nil {
					return err
				}
				return printJSONOrTable(keys)
			})
		},
	}
	revoke := &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOwner(cmd.Context(), func(ctx context.Context, e engine.Engine, ownerID int64) error {
				return e.RevokeAPIKey(ctx, ownerID, args[0])
			})
		},
	}
	cmd.AddCommand(create, list, revoke)
	return cmd
}

func eventsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Tail the audit event log",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOwner(cmd.Context(), func(ctx context.Context, e engine.Engine, ownerID int64) error {
				items, err := e.Repo.LatestEvents(ctx, limit, ownerID, "", "")
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "TS", "Type", "Entity"})
				for _, evt := range items {
					tw.AppendRow(table.Row{evt.ID, evt.TS, evt.Type, evt.EntityKind + "/" + evt.EntityID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max events")
	return cmd
}
