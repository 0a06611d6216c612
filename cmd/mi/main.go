package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/config"
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/db"
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/delay"
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/domain"
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/engine"
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/migrate"
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/repo"
	"github.com/fabiomilennials1234-a11y/Milennialsinterno-sub006/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "mi",
	Short: "Miops CLI",
	Long: `Miops is the internal operations backend: client health tracking,
delay detection, justification workflow and per-manager reporting.
Data lives in the .miops workspace; mi serve exposes the HTTP API.`,
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
	viper.SetEnvPrefix("MIOPS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(managerCmd())
	rootCmd.AddCommand(clientCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(okrCmd())
	rootCmd.AddCommand(pendingCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(tokenCmd())
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			cfgPath := config.Path(workspace)
			if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
				if err := os.WriteFile(cfgPath, []byte(config.GenerateDefault()), 0o644); err != nil {
					return err
				}
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			fmt.Printf("initialized workspace at %s (config %s)\n", db.Path(workspace), cfgPath)
			return nil
		},
	}
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
			cfg, err := config.Load(workspace)
			if err != nil {
				return err
			}
			e := engine.New(conn, cfg)
			authCfg := server.AuthConfig{JWTSecret: os.Getenv("MIOPS_JWT_SECRET")}
			if authCfg.JWTSecret == "" {
				return fmt.Errorf("MIOPS_JWT_SECRET is required for bearer auth")
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			startDelayPoller(ctx, e, cfg)

			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-ctx.Done()
				shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
				defer stop()
				srv.Shutdown(shutdownCtx)
			}()
			fmt.Printf("Serving Miops API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path")
	return cmd
}

// startDelayPoller keeps the pending-count log line fresh: it
// recomputes on the configured interval, on tracking or task changes,
// and at civil midnight when records silently become pending.
func startDelayPoller(ctx context.Context, e engine.Engine, cfg *config.Config) {
	logger := log.New(os.Stderr, "", log.LstdFlags)
	changes, unsubscribe := e.Notifier.Subscribe("tracking", "tasks")
	p := &delay.Poller{
		Interval: cfg.PollInterval(),
		Changes:  changes,
		Logger:   logger,
		Recompute: func(ctx context.Context) error {
			records, err := e.Repo.ListTracking(ctx, "")
			if err != nil {
				return err
			}
			pending := delay.PendingToday(records, time.Now(), cfg.Location())
			logger.Printf("delay check: %d of %d tracked clients pending", len(pending), len(records))
			return nil
		},
	}
	go func() {
		defer unsubscribe()
		p.Run(ctx)
	}()
}

func managerCmd() *cobra.Command {
	mgr := &cobra.Command{Use: "manager", Short: "Manage managers"}
	var name, email, department string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create manager",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				m, err := e.CreateManager(ctx, name, email, department)
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "manager name")
	create.Flags().StringVar(&email, "email", "", "email")
	create.Flags().StringVar(&department, "department", "", "department")
	_ = create.MarkFlagRequired("name")
	list := &cobra.Command{
		Use:   "list",
		Short: "List managers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListManagers(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	mgr.AddCommand(create, list)
	return mgr
}

func clientCmd() *cobra.Command {
	client := &cobra.Command{Use: "client", Short: "Manage clients"}
	client.AddCommand(clientCreateCmd())
	client.AddCommand(clientListCmd())
	client.AddCommand(clientLabelCmd())
	client.AddCommand(clientStatusCmd())
	client.AddCommand(clientContactCmd())
	client.AddCommand(clientMoveCmd())
	client.AddCommand(clientJustifyCmd())
	client.AddCommand(clientProductCmd())
	client.AddCommand(clientArchiveCmd())
	return client
}

func clientCreateCmd() *cobra.Command {
	var name, managerID, status string
	var monthlyValue float64
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create client",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.CreateClient(ctx, engine.ClientCreateOptions{
					Name:         name,
					ManagerID:    managerID,
					Status:       status,
					MonthlyValue: monthlyValue,
					ActorID:      viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "client name")
	cmd.Flags().StringVar(&managerID, "manager", "", "manager id")
	cmd.Flags().StringVar(&status, "status", "", "status (active, onboarding, paused, churned)")
	cmd.Flags().Float64Var(&monthlyValue, "monthly-value", 0, "monthly value")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("manager")
	return cmd
}

func clientListCmd() *cobra.Command {
	var managerID, status string
	var includeArchived bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListClients(ctx, repo.ClientFilters{
					ManagerID:       managerID,
					Status:          status,
					IncludeArchived: includeArchived,
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Label", "Classification", "Status", "Manager"})
				for _, c := range items {
					tw.AppendRow(table.Row{c.ID, c.Name, string(c.Label), c.Classification, c.Status, c.ManagerID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&managerID, "manager", "", "filter by manager")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().BoolVar(&includeArchived, "archived", false, "include archived")
	return cmd
}

func clientLabelCmd() *cobra.Command {
	var label string
	cmd := &cobra.Command{
		Use:   "label <client-id>",
		Short: "Set client label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.SetClientLabel(ctx, args[0], label, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "label (otimo, bom, medio, ruim; empty clears)")
	return cmd
}

func clientStatusCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "status <client-id>",
		Short: "Set client status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.SetClientStatus(ctx, args[0], status, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status (active, onboarding, paused, churned)")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func clientContactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contact <client-id>",
		Short: "Record a client contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.RecordContact(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
}

func clientMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <client-id>",
		Short: "Record a pipeline card move",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rec, err := e.MarkMoved(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(rec)
			})
		},
	}
}

func clientJustifyCmd() *cobra.Command {
	var text string
	cmd := &cobra.Command{
		Use:   "justify <client-id>",
		Short: "Justify a delayed client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.JustifyTracking(ctx, args[0], text, viper.GetString("actor-id")); err != nil {
					return err
				}
				rec, err := e.Repo.GetTracking(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(rec)
			})
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "justification text")
	return cmd
}

func clientProductCmd() *cobra.Command {
	var slug string
	var value float64
	cmd := &cobra.Command{
		Use:   "product <client-id>",
		Short: "Set a client product value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.UpsertClientProduct(ctx, args[0], slug, value, viper.GetString("actor-id")); err != nil {
					return err
				}
				items, err := e.Repo.ListClientProducts(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().StringVar(&slug, "slug", "", "product slug")
	cmd.Flags().Float64Var(&value, "value", 0, "monthly value")
	_ = cmd.MarkFlagRequired("slug")
	return cmd
}

func clientArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <client-id>",
		Short: "Archive a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.ArchiveClient(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}
}

func taskCmd() *cobra.Command {
	task := &cobra.Command{Use: "task", Short: "Manage tasks"}

	var kind, title, ownerID, dueDate string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create task",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.CreateTask(ctx, engine.TaskCreateOptions{
					Kind:    domain.TaskKind(kind),
					Title:   title,
					OwnerID: ownerID,
					DueDate: dueDate,
					ActorID: viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	create.Flags().StringVar(&kind, "kind", "department", "kind (ads, comercial, department)")
	create.Flags().StringVar(&title, "title", "", "title")
	create.Flags().StringVar(&ownerID, "owner", "", "owner manager id")
	create.Flags().StringVar(&dueDate, "due", "", "due date (YYYY-MM-DD)")
	_ = create.MarkFlagRequired("title")
	_ = create.MarkFlagRequired("owner")
	_ = create.MarkFlagRequired("due")

	var listKind, listOwner, listStatus string
	list := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListTasks(ctx, repo.TaskFilters{Kind: listKind, OwnerID: listOwner, Status: listStatus})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Kind", "Title", "Owner", "Due", "Status"})
				for _, t := range items {
					tw.AppendRow(table.Row{t.ID, string(t.Kind), t.Title, t.OwnerID, t.DueDate, t.Status})
				}
				tw.Render()
				return nil
			})
		},
	}
	list.Flags().StringVar(&listKind, "kind", "", "filter by kind")
	list.Flags().StringVar(&listOwner, "owner", "", "filter by owner")
	list.Flags().StringVar(&listStatus, "status", "", "filter by status")

	var status string
	setStatus := &cobra.Command{
		Use:   "status <task-id>",
		Short: "Set task status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.SetTaskStatus(ctx, args[0], status, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	setStatus.Flags().StringVar(&status, "status", "", "status (todo, doing, done)")
	_ = setStatus.MarkFlagRequired("status")

	var text string
	justify := &cobra.Command{
		Use:   "justify <task-id>",
		Short: "Justify an overdue task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.JustifyTask(ctx, args[0], text, viper.GetString("actor-id")); err != nil {
					return err
				}
				t, err := e.Repo.GetTask(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	justify.Flags().StringVar(&text, "text", "", "justification text")

	done := &cobra.Command{
		Use:   "done <task-id>",
		Short: "Mark a task done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.CompleteTask(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}

	archive := &cobra.Command{
		Use:   "archive <task-id>",
		Short: "Archive a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.ArchiveTask(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}

	task.AddCommand(create, list, setStatus, done, justify, archive)
	return task
}

func okrCmd() *cobra.Command {
	okr := &cobra.Command{Use: "okr", Short: "Manage OKRs"}

	var okrType, title string
	var target float64
	create := &cobra.Command{
		Use:   "create",
		Short: "Create OKR",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts := engine.OKRCreateOptions{
					Type:    okrType,
					Title:   title,
					ActorID: viper.GetString("actor-id"),
				}
				if cmd.Flags().Changed("target") {
					opts.TargetValue = &target
				}
				o, err := e.CreateOKR(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(o)
			})
		},
	}
	create.Flags().StringVar(&okrType, "type", "weekly", "type (annual, weekly)")
	create.Flags().StringVar(&title, "title", "", "title")
	create.Flags().Float64Var(&target, "target", 0, "target value")
	_ = create.MarkFlagRequired("title")

	var listType, listStatus string
	list := &cobra.Command{
		Use:   "list",
		Short: "List OKRs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListOKRs(ctx, listType, listStatus)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	list.Flags().StringVar(&listType, "type", "", "filter by type")
	list.Flags().StringVar(&listStatus, "status", "", "filter by status")

	var current float64
	progress := &cobra.Command{
		Use:   "progress <okr-id>",
		Short: "Update OKR progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				o, err := e.UpdateOKRProgress(ctx, args[0], current, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(o)
			})
		},
	}
	progress.Flags().Float64Var(&current, "current", 0, "current value")
	_ = progress.MarkFlagRequired("current")

	rollover := &cobra.Command{
		Use:   "rollover",
		Short: "Archive all active weekly OKRs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				n, err := e.ArchiveWeeklyOKRs(cmd.Context(), viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				fmt.Printf("archived %d weekly OKRs\n", n)
				return nil
			})
		},
	}

	archive := &cobra.Command{
		Use:   "archive <okr-id>",
		Short: "Archive an OKR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.ArchiveOKR(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}

	okr.AddCommand(create, list, progress, rollover, archive)
	return okr
}

func pendingCmd() *cobra.Command {
	var managerID string
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List pending items for a manager",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.PendingActions(ctx, managerID, time.Now())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Kind", "ID", "Title"})
				for _, item := range items {
					tw.AppendRow(table.Row{string(item.Kind), item.ID, item.Title})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&managerID, "manager", "", "manager id")
	_ = cmd.MarkFlagRequired("manager")
	return cmd
}

func reportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Per-manager portfolio summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				stats, err := e.ManagerReport(ctx, time.Now())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(stats)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Manager", "Otimo", "Bom", "Medio", "Ruim", "Unlabeled", "Total", "Churns", "Documented", "Health"})
				for _, s := range stats {
					tw.AppendRow(table.Row{
						s.ManagerName, s.Otimo, s.Bom, s.Medio, s.Ruim, s.Unlabeled,
						s.Total, s.ChurnsThisMonth, s.DocumentedYesterday, fmt.Sprintf("%d%%", s.HealthScore),
					})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func userCmd() *cobra.Command {
	user := &cobra.Command{Use: "user", Short: "Manage users and groups"}

	var email, name, role string
	bootstrap := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the first user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.BootstrapUser(ctx, email, name, role)
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	bootstrap.Flags().StringVar(&email, "email", "", "email")
	bootstrap.Flags().StringVar(&name, "name", "", "name")
	bootstrap.Flags().StringVar(&role, "role", "", "role (defaults to the privileged role)")
	_ = bootstrap.MarkFlagRequired("email")

	var cEmail, cName, cRole, cGroup string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.CreateUser(ctx, engine.UserCreateOptions{
					Email:   cEmail,
					Name:    cName,
					Role:    cRole,
					GroupID: cGroup,
					ActorID: viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	create.Flags().StringVar(&cEmail, "email", "", "email")
	create.Flags().StringVar(&cName, "name", "", "name")
	create.Flags().StringVar(&cRole, "role", "", "role")
	create.Flags().StringVar(&cGroup, "group", "", "group id")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("role")

	list := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListUsers(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <user-id>",
		Short: "Delete user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteUser(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}

	var groupName string
	groupCreate := &cobra.Command{
		Use:   "group-create",
		Short: "Create group",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				g, err := e.CreateGroup(ctx, groupName, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(g)
			})
		},
	}
	groupCreate.Flags().StringVar(&groupName, "name", "", "group name")
	_ = groupCreate.MarkFlagRequired("name")

	var deleteUsers bool
	groupDelete := &cobra.Command{
		Use:   "group-delete <group-id>",
		Short: "Delete group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteGroup(ctx, args[0], deleteUsers, viper.GetString("actor-id"))
			})
		},
	}
	groupDelete.Flags().BoolVar(&deleteUsers, "delete-users", false, "also delete member accounts")

	user.AddCommand(bootstrap, create, list, del, groupCreate, groupDelete)
	return user
}

func logCmd() *cobra.Command {
	logRoot := &cobra.Command{Use: "log", Short: "Event log"}
	var n int
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				events, err := r.LatestEvents(ctx, n)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	tail.Flags().IntVar(&n, "n", 20, "number of events")
	logRoot.AddCommand(tail)
	return logRoot
}

func tokenCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue a bearer token (requires MIOPS_JWT_SECRET)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("MIOPS_JWT_SECRET")
			if secret == "" {
				return fmt.Errorf("MIOPS_JWT_SECRET is required")
			}
			token, err := server.IssueToken(secret, args[0], role)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "role claim")
	return cmd
}

// --- helpers ---

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
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg)
	return fn(ctx, e)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
