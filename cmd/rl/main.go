package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"rotaline/internal/app"
	"rotaline/internal/config"
	"rotaline/internal/db"
	"rotaline/internal/domain"
	"rotaline/internal/engine"
	"rotaline/internal/export"
	"rotaline/internal/migrate"
	"rotaline/internal/rota"
	"rotaline/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "rl",
	Short: "Rotaline CLI",
	Long: `Rotaline keeps the weekly staff rota and the project register of a team.
- Workspace: a directory holding .rotaline/rotaline.db, an optional rotaline.yml and an optional .env.
- Rota: one activity per person per day, shown Monday to Sunday; engineering days add WIP or project work notes to a cell.
- Scopes: all (every active user), team (people sharing a team with you) or self.
- Projects: project initiation documents guarded by role based read/write ACLs.
- Event log: every edit is recorded, view with 'rl log tail'.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		envPath := filepath.Join(workspace, ".env")
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envPath, err)
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
	viper.SetEnvPrefix("ROTALINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().StringP("user", "u", "", "username acting on the rota")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("user", rootCmd.PersistentFlags().Lookup("user"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(teamCmd())
	rootCmd.AddCommand(companyCmd())
	rootCmd.AddCommand(roleCmd())
	rootCmd.AddCommand(apiKeyCmd())
	rootCmd.AddCommand(activityCmd())
	rootCmd.AddCommand(rotaCmd())
	rootCmd.AddCommand(engineeringDayCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(logCmd())
}

func initCmd() *cobra.Command {
	var adminUser, adminPassword string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the workspace, default config, JWT secret and admin user",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfgPath := config.Path(workspace)
			if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
				if err := os.WriteFile(cfgPath, []byte(config.GenerateDefault()), 0o644); err != nil {
					return err
				}
				fmt.Println("wrote", cfgPath)
			}
			envPath := filepath.Join(workspace, ".env")
			if viper.GetString("jwt-secret") == "" {
				secret, err := randomSecret()
				if err != nil {
					return err
				}
				if err := setEnvValue(envPath, "ROTALINE_JWT_SECRET", secret); err != nil {
					return err
				}
				fmt.Println("stored ROTALINE_JWT_SECRET in", envPath)
			}
			if adminPassword == "" {
				adminPassword = viper.GetString("admin-password")
			}
			if adminPassword == "" {
				return fmt.Errorf("--admin-password or ROTALINE_ADMIN_PASSWORD required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				created, err := app.EnsureAdmin(ctx, e, adminUser, adminPassword)
				if err != nil {
					return err
				}
				if created {
					fmt.Printf("created admin user %s\n", adminUser)
				} else {
					fmt.Printf("admin user %s already exists\n", adminUser)
				}
				version, err := migrate.Version(ctx, e.DB)
				if err != nil {
					return err
				}
				fmt.Printf("schema version %d\n", version)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&adminUser, "admin-user", "admin", "admin username")
	cmd.Flags().StringVar(&adminPassword, "admin-password", "", "admin password")
	return cmd
}

func configCmd() *cobra.Command {
	cfgCmd := &cobra.Command{Use: "config", Short: "Inspect rotaline.yml"}
	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSONOrTable(cfg)
		},
	})
	var file string
	validate := &cobra.Command{
		Use:   "validate",
		Short: "Validate rotaline.yml or the file given with --file",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if file != "" {
				_, err = config.FromFile(file)
			} else {
				_, err = config.Load(viper.GetString("workspace"))
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config ok")
			return nil
		},
	}
	validate.Flags().StringVar(&file, "file", "", "config file to validate instead of the workspace one")
	cfgCmd.AddCommand(validate)
	return cfgCmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := viper.GetString("addr")
			basePath := viper.GetString("base-path")
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				authCfg := server.AuthConfig{
					JWTSecret: viper.GetString("jwt-secret"),
					TokenTTL:  viper.GetDuration("token-ttl"),
				}
				if authCfg.JWTSecret == "" {
					return fmt.Errorf("ROTALINE_JWT_SECRET is required for bearer auth; run rl init")
				}
				handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg, Logger: e.Logger})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				e.Logger.Info("serving rotaline api", "addr", addr, "base_path", basePath, "docs", "/docs")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().String("addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().String("base-path", "/v0", "API base path")
	cmd.Flags().Duration("token-ttl", 12*time.Hour, "lifetime of issued bearer tokens")
	_ = viper.BindPFlag("addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("base-path", cmd.Flags().Lookup("base-path"))
	_ = viper.BindPFlag("token-ttl", cmd.Flags().Lookup("token-ttl"))
	return cmd
}

func userCmd() *cobra.Command {
	usr := &cobra.Command{Use: "user", Short: "Manage users"}
	usr.AddCommand(userCreateCmd())
	usr.AddCommand(userListCmd())
	usr.AddCommand(userPasswdCmd())
	usr.AddCommand(userActiveCmd("deactivate", false))
	usr.AddCommand(userActiveCmd("activate", true))
	return usr
}

func userCreateCmd() *cobra.Command {
	var opts engine.UserCreateOptions
	cmd := &cobra.Command{
		Use:   "create <username>",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Username = args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.CreateUser(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	cmd.Flags().StringVar(&opts.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&opts.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email address")
	cmd.Flags().StringVar(&opts.Password, "password", "", "password (leave empty for API key only users)")
	cmd.Flags().StringSliceVar(&opts.Roles, "role", nil, "role id (repeatable)")
	cmd.Flags().StringSliceVar(&opts.Teams, "team", nil, "team name (repeatable, created on demand)")
	return cmd
}

func userListCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				users, err := e.Repo.ListUsers(ctx, !all)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(users)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Username", "Name", "Email", "Active"})
				for _, u := range users {
					tw.AppendRow(table.Row{u.ID, u.Username, u.FullName(), u.Email, u.IsActive})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include inactive users")
	return cmd
}

func userPasswdCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "passwd <username>",
		Short: "Set a user's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.SetPassword(ctx, args[0], password)
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "new password")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func userActiveCmd(use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <username>",
		Short: strings.ToUpper(use[:1]) + use[1:] + " a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.Repo.GetUserByUsername(ctx, nil, args[0])
				if err != nil {
					return err
				}
				return e.Repo.SetUserActive(ctx, u.ID, active)
			})
		},
	}
}

func teamCmd() *cobra.Command {
	team := &cobra.Command{Use: "team", Short: "Manage teams"}
	team.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List teams",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				teams, err := e.Repo.ListTeams(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(teams)
			})
		},
	})
	team.AddCommand(&cobra.Command{
		Use:   "remove-member <team> <username>",
		Short: "Remove a user from a team",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.RemoveTeamMember(ctx, args[0], args[1])
			})
		},
	})
	team.AddCommand(&cobra.Command{
		Use:   "add-member <team> <username>",
		Short: "Add a user to a team, creating the team when missing",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.AddTeamMember(ctx, args[0], args[1])
			})
		},
	})
	return team
}

func companyCmd() *cobra.Command {
	co := &cobra.Command{Use: "company", Short: "Manage companies"}
	co.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Create a company",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.CreateCompany(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	})
	var all bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List companies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListCompanies(ctx, !all)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	list.Flags().BoolVar(&all, "all", false, "include inactive companies")
	co.AddCommand(list)
	return co
}

func roleCmd() *cobra.Command {
	role := &cobra.Command{Use: "role", Short: "Grant and revoke roles"}
	for _, grant := range []bool{true, false} {
		use, short := "grant", "Grant a role to a user"
		if !grant {
			use, short = "revoke", "Revoke a role from a user"
		}
		grant := grant
		role.AddCommand(&cobra.Command{
			Use:   use + " <username> <role>",
			Short: short,
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
					return e.GrantRole(ctx, args[0], args[1], grant)
				})
			},
		})
	}
	return role
}

func apiKeyCmd() *cobra.Command {
	keys := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	var name string
	create := &cobra.Command{
		Use:   "create <username>",
		Short: "Create an API key; the secret is shown once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				key, secret, err := e.CreateAPIKey(ctx, args[0], name)
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"id": key.ID, "name": key.Name, "key": secret})
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "label for the key")
	keys.AddCommand(create)
	keys.AddCommand(&cobra.Command{
		Use:   "list <username>",
		Short: "List a user's API keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.Repo.GetUserByUsername(ctx, nil, args[0])
				if err != nil {
					return err
				}
				items, err := e.Repo.ListAPIKeys(ctx, u.ID)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	})
	keys.AddCommand(&cobra.Command{
		Use:   "revoke <id>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.Repo.DeleteAPIKey(ctx, args[0])
			})
		},
	})
	return keys
}

func activityCmd() *cobra.Command {
	act := &cobra.Command{Use: "activity", Short: "Manage the rota activity catalog"}
	act.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List activities",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListActivities(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Description"})
				for _, a := range items {
					tw.AppendRow(table.Row{a.ID, a.Name, a.Description})
				}
				tw.Render()
				return nil
			})
		},
	})
	var desc string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.AddActivity(ctx, strings.TrimSpace(args[0]), desc)
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	add.Flags().StringVar(&desc, "description", "", "description")
	act.AddCommand(add)
	return act
}

func rotaCmd() *cobra.Command {
	r := &cobra.Command{Use: "rota", Short: "View, edit and export the weekly rota"}
	r.AddCommand(rotaShowCmd())
	r.AddCommand(rotaEditCmd())
	r.AddCommand(rotaExportCmd())
	return r
}

type weekFlags struct {
	scope string
	date  string
}

func (f *weekFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.scope, "scope", engine.ScopeTeam, "all, team or self")
	cmd.Flags().StringVar(&f.date, "date", "", "any date inside the week (YYYY-MM-DD); defaults to today")
}

func (f *weekFlags) view(ctx context.Context, e engine.Engine) (engine.RotaView, error) {
	requester, err := actingUser(ctx, e)
	if err != nil {
		return engine.RotaView{}, err
	}
	opts := engine.ViewRotaOptions{RequesterID: requester.ID, Scope: f.scope}
	if f.date != "" {
		day, err := rota.ParseDay(f.date)
		if err != nil {
			return engine.RotaView{}, err
		}
		opts.Year, opts.Month, opts.Day = day.Year, int(day.Month), day.Day
	}
	return e.ViewRota(ctx, opts)
}

func rotaShowCmd() *cobra.Command {
	var wf weekFlags
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a week of the rota",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				view, err := wf.view(ctx, e)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(view.Rows)
				}
				headers := export.DayHeaders(view.Week)
				header := table.Row{"Name"}
				for _, h := range headers {
					header = append(header, h)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.SetTitle(export.Title(view.Week))
				tw.AppendHeader(header)
				for _, row := range view.Rows {
					out := table.Row{row.Person.Name}
					for _, cell := range row.Cells {
						out = append(out, strings.Join(export.CellLines(cell), "\n"))
					}
					tw.AppendRow(out)
					tw.AppendSeparator()
				}
				tw.Render()
				return nil
			})
		},
	}
	wf.register(cmd)
	return cmd
}

func rotaEditCmd() *cobra.Command {
	var activity string
	cmd := &cobra.Command{
		Use:   "edit <username> <YYYY-MM-DD>",
		Short: "Set the activity of a person on a date",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var y, m, d int
			if _, err := fmt.Sscanf(args[1], "%d-%d-%d", &y, &m, &d); err != nil {
				return fmt.Errorf("date %q: %w", args[1], rota.ErrInvalidDate)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				editor, err := actingUser(ctx, e)
				if err != nil {
					return err
				}
				act, err := findActivity(ctx, e, activity)
				if err != nil {
					return err
				}
				msg, err := e.EditRota(ctx, engine.EditRotaOptions{
					Year: y, Month: m, Day: d,
					ActivityID: act.ID,
					Username:   args[0],
					EditorID:   editor.ID,
				})
				if err != nil {
					return err
				}
				fmt.Println(msg)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&activity, "activity", "", "activity name or id")
	_ = cmd.MarkFlagRequired("activity")
	return cmd
}

func rotaExportCmd() *cobra.Command {
	var wf weekFlags
	var format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a week of the rota as PDF or HTML",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				view, err := wf.view(ctx, e)
				if err != nil {
					return err
				}
				if out == "" {
					out = fmt.Sprintf("rota-%s.%s", view.Week.Monday(), format)
				}
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				switch format {
				case "pdf":
					err = export.WritePDF(f, view.Week, view.Rows)
				case "html":
					err = export.WriteHTML(f, view.Week, view.Rows, wf.scope)
				default:
					err = fmt.Errorf("unknown format %q", format)
				}
				if err != nil {
					return err
				}
				fmt.Println("wrote", out)
				return f.Close()
			})
		},
	}
	wf.register(cmd)
	cmd.Flags().StringVar(&format, "format", "pdf", "pdf or html")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file")
	return cmd
}

func engineeringDayCmd() *cobra.Command {
	ed := &cobra.Command{Use: "eday", Short: "Book engineering days"}
	var opts engine.EngineeringDayOptions
	add := &cobra.Command{
		Use:   "add <username> <YYYY-MM-DD>",
		Short: "Book WIP or project work for a person on a date",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Username, opts.Date = args[0], args[1]
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actor, err := actingUser(ctx, e)
				if err != nil {
					return err
				}
				opts.Actor = actor.Username
				d, err := e.AddEngineeringDay(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	add.Flags().StringVar(&opts.DayType, "type", "Full Day", "day type")
	add.Flags().StringSliceVar(&opts.WIPItems, "wip", nil, "WIP item (repeatable)")
	add.Flags().StringSliceVar(&opts.WorkItems, "work", nil, "project work item (repeatable)")
	ed.AddCommand(add)
	return ed
}

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Manage projects"}
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectCreateCmd())
	prj.AddCommand(projectShowCmd())
	prj.AddCommand(projectUsersCmd())
	prj.AddCommand(projectACLCmd())
	return prj
}

func projectListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListProjects(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Number", "Name", "Status", "Sponsor"})
				for _, p := range items {
					tw.AppendRow(table.Row{p.Number, p.Name, p.Status, p.Sponsor})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func projectCreateCmd() *cobra.Command {
	var p domain.Project
	var readRoles, writeRoles []string
	cmd := &cobra.Command{
		Use:   "create <number>",
		Short: "Create project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p.Number = args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actor, err := actingUser(ctx, e)
				if err != nil {
					return err
				}
				created, err := e.CreateProject(ctx, engine.ProjectCreateOptions{
					Project:    p,
					ReadRoles:  readRoles,
					WriteRoles: writeRoles,
					ActorID:    actor.ID,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(created)
			})
		},
	}
	cmd.Flags().StringVar(&p.Name, "name", "", "project name")
	cmd.Flags().StringVar(&p.Status, "status", "", "project status")
	cmd.Flags().StringVar(&p.Sponsor, "sponsor", "", "project sponsor")
	cmd.Flags().StringVar(&p.Description, "description", "", "description")
	cmd.Flags().StringSliceVar(&readRoles, "read-role", nil, "role granted read access (repeatable)")
	cmd.Flags().StringSliceVar(&writeRoles, "write-role", nil, "role granted write access (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func projectShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <number>",
		Short: "Show a project initiation document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actor, err := actingUser(ctx, e)
				if err != nil {
					return err
				}
				p, err := e.GetPID(ctx, actor.ID, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
}

func projectUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users <number>",
		Short: "List users allowed to read a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				users, err := e.ProjectUsers(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(users)
			})
		},
	}
}

func projectACLCmd() *cobra.Command {
	acl := &cobra.Command{Use: "acl", Short: "Manage project ACLs"}
	for _, grant := range []bool{true, false} {
		use := "grant"
		if !grant {
			use = "revoke"
		}
		grant := grant
		acl.AddCommand(&cobra.Command{
			Use:   use + " <number> <role> <read|write>",
			Short: strings.ToUpper(use[:1]) + use[1:] + " project access for a role",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
					actor, err := actingUser(ctx, e)
					if err != nil {
						return err
					}
					return e.SetProjectACL(ctx, actor.ID, args[0], args[1], args[2], grant)
				})
			},
		})
	}
	return acl
}

func logCmd() *cobra.Command {
	lg := &cobra.Command{Use: "log", Short: "Event log"}
	lg.AddCommand(logTailCmd())
	return lg
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				events, err := e.Repo.LatestEvents(ctx, n, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(events)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"TS", "Type", "Entity", "Actor", "Payload"})
				for _, ev := range events {
					tw.AppendRow(table.Row{ev.TS, ev.Type, ev.EntityKind + ":" + ev.EntityID, ev.Actor, ev.Payload})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

// --- helpers ---

func newLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log-level"))); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	e, closeFn, err := app.Open(ctx, viper.GetString("workspace"), newLogger())
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, e)
}

func actingUser(ctx context.Context, e engine.Engine) (domain.User, error) {
	username := strings.TrimSpace(viper.GetString("user"))
	if username == "" {
		return domain.User{}, fmt.Errorf("--user or ROTALINE_USER required")
	}
	return e.Repo.GetUserByUsername(ctx, nil, username)
}

func findActivity(ctx context.Context, e engine.Engine, ref string) (domain.RotaActivity, error) {
	items, err := e.Repo.ListActivities(ctx)
	if err != nil {
		return domain.RotaActivity{}, err
	}
	for _, a := range items {
		if strings.EqualFold(a.Name, ref) || fmt.Sprint(a.ID) == ref {
			return a, nil
		}
	}
	return domain.RotaActivity{}, fmt.Errorf("activity %q not found", ref)
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

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// setEnvValue sets key in the dotenv file at path, keeping the other entries.
func setEnvValue(path, key, value string) error {
	env, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		env = map[string]string{}
	} else if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	env[key] = value
	if err := godotenv.Write(env, path); err != nil {
		return err
	}
	return os.Chmod(path, 0o600)
}
