package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"ortholine/internal/app"
	"ortholine/internal/config"
	"ortholine/internal/domain"
	"ortholine/internal/engine"
	"ortholine/internal/ledger"
	"ortholine/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "ol",
	Short: "Ortholine CLI",
	Long: `Ortholine routes orthopedic and prosthetic orders between departments.
Core concepts:
- Order: one patient product request (prosthesis, footwear, orthosis, ottobock, repair, ready_made) with a workflow status.
- Workflow: draft -> medical_review -> chief_approval -> dispatcher_assignment -> in_production -> ready_for_fitting -> completed
- Exits: the chief doctor may reject (rejected) or return_for_revision (returned_for_revision) from chief_approval; both are final.
- Roles: registration, medical, chief_doctor, dispatcher, workshop, warehouse, administration. Each role may perform only its own actions.
- History: every accepted action appends one step; nothing is ever rewritten.
- Assignments: the dispatcher hands an order to a department with a priority and an estimated date.
- Notifications: each accepted action drops a message into the next role's inbox.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println("error:", err)
		stop()
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("ORTHOLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	rootCmd.PersistentFlags().String("role", "", "actor role (registration, medical, chief_doctor, dispatcher, workshop, warehouse, administration)")
	rootCmd.PersistentFlags().String("lang", "", "label language (ru or en, overrides config)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (overrides config)")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text or json (overrides config)")
	for _, name := range []string{"workspace", "json", "actor-id", "role", "lang", "log-level", "log-format"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(orderCmd())
	rootCmd.AddCommand(actionCmd())
	rootCmd.AddCommand(assignCmd())
	rootCmd.AddCommand(assignmentCmd())
	rootCmd.AddCommand(notifyCmd())
	rootCmd.AddCommand(dashboardCmd())
	rootCmd.AddCommand(rolesCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(serveCmd())
}

func orderCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "order", Short: "Register and inspect orders"}
	cmd.AddCommand(orderCreateCmd())
	cmd.AddCommand(orderListCmd())
	cmd.AddCommand(orderGetCmd())
	cmd.AddCommand(orderHistoryCmd())
	cmd.AddCommand(orderActionsCmd())
	return cmd
}

func orderCreateCmd() *cobra.Command {
	var id, productType, payload string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new order in draft",
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := currentActor()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				o, err := e.CreateOrder(ctx, engine.CreateOrderOptions{
					ID:          id,
					ProductType: domain.ProductType(productType),
					Payload:     json.RawMessage(payload),
					Actor:       actor,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(o)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "order id (generated when empty)")
	cmd.Flags().StringVar(&productType, "product-type", "", "prosthesis, footwear, orthosis, ottobock, repair or ready_made")
	cmd.Flags().StringVar(&payload, "payload", "", "order details as a JSON object")
	_ = cmd.MarkFlagRequired("product-type")
	return cmd
}

func orderListCmd() *cobra.Command {
	var status string
	var urgentOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List orders, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListOrders(ctx, domain.OrderFilter{Status: domain.Status(status)})
				if err != nil {
					return err
				}
				if urgentOnly {
					filtered := items[:0]
					for _, o := range items {
						if o.Urgent {
							filtered = append(filtered, o)
						}
					}
					items = filtered
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Product", "Status", "Urgent", "Created By", "Created At"})
				for _, o := range items {
					urgent := ""
					if o.Urgent {
						urgent = "!"
					}
					tw.AppendRow(table.Row{o.ID, o.ProductType, o.StatusLabel, urgent, o.CreatedBy, o.CreatedAt.Format(time.DateTime)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "workflow status filter")
	cmd.Flags().BoolVar(&urgentOnly, "urgent", false, "only urgent orders")
	return cmd
}

func orderGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <order-id>",
		Short: "Show one order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				o, err := e.GetOrder(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(o)
			})
		},
	}
}

func orderHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <order-id>",
		Short: "Show the workflow history of an order, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				steps, err := e.History(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(steps)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"#", "Action", "From", "To", "Status", "By", "At", "Comment"})
				for _, s := range steps {
					tw.AppendRow(table.Row{
						s.Seq,
						domain.ActionLabel(s.Action, e.Lang),
						s.FromDepartment,
						s.ToDepartment,
						domain.StatusLabel(s.ResultingStatus, e.Lang),
						s.PerformedBy,
						s.PerformedAt.Format(time.DateTime),
						s.Comments,
					})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func orderActionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "actions <order-id>",
		Short: "List actions the current role may perform on an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := currentActor()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actions, err := e.AvailableActions(ctx, args[0], actor.Role)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(actions)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Action", "Label", "Comment"})
				for _, a := range actions {
					comment := ""
					if a.RequiresComment() {
						comment = "required"
					}
					tw.AppendRow(table.Row{a, domain.ActionLabel(a, e.Lang), comment})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func actionCmd() *cobra.Command {
	var comment string
	cmd := &cobra.Command{
		Use:   "action <order-id> <action>",
		Short: "Apply a workflow action as the current role",
		Long:  "Actions: send_to_medical, send_to_chief, approve, reject, return_for_revision, mark_ready, complete. reject and return_for_revision need --comment. Use 'ol assign' for assign_to_production.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := currentActor()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				out, err := e.ApplyAction(ctx, engine.ActionRequest{
					OrderID: args[0],
					Actor:   actor,
					Action:  domain.Action(args[1]),
					Comment: comment,
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(out)
				}
				fmt.Printf("%s: %s -> %s (notified %s)\n", out.Order.ID,
					domain.StatusLabel(out.Step.FromStatus, e.Lang), out.Order.StatusLabel,
					domain.RoleLabel(out.Notification.RecipientRole, e.Lang))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&comment, "comment", "m", "", "comment recorded with the step")
	return cmd
}

func assignCmd() *cobra.Command {
	var department, priority, eta, comment string
	cmd := &cobra.Command{
		Use:   "assign <order-id>",
		Short: "Assign an approved order to a department",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := currentActor()
			if err != nil {
				return err
			}
			due, err := parseDate(eta)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				out, err := e.Assign(ctx, engine.AssignRequest{
					Request: ledger.Request{
						OrderID:                 args[0],
						Department:              domain.Department(department),
						Priority:                domain.Priority(priority),
						EstimatedCompletionDate: due,
						AssignedBy:              actor,
					},
					Comment: comment,
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(out)
				}
				fmt.Printf("%s assigned to %s (%s) until %s\n", out.Order.ID,
					domain.DepartmentLabel(out.Assignment.Department, e.Lang),
					domain.PriorityLabel(out.Assignment.Priority, e.Lang),
					out.Assignment.EstimatedCompletionDate.Format(time.DateOnly))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&department, "department", "workshop", "workshop, warehouse, medical or dispatcher")
	cmd.Flags().StringVar(&priority, "priority", "", "low, medium, high or urgent (default medium)")
	cmd.Flags().StringVar(&eta, "eta", "", "estimated completion date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVarP(&comment, "comment", "m", "", "note for the department")
	_ = cmd.MarkFlagRequired("eta")
	return cmd
}

func assignmentCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "assignment", Short: "Inspect and progress department assignments"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list <order-id>",
		Short: "List assignments of an order, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Assignments(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Department", "Priority", "Status", "Assigned By", "Assigned At", "ETA", "Overdue"})
				now := time.Now()
				for _, a := range items {
					overdue := ""
					if ledger.Overdue(a, now) {
						overdue = "!"
					}
					tw.AppendRow(table.Row{
						a.ID,
						domain.DepartmentLabel(a.Department, e.Lang),
						domain.PriorityLabel(a.Priority, e.Lang),
						a.Status,
						a.AssignedBy,
						a.AssignedAt.Format(time.DateTime),
						a.EstimatedCompletionDate.Format(time.DateOnly),
						overdue,
					})
				}
				tw.Render()
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "progress <order-id> <status>",
		Short: "Move the current assignment to assigned, in_progress, on_hold or completed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := currentActor()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.UpdateAssignment(ctx, args[0], domain.AssignmentStatus(args[1]), actor)
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	})
	return cmd
}

func notifyCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "notify", Short: "Read the current role's inbox"}
	cmd.AddCommand(notifyListCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "read <notification-id>",
		Short: "Mark a notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				found, err := e.MarkRead(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"id": args[0], "found": found})
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "read-all",
		Short: "Mark every unread notification of the current role as read",
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := currentActor()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				n, err := e.MarkAllRead(ctx, actor.Role)
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"updated": n})
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <notification-id>",
		Short: "Delete a notification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				found, err := e.DeleteNotification(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"id": args[0], "found": found})
			})
		},
	})
	return cmd
}

func notifyListCmd() *cobra.Command {
	var unread bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notifications, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := currentActor()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				inbox, err := e.Notifications(ctx, domain.NotificationFilter{RecipientRole: actor.Role, UnreadOnly: unread})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(inbox)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Order", "Title", "Priority", "Read", "Action", "Created At"})
				for _, n := range inbox.Items {
					read, required := "", ""
					if n.IsRead {
						read = "yes"
					}
					if n.ActionRequired {
						required = "required"
					}
					tw.AppendRow(table.Row{n.ID, n.OrderID, n.Title, domain.PriorityLabel(n.Priority, e.Lang), read, required, n.CreatedAt.Format(time.DateTime)})
				}
				tw.AppendFooter(table.Row{"", "", fmt.Sprintf("total %d, unread %d, urgent %d", inbox.Counts.Total, inbox.Counts.Unread, inbox.Counts.UnreadUrgent)})
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&unread, "unread", false, "only unread notifications")
	return cmd
}

func dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Summarize orders and the current role's inbox",
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := currentActor()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.Dashboard(ctx, actor.Role)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(d)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Status", "Orders"})
				for _, s := range domain.Statuses {
					if n := d.ByStatus[s]; n > 0 {
						tw.AppendRow(table.Row{domain.StatusLabel(s, e.Lang), n})
					}
				}
				tw.AppendFooter(table.Row{"Total", d.Total})
				tw.Render()
				fmt.Printf("urgent: %d, actionable for %s: %d, unread notifications: %d (%d urgent)\n",
					d.Urgent, domain.RoleLabel(d.Role, e.Lang), d.Actionable, d.Notifications.Unread, d.Notifications.UnreadUrgent)
				return nil
			})
		},
	}
}

func rolesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "roles", Short: "Inspect role permissions"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List roles and their workflow actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var all []any
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Role", "Label", "Actions"})
				for _, role := range e.Config.RoleNames() {
					caps, err := e.Capabilities(role)
					if err != nil {
						return err
					}
					all = append(all, caps)
					actions := make([]string, 0, len(caps.Actions))
					for _, a := range caps.Actions {
						actions = append(actions, string(a))
					}
					tw.AppendRow(table.Row{caps.Role, caps.Label, strings.Join(actions, ", ")})
				}
				if viper.GetBool("json") {
					return printJSON(all)
				}
				tw.Render()
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <role>",
		Short: "Show a role's actions, navigation and module rights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				caps, err := e.Capabilities(domain.Role(args[0]))
				if err != nil {
					return err
				}
				return printJSONOrTable(caps)
			})
		},
	})
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect workspace config",
		Long:  "Config is the rulebook in ortholine.yml: label language, the role permission table, the urgency threshold and logging. Without the file the built-in defaults apply.",
	}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	cfg.AddCommand(configInitCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cfg)
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	}
}

func configValidateCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = config.Path(viper.GetString("workspace"))
			}
			if _, err := config.FromFile(file); err != nil {
				return err
			}
			fmt.Printf("%s is valid\n", file)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "config file (default ortholine.yml in the workspace)")
	return cmd
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default ortholine.yml into the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		Long:  "Serves the order workflow over HTTP. Callers identify themselves with the X-Actor-Id and X-Actor-Role headers.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Open(cmd.Context(), appOptions())
			if err != nil {
				return err
			}
			defer a.Close()
			handler, err := server.New(server.Config{Engine: a.Engine, BasePath: basePath, Log: a.Log})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			a.Log.WithField("addr", addr).Infof("serving Ortholine API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at %s/docs)", addr, basePath, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			a.Log.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

func appOptions() app.Options {
	return app.Options{
		Workspace: viper.GetString("workspace"),
		LogLevel:  viper.GetString("log-level"),
		LogFormat: viper.GetString("log-format"),
		Lang:      viper.GetString("lang"),
	}
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	a, err := app.Open(ctx, appOptions())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a.Engine)
}

func currentActor() (domain.Actor, error) {
	role := domain.Role(viper.GetString("role"))
	if role == "" {
		return domain.Actor{}, fmt.Errorf("--role required (or ORTHOLINE_ROLE)")
	}
	if !role.Valid() {
		return domain.Actor{}, fmt.Errorf("unknown role %q", role)
	}
	return domain.Actor{ID: viper.GetString("actor-id"), Role: role}, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD or RFC3339", s)
	}
	return t.UTC(), nil
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
