package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/rvm-assignment-api/internal/dataset"
	"github.com/noah-isme/rvm-assignment-api/internal/dto"
	"github.com/noah-isme/rvm-assignment-api/internal/models"
	"github.com/noah-isme/rvm-assignment-api/internal/service"
	"github.com/noah-isme/rvm-assignment-api/pkg/export"
)

func withApp(run func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		return run(cmd, args, a)
	}
}

func generateCommand() *cobra.Command {
	var rosterPath, programPath, historyPath, week, date string
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate assignment proposals for one week",
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			ctx := cmd.Context()
			var req dto.GenerateWeekRequest
			if programPath != "" {
				program, err := dataset.ProgramFromFile(programPath)
				if err != nil {
					return err
				}
				req = program
			}
			if week != "" {
				req.WeekID = week
			}
			if date != "" {
				req.Date = date
			}
			req.DryRun = dryRun

			if rosterPath != "" {
				roster, err := dataset.RosterFromFile(rosterPath)
				if err != nil {
					return err
				}
				if err := a.store.SavePersons(ctx, roster); err != nil {
					return fmt.Errorf("save roster: %w", err)
				}
			}
			if historyPath != "" {
				doc, err := dataset.HistoryFromFile(historyPath)
				if err != nil {
					return err
				}
				if req.History, err = a.history.Prepare(doc); err != nil {
					return err
				}
			}

			resp, err := a.generation.Generate(ctx, req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		}),
	}
	cmd.Flags().StringVar(&rosterPath, "roster", "", "roster YAML file; replaces the stored roster")
	cmd.Flags().StringVar(&programPath, "program", "", "program YAML file; the default template is used when omitted")
	cmd.Flags().StringVar(&historyPath, "history", "", "history YAML file used instead of the stored history")
	cmd.Flags().StringVar(&week, "week", "", "week id, overrides the program file")
	cmd.Flags().StringVar(&date, "date", "", "meeting date YYYY-MM-DD, overrides the program file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print proposals without storing them")
	return cmd
}

func pendingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List assignments awaiting approval",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			items, err := a.workflow.ListPending(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), items)
		}),
	}
}

func weekCommand() *cobra.Command {
	var asCSV bool
	cmd := &cobra.Command{
		Use:   "week <week-id>",
		Short: "List a week's assignments in program order",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			if asCSV {
				payload, err := service.NewExportService(a.workflow, a.logger, export.NewCSVExporter(export.WithComma(a.cfg.Export.CSVDelimiter))).WeekCSV(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(payload)
				return err
			}
			items, err := a.workflow.ListByWeek(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), items)
		}),
	}
	cmd.Flags().BoolVar(&asCSV, "csv", false, "print a CSV sheet instead of JSON")
	return cmd
}

func actCommand() *cobra.Command {
	var reason, approverName, approverID string
	cmd := &cobra.Command{
		Use:   "act <assignment-id> <APPROVE|REJECT|COMPLETE>",
		Short: "Submit a workflow action",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			if approverName == "" {
				approverName = os.Getenv("USER")
			}
			approver := service.Approver{ID: approverID, Name: approverName}
			item, err := a.workflow.Submit(cmd.Context(), args[0], args[1], approver, reason)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), item)
		}),
	}
	cmd.Flags().StringVar(&reason, "reason", "", "rejection reason")
	cmd.Flags().StringVar(&approverName, "as", "", "approver display name (default $USER)")
	cmd.Flags().StringVar(&approverID, "approver-id", "", "approver id")
	return cmd
}

func promoteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "promote [assignment-id...]",
		Short: "Copy completed assignments into history; all completed when no ids are given",
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			result, err := a.workflow.Promote(cmd.Context(), args)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		}),
	}
}

func importHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import-history <file>",
		Short: "Append past participations from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			doc, err := dataset.HistoryFromFile(args[0])
			if err != nil {
				return err
			}
			entries, err := a.history.Import(cmd.Context(), doc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d entries\n", len(entries))
			return nil
		}),
	}
}

func statsCommand() *cobra.Command {
	var rosterPath, historyPath string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Workload per member, least used first",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			var roster service.RosterReader = a.store
			if rosterPath != "" {
				persons, err := dataset.RosterFromFile(rosterPath)
				if err != nil {
					return err
				}
				roster = staticRoster(persons)
			}
			var history service.HistoryReader = a.store
			if historyPath != "" {
				doc, err := dataset.HistoryFromFile(historyPath)
				if err != nil {
					return err
				}
				entries, err := a.history.Prepare(doc)
				if err != nil {
					return err
				}
				history = staticHistory(entries)
			}
			stats, err := service.NewStatsService(roster, history, nil, a.logger).Workload(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		}),
	}
	cmd.Flags().StringVar(&rosterPath, "roster", "", "roster YAML file used instead of the stored roster")
	cmd.Flags().StringVar(&historyPath, "history", "", "history YAML file used instead of the stored history")
	return cmd
}

func tokenCommand() *cobra.Command {
	var userID, name, role string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for the HTTP API",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			expiry := a.cfg.JWT.Expiration
			if ttl > 0 {
				expiry = ttl
			}
			auth := service.NewAuthService(a.logger, service.AuthConfig{
				AccessTokenSecret: a.cfg.JWT.Secret,
				AccessTokenExpiry: expiry,
				Issuer:            a.cfg.JWT.Issuer,
			})
			token, expires, err := auth.IssueToken(userID, name, models.UserRole(strings.ToUpper(strings.TrimSpace(role))))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{
				"accessToken": token,
				"expiresAt":   expires,
				"tokenType":   "Bearer",
			})
		}),
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id (required)")
	cmd.Flags().StringVar(&name, "name", "", "display name recorded as approver")
	cmd.Flags().StringVar(&role, "role", string(models.RoleApprover), "ADMIN, APPROVER or VIEWER")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default from JWT_EXPIRATION)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
