package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/audit-cli/internal/model"
	"github.com/sells-group/audit-cli/internal/render"
	"github.com/sells-group/audit-cli/internal/workflow"
)

var (
	sessionFormat string
	sessionLimit  int
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect and manage audit sessions",
}

// sessionView is the machine-readable form of `session show`.
type sessionView struct {
	ID       string             `json:"id" yaml:"id"`
	Session  model.Session      `json:"session" yaml:"session"`
	Panel    workflow.PanelView `json:"panel" yaml:"panel"`
	Statuses []workflow.Status  `json:"statuses,omitempty" yaml:"statuses,omitempty"`
}

func newSessionView(o *workflow.Orchestrator) sessionView {
	return sessionView{
		ID:       o.Session().ID(),
		Session:  o.Session().Snapshot(),
		Panel:    o.Panel().View(),
		Statuses: o.Statuses(),
	}
}

func writeSessionView(w io.Writer, format string, v sessionView) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return enc.Close()
	case "text", "":
		render.Session(w, v.ID, v.Session)
		render.Panel(w, v.Panel)
		return nil
	default:
		return eris.Errorf("unknown format %q (text, json, yaml)", format)
	}
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the session fields and the comparison panel",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx, "session")
		if err != nil {
			return err
		}
		defer env.Close()

		o, err := env.openSession(ctx, sessionID, env.Services)
		if err != nil {
			return err
		}
		return writeSessionView(cmd.OutOrStdout(), sessionFormat, newSessionView(o))
	},
}

var sessionResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear every field of the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx, "session")
		if err != nil {
			return err
		}
		defer env.Close()

		o, err := env.openSession(ctx, sessionID, env.Services)
		if err != nil {
			return err
		}
		o.Session().Reset()
		fmt.Fprintf(cmd.OutOrStdout(), "Sesión %s reiniciada\n", sessionID)
		return nil
	},
}

var sessionNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create an empty session with a random id and print the id",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx, "session")
		if err != nil {
			return err
		}
		defer env.Close()

		id := uuid.NewString()
		if err := env.Store.SaveSession(ctx, id, model.Session{}); err != nil {
			return eris.Wrap(err, "create session")
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions, most recently updated first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx, "session")
		if err != nil {
			return err
		}
		defer env.Close()

		recs, err := env.Store.ListSessions(ctx, sessionLimit)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, r := range recs {
			fmt.Fprintf(w, "%-36s  %s  %s\n", r.ID, r.UpdatedAt.Format("2006-01-02 15:04"), preview(r.State.CaseStudy, 60))
		}
		return nil
	},
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored session and its comparison history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx, "session")
		if err != nil {
			return err
		}
		defer env.Close()

		return env.Store.DeleteSession(ctx, args[0])
	},
}

// preview returns the first line of s, sanitized and cut to n runes.
func preview(s string, n int) string {
	s = render.Sanitize(s)
	for i, r := range s {
		if r == '\n' {
			s = s[:i]
			break
		}
	}
	runes := []rune(s)
	if len(runes) > n {
		return string(runes[:n-1]) + "…"
	}
	return s
}

func init() {
	sessionShowCmd.Flags().StringVarP(&sessionFormat, "format", "o", "text", "output format: text, json or yaml")
	sessionListCmd.Flags().IntVar(&sessionLimit, "limit", 20, "maximum sessions to list")
	sessionCmd.AddCommand(sessionShowCmd, sessionResetCmd, sessionNewCmd, sessionListCmd, sessionDeleteCmd)
	rootCmd.AddCommand(sessionCmd)
}
