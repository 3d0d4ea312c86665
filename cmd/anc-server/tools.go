package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ehr/anc/internal/config"
	"github.com/ehr/anc/internal/domain/triage"
	"github.com/ehr/anc/internal/platform/auth"
)

func catalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Print the risk factor catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printCatalog(cmd.OutOrStdout(), triage.DefaultCatalog())
		},
	}
}

func printCatalog(w io.Writer, cat *triage.Catalog) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tID\tPOINTS\tLABEL")
	for _, g := range []triage.Group{triage.GroupI, triage.GroupII, triage.GroupIII} {
		for _, f := range cat.ByGroup(g) {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", f.Group, f.ID, f.Points, f.Label)
		}
	}
	fmt.Fprintf(tw, "\nbase score %d, YELLOW from %d, RED from %d\n", triage.BaseScore, triage.YellowThreshold, triage.RedThreshold)
	return tw.Flush()
}

type classifyFlags struct {
	factors  []string
	bp       string
	fhr      int
	danger   []string
	movement string
	json     bool
}

func (f classifyFlags) vitals() *triage.VisitVitals {
	if f.bp == "" && f.fhr == 0 && len(f.danger) == 0 && f.movement == "" {
		return nil
	}
	return &triage.VisitVitals{
		BloodPressure:  f.bp,
		FetalHeartRate: f.fhr,
		DangerSigns:    f.danger,
		FetalMovement:  triage.ParseFetalMovement(f.movement),
	}
}

func classifyCmd() *cobra.Command {
	var f classifyFlags
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify a screening profile and visit vitals",
		Example: `  anc-server classify --factors PR_TOO_OLD,AGO_TWINS
  anc-server classify --bp 170/110 --fhr 150`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat := triage.DefaultCatalog()
			if unknown := cat.Unknown(f.factors); len(unknown) > 0 {
				return fmt.Errorf("unknown risk factors: %s (see `anc-server catalog`)", strings.Join(unknown, ", "))
			}
			res := triage.NewClassifier(cat).Classify(triage.NewScreeningProfile(f.factors...), f.vitals())
			return printResult(cmd.OutOrStdout(), res, f.json)
		},
	}
	cmd.Flags().StringSliceVar(&f.factors, "factors", nil, "risk factor IDs, comma separated")
	cmd.Flags().StringVar(&f.bp, "bp", "", "blood pressure as systolic/diastolic")
	cmd.Flags().IntVar(&f.fhr, "fhr", 0, "fetal heart rate in bpm")
	cmd.Flags().StringSliceVar(&f.danger, "danger", nil, "danger signs, comma separated")
	cmd.Flags().StringVar(&f.movement, "movement", "", "fetal movement: Normal, Reduced or Absent")
	cmd.Flags().BoolVar(&f.json, "json", false, "print JSON")
	return cmd
}

func printResult(w io.Writer, res triage.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	fmt.Fprintf(w, "category:    %s (%s)\n", res.Category, res.Description)
	fmt.Fprintf(w, "score:       %d\n", res.Score)
	fmt.Fprintf(w, "priority:    %d\n", res.Priority)
	fmt.Fprintf(w, "color token: %s\n", res.ColorToken)
	if len(res.Signals) > 0 {
		names := make([]string, len(res.Signals))
		for i, s := range res.Signals {
			names[i] = string(s)
		}
		fmt.Fprintf(w, "signals:     %s\n", strings.Join(names, ", "))
	}
	return nil
}

func gestationCmd() *cobra.Command {
	var lmp, at string
	cmd := &cobra.Command{
		Use:   "gestation",
		Short: "Compute gestational age and due date from an LMP",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, ok := triage.ParseDate(lmp)
			if !ok {
				return fmt.Errorf("--lmp must be YYYY-MM-DD, got %q", lmp)
			}
			now := time.Now().UTC()
			if at != "" {
				if now, ok = triage.ParseDate(at); !ok {
					return fmt.Errorf("--at must be YYYY-MM-DD, got %q", at)
				}
			}
			info, ok := triage.Progress(start, now)
			if !ok {
				return errors.New("LMP is after the reference date")
			}
			printGestation(cmd.OutOrStdout(), info)
			return nil
		},
	}
	cmd.Flags().StringVar(&lmp, "lmp", "", "first day of the last menstrual period (YYYY-MM-DD)")
	cmd.Flags().StringVar(&at, "at", "", "reference date, defaults to today (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("lmp")
	return cmd
}

func printGestation(w io.Writer, info triage.GestationalInfo) {
	fmt.Fprintf(w, "gestational age: %d weeks %d days (%d days, month %d)\n", info.Weeks, info.Days-info.Weeks*7, info.Days, info.Months)
	fmt.Fprintf(w, "due date:        %s\n", info.EstimatedDueDate.Format("2006-01-02"))
	fmt.Fprintf(w, "progress:        %d%%\n", info.PercentComplete)
	fmt.Fprintf(w, "size:            %s\n", triage.FetalSize(info.Weeks))
}

func tokenCmd() *cobra.Command {
	var (
		subject string
		name    string
		roles   []string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed bearer token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.AuthSigningKey == "" {
				return errors.New("AUTH_SIGNING_KEY is not set")
			}
			for _, r := range roles {
				switch r {
				case auth.RoleAdmin, auth.RoleMidwife, auth.RolePatient:
				default:
					return fmt.Errorf("unknown role %q", r)
				}
			}
			tok, err := auth.IssueToken(jwtConfig(cfg), subject, name, roles, ttl)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "sub", "", "subject (user id)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringSliceVar(&roles, "role", []string{auth.RoleMidwife}, "roles: admin, midwife, patient")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("sub")
	return cmd
}
