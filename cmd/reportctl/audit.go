package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/garyjia/expense-reports/internal/application/service"
)

type auditOptions struct {
	Input  string
	Notify bool
	Fail   bool
	Strict *bool
}

var (
	auditOpts   auditOptions
	auditStrict bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Report data-integrity findings of a document",
	Long: `Audit processes the input document and prints natures granted or cited
without a definition, rules without a usable amount and fields the parser
had to default or skip.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := auditOpts
		if cmd.Flags().Changed("strict") {
			opts.Strict = &auditStrict
		}
		return runAudit(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().StringVarP(&auditOpts.Input, "input", "i", "", "Path to the exported JSON document")
	auditCmd.Flags().BoolVar(&auditOpts.Notify, "notify", false, "Send the audit digest to the configured Lark chat")
	auditCmd.Flags().BoolVar(&auditOpts.Fail, "fail-on-findings", false, "Exit with an error when the audit is not clean")
	auditCmd.Flags().BoolVar(&auditStrict, "strict", false, "Reject documents that deviate from the schema")
	_ = auditCmd.MarkFlagRequired("input")
}

func runAudit(ctx context.Context, opts auditOptions, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	env, err := bootstrap(ctx, cfgFile, "", verbose, stderr)
	if err != nil {
		return err
	}
	defer env.close()

	snap, err := env.process(ctx, opts.Input, opts.Strict)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, service.BuildAuditDigest(snap))

	if opts.Notify {
		messageID, err := env.container.Services().Notifications.NotifyAudit(ctx, snap)
		if err != nil {
			return err
		}
		fmt.Fprintf(stderr, "Digest sent (message %s)\n", messageID)
	}

	if opts.Fail && !snap.Audit.Clean() {
		return fmt.Errorf("audit found %d issue(s)", snap.Audit.Count())
	}
	return nil
}
