package main

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/expense-reports/internal/application/service"
	"github.com/garyjia/expense-reports/internal/domain/flatten"
)

// tableAll exports every table at once
const tableAll = "all"

type exportOptions struct {
	Input   string
	Table   string
	Format  string
	OutDir  string
	Search  string
	Profile string
	Nature  string
	Strict  *bool
}

var (
	exportOpts   exportOptions
	exportStrict bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Render one table, or every table, to CSV, PDF or XLSX",
	Long: `Export processes the input document and writes the selected table under
<out>/<fingerprint>/. With --table all, xlsx produces one workbook with a
sheet per table, pdf produces one document with a section per table and csv
produces one file per table.

Tables: profile-natures, rules, accounting, comparison (needs --nature).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := exportOpts
		if cmd.Flags().Changed("strict") {
			opts.Strict = &exportStrict
		}
		return runExport(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOpts.Input, "input", "i", "", "Path to the exported JSON document")
	exportCmd.Flags().StringVarP(&exportOpts.Table, "table", "t", tableAll, "Table to export, or \"all\"")
	exportCmd.Flags().StringVarP(&exportOpts.Format, "format", "f", string(service.FormatXLSX), "Output format: csv, pdf or xlsx")
	exportCmd.Flags().StringVarP(&exportOpts.OutDir, "out", "o", "", "Output directory (overrides storage.output_dir)")
	exportCmd.Flags().StringVar(&exportOpts.Search, "search", "", "Keep rows containing every search term")
	exportCmd.Flags().StringVar(&exportOpts.Profile, "profile", "", "Keep rows of this profile")
	exportCmd.Flags().StringVar(&exportOpts.Nature, "nature", "", "Keep rows of this nature id")
	exportCmd.Flags().BoolVar(&exportStrict, "strict", false, "Reject documents that deviate from the schema")
	_ = exportCmd.MarkFlagRequired("input")
}

// replacedNotice prefixes the path of an export that overwrote an earlier one
const replacedNotice = "Fichier remplacé : "

func runExport(ctx context.Context, opts exportOptions, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	format, err := service.ParseFormat(opts.Format)
	if err != nil {
		return err
	}

	env, err := bootstrap(ctx, cfgFile, opts.OutDir, verbose, stderr)
	if err != nil {
		return err
	}
	defer env.close()

	snap, err := env.process(ctx, opts.Input, opts.Strict)
	if err != nil {
		return err
	}

	exports, err := renderExports(env.container.Services().Exports, snap, opts, format)
	if err != nil {
		return err
	}

	store := env.container.Storage()
	dir := shortFingerprint(snap)
	for _, export := range exports {
		name := path.Join(dir, export.FileName)
		replaced := store.Exists(ctx, name)
		fullPath, err := store.Save(ctx, name, export.Content)
		if err != nil {
			return err
		}
		env.logger.Debug("Export written",
			zap.String("path", fullPath),
			zap.Int("rows", export.Rows),
			zap.Bool("replaced", replaced))
		if replaced {
			fmt.Fprintln(stderr, replacedNotice+fullPath)
		}
		fmt.Fprintln(stdout, fullPath)
	}

	for _, msg := range snap.Audit.Messages() {
		fmt.Fprintln(stderr, "⚠ "+msg)
	}
	return nil
}

func renderExports(exports *service.ExportService, snap *service.Snapshot, opts exportOptions, format service.Format) ([]*service.Export, error) {
	if opts.Table != tableAll {
		export, err := exports.Export(snap, service.ExportRequest{
			Table:  opts.Table,
			Format: format,
			Selection: service.Selection{
				Search:   opts.Search,
				Profile:  opts.Profile,
				NatureID: opts.Nature,
			},
		})
		if err != nil {
			return nil, err
		}
		return []*service.Export{export}, nil
	}

	switch format {
	case service.FormatXLSX:
		export, err := exports.ExportWorkbook(snap)
		if err != nil {
			return nil, err
		}
		return []*service.Export{export}, nil
	case service.FormatPDF:
		export, err := exports.ExportPDFBundle(snap)
		if err != nil {
			return nil, err
		}
		return []*service.Export{export}, nil
	}

	result := make([]*service.Export, 0, len(flatten.TableNames))
	for _, name := range flatten.TableNames {
		export, err := exports.Export(snap, service.ExportRequest{Table: name, Format: format})
		if err != nil {
			return nil, err
		}
		result = append(result, export)
	}
	return result, nil
}
