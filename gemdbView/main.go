package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	gemana "github.com/cms-gem-daq-project/gemana/pkg"
	"github.com/cms-gem-daq-project/gemana/pkg/gemdb"
)

type options struct {
	view    string
	chips   string
	dev     bool
	calInfo bool
	config  string
	debug   bool
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func render(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)
	return t.Render()
}

func tableRows(t *gemdb.Table) [][]string {
	rows := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		cells := make([]string, len(t.Columns))
		for i, column := range t.Columns {
			cells[i] = row.String(column)
		}
		rows = append(rows, cells)
	}
	return rows
}

func calInfoRows(infos []gemdb.CalInfo) [][]string {
	format := func(v float64) string {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, []string{
			strconv.Itoa(info.VFATN), info.SerNum, info.Barcode, strconv.Itoa(info.Iref),
			format(info.ADC0M), format(info.ADC1M), format(info.ADC0B), format(info.ADC1B),
			format(info.CalDACM), format(info.CalDACB),
		})
	}
	return rows
}

func run(ctx context.Context, args []string) error {
	var opts options
	fs := flag.NewFlagSet("gemdbView", flag.ContinueOnError)
	fs.StringVar(&opts.view, "view", gemdb.ViewVFAT3ProdSummary, "GEM DB view, one of "+strings.Join(gemdb.KnownViews, ", "))
	fs.StringVar(&opts.chips, "chips", "", "comma separated chip IDs ordered by VFAT position, e.g. 0xdead,0xbeef")
	fs.BoolVar(&opts.dev, "dev", false, "query the development database instead of production")
	fs.BoolVar(&opts.calInfo, "calinfo", false, "print the VFAT3 calibration constants")
	fs.StringVar(&opts.config, "config", "", "configuration file path")
	fs.BoolVar(&opts.debug, "debug", false, "print extra debugging information")
	if err := fs.Parse(args); err != nil {
		return &gemana.ErrUsage{Option: "arguments", Value: strings.Join(args, " "), Reason: err.Error()}
	}

	chipIDs, err := gemdb.ParseChipIDs(opts.chips)
	if err != nil {
		return err
	}
	// Reject unknown views before connecting.
	if _, _, err := gemdb.BuildViewQuery(opts.view, nil); err != nil {
		return err
	}

	configuration, err := gemana.LoadConfiguration(opts.config)
	if err != nil {
		return fmt.Errorf("error reading configuration file: %w", err)
	}
	logger := gemana.NewStdLogger(opts.debug)
	gemana.SetLogger(logger)

	accessor, err := gemdb.ForEnvironment(configuration, !opts.dev)
	if err != nil {
		return err
	}
	defer accessor.Close()
	accessor.Debug = accessor.Debug || opts.debug

	if opts.calInfo {
		infos, err := accessor.GetVFAT3CalInfo(ctx, chipIDs)
		if err != nil {
			return err
		}
		fmt.Println(render(gemdb.CalInfoColumns, calInfoRows(infos)))
		return nil
	}

	t, err := accessor.GetView(ctx, opts.view, chipIDs)
	if err != nil {
		return err
	}
	fmt.Println(render(t.Columns, tableRows(t)))
	return nil
}

func main() {
	err := run(context.Background(), os.Args[1:])
	if err == nil {
		return
	}
	gemana.NewStdLogger(false).Error(err.Error())
	if gemana.IsUsage(err) {
		os.Exit(gemana.ExitUsage)
	}
	os.Exit(1)
}
