// Command mkdirty generates a deterministic customer dataset with the usual
// quality problems: missing cells, sentinels, padded and case-variant text,
// unparseable numbers and dates, outliers, an almost empty column and
// duplicated rows. The output type follows the file extension.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/TFMV/scour/pkg/core"
	"github.com/TFMV/scour/pkg/writers"
)

const (
	defaultRows    = 1000
	defaultOutFile = "dirty_customers.csv"
	defaultSeed    = 42

	firstNames   = "John,Jane,Bob,Mary,Alice,David,Emma,Michael,Olivia,James,Sophia,William,Ava,Benjamin,Mia,Daniel"
	lastNames    = "Smith,Johnson,Williams,Jones,Brown,Davis,Miller,Wilson,Moore,Taylor,Anderson,Thomas"
	domains      = "gmail.com,yahoo.com,outlook.com,example.com,company.com"
	statusValues = "active,inactive,pending,suspended"
	sentinels    = "N/A,n/a,-,?,null"
)

// Config controls the generator.
type Config struct {
	Rows          int
	Seed          int64
	NullRate      float64
	ErrorRate     float64
	DuplicateRate float64
	Output        string
}

func main() {
	if err := newCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	cfg := Config{
		Rows:          defaultRows,
		Seed:          defaultSeed,
		NullRate:      0.05,
		ErrorRate:     0.02,
		DuplicateRate: 0.01,
		Output:        defaultOutFile,
	}

	cmd := &cobra.Command{
		Use:   "mkdirty",
		Short: "Generate a deterministic dirty dataset for exercising scour",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for name, r := range map[string]float64{"nulls": cfg.NullRate, "errors": cfg.ErrorRate, "duplicates": cfg.DuplicateRate} {
				if r < 0 || r > 1 {
					return fmt.Errorf("--%s must be between 0 and 1", name)
				}
			}
			if cfg.Rows <= 0 {
				return fmt.Errorf("--rows must be positive")
			}
			ds := Generate(cfg)
			if err := writers.Save(cmd.Context(), core.WriterConfig{Path: cfg.Output}, ds); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to %s\n", ds.NumRows(), cfg.Output)
			return nil
		},
	}

	cmd.Flags().IntVarP(&cfg.Rows, "rows", "n", cfg.Rows, "Number of distinct rows to generate")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed for data generation")
	cmd.Flags().Float64Var(&cfg.NullRate, "nulls", cfg.NullRate, "Rate of missing cells (0.0-1.0)")
	cmd.Flags().Float64Var(&cfg.ErrorRate, "errors", cfg.ErrorRate, "Rate of malformed cells (0.0-1.0)")
	cmd.Flags().Float64Var(&cfg.DuplicateRate, "duplicates", cfg.DuplicateRate, "Rate of duplicated rows (0.0-1.0)")
	cmd.Flags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output file (csv, json, xlsx, parquet, arrow)")
	cmd.SetContext(context.Background())

	return cmd
}

// Generate builds the dataset. The same Config always yields the same rows.
func Generate(cfg Config) *core.Dataset {
	rnd := rand.New(rand.NewSource(cfg.Seed))
	first := strings.Split(firstNames, ",")
	last := strings.Split(lastNames, ",")
	doms := strings.Split(domains, ",")
	statuses := strings.Split(statusValues, ",")
	sents := strings.Split(sentinels, ",")

	names := []string{"customer_id", "name", "email", "age", "signup_date", "status", "balance", "notes"}
	cols := make([][]core.Value, len(names))

	pick := func(s []string) string { return s[rnd.Intn(len(s))] }
	missing := func() bool { return rnd.Float64() < cfg.NullRate }
	broken := func() bool { return rnd.Float64() < cfg.ErrorRate }

	for i := 0; i < cfg.Rows; i++ {
		id, err := uuid.NewRandomFromReader(rnd)
		if err != nil {
			panic(err)
		}
		fn, ln := pick(first), pick(last)
		row := make([]core.Value, len(names))

		row[0] = core.Text(id.String())

		name := fn + " " + ln
		switch {
		case broken():
			name = "  " + name + " "
		case broken():
			name = strings.ToUpper(name)
		}
		row[1] = core.Text(name)

		row[2] = core.Text(strings.ToLower(fn+"."+ln) + "@" + pick(doms))

		age := strconv.Itoa(18 + rnd.Intn(60))
		switch {
		case broken():
			age = strconv.Itoa(300 + rnd.Intn(700))
		case broken():
			age = pick(sents)
		}
		row[3] = core.Text(age)

		day := 1 + rnd.Intn(28)
		month := 1 + rnd.Intn(12)
		year := 2015 + rnd.Intn(10)
		date := fmt.Sprintf("%04d-%02d-%02d", year, month, day)
		switch {
		case broken():
			date = fmt.Sprintf("%02d/%02d/%04d", month, day, year)
		case broken():
			date = "not a date"
		}
		row[4] = core.Text(date)

		status := pick(statuses)
		if broken() {
			status = strings.ToUpper(status[:1]) + status[1:]
		}
		row[5] = core.Text(status)

		balance := strconv.FormatFloat(float64(rnd.Intn(1_000_000))/100, 'f', 2, 64)
		if broken() {
			balance = "$" + balance
		}
		row[6] = core.Text(balance)

		if rnd.Float64() < 0.9 {
			row[7] = core.NullValue()
		} else {
			row[7] = core.Text("call back")
		}

		for j := 1; j < 7; j++ {
			if missing() {
				row[j] = core.NullValue()
			}
		}
		for j := range row {
			cols[j] = append(cols[j], row[j])
		}
	}

	dups := int(float64(cfg.Rows) * cfg.DuplicateRate)
	for d := 0; d < dups; d++ {
		src := rnd.Intn(cfg.Rows)
		for j := range cols {
			cols[j] = append(cols[j], cols[j][src])
		}
	}

	ds := &core.Dataset{Name: "customers"}
	for j, name := range names {
		ds.Columns = append(ds.Columns, &core.Column{
			Name:    name,
			Type:    core.TypeUnknown,
			Storage: core.StorageString,
			Values:  cols[j],
		})
	}
	return ds
}
