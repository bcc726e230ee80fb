// dbfdump prints the records of a DBF file as JSON lines.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	godbf "github.com/Wasenshi123/DBFFile"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("dbfdump", flag.ContinueOnError)
	flags.SetOutput(stderr)
	encoding := flags.String("encoding", "", "codepage name for text fields (default: header language driver, then latin1)")
	loose := flags.Bool("loose", false, "tolerate unsupported versions and field types instead of failing")
	includeDeleted := flags.Bool("include-deleted", false, "emit deleted records too, with a _deleted key")
	limit := flags.Int("limit", 0, "stop after this many records (0 = all)")
	meta := flags.Bool("meta", false, "print header metadata instead of records")

	if err := flags.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if flags.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: dbfdump [flags] <file.dbf>")
		return 2
	}

	cfg := &godbf.Config{
		Encoding:       *encoding,
		IncludeDeleted: *includeDeleted,
	}
	if *loose {
		cfg.ReadMode = godbf.ReadModeLoose
	}

	dbf, err := godbf.Open(flags.Arg(0), cfg)
	if err != nil {
		fmt.Fprintln(stderr, "dbfdump:", err)
		return 1
	}
	defer dbf.Close()

	out := bufio.NewWriter(stdout)
	defer out.Flush()
	enc := json.NewEncoder(out)

	if *meta {
		fieldNames := []string{}
		for _, f := range dbf.Fields() {
			fieldNames = append(fieldNames, f.Name)
		}
		err := enc.Encode(map[string]interface{}{
			"dialect":     dbf.Dialect().String(),
			"records":     dbf.NumRecords(),
			"last_update": dbf.LastUpdate().Format("2006-01-02"),
			"fields":      fieldNames,
		})
		if err != nil {
			fmt.Fprintln(stderr, "dbfdump:", err)
			return 1
		}
		return 0
	}

	emitted := 0
	for rec, err := range dbf.Records() {
		if err != nil {
			fmt.Fprintln(stderr, "dbfdump:", err)
			return 1
		}
		row := rec.Values
		if *includeDeleted {
			row["_deleted"] = rec.Deleted
		}
		if err := enc.Encode(row); err != nil {
			fmt.Fprintln(stderr, "dbfdump:", err)
			return 1
		}
		emitted++
		if *limit > 0 && emitted >= *limit {
			break
		}
	}
	return 0
}
