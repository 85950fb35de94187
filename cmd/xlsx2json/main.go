// Command xlsx2json reads a commissioning workbook on stdin and writes its
// programming JSON to stdout. Exit status 2 means the workbook has no
// programming details sheet.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"commissioning-backend/internal/converter"

	flag "github.com/spf13/pflag"
)

func main() {
	os.Exit(run())
}

func run() int {
	sheet := flag.String("sheet", converter.DefaultSheetMatch, "convert sheets whose name contains this text")
	compact := flag.Bool("compact", false, "write JSON without indentation")
	flag.Parse()

	prog, err := converter.Convert(os.Stdin, *sheet)
	if errors.Is(err, converter.ErrNoProgrammingSheet) {
		fmt.Fprintln(os.Stderr, "xlsx2json:", err)
		return 2
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "xlsx2json:", err)
		return 1
	}

	var out []byte
	if *compact {
		out, err = json.Marshal(prog)
	} else {
		out, err = json.MarshalIndent(prog, "", "    ")
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "xlsx2json:", err)
		return 1
	}
	out = append(out, '\n')
	if _, err := os.Stdout.Write(out); err != nil {
		fmt.Fprintln(os.Stderr, "xlsx2json:", err)
		return 1
	}
	return 0
}
