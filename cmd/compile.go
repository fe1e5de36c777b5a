package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/product-os/autumndb-sub002/internal/compiler"
)

var (
	compileSchemaPath string
	compileSortBy     string
	compileSortVer    bool
	compileSortDesc   bool
	compileSkip       int
	compileLimit      int
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile a JSON-Schema query document to SQL",
	Long:  "Reads a JSON-Schema document from --schema (or stdin) and prints the compiled SQL statement and its bound arguments.",
	RunE:  runCompile,
}

func init() {
	compileCmd.Flags().StringVar(&compileSchemaPath, "schema", "", "Path to a JSON-Schema document (default: read from stdin)")
	compileCmd.Flags().StringVar(&compileSortBy, "sort-by", "", "Comma-separated property path to sort by")
	compileCmd.Flags().BoolVar(&compileSortVer, "sort-version", false, "Sort by the contract's semver components")
	compileCmd.Flags().BoolVar(&compileSortDesc, "desc", false, "Sort in descending order")
	compileCmd.Flags().IntVar(&compileSkip, "skip", 0, "Number of rows to skip")
	compileCmd.Flags().IntVar(&compileLimit, "limit", 100, "Maximum number of rows to return")
}

func runCompile(cmd *cobra.Command, args []string) error {
	raw, err := readInput(compileSchemaPath)
	if err != nil {
		return err
	}

	opts := compiler.Options{
		SortVersion: compileSortVer,
		SortDesc:    compileSortDesc,
		Skip:        compileSkip,
		Limit:       compileLimit,
	}
	if compileSortBy != "" {
		opts.SortBy = splitNonEmpty(compileSortBy, ',')
	}

	query, err := compiler.Compile(raw, opts)
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}

	out := struct {
		SQL  string `json:"sql"`
		Args []any  `json:"args"`
	}{SQL: query.SQL, Args: query.Args}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func readInput(path string) ([]byte, error) {
	if path == "" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func splitNonEmpty(s string, sep rune) []string {
	var out []string
	start := 0
	for i, r := range s {
		if r == sep {
			if part := s[start:i]; part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	if part := s[start:]; part != "" {
		out = append(out, part)
	}
	return out
}
