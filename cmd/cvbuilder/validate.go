package main

import (
	"fmt"

	"github.com/jonathan/cv-builder/internal/schemas"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a JSON file against an embedded schema",
	Long: `Validate a CV draft export or cover letter form against one of the embedded
JSON Schemas. Use --list to see the schema names and --show to print one.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

var (
	validateSchema string
	validateJSON   string
	validateList   bool
	validateShow   bool
)

func init() {
	validateCmd.Flags().StringVarP(&validateSchema, "schema", "s", "", "Schema name, e.g. "+schemas.CVDraft)
	validateCmd.Flags().StringVarP(&validateJSON, "json", "j", "", "Path to the JSON file to validate")
	validateCmd.Flags().BoolVar(&validateList, "list", false, "List the embedded schemas")
	validateCmd.Flags().BoolVar(&validateShow, "show", false, "Print the schema named by --schema")
	validateCmd.MarkFlagsMutuallyExclusive("list", "show")
	validateCmd.MarkFlagsMutuallyExclusive("list", "json")
	validateCmd.MarkFlagsMutuallyExclusive("show", "json")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	if validateList {
		for _, name := range schemas.Names() {
			_, _ = fmt.Fprintln(out, name)
		}
		return nil
	}
	if validateSchema == "" {
		return fmt.Errorf("required flag \"schema\" not set")
	}
	if validateShow {
		src, err := schemas.Source(validateSchema)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, string(src))
		return nil
	}
	if validateJSON == "" {
		return fmt.Errorf("required flag \"json\" not set")
	}

	if err := schemas.ValidateFile(validateSchema, validateJSON); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Validation passed: %s matches %s\n", validateJSON, validateSchema)
	return nil
}
