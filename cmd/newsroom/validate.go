package main

import (
	"fmt"
	"os"

	"github.com/jonathan/jobs-newsroom/internal/schemas"
	"github.com/spf13/cobra"
)

var (
	validateJSON   string
	validateSchema string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a model response against the article schema",
	Long: `Checks a JSON file against the embedded article schema, the same check applied to every generator response.
Pass --schema to check against a draft schema file instead.`,
	RunE: runValidateCmd,
}

func init() {
	validateCmd.Flags().StringVar(&validateJSON, "json", "", "Path to the JSON document to validate")
	validateCmd.Flags().StringVar(&validateSchema, "schema", "", "Path to a JSON schema to use instead of the embedded article schema")
	_ = validateCmd.MarkFlagRequired("json")
	rootCmd.AddCommand(validateCmd)
}

func runValidateCmd(cmd *cobra.Command, _ []string) error {
	data, err := os.ReadFile(validateJSON)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", validateJSON, err)
	}

	if validateSchema == "" {
		err = schemas.ValidateArticle(data)
	} else {
		schema, readErr := os.ReadFile(validateSchema)
		if readErr != nil {
			return fmt.Errorf("failed to read schema %s: %w", validateSchema, readErr)
		}
		err = schemas.ValidateJSONString(string(schema), string(data))
	}
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Validation passed")
	return nil
}
