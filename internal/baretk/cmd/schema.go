package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
)

// Config represents configuration for the baretk tool
type Config struct {
	Debug   bool   `json:"debug" jsonschema:"title=Debug,description=Enable debug logging"`
	Machine string `json:"machine" jsonschema:"title=Machine,description=Architecture hint for raw images"`
	Lang    string `json:"lang" jsonschema:"title=Language,description=Decompiler output language (pseudo or c)"`
}

var schemaCmd = &cobra.Command{
	Use:    "schema",
	Short:  "Generate JSON schema for configuration",
	Long:   "Generate JSON schema for the baretk configuration",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		reflector := new(jsonschema.Reflector)
		bts, err := json.MarshalIndent(reflector.Reflect(&Config{}), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal schema: %w", err)
		}
		fmt.Println(string(bts))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
