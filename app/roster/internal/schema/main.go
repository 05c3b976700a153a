package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/cozummakina/montaj/app/roster"
)

func main() {
	schema := jsonschema.Reflect(&roster.File{})
	schema.Title = "Montaj Roster Schema"
	schema.Description = "Schema for the montaj personnel roster file"
	schema.Version = "1.0.0"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		log.Fatalf("failed to marshal schema: %v", err)
	}

	outputPath := "roster-schema.json"
	if len(os.Args) > 1 {
		outputPath = os.Args[1]
	}
	if err := os.WriteFile(outputPath, data, 0o600); err != nil { //nolint:gosec // schema file is not sensitive
		log.Fatalf("failed to write schema file: %v", err)
	}
	fmt.Printf("Schema generated successfully at %s\n", outputPath)
}
