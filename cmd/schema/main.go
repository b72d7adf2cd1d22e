package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"snake-arena/server/internal/net/proto"
)

type document struct {
	file        string
	title       string
	description string
	value       any
}

var documents = []document{
	{"client.schema.json", "Client Message", "Envelope for join, control and heartbeat frames sent by clients.", new(proto.ClientMessage)},
	{"setup.schema.json", "Setup", "Sent once after a successful join.", new(proto.Setup)},
	{"state.schema.json", "State", "Per-session world delta sent at the network rate.", new(proto.State)},
	{"death.schema.json", "Death", "Sent when the session's agent dies.", new(proto.Death)},
	{"heartbeat.schema.json", "Heartbeat Ack", "Server reply to a client heartbeat.", new(proto.HeartbeatAck)},
}

func main() {
	var outDir string
	flag.StringVar(&outDir, "out", "", "directory to write the JSON schemas")
	flag.Parse()

	if outDir == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	for _, doc := range documents {
		if err := writeSchema(filepath.Join(outDir, doc.file), buildSchema(doc)); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", doc.file, err)
			os.Exit(1)
		}
	}
}

func buildSchema(doc document) *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(doc.value)
	schema.Title = fmt.Sprintf("Snake Arena %s (protocol v%d)", doc.title, proto.Version)
	schema.Description = doc.description
	return schema
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
