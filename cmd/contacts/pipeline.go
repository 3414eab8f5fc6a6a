package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/recruit-dashboard/backend/internal/contacts"
	"github.com/recruit-dashboard/backend/internal/upload"
	"github.com/spf13/cobra"
)

// dataset is one loaded export with its deduplicated view.
type dataset struct {
	schema   contacts.Schema
	original *contacts.Table
	deduped  *contacts.Table
}

func schemaFlag(cmd *cobra.Command) (contacts.Schema, error) {
	path, err := cmd.Flags().GetString("schema")
	if err != nil {
		return contacts.Schema{}, err
	}
	return contacts.LoadSchema(path)
}

// loadDataset reads a CSV (optionally gzipped) and deduplicates it by phone number.
func loadDataset(cmd *cobra.Command, path string) (*dataset, error) {
	schema, err := schemaFlag(cmd)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	payload, err := upload.ReadPayload(path, file, upload.DefaultLimits())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	original, err := contacts.Load(bytes.NewReader(payload.Data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := original.Require(schema.Required()...); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	deduped, err := contacts.Deduplicate(original, schema.PhoneNumber)
	if err != nil {
		return nil, err
	}
	return &dataset{schema: schema, original: original, deduped: deduped}, nil
}
